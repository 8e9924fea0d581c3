package operators

import (
	"context"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/paper"
	"github.com/paperflow/paperflow/engine/store"
)

// IDOf extracts the state-store key from an item. Workflows supply one per
// element type (paper.IDOf, paper.WithSummaryIDOf, or a plain identity
// function over strings).
type IDOf[T any] func(T) string

// InsertPendingIDs marks every input item PENDING in st (unless already
// FINISHED — see store.State.StorePending) and passes the items through
// unchanged, so a downstream stage can still see the full batch.
type InsertPendingIDs[T any] struct {
	dag.NopLifecycle
	State *store.State
	IDOf  IDOf[T]
}

func NewInsertPendingIDs[T any](st *store.State, idOf IDOf[T]) *InsertPendingIDs[T] {
	return &InsertPendingIDs[T]{State: st, IDOf: idOf}
}

func (o *InsertPendingIDs[T]) Process(ctx context.Context, input any) (any, error) {
	items := input.([]T)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = o.IDOf(item)
	}
	if err := o.State.StorePending(ids); err != nil {
		return nil, err
	}
	return items, nil
}

// GetAllPendingIDs ignores its input and returns the namespace's pending id
// set as a []string. Used to resume a workflow's backlog across runs.
type GetAllPendingIDs struct {
	dag.NopLifecycle
	State *store.State
}

func NewGetAllPendingIDs(st *store.State) *GetAllPendingIDs { return &GetAllPendingIDs{State: st} }

func (o *GetAllPendingIDs) Process(ctx context.Context, _ any) (any, error) {
	pending, err := o.State.GetPending()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	return ids, nil
}

// MarkIDsAsFinished marks every input item FINISHED in st and passes the
// items through unchanged.
type MarkIDsAsFinished[T any] struct {
	dag.NopLifecycle
	State *store.State
	IDOf  IDOf[T]
}

func NewMarkIDsAsFinished[T any](st *store.State, idOf IDOf[T]) *MarkIDsAsFinished[T] {
	return &MarkIDsAsFinished[T]{State: st, IDOf: idOf}
}

func (o *MarkIDsAsFinished[T]) Process(ctx context.Context, input any) (any, error) {
	items := input.([]T)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = o.IDOf(item)
	}
	if err := o.State.MarkFinished(ids); err != nil {
		return nil, err
	}
	return items, nil
}

// FilterFinishedIDs drops every input item whose id is already FINISHED in
// st. This is the core at-most-once guard: once an item is marked finished
// by a prior run, a re-invocation of the same workflow never reprocesses it.
type FilterFinishedIDs[T any] struct {
	dag.NopLifecycle
	State *store.State
	IDOf  IDOf[T]
}

func NewFilterFinishedIDs[T any](st *store.State, idOf IDOf[T]) *FilterFinishedIDs[T] {
	return &FilterFinishedIDs[T]{State: st, IDOf: idOf}
}

func (o *FilterFinishedIDs[T]) Process(ctx context.Context, input any) (any, error) {
	items := input.([]T)
	out := make([]T, 0, len(items))
	for _, item := range items {
		finished, err := o.State.IsFinished(o.IDOf(item))
		if err != nil {
			return nil, err
		}
		if !finished {
			out = append(out, item)
		}
	}
	return out, nil
}

// PaperIDOf and WithSummaryIDOf are the two IDOf functions every workflow in
// this repo needs; kept here rather than in engine/paper so that package has
// no dependency on engine/store's generic-instantiation concerns.
var (
	PaperIDOf       IDOf[paper.Paper]      = paper.IDOf
	WithSummaryIDOf IDOf[paper.WithSummary] = paper.WithSummaryIDOf
)
