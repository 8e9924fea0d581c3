// Package operators provides the small generic operators every workflow
// wires around the domain-specific ones: pagination (Limit), a stateless
// reshaping hook (CustomProcessor), the KV read/write wrappers, and the four
// state-store wrappers the spec names (InsertPendingIDs, GetAllPendingIDs,
// MarkIDsAsFinished, FilterFinishedIDs).
package operators

import (
	"context"

	"github.com/paperflow/paperflow/engine/dag"
)

// Limit truncates its input slice (of any element type) to at most N items.
// Implemented with reflection-free generics: Process asserts its untyped
// input to []T, with T fixed when NewLimit is instantiated.
type Limit[T any] struct {
	dag.NopLifecycle
	N int
}

// NewLimit builds a Limit operator for element type T.
func NewLimit[T any](n int) *Limit[T] { return &Limit[T]{N: n} }

func (l *Limit[T]) Process(ctx context.Context, input any) (any, error) {
	items := input.([]T)
	if l.N <= 0 || len(items) <= l.N {
		return items, nil
	}
	return items[:l.N], nil
}

// CustomProcessor wraps an arbitrary pure function as an Operator, the way
// the spec's CustomProcessor lets a workflow splice in one-off logic (e.g.
// sorting a push batch by update date) without a dedicated operator type.
type CustomProcessor[In, Out any] struct {
	dag.NopLifecycle
	Fn func(In) (Out, error)
}

// NewCustomProcessor wraps fn as an Operator.
func NewCustomProcessor[In, Out any](fn func(In) (Out, error)) *CustomProcessor[In, Out] {
	return &CustomProcessor[In, Out]{Fn: fn}
}

func (c *CustomProcessor[In, Out]) Process(ctx context.Context, input any) (any, error) {
	return c.Fn(input.(In))
}
