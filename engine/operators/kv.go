package operators

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/store"
)

// KVWriter merges []T into a KV namespace, keyed by KeyFn(item) and valued
// by ValueFn(item). SkipNil resolves the spec's KVWriter open question: by
// default (false) a nil value still records its key, matching the original
// implementation's behavior for rejected papers.
type KVWriter[T any] struct {
	dag.NopLifecycle
	KV      *store.KV
	KeyFn   func(T) string
	ValueFn func(T) any
	SkipNil bool
}

// NewKVWriter builds a KVWriter over kv.
func NewKVWriter[T any](kv *store.KV, keyFn func(T) string, valueFn func(T) any) *KVWriter[T] {
	return &KVWriter[T]{KV: kv, KeyFn: keyFn, ValueFn: valueFn}
}

func (w *KVWriter[T]) Process(ctx context.Context, input any) (any, error) {
	items := input.([]T)
	kvs := make([]store.KeyValue, len(items))
	for i, item := range items {
		kvs[i] = store.KeyValue{Key: w.KeyFn(item), Value: w.ValueFn(item)}
	}
	if err := w.KV.Merge(kvs, w.SkipNil); err != nil {
		return nil, err
	}
	return items, nil
}

// KVReader reads a KV namespace back into []T, decoding each stored value
// through a JSON round-trip (disk-backed values are decoded into generic
// map[string]any by store.KV.Read, so this is the straightforward way to
// recover the original shape without a second, typed on-disk format).
type KVReader[T any] struct {
	dag.NopLifecycle
	KV *store.KV
}

// NewKVReader builds a KVReader over kv.
func NewKVReader[T any](kv *store.KV) *KVReader[T] { return &KVReader[T]{KV: kv} }

func (r *KVReader[T]) Process(ctx context.Context, _ any) (any, error) {
	entries, err := r.KV.Read()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for key, entry := range entries {
		if entry.Value == nil {
			continue
		}
		item, err := decodeEntry[T](entry.Value)
		if err != nil {
			return nil, fmt.Errorf("operators: decode kv entry %q: %w", key, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeEntry[T any](value any) (T, error) {
	var zero T
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}
