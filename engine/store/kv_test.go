package store

import "testing"

func newTestKV(t *testing.T) *KV {
	t.Helper()
	k, err := NewKV(t.TempDir(), "papers")
	if err != nil {
		t.Fatalf("NewKV: %v", err)
	}
	return k
}

func TestKVReadMissingIsEmpty(t *testing.T) {
	k := newTestKV(t)
	values, err := k.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty namespace, got %v", values)
	}
}

// TestKVMerge is concrete scenario 5: two successive writer runs over
// disjoint and overlapping keys converge on the latest value per key.
func TestKVMerge(t *testing.T) {
	k := newTestKV(t)

	if err := k.Merge([]KeyValue{{Key: "a", Value: "T1"}}, false); err != nil {
		t.Fatalf("Merge 1: %v", err)
	}
	if err := k.Merge([]KeyValue{{Key: "a", Value: "T2"}, {Key: "b", Value: "T3"}}, false); err != nil {
		t.Fatalf("Merge 2: %v", err)
	}

	values, err := k.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("got %d keys, want 2: %v", len(values), values)
	}
	if values["a"].Value != "T2" {
		t.Errorf("a = %v, want T2", values["a"].Value)
	}
	if values["b"].Value != "T3" {
		t.Errorf("b = %v, want T3", values["b"].Value)
	}
}

func TestKVMergeSkipNil(t *testing.T) {
	k := newTestKV(t)
	if err := k.Merge([]KeyValue{{Key: "rejected", Value: nil}}, true); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	values, err := k.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := values["rejected"]; ok {
		t.Error("skipNil=true must not record the key")
	}
}

func TestKVMergeKeepsNilWhenNotSkipped(t *testing.T) {
	k := newTestKV(t)
	if err := k.Merge([]KeyValue{{Key: "rejected", Value: nil}}, false); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	values, err := k.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	entry, ok := values["rejected"]
	if !ok {
		t.Fatal("expected the key to be recorded even with a nil value")
	}
	if entry.Value != nil {
		t.Errorf("Value = %v, want nil", entry.Value)
	}
}

func TestKVMergePreservesDisjointKeys(t *testing.T) {
	k := newTestKV(t)
	if err := k.Merge([]KeyValue{{Key: "x", Value: 1}}, false); err != nil {
		t.Fatalf("Merge 1: %v", err)
	}
	if err := k.Merge([]KeyValue{{Key: "y", Value: 2}}, false); err != nil {
		t.Fatalf("Merge 2: %v", err)
	}
	values, err := k.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("got %d keys, want 2: %v", len(values), values)
	}
}
