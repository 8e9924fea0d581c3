package store

import (
	"os"
	"testing"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	dir := t.TempDir()
	s, err := NewState(dir, "test")
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func TestStoreAndGetPending(t *testing.T) {
	s := newTestState(t)
	ids := []string{"id1", "id2", "id3"}

	if err := s.StorePending(ids); err != nil {
		t.Fatalf("StorePending: %v", err)
	}
	pending, err := s.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d pending ids, want 3", len(pending))
	}
	for _, id := range ids {
		if _, ok := pending[id]; !ok {
			t.Errorf("missing %q from pending set", id)
		}
	}
}

// TestMarkFinishedNoRegression is concrete scenario 4 / property P2:
// markFinished(["x"]); storePending(["x","y"]) leaves exactly {"y"} pending.
func TestMarkFinishedNoRegression(t *testing.T) {
	s := newTestState(t)

	if err := s.MarkFinished([]string{"x"}); err != nil {
		t.Fatalf("MarkFinished: %v", err)
	}
	if err := s.StorePending([]string{"x", "y"}); err != nil {
		t.Fatalf("StorePending: %v", err)
	}

	pending, err := s.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending ids, want 1", len(pending))
	}
	if _, ok := pending["y"]; !ok {
		t.Errorf("expected y to be pending, got %v", pending)
	}

	finished, err := s.IsFinished("x")
	if err != nil {
		t.Fatalf("IsFinished: %v", err)
	}
	if !finished {
		t.Error("expected x to remain finished")
	}
}

func TestMarkFinishedThenStorePendingPreservesFinished(t *testing.T) {
	s := newTestState(t)
	all := []string{"a", "b", "c"}

	if err := s.StorePending(all); err != nil {
		t.Fatalf("StorePending: %v", err)
	}
	if err := s.MarkFinished(all[:2]); err != nil {
		t.Fatalf("MarkFinished: %v", err)
	}

	pending, err := s.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1: %v", len(pending), pending)
	}
	if _, ok := pending["c"]; !ok {
		t.Errorf("expected c pending, got %v", pending)
	}

	// Re-storing the finished ids as pending must not regress them.
	if err := s.StorePending(all[:2]); err != nil {
		t.Fatalf("StorePending: %v", err)
	}
	pending, err = s.GetPending()
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending after re-store, want 1: %v", len(pending), pending)
	}
}

func TestIsFinishedUnseenID(t *testing.T) {
	s := newTestState(t)
	finished, err := s.IsFinished("never-seen")
	if err != nil {
		t.Fatalf("IsFinished: %v", err)
	}
	if finished {
		t.Error("an id never stored must not be finished")
	}
}

func TestStateFileCreatedInSubdir(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewState(dir, "arxiv"); err != nil {
		t.Fatalf("NewState: %v", err)
	}
	info, err := os.Stat(dir + "/pending_states")
	if err != nil {
		t.Fatalf("pending_states dir missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("pending_states must be a directory")
	}
}
