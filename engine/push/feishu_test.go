package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/paperflow/paperflow/engine/paper"
)

// TestProcessPartialFailure covers the failing item of concrete scenario 6:
// the server answers 500 to every attempt the item gets, and the pusher must
// report OK=false for it rather than return an error for the batch.
func TestProcessPartialFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 5 { // "bad" item retries until the breaker/retry budget is spent
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewFeishuPusher(srv.URL, nil)
	items := []paper.WithSummary{
		{Paper: paper.Paper{ID: "bad", Title: "Bad Paper"}, Summary: "s1"},
	}

	out, err := pusher.Process(context.Background(), items)
	if err != nil {
		t.Fatalf("Process must not error: %v", err)
	}
	results := out.([]Pushed)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].OK {
		t.Error("expected the persistently failing item to report OK=false")
	}
}

func TestProcessAllSucceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewFeishuPusher(srv.URL, nil)
	items := []paper.WithSummary{
		{Paper: paper.Paper{ID: "p1", Title: "One"}, Summary: "s1"},
		{Paper: paper.Paper{ID: "p2", Title: "Two"}, Summary: "s2"},
	}

	out, err := pusher.Process(context.Background(), items)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	results := out.([]Pushed)
	for _, r := range results {
		if !r.OK {
			t.Errorf("expected %s to succeed", r.Paper.ID)
		}
	}
}
