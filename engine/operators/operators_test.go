package operators

import (
	"context"
	"testing"

	"github.com/paperflow/paperflow/engine/paper"
	"github.com/paperflow/paperflow/engine/store"
)

func TestLimitTruncates(t *testing.T) {
	l := NewLimit[string](2)
	out, err := l.Process(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	got := out.([]string)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestLimitPassesThroughWhenUnderN(t *testing.T) {
	l := NewLimit[string](10)
	out, err := l.Process(context.Background(), []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.([]string)) != 1 {
		t.Error("expected input to pass through unchanged")
	}
}

// TestFilterFinishedIDsResumeSemantics is concrete scenario 3: across two
// runs of the same workflow, the second run's FilterFinishedIDs must drop
// every id the first run already finished.
func TestFilterFinishedIDsResumeSemantics(t *testing.T) {
	st, err := store.NewState(t.TempDir(), "ns")
	if err != nil {
		t.Fatal(err)
	}

	ps := []paper.Paper{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}

	insert := NewInsertPendingIDs[paper.Paper](st, PaperIDOf)
	if _, err := insert.Process(context.Background(), ps); err != nil {
		t.Fatal(err)
	}

	mark := NewMarkIDsAsFinished[paper.Paper](st, PaperIDOf)
	if _, err := mark.Process(context.Background(), []paper.Paper{{ID: "p1"}}); err != nil {
		t.Fatal(err)
	}

	filter := NewFilterFinishedIDs[paper.Paper](st, PaperIDOf)
	out, err := filter.Process(context.Background(), ps)
	if err != nil {
		t.Fatal(err)
	}
	remaining := out.([]paper.Paper)
	if len(remaining) != 2 {
		t.Fatalf("got %d remaining, want 2: %v", len(remaining), remaining)
	}
	for _, p := range remaining {
		if p.ID == "p1" {
			t.Error("p1 was already finished and must be filtered out")
		}
	}
}

func TestKVWriterThenReaderRoundTrip(t *testing.T) {
	kv, err := store.NewKV(t.TempDir(), "filtered_papers")
	if err != nil {
		t.Fatal(err)
	}

	writer := NewKVWriter[paper.Paper](kv,
		func(p paper.Paper) string { return p.ID },
		func(p paper.Paper) any { return p })

	ps := []paper.Paper{{ID: "p1", Title: "One"}, {ID: "p2", Title: "Two"}}
	if _, err := writer.Process(context.Background(), ps); err != nil {
		t.Fatal(err)
	}

	reader := NewKVReader[paper.Paper](kv)
	out, err := reader.Process(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := out.([]paper.Paper)
	if len(got) != 2 {
		t.Fatalf("got %d papers back, want 2: %v", len(got), got)
	}
}

func TestKVReaderSkipsNilEntries(t *testing.T) {
	kv, err := store.NewKV(t.TempDir(), "filtered_papers")
	if err != nil {
		t.Fatal(err)
	}
	writer := NewKVWriter[paper.Paper](kv,
		func(p paper.Paper) string { return p.ID },
		func(p paper.Paper) any { return nil })
	if _, err := writer.Process(context.Background(), []paper.Paper{{ID: "rejected"}}); err != nil {
		t.Fatal(err)
	}

	reader := NewKVReader[paper.Paper](kv)
	out, err := reader.Process(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.([]paper.Paper)) != 0 {
		t.Error("a nil-valued entry must not decode into a zero-value item")
	}
}
