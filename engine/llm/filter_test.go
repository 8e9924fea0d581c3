package llm

import (
	"context"
	"testing"

	"github.com/paperflow/paperflow/engine/paper"
)

func TestIsRejectedSubstringPolarity(t *testing.T) {
	cases := map[string]bool{
		"YES":                    false,
		"NO":                     true,
		"yes, this is relevant":  false, // case-sensitive, as in the original
		"NOtably relevant":       true,  // the known-fragile false positive
		"Definitely NO":          true,
	}
	for reply, want := range cases {
		if got := IsRejected(reply); got != want {
			t.Errorf("IsRejected(%q) = %v, want %v", reply, got, want)
		}
	}
}

func TestProcessKeepsPaperOnClientError(t *testing.T) {
	f := NewFilter(Config{BaseURL: "http://127.0.0.1:0"}, "topic", nil)
	p := paper.Paper{ID: "p1", Abstract: "an abstract"}
	out, err := f.Process(context.Background(), []paper.Paper{p})
	if err != nil {
		t.Fatalf("Process must not error the batch: %v", err)
	}
	results := out.([]FilterResult)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Filtered {
		t.Error("a client error must keep the paper (Filtered=false), not reject it")
	}
}
