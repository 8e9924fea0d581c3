package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/paper"
)

const filterSystemPrompt = "You are a paper-filtering expert who judges, from a paper's abstract, whether it belongs to a topic the user follows."

// FilterResult pairs a paper with the filter's accept/reject verdict.
type FilterResult struct {
	Paper    paper.Paper
	Filtered bool // true means rejected
}

// Filter asks the LLM, per paper, whether its abstract matches a target
// topic. Rejection is decided by a substring check on the reply: the
// original implementation (and this one) treats any reply containing "NO"
// as a rejection. This is a known-fragile heuristic — a reply like "NOtably
// relevant" would also match — preserved intentionally rather than
// redesigned, per SPEC_FULL.md's resolution of the corresponding open
// question.
type Filter struct {
	dag.NopLifecycle
	client        *Client
	targetTopic   string
	maxConcurrent int
	log           *slog.Logger
}

// NewFilter builds a Filter judging papers against targetTopic.
func NewFilter(cfg Config, targetTopic string, log *slog.Logger) *Filter {
	if log == nil {
		log = slog.Default()
	}
	max := cfg.MaxConcurrentRequests
	if max <= 0 {
		max = 5
	}
	return &Filter{client: NewClient(cfg), targetTopic: targetTopic, maxConcurrent: max, log: log}
}

// Process judges every input paper, returning []FilterResult in input order.
// Requests run with bounded concurrency via a worker-count-sized semaphore.
func (f *Filter) Process(ctx context.Context, input any) (any, error) {
	papers := input.([]paper.Paper)
	out := make([]FilterResult, len(papers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, f.maxConcurrent)
	for i, p := range papers {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p paper.Paper) {
			defer func() { <-sem; wg.Done() }()
			filtered, err := f.filterOne(ctx, p)
			if err != nil {
				f.log.Warn("llm: filter failed, keeping paper", "id", p.ID, "error", err)
				out[i] = FilterResult{Paper: p, Filtered: false}
				return
			}
			out[i] = FilterResult{Paper: p, Filtered: filtered}
		}(i, p)
	}
	wg.Wait()
	return out, nil
}

func (f *Filter) filterOne(ctx context.Context, p paper.Paper) (bool, error) {
	prompt := fmt.Sprintf(
		"Decide whether the following paper belongs to a topic the user follows.\n"+
			"Answer YES if it does, NO otherwise.\n"+
			"Topic: %s\n"+
			"Abstract: %s\n",
		f.targetTopic, p.Abstract,
	)
	reply, err := f.client.Chat(ctx, filterSystemPrompt, prompt)
	if err != nil {
		return false, err
	}
	return IsRejected(reply), nil
}

// IsRejected implements the documented "NO"-substring polarity rule.
func IsRejected(reply string) bool {
	return strings.Contains(reply, "NO")
}
