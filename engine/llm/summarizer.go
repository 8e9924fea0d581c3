package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/paper"
)

const summarizerSystemPrompt = "You are an expert academic paper analyst."

// Summarizer asks the LLM for a summary of each paper's extracted text and
// overwrites WithSummary.Summary with the model's reply, replacing the raw
// text PaperReader placed there. Requests run with bounded concurrency.
type Summarizer struct {
	dag.NopLifecycle
	client        *Client
	maxConcurrent int
	log           *slog.Logger
}

// NewSummarizer builds a Summarizer from cfg.
func NewSummarizer(cfg Config, log *slog.Logger) *Summarizer {
	if log == nil {
		log = slog.Default()
	}
	max := cfg.MaxConcurrentRequests
	if max <= 0 {
		max = 5
	}
	return &Summarizer{client: NewClient(cfg), maxConcurrent: max, log: log}
}

// Process replaces each item's Summary field with an LLM-generated summary
// of its raw extracted text, bounded to maxConcurrent concurrent requests.
// An item whose request fails comes back with an empty Summary.
func (s *Summarizer) Process(ctx context.Context, input any) (any, error) {
	items := input.([]paper.WithSummary)
	out := make([]paper.WithSummary, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)
	for i, p := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p paper.WithSummary) {
			defer func() { <-sem; wg.Done() }()
			summary, err := s.summarizeOne(ctx, p.Summary)
			if err != nil {
				s.log.Warn("llm: summarize failed", "id", p.ID, "error", err)
				p.Summary = ""
				out[i] = p
				return
			}
			p.Summary = summary
			out[i] = p
		}(i, p)
	}
	wg.Wait()
	return out, nil
}

func (s *Summarizer) summarizeOne(ctx context.Context, paperText string) (string, error) {
	prompt := fmt.Sprintf("Summarize this paper for me: %s", paperText)
	return s.client.Chat(ctx, summarizerSystemPrompt, prompt)
}
