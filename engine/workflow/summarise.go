package workflow

import (
	"context"
	"log/slog"

	"github.com/paperflow/paperflow/engine/catalog"
	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/llm"
	"github.com/paperflow/paperflow/engine/operators"
	"github.com/paperflow/paperflow/engine/paper"
	"github.com/paperflow/paperflow/engine/reader"
	"github.com/paperflow/paperflow/engine/store"
	"github.com/paperflow/paperflow/pkg/config"
)

// BuildSummarise assembles: Source -> FilterFinishedIDs(summarise) ->
// Limit(batch_size) -> PaperReader -> LLMSummarizer -> KVWriter
// (paper_summaries) -> keep-summarized -> MarkIDsAsFinished(summarise).
//
// Source is config-selected: when EnableLLMFilter is set, summarise only
// ever sees papers the filter pipeline already accepted, read from the
// filtered_papers KV namespace; otherwise it reads straight from the arXiv
// catalog, skipping the filter stage entirely.
func BuildSummarise(cfg *config.Config, log *slog.Logger) (*dag.DAG, error) {
	st, err := store.NewState(cfg.Storage.BasePath, NamespaceSummarise)
	if err != nil {
		return nil, err
	}
	summariesKV, err := store.NewKV(cfg.Storage.BasePath, kvPaperSummaries)
	if err != nil {
		return nil, err
	}

	d := dag.New(log)

	var source dag.Operator
	if cfg.EnableLLMFilter {
		filteredKV, err := store.NewKV(cfg.Storage.BasePath, kvFilteredPapers)
		if err != nil {
			return nil, err
		}
		source = operators.NewKVReader[paper.Paper](filteredKV)
	} else {
		source = catalog.NewArxivSource(cfg.ArxivTopicList, cfg.ArxivOffset, cfg.ArxivLimit, false, log)
	}
	if err := d.AddOperator("source", source, nil); err != nil {
		return nil, err
	}

	filterFinished := operators.NewFilterFinishedIDs[paper.Paper](st, operators.PaperIDOf)
	if err := d.AddOperator("filter_finished", filterFinished, []string{"source"}); err != nil {
		return nil, err
	}

	limit := operators.NewLimit[paper.Paper](cfg.ProcessBatchSize)
	if err := d.AddOperator("limit", limit, []string{"filter_finished"}); err != nil {
		return nil, err
	}

	paperReader := reader.NewPaperReader(cfg.Storage.BasePath+"/pdf_cache", 20, log)
	if err := d.AddOperator("read_papers", paperReader, []string{"limit"}); err != nil {
		return nil, err
	}

	summarizer := llm.NewSummarizer(llm.Config{
		ModelName:             cfg.LLM.ModelName,
		APIKey:                cfg.LLM.APIKey,
		BaseURL:               cfg.LLM.BaseURL,
		Temperature:           cfg.LLM.Temperature,
		MaxTokens:             cfg.LLM.MaxTokens,
		MaxConcurrentRequests: cfg.LLM.MaxConcurrentRequests,
	}, log)
	if err := d.AddOperator("summarize", summarizer, []string{"read_papers"}); err != nil {
		return nil, err
	}

	writeSummaries := operators.NewKVWriter[paper.WithSummary](summariesKV,
		func(p paper.WithSummary) string { return p.ID },
		func(p paper.WithSummary) any { return p })
	if err := d.AddOperator("write_summaries", writeSummaries, []string{"summarize"}); err != nil {
		return nil, err
	}

	keepSummarized := operators.NewCustomProcessor[[]paper.WithSummary, []paper.WithSummary](onlySummarized)
	if err := d.AddOperator("keep_summarized", keepSummarized, []string{"write_summaries"}); err != nil {
		return nil, err
	}

	markFinished := operators.NewMarkIDsAsFinished[paper.WithSummary](st, operators.WithSummaryIDOf)
	if err := d.AddOperator("mark_finished", markFinished, []string{"keep_summarized"}); err != nil {
		return nil, err
	}

	return d, nil
}

// onlySummarized drops items PaperReader/LLMSummarizer never managed to
// produce a summary for (total download/extraction/LLM failure), so they
// stay pending and get retried on the next run instead of being marked
// finished with nothing to show for it.
func onlySummarized(items []paper.WithSummary) ([]paper.WithSummary, error) {
	out := make([]paper.WithSummary, 0, len(items))
	for _, item := range items {
		if item.Summary != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// RunSummariseUntilDrained repeatedly executes the summarise DAG, each run
// handling at most cfg.ProcessBatchSize papers, until a run marks no paper
// finished: either nothing is left pending, or every paper in that batch
// failed (those stay pending for the next invocation, and the loop stops
// without trying later papers). This is how the spec's batch_size knob
// turns one backlog into a bounded sequence of runs instead of one
// unbounded one.
func RunSummariseUntilDrained(ctx context.Context, cfg *config.Config, log *slog.Logger) (int, error) {
	total := 0
	for {
		d, err := BuildSummarise(cfg, log)
		if err != nil {
			return total, err
		}
		if err := d.SetupAll(ctx); err != nil {
			return total, err
		}
		results, err := d.Execute(ctx, nil)
		cleanupErr := d.CleanupAll(ctx)
		if err != nil {
			return total, err
		}
		if cleanupErr != nil {
			log.Warn("workflow: summarise cleanup failed", "error", cleanupErr)
		}

		processed, ok := results["mark_finished"].([]paper.WithSummary)
		if !ok || len(processed) == 0 {
			return total, nil
		}
		total += len(processed)
		log.Info("workflow: summarise batch complete", "processed", len(processed), "total", total)
	}
}
