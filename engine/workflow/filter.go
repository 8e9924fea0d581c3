// Package workflow assembles the dag.DAG instances the spec's three CLI
// pipelines run: filter, summarise, and push. Each Build function wires
// standard operators from engine/catalog, engine/reader, engine/llm,
// engine/push, and engine/operators into one acyclic graph and returns it
// ready for SetupAll + Execute.
package workflow

import (
	"log/slog"

	"github.com/paperflow/paperflow/engine/catalog"
	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/llm"
	"github.com/paperflow/paperflow/engine/operators"
	"github.com/paperflow/paperflow/engine/paper"
	"github.com/paperflow/paperflow/engine/store"
	"github.com/paperflow/paperflow/pkg/config"
)

// Namespaces used in the per-stage state store. Each pipeline owns its own
// namespace so the three pipelines' at-most-once tracking never collides.
const (
	NamespaceFilter    = "llm_filter"
	NamespaceSummarise = "summarise"
	NamespacePush      = "push"
)

const kvFilteredPapers = "filtered_papers"
const kvPaperSummaries = "paper_summaries"

// BuildFilter assembles: ArxivSource -> FilterFinishedIDs(llm_filter) ->
// LLMFilter -> KVWriter(filtered_papers) -> MarkIDsAsFinished(llm_filter).
// A paper's filter verdict is recorded even when it is rejected (the KV
// store's skip-nil=false default), so a re-run never re-judges it.
func BuildFilter(cfg *config.Config, log *slog.Logger) (*dag.DAG, error) {
	st, err := store.NewState(cfg.Storage.BasePath, NamespaceFilter)
	if err != nil {
		return nil, err
	}
	kv, err := store.NewKV(cfg.Storage.BasePath, kvFilteredPapers)
	if err != nil {
		return nil, err
	}

	d := dag.New(log)

	source := catalog.NewArxivSource(cfg.ArxivTopicList, cfg.ArxivOffset, cfg.ArxivLimit, false, log)
	if err := d.AddOperator("source", source, nil); err != nil {
		return nil, err
	}

	filterFinished := operators.NewFilterFinishedIDs[paper.Paper](st, operators.PaperIDOf)
	if err := d.AddOperator("filter_finished", filterFinished, []string{"source"}); err != nil {
		return nil, err
	}

	llmFilter := llm.NewFilter(llm.Config{
		ModelName:             cfg.LLM.ModelName,
		APIKey:                cfg.LLM.APIKey,
		BaseURL:               cfg.LLM.BaseURL,
		Temperature:           cfg.LLM.Temperature,
		MaxTokens:             cfg.LLM.MaxTokens,
		MaxConcurrentRequests: cfg.LLM.MaxConcurrentRequests,
	}, cfg.LLMFilterTopic, log)
	if err := d.AddOperator("llm_filter", llmFilter, []string{"filter_finished"}); err != nil {
		return nil, err
	}

	writeDecisions := operators.NewCustomProcessor[[]llm.FilterResult, []paper.Paper](decisionsToKVInputAndStorePending(st, kv))
	if err := d.AddOperator("record_decisions", writeDecisions, []string{"llm_filter"}); err != nil {
		return nil, err
	}

	markFinished := operators.NewMarkIDsAsFinished[paper.Paper](st, operators.PaperIDOf)
	if err := d.AddOperator("mark_finished", markFinished, []string{"record_decisions"}); err != nil {
		return nil, err
	}

	return d, nil
}

// decisionsToKVInputAndStorePending records each filter verdict into the
// filtered_papers KV namespace (nil for a rejected paper, the paper itself
// for an accepted one) and returns every judged paper, accepted or not, so
// mark_finished marks every judged id. It does not write to st.
func decisionsToKVInputAndStorePending(st *store.State, kv *store.KV) func([]llm.FilterResult) ([]paper.Paper, error) {
	return func(decisions []llm.FilterResult) ([]paper.Paper, error) {
		kvs := make([]store.KeyValue, len(decisions))
		all := make([]paper.Paper, len(decisions))
		for i, d := range decisions {
			all[i] = d.Paper
			if d.Filtered {
				kvs[i] = store.KeyValue{Key: d.Paper.ID, Value: nil}
			} else {
				kvs[i] = store.KeyValue{Key: d.Paper.ID, Value: d.Paper}
			}
		}
		if err := kv.Merge(kvs, false); err != nil {
			return nil, err
		}
		return all, nil
	}
}
