package workflow

import (
	"log/slog"
	"sort"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/operators"
	"github.com/paperflow/paperflow/engine/paper"
	push "github.com/paperflow/paperflow/engine/push"
	"github.com/paperflow/paperflow/engine/store"
	"github.com/paperflow/paperflow/pkg/config"
)

// BuildPush assembles: KVReader(paper_summaries) -> FilterFinishedIDs(push)
// -> sort-by-update-date -> FeishuPusher -> keep-succeeded ->
// MarkIDsAsFinished(push). Only items FeishuPusher actually delivered are
// marked finished, so a webhook outage leaves the rest pending for the next
// run rather than silently dropping them.
func BuildPush(cfg *config.Config, log *slog.Logger) (*dag.DAG, error) {
	st, err := store.NewState(cfg.Storage.BasePath, NamespacePush)
	if err != nil {
		return nil, err
	}
	summariesKV, err := store.NewKV(cfg.Storage.BasePath, kvPaperSummaries)
	if err != nil {
		return nil, err
	}

	d := dag.New(log)

	source := operators.NewKVReader[paper.WithSummary](summariesKV)
	if err := d.AddOperator("source", source, nil); err != nil {
		return nil, err
	}

	filterFinished := operators.NewFilterFinishedIDs[paper.WithSummary](st, operators.WithSummaryIDOf)
	if err := d.AddOperator("filter_finished", filterFinished, []string{"source"}); err != nil {
		return nil, err
	}

	sortByDate := operators.NewCustomProcessor[[]paper.WithSummary, []paper.WithSummary](sortByUpdateDate)
	if err := d.AddOperator("sort", sortByDate, []string{"filter_finished"}); err != nil {
		return nil, err
	}

	pusher := push.NewFeishuPusher(cfg.FeishuWebhookURL, log)
	if err := d.AddOperator("push", pusher, []string{"sort"}); err != nil {
		return nil, err
	}

	keepSucceeded := operators.NewCustomProcessor[[]push.Pushed, []paper.WithSummary](onlySucceeded)
	if err := d.AddOperator("keep_succeeded", keepSucceeded, []string{"push"}); err != nil {
		return nil, err
	}

	markFinished := operators.NewMarkIDsAsFinished[paper.WithSummary](st, operators.WithSummaryIDOf)
	if err := d.AddOperator("mark_finished", markFinished, []string{"keep_succeeded"}); err != nil {
		return nil, err
	}

	return d, nil
}

func sortByUpdateDate(items []paper.WithSummary) ([]paper.WithSummary, error) {
	out := append([]paper.WithSummary(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].UpdateDate < out[j].UpdateDate })
	return out, nil
}

func onlySucceeded(items []push.Pushed) ([]paper.WithSummary, error) {
	out := make([]paper.WithSummary, 0, len(items))
	for _, item := range items {
		if item.OK {
			out = append(out, item.Paper)
		}
	}
	return out, nil
}
