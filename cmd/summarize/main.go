// Command summarize drains the filtered-paper backlog in batches: download
// each paper's PDF, extract its text, ask the LLM for a summary, and record
// the result. It loops until a batch marks no paper finished.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/workflow"
	"github.com/paperflow/paperflow/pkg/config"
	"github.com/paperflow/paperflow/pkg/obs"
	_ "go.uber.org/automaxprocs"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline's YAML config file")
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("summarize: config load failed", "error", err)
		os.Exit(1)
	}

	obs.ServeMetrics(dag.Registry(), cfg.Observability.MetricsPort, "paperflow-summarize", log)

	total, err := workflow.RunSummariseUntilDrained(ctx, cfg, log)
	if err != nil {
		log.Error("summarize: run failed", "error", err, "processed_before_failure", total)
		os.Exit(1)
	}

	log.Info("summarize: run complete", "total_processed", total)
}
