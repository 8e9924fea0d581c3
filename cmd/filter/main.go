// Command filter runs the arXiv-listing + LLM-topic-filter pipeline once:
// fetch a page of the catalog, judge each paper against the configured
// topic, and record accept/reject decisions so summarise only ever sees
// accepted papers.
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
		log.Error("filter: config load failed", "error", err)
		os.Exit(1)
	}

	obs.ServeMetrics(dag.Registry(), cfg.Observability.MetricsPort, "paperflow-filter", log)

	d, err := workflow.BuildFilter(cfg, log)
	if err != nil {
		log.Error("filter: build failed", "error", err)
		os.Exit(1)
	}

	if err := d.SetupAll(ctx); err != nil {
		log.Error("filter: setup failed", "error", err)
		os.Exit(1)
	}
	defer d.CleanupAll(ctx)

	results, err := d.Execute(ctx, nil)
	if err != nil {
		log.Error("filter: run failed", "error", err)
		os.Exit(1)
	}

	log.Info("filter: run complete", "nodes", len(results))
}
