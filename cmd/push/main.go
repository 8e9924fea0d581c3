// Command push delivers every not-yet-pushed summary to the configured
// Feishu webhook as an interactive card, oldest update date first.
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
		log.Error("push: config load failed", "error", err)
		os.Exit(1)
	}

	obs.ServeMetrics(dag.Registry(), cfg.Observability.MetricsPort, "paperflow-push", log)

	d, err := workflow.BuildPush(cfg, log)
	if err != nil {
		log.Error("push: build failed", "error", err)
		os.Exit(1)
	}

	if err := d.SetupAll(ctx); err != nil {
		log.Error("push: setup failed", "error", err)
		os.Exit(1)
	}
	defer d.CleanupAll(ctx)

	results, err := d.Execute(ctx, nil)
	if err != nil {
		log.Error("push: run failed", "error", err)
		os.Exit(1)
	}

	log.Info("push: run complete", "nodes", len(results))
}
