// Package obs is paperflow's ambient observability stack: a counter
// registry (Registry) and the HTTP plumbing — panic recovery, request
// logging, OTel tracing — that exposes it at /metrics for every pipeline
// binary.
package obs

import (
	"fmt"
	"log/slog"
	"net/http"
)

// ServeMetrics starts an HTTP server on port exposing reg's /metrics
// endpoint wrapped in the standard middleware chain (recover, request log,
// OTel span). Errors are logged, not fatal — a dead metrics port must never
// take down a pipeline run.
func ServeMetrics(reg *Registry, port int, service string, log *slog.Logger) {
	handler := chain(reg.Handler(), recoverPanic(log), requestLogger(log), otelTrace(service))

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error("obs: metrics server stopped", "port", port, "error", err)
		}
	}()
}
