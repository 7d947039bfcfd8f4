package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caseflow-systems/docingest/internal/handlers"
	"github.com/caseflow-systems/docingest/internal/middleware"
)

// NewRouter constructs a ServeMux with all service routes registered.
func NewRouter(wh *handlers.WebhookHandler, oh *handlers.OpsHandler) http.Handler {
	mux := http.NewServeMux()

	// Inbound webhooks
	mux.HandleFunc("/webhook/pipefy", wh.HandlePipefy)
	mux.HandleFunc("/webhook/report", wh.HandleReport)

	// Company registry lookups
	mux.HandleFunc("/registry/cnpj/", oh.RegistryLookup)

	// Operational endpoints
	mux.HandleFunc("/dlq/stats", oh.DLQStats)
	mux.HandleFunc("/healthz", oh.Health)
	mux.HandleFunc("/readyz", oh.Ready)
	mux.HandleFunc("/", oh.Root)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
