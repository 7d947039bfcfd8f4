package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/caseflow-systems/docingest/internal/httputil"
	"github.com/caseflow-systems/docingest/internal/registry"
)

// CompanyLookup resolves CNPJ registration numbers.
type CompanyLookup interface {
	Lookup(ctx context.Context, cnpj string) (*registry.Company, error)
}

// DLQReader exposes dead letter queue statistics.
type DLQReader interface {
	Stats(ctx context.Context) map[string]interface{}
}

// QueueDepther reports the dispatch queue backlog.
type QueueDepther interface {
	Depth() int
}

type OpsHandler struct {
	version    string
	companies  CompanyLookup
	deadLetter DLQReader
	dispatcher QueueDepther
}

func NewOpsHandler(version string, companies CompanyLookup, deadLetter DLQReader, dispatcher QueueDepther) *OpsHandler {
	return &OpsHandler{
		version:    version,
		companies:  companies,
		deadLetter: deadLetter,
		dispatcher: dispatcher,
	}
}

// Root describes the service and its endpoints.
func (h *OpsHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": "docingest",
		"version": h.version,
		"status":  "running",
		"endpoints": []string{
			"POST /webhook/pipefy",
			"POST /webhook/report",
			"GET /registry/cnpj/{cnpj}",
			"GET /dlq/stats",
			"GET /healthz",
			"GET /readyz",
			"GET /metrics",
		},
	})
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ready"}
	if h.dispatcher != nil {
		resp["queue_depth"] = h.dispatcher.Depth()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// DLQStats reports dead letter queue counters.
func (h *OpsHandler) DLQStats(w http.ResponseWriter, r *http.Request) {
	if h.deadLetter == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.deadLetter.Stats(r.Context()))
}

// RegistryLookup resolves the CNPJ in the request path.
func (h *OpsHandler) RegistryLookup(w http.ResponseWriter, r *http.Request) {
	if h.companies == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "registry lookups disabled")
		return
	}

	cnpj := strings.TrimPrefix(r.URL.Path, "/registry/cnpj/")
	if cnpj == "" || strings.Contains(cnpj, "/") {
		httputil.WriteError(w, http.StatusBadRequest, "missing cnpj")
		return
	}

	company, err := h.companies.Lookup(r.Context(), cnpj)
	switch {
	case errors.Is(err, registry.ErrInvalidCNPJ):
		httputil.WriteError(w, http.StatusBadRequest, "invalid cnpj")
	case errors.Is(err, registry.ErrCompanyNotFound):
		httputil.WriteError(w, http.StatusNotFound, "company not found")
	case err != nil:
		httputil.WriteError(w, http.StatusBadGateway, "registry lookup failed")
	default:
		httputil.WriteJSON(w, http.StatusOK, company)
	}
}
