package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caseflow-systems/docingest/internal/handlers"
	"github.com/caseflow-systems/docingest/internal/models"
)

// Mock service for testing
type mockIngestService struct{}

func (m *mockIngestService) HandleCardEvent(_ context.Context, event models.InboundEvent) (*models.WebhookResponse, error) {
	return &models.WebhookResponse{Status: "success", CardID: event.CardID}, nil
}

func (m *mockIngestService) HandleReport(_ context.Context, _ *models.ReportRecord) error {
	return nil
}

func newTestRouter() http.Handler {
	wh := handlers.NewWebhookHandler(&mockIngestService{}, 0, "", nil)
	oh := handlers.NewOpsHandler("test", nil, nil, nil)
	return NewRouter(wh, oh)
}

func TestNewRouter(t *testing.T) {
	if newTestRouter() == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/dlq/stats", http.StatusOK},
		{http.MethodGet, "/registry/cnpj/123", http.StatusServiceUnavailable},
		{http.MethodGet, "/webhook/pipefy", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != tt.wantStatus {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.wantStatus, rr.Code)
		}
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}
