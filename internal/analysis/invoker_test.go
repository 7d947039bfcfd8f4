package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow-systems/docingest/internal/models"
)

type fakeFieldUpdater struct {
	err     error
	calls   int
	cardID  string
	content string
}

func (f *fakeFieldUpdater) UpdateReportField(_ context.Context, cardID, content string) error {
	f.calls++
	f.cardID = cardID
	f.content = content
	return f.err
}

func newTestInvoker(serverURL string, updater FieldUpdater) *Invoker {
	client := NewClient(Config{
		URL:           serverURL,
		ProbeTimeout:  time.Second,
		InvokeTimeout: 5 * time.Second,
	})
	return NewInvoker(client, updater, 10*time.Millisecond, nil)
}

func testRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		CaseID:       "12345",
		ChecklistURL: "https://store.example.com/object/public/checklist/checklist.pdf",
		CurrentDate:  "2026-09-01",
		Documents: []models.TransferredDocument{
			{Name: "contrato.pdf", StorageURL: "https://store.example.com/x", Tag: models.TagContratoSocial},
		},
	}
}

func TestRun_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/analyze/sync":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"completed","analysis_result":{"summary_report":"tudo certo","risk_score":0.2}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	updater := &fakeFieldUpdater{}
	outcome := newTestInvoker(server.URL, updater).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeSuccess, outcome.Status)
	assert.True(t, outcome.FieldUpdated)
	assert.False(t, outcome.ColdStart)
	assert.Equal(t, "tudo certo", outcome.SummaryReport)
	assert.InDelta(t, 0.2, outcome.RiskScore, 1e-9)
	require.Equal(t, 1, updater.calls)
	assert.Equal(t, "12345", updater.cardID)
	assert.Equal(t, "tudo certo", updater.content)
}

func TestRun_PartialWhenIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/analyze/sync" {
			w.Write([]byte(`{"status":"processing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	updater := &fakeFieldUpdater{}
	outcome := newTestInvoker(server.URL, updater).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomePartialSuccess, outcome.Status)
	assert.False(t, outcome.FieldUpdated)
	assert.Zero(t, updater.calls)
}

func TestRun_ColdStartRetry(t *testing.T) {
	var analyzeCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze/sync" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if analyzeCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"completed","analysis_result":{"summary_report":"ok","risk_score":0.5}}`))
	}))
	defer server.Close()

	updater := &fakeFieldUpdater{}
	outcome := newTestInvoker(server.URL, updater).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeSuccessAfterRetry, outcome.Status)
	assert.True(t, outcome.ColdStart)
	assert.True(t, outcome.FieldUpdated)
	assert.Equal(t, int32(2), analyzeCalls.Load())
}

func TestRun_ColdStartRetryFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/analyze/sync" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	updater := &fakeFieldUpdater{}
	outcome := newTestInvoker(server.URL, updater).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeError, outcome.Status)
	assert.True(t, outcome.ColdStart)
	assert.Zero(t, updater.calls)
}

func TestRun_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/analyze/sync" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	outcome := newTestInvoker(server.URL, &fakeFieldUpdater{}).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeError, outcome.Status)
	assert.Contains(t, outcome.Error, "status 500")
}

func TestRun_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/analyze/sync" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{
		URL:           server.URL,
		ProbeTimeout:  time.Second,
		InvokeTimeout: 50 * time.Millisecond,
	})
	outcome := NewInvoker(client, &fakeFieldUpdater{}, time.Millisecond, nil).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeTimeout, outcome.Status)
}

func TestRun_FieldUpdateFailureStaysSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/analyze/sync" {
			w.Write([]byte(`{"status":"completed","analysis_result":{"summary_report":"ok","risk_score":0.1}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	updater := &fakeFieldUpdater{err: errors.New("field not found")}
	outcome := newTestInvoker(server.URL, updater).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeSuccess, outcome.Status)
	assert.False(t, outcome.FieldUpdated)
	assert.Equal(t, 1, updater.calls)
}

func TestRun_ProbeFailureDoesNotBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"completed","analysis_result":{"summary_report":"ok","risk_score":0.3}}`))
	}))
	defer server.Close()

	outcome := newTestInvoker(server.URL, &fakeFieldUpdater{}).Run(context.Background(), testRequest())

	assert.Equal(t, models.OutcomeSuccess, outcome.Status)
}
