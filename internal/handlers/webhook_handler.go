package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/caseflow-systems/docingest/internal/dispatch"
	"github.com/caseflow-systems/docingest/internal/httputil"
	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/metrics"
	"github.com/caseflow-systems/docingest/internal/models"
)

// IngestService is the part of the pipeline the webhook endpoints drive.
type IngestService interface {
	HandleCardEvent(ctx context.Context, event models.InboundEvent) (*models.WebhookResponse, error)
	HandleReport(ctx context.Context, record *models.ReportRecord) error
}

type WebhookHandler struct {
	service     IngestService
	maxBody     int64
	reportTable string
	logger      *logging.Logger
}

func NewWebhookHandler(service IngestService, maxBodyBytes int64, reportTable string, logger *logging.Logger) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	if reportTable == "" {
		reportTable = "informe_cadastro"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		service:     service,
		maxBody:     maxBodyBytes,
		reportTable: reportTable,
		logger:      logger,
	}
}

// cardWebhookPayload mirrors the workflow tool's webhook envelope. The card
// id arrives as either a string or a number.
type cardWebhookPayload struct {
	Data *struct {
		Action string `json:"action"`
		Card   *struct {
			ID   json.RawMessage `json:"id"`
			Pipe *struct {
				ID json.RawMessage `json:"id"`
			} `json:"pipe"`
		} `json:"card"`
	} `json:"data"`
}

// coerceID renders a JSON string or number id as a string. Returns false
// for anything else.
func coerceID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), true
	}
	return "", false
}

// HandlePipefy receives card webhooks. Validation is fail closed: a payload
// without a usable card id is rejected, never processed on guesses.
func (h *WebhookHandler) HandlePipefy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.reject(w, r, "read request body failed")
		return
	}
	defer r.Body.Close()

	var payload cardWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.reject(w, r, "invalid JSON payload")
		return
	}
	if payload.Data == nil {
		h.reject(w, r, "missing data field")
		return
	}
	if payload.Data.Card == nil {
		h.reject(w, r, "missing card field")
		return
	}

	cardID, ok := coerceID(payload.Data.Card.ID)
	if !ok {
		h.reject(w, r, "missing card.id field")
		return
	}

	event := models.InboundEvent{
		CardID: cardID,
		Action: payload.Data.Action,
	}
	if payload.Data.Card.Pipe != nil {
		if pipeID, ok := coerceID(payload.Data.Card.Pipe.ID); ok {
			event.PipeID = pipeID
		}
	}

	resp, err := h.service.HandleCardEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) {
			metrics.WebhooksTotal.WithLabelValues("pipefy", "overloaded").Inc()
			httputil.WriteError(w, http.StatusServiceUnavailable, "service overloaded, retry later")
			return
		}
		h.logger.ErrorContext(r.Context(), "card event processing failed",
			logging.CardID(cardID), logging.Err(err))
		metrics.WebhooksTotal.WithLabelValues("pipefy", "error").Inc()
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.WebhooksTotal.WithLabelValues("pipefy", "accepted").Inc()
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *WebhookHandler) reject(w http.ResponseWriter, r *http.Request, msg string) {
	h.logger.WarnContext(r.Context(), "webhook rejected", "reason", msg)
	metrics.WebhooksTotal.WithLabelValues("pipefy", "rejected").Inc()
	httputil.WriteError(w, http.StatusBadRequest, msg)
}

// HandleReport receives database change notifications carrying finished
// reports. Inserts on other tables are acknowledged and ignored.
func (h *WebhookHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	var notification models.ReportNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		metrics.WebhooksTotal.WithLabelValues("report", "rejected").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	defer r.Body.Close()

	if notification.Type != "INSERT" || notification.Table != h.reportTable {
		metrics.WebhooksTotal.WithLabelValues("report", "ignored").Inc()
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "not_informe_insert",
		})
		return
	}

	if notification.Record == nil || notification.Record.CaseID == "" || notification.Record.Content == "" {
		metrics.WebhooksTotal.WithLabelValues("report", "rejected").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "missing case_id or informe")
		return
	}

	if err := h.service.HandleReport(r.Context(), notification.Record); err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) {
			metrics.WebhooksTotal.WithLabelValues("report", "overloaded").Inc()
			httputil.WriteError(w, http.StatusServiceUnavailable, "service overloaded, retry later")
			return
		}
		metrics.WebhooksTotal.WithLabelValues("report", "error").Inc()
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.WebhooksTotal.WithLabelValues("report", "accepted").Inc()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "report update queued",
		"case_id": notification.Record.CaseID,
	})
}
