package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/metrics"
	"github.com/caseflow-systems/docingest/internal/models"
)

// FieldUpdater writes a finished report into the workflow card.
type FieldUpdater interface {
	UpdateReportField(ctx context.Context, cardID, content string) error
}

// Invoker runs one analysis end to end: probe, invoke, a single retry on
// a cold start, then the card field write-back.
type Invoker struct {
	client    *Client
	fields    FieldUpdater
	retryWait time.Duration
	logger    *logging.Logger
}

func NewInvoker(client *Client, fields FieldUpdater, retryWait time.Duration, logger *logging.Logger) *Invoker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Invoker{
		client:    client,
		fields:    fields,
		retryWait: retryWait,
		logger:    logger,
	}
}

// serviceResponse is the analysis service's completed-run envelope.
type serviceResponse struct {
	Status         string `json:"status"`
	AnalysisResult *struct {
		SummaryReport string  `json:"summary_report"`
		RiskScore     float64 `json:"risk_score"`
	} `json:"analysis_result"`
}

// Run performs the invocation and reports what happened. It never returns
// an error: the webhook that triggered it has long been answered, so the
// outcome surfaces through the return value, logs and metrics instead.
func (inv *Invoker) Run(ctx context.Context, req models.AnalysisRequest) models.AnalysisOutcome {
	start := time.Now()
	outcome := inv.run(ctx, req)

	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.AnalysisOutcomes.WithLabelValues(string(outcome.Status)).Inc()

	inv.logger.InfoContext(ctx, "analysis finished",
		logging.CaseID(req.CaseID),
		logging.Outcome(string(outcome.Status)),
		"field_updated", outcome.FieldUpdated,
		"duration", time.Since(start).String())

	return outcome
}

func (inv *Invoker) run(ctx context.Context, req models.AnalysisRequest) models.AnalysisOutcome {
	// Wake the service before the real request. A failed probe is only
	// logged; the invoke timeout already absorbs a slow start.
	if err := inv.client.Probe(ctx); err != nil {
		inv.logger.WarnContext(ctx, "analysis service probe failed",
			logging.CaseID(req.CaseID), logging.Err(err))
	}

	result, err := inv.client.invoke(ctx, req)
	if err != nil {
		if isTimeout(err) {
			return models.AnalysisOutcome{
				Status: models.OutcomeTimeout,
				Error:  "analysis service timeout",
			}
		}
		return models.AnalysisOutcome{
			Status: models.OutcomeError,
			Error:  err.Error(),
		}
	}

	if result.statusCode == http.StatusBadGateway {
		// The service went idle and its gateway answered for it. Give
		// it one window to come up and retry exactly once.
		inv.logger.WarnContext(ctx, "analysis service cold start, retrying",
			logging.CaseID(req.CaseID), "wait", inv.retryWait.String())

		select {
		case <-time.After(inv.retryWait):
		case <-ctx.Done():
			return models.AnalysisOutcome{
				Status: models.OutcomeError,
				Error:  ctx.Err().Error(),
			}
		}

		retried, err := inv.client.invoke(ctx, req)
		if err != nil {
			if isTimeout(err) {
				return models.AnalysisOutcome{
					Status:    models.OutcomeTimeout,
					ColdStart: true,
					Error:     "analysis service timeout after retry",
				}
			}
			return models.AnalysisOutcome{
				Status:    models.OutcomeError,
				ColdStart: true,
				Error:     err.Error(),
			}
		}
		if retried.statusCode != http.StatusOK {
			return models.AnalysisOutcome{
				Status:    models.OutcomeError,
				ColdStart: true,
				Error:     fmt.Sprintf("analysis service status %d after retry", retried.statusCode),
			}
		}

		outcome := inv.interpret(ctx, req.CaseID, retried.body)
		if outcome.Status == models.OutcomeSuccess {
			outcome.Status = models.OutcomeSuccessAfterRetry
		}
		outcome.ColdStart = true
		return outcome
	}

	if result.statusCode != http.StatusOK {
		return models.AnalysisOutcome{
			Status: models.OutcomeError,
			Error:  fmt.Sprintf("analysis service status %d", result.statusCode),
		}
	}

	return inv.interpret(ctx, req.CaseID, result.body)
}

// interpret reads a 200 response. A completed run with a summary report
// gets written back to the card; anything short of that is a partial
// success, the report table insert notifies us separately.
func (inv *Invoker) interpret(ctx context.Context, caseID string, body []byte) models.AnalysisOutcome {
	var resp serviceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.AnalysisOutcome{
			Status: models.OutcomeError,
			Error:  fmt.Sprintf("decode analysis response: %v", err),
			Raw:    body,
		}
	}

	if resp.Status != "completed" || resp.AnalysisResult == nil {
		return models.AnalysisOutcome{
			Status: models.OutcomePartialSuccess,
			Raw:    body,
		}
	}

	outcome := models.AnalysisOutcome{
		Status:        models.OutcomeSuccess,
		RiskScore:     resp.AnalysisResult.RiskScore,
		SummaryReport: resp.AnalysisResult.SummaryReport,
		Raw:           body,
	}

	if outcome.SummaryReport != "" {
		if err := inv.fields.UpdateReportField(ctx, caseID, outcome.SummaryReport); err != nil {
			metrics.FieldUpdates.WithLabelValues("error").Inc()
			inv.logger.WarnContext(ctx, "report field update failed",
				logging.CaseID(caseID), logging.Err(err))
		} else {
			metrics.FieldUpdates.WithLabelValues("success").Inc()
			outcome.FieldUpdated = true
		}
	}

	return outcome
}
