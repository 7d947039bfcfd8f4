// Package service orchestrates the ingestion pipeline: resolve a card's
// attachments, move each one into the object store, register it, then hand
// the case to the analysis service through the dispatcher.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caseflow-systems/docingest/internal/classify"
	"github.com/caseflow-systems/docingest/internal/dispatch"
	"github.com/caseflow-systems/docingest/internal/dlq"
	"github.com/caseflow-systems/docingest/internal/logging"
	"github.com/caseflow-systems/docingest/internal/metrics"
	"github.com/caseflow-systems/docingest/internal/models"
)

// AttachmentSource lists a card's attachments.
type AttachmentSource interface {
	CardAttachments(ctx context.Context, cardID string) []models.Attachment
}

// Downloader fetches attachment content from its source URL.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Uploader stores a document and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, caseID, filename string, data []byte, contentType string) (string, error)
}

// DocumentStore persists document records and checklist configs.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error
	ChecklistURL(ctx context.Context, configName string) (string, error)
}

// AnalysisRunner performs one analysis invocation end to end.
type AnalysisRunner interface {
	Run(ctx context.Context, req models.AnalysisRequest) models.AnalysisOutcome
}

// ReportFieldUpdater writes a finished report into the workflow card.
type ReportFieldUpdater interface {
	UpdateReportField(ctx context.Context, cardID, content string) error
}

// Enqueuer defers a job to the background workers.
type Enqueuer interface {
	Enqueue(job dispatch.Job) error
}

type Config struct {
	ChecklistConfigName string
	ChecklistDefaultURL string
}

type IngestService struct {
	attachments AttachmentSource
	downloader  Downloader
	uploader    Uploader
	store       DocumentStore
	runner      AnalysisRunner
	fields      ReportFieldUpdater
	dispatcher  Enqueuer
	deadLetter  dlq.Writer
	cfg         Config
	logger      *logging.Logger
}

func NewIngestService(
	attachments AttachmentSource,
	downloader Downloader,
	uploader Uploader,
	store DocumentStore,
	runner AnalysisRunner,
	fields ReportFieldUpdater,
	dispatcher Enqueuer,
	deadLetter dlq.Writer,
	cfg Config,
	logger *logging.Logger,
) *IngestService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestService{
		attachments: attachments,
		downloader:  downloader,
		uploader:    uploader,
		store:       store,
		runner:      runner,
		fields:      fields,
		dispatcher:  dispatcher,
		deadLetter:  deadLetter,
		cfg:         cfg,
		logger:      logger,
	}
}

// HandleCardEvent runs the synchronous half of the pipeline: transfer every
// attachment the card carries, then queue the analysis. Transfer failures
// are dead-lettered and skipped; the analysis proceeds with whatever made
// it across. Returns dispatch.ErrQueueFull when the background queue has
// no room, in which case nothing was queued and the caller should signal
// overload.
func (s *IngestService) HandleCardEvent(ctx context.Context, event models.InboundEvent) (*models.WebhookResponse, error) {
	attachments := s.attachments.CardAttachments(ctx, event.CardID)
	if len(attachments) == 0 {
		s.logger.InfoContext(ctx, "no attachments found", logging.CardID(event.CardID))
	}

	var transferred []models.TransferredDocument
	for _, att := range attachments {
		doc, err := s.transfer(ctx, event, att)
		if err != nil {
			s.logger.WarnContext(ctx, "attachment transfer failed",
				logging.CardID(event.CardID), logging.Document(att.Name), logging.Err(err))
			continue
		}
		transferred = append(transferred, *doc)
	}

	checklistURL := s.checklistURL(ctx)

	req := models.AnalysisRequest{
		CaseID:       event.CardID,
		Documents:    transferred,
		ChecklistURL: checklistURL,
		CurrentDate:  time.Now().Format("2006-01-02"),
		PipeID:       event.PipeID,
	}

	err := s.dispatcher.Enqueue(dispatch.Job{
		Kind: "analysis",
		Run: func(jobCtx context.Context) {
			outcome := s.runner.Run(jobCtx, req)
			if outcome.Status == models.OutcomeError || outcome.Status == models.OutcomeTimeout {
				payload, _ := json.Marshal(req)
				s.writeDeadLetter(jobCtx, &dlq.FailedJob{
					Kind:    "analysis",
					CaseID:  req.CaseID,
					Payload: payload,
				}, fmt.Errorf("analysis %s: %s", outcome.Status, outcome.Error), "analysis_failed")
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("queue analysis for card %s: %w", event.CardID, err)
	}

	s.logger.InfoContext(ctx, "card event processed",
		logging.CardID(event.CardID),
		logging.PipeID(event.PipeID),
		"attachments", len(attachments),
		"transferred", len(transferred))

	return &models.WebhookResponse{
		Status:             "success",
		Message:            fmt.Sprintf("card %s processed, %d documents transferred", event.CardID, len(transferred)),
		CardID:             event.CardID,
		PipeID:             event.PipeID,
		DocumentsProcessed: len(transferred),
		Analysis:           "initiated_in_background",
	}, nil
}

// transfer moves one attachment: download, classify, upload, register.
// Every failure path dead-letters the attachment with a stage reason.
func (s *IngestService) transfer(ctx context.Context, event models.InboundEvent, att models.Attachment) (*models.TransferredDocument, error) {
	start := time.Now()

	data, contentType, err := s.downloader.Fetch(ctx, att.SourceURL)
	if err != nil {
		s.failTransfer(ctx, event, att, err, "download")
		return nil, fmt.Errorf("download %s: %w", att.Name, err)
	}

	tag := classify.Tag(att.Name)

	storageURL, err := s.uploader.Upload(ctx, event.CardID, att.Name, data, contentType)
	if err != nil {
		s.failTransfer(ctx, event, att, err, "upload")
		return nil, fmt.Errorf("upload %s: %w", att.Name, err)
	}

	record := &models.DocumentRecord{
		CaseID:  event.CardID,
		Name:    att.Name,
		Tag:     tag,
		FileURL: storageURL,
		PipeID:  event.PipeID,
		Status:  "uploaded",
	}
	if err := s.store.UpsertDocument(ctx, record); err != nil {
		s.failTransfer(ctx, event, att, err, "register")
		return nil, fmt.Errorf("register %s: %w", att.Name, err)
	}

	metrics.DocumentsTransferred.Inc()
	metrics.TransferDuration.Observe(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "document transferred",
		logging.CardID(event.CardID), logging.Document(att.Name), "tag", string(tag))

	return &models.TransferredDocument{
		Name:       att.Name,
		StorageURL: storageURL,
		Tag:        tag,
	}, nil
}

func (s *IngestService) failTransfer(ctx context.Context, event models.InboundEvent, att models.Attachment, cause error, stage string) {
	metrics.TransferFailures.WithLabelValues(stage).Inc()
	payload, _ := json.Marshal(att)
	s.writeDeadLetter(ctx, &dlq.FailedJob{
		Kind:     "transfer",
		CaseID:   event.CardID,
		Document: att.Name,
		Payload:  payload,
	}, cause, stage+"_failed")
}

func (s *IngestService) writeDeadLetter(ctx context.Context, job *dlq.FailedJob, cause error, reason string) {
	if s.deadLetter == nil {
		return
	}
	if err := s.deadLetter.Write(ctx, job, cause, reason); err != nil {
		s.logger.ErrorContext(ctx, "dead letter write failed", logging.Err(err))
	}
}

// checklistURL resolves the configured checklist, falling back to the
// default when the config row is missing or the lookup fails.
func (s *IngestService) checklistURL(ctx context.Context) string {
	url, err := s.store.ChecklistURL(ctx, s.cfg.ChecklistConfigName)
	if err != nil || url == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "checklist lookup failed, using default",
				"config_name", s.cfg.ChecklistConfigName, logging.Err(err))
		}
		return s.cfg.ChecklistDefaultURL
	}
	return url
}

// HandleReport queues the card field write-back for a finished report.
func (s *IngestService) HandleReport(ctx context.Context, record *models.ReportRecord) error {
	caseID := record.CaseID
	content := record.Content

	err := s.dispatcher.Enqueue(dispatch.Job{
		Kind: "field_update",
		Run: func(jobCtx context.Context) {
			if err := s.fields.UpdateReportField(jobCtx, caseID, content); err != nil {
				metrics.FieldUpdates.WithLabelValues("error").Inc()
				s.writeDeadLetter(jobCtx, &dlq.FailedJob{
					Kind:   "field_update",
					CaseID: caseID,
				}, err, "field_update_failed")
				return
			}
			metrics.FieldUpdates.WithLabelValues("success").Inc()
		},
	})
	if err != nil {
		return fmt.Errorf("queue field update for case %s: %w", caseID, err)
	}

	s.logger.InfoContext(ctx, "report update queued",
		logging.CaseID(caseID), "content_length", len(content))
	return nil
}
