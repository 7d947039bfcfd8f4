package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow-systems/docingest/internal/dispatch"
	"github.com/caseflow-systems/docingest/internal/dlq"
	"github.com/caseflow-systems/docingest/internal/models"
	"github.com/caseflow-systems/docingest/internal/repository"
)

type fakeAttachments struct {
	byCard map[string][]models.Attachment
}

func (f *fakeAttachments) CardAttachments(_ context.Context, cardID string) []models.Attachment {
	return f.byCard[cardID]
}

type fakeDownloader struct {
	failFor map[string]error
}

func (f *fakeDownloader) Fetch(_ context.Context, url string) ([]byte, string, error) {
	if err, ok := f.failFor[url]; ok {
		return nil, "", err
	}
	return []byte("content-of-" + url), "application/pdf", nil
}

type fakeUploader struct {
	uploads []string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, caseID, filename string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, filename)
	return "https://store.example.com/object/public/documents/" + caseID + "/" + filename, nil
}

type fakeStore struct {
	docs         []*models.DocumentRecord
	upsertErr    error
	checklistURL string
	checklistErr error
}

func (f *fakeStore) UpsertDocument(_ context.Context, doc *models.DocumentRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeStore) ChecklistURL(_ context.Context, _ string) (string, error) {
	return f.checklistURL, f.checklistErr
}

type fakeRunner struct {
	requests []models.AnalysisRequest
	outcome  models.AnalysisOutcome
}

func (f *fakeRunner) Run(_ context.Context, req models.AnalysisRequest) models.AnalysisOutcome {
	f.requests = append(f.requests, req)
	return f.outcome
}

type fakeFields struct {
	calls   int
	cardID  string
	content string
	err     error
}

func (f *fakeFields) UpdateReportField(_ context.Context, cardID, content string) error {
	f.calls++
	f.cardID = cardID
	f.content = content
	return f.err
}

// inlineDispatcher runs jobs synchronously so tests see their effects.
type inlineDispatcher struct {
	kinds []string
	err   error
}

func (d *inlineDispatcher) Enqueue(job dispatch.Job) error {
	if d.err != nil {
		return d.err
	}
	d.kinds = append(d.kinds, job.Kind)
	job.Run(context.Background())
	return nil
}

type fixture struct {
	svc        *IngestService
	att        *fakeAttachments
	downloader *fakeDownloader
	uploader   *fakeUploader
	store      *fakeStore
	runner     *fakeRunner
	fields     *fakeFields
	dispatcher *inlineDispatcher
	deadLetter *dlq.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	queue, err := dlq.NewQueue(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		att:        &fakeAttachments{byCard: map[string][]models.Attachment{}},
		downloader: &fakeDownloader{failFor: map[string]error{}},
		uploader:   &fakeUploader{},
		store:      &fakeStore{checklistURL: "https://store.example.com/checklist.pdf"},
		runner:     &fakeRunner{outcome: models.AnalysisOutcome{Status: models.OutcomeSuccess}},
		fields:     &fakeFields{},
		dispatcher: &inlineDispatcher{},
		deadLetter: queue,
	}
	f.svc = NewIngestService(
		f.att, f.downloader, f.uploader, f.store, f.runner, f.fields,
		f.dispatcher, f.deadLetter,
		Config{
			ChecklistConfigName: "checklist_cadastro_pj",
			ChecklistDefaultURL: "https://default.example.com/checklist.pdf",
		},
		nil,
	)
	return f
}

func TestHandleCardEvent_TransfersAndQueuesAnalysis(t *testing.T) {
	f := newFixture(t)
	f.att.byCard["123"] = []models.Attachment{
		{Name: "contrato.pdf", SourceURL: "https://files.example.com/a"},
		{Name: "balanco_2025.pdf", SourceURL: "https://files.example.com/b"},
	}

	resp, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123", PipeID: "9"})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "123", resp.CardID)
	assert.Equal(t, 2, resp.DocumentsProcessed)
	assert.Equal(t, "initiated_in_background", resp.Analysis)

	require.Len(t, f.store.docs, 2)
	assert.Equal(t, models.TagContratoSocial, f.store.docs[0].Tag)
	assert.Equal(t, models.TagBalancoPatrimonial, f.store.docs[1].Tag)
	assert.Equal(t, "9", f.store.docs[0].PipeID)
	assert.Equal(t, "uploaded", f.store.docs[0].Status)

	require.Len(t, f.runner.requests, 1)
	req := f.runner.requests[0]
	assert.Equal(t, "123", req.CaseID)
	assert.Len(t, req.Documents, 2)
	assert.Equal(t, "https://store.example.com/checklist.pdf", req.ChecklistURL)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, req.CurrentDate)
	assert.Equal(t, "9", req.PipeID)
}

func TestHandleCardEvent_NoAttachments(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "empty"})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.DocumentsProcessed)

	// Analysis still runs, with an empty document list.
	require.Len(t, f.runner.requests, 1)
	assert.Empty(t, f.runner.requests[0].Documents)
}

func TestHandleCardEvent_PartialTransfer(t *testing.T) {
	f := newFixture(t)
	f.att.byCard["123"] = []models.Attachment{
		{Name: "contrato.pdf", SourceURL: "https://files.example.com/ok"},
		{Name: "broken.pdf", SourceURL: "https://files.example.com/broken"},
	}
	f.downloader.failFor["https://files.example.com/broken"] = errors.New("status 403")

	resp, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.DocumentsProcessed)
	require.Len(t, f.runner.requests, 1)
	require.Len(t, f.runner.requests[0].Documents, 1)
	assert.Equal(t, "contrato.pdf", f.runner.requests[0].Documents[0].Name)

	// The failed attachment was dead-lettered.
	jobs, err := f.deadLetter.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "transfer", jobs[0].Kind)
	assert.Equal(t, "broken.pdf", jobs[0].Document)
	assert.Equal(t, "download_failed", jobs[0].Reason)
}

func TestHandleCardEvent_RegisterFailureSkipsDocument(t *testing.T) {
	f := newFixture(t)
	f.att.byCard["123"] = []models.Attachment{
		{Name: "contrato.pdf", SourceURL: "https://files.example.com/a"},
	}
	f.store.upsertErr = errors.New("db down")

	resp, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.DocumentsProcessed)
}

func TestHandleCardEvent_ChecklistFallback(t *testing.T) {
	f := newFixture(t)
	f.store.checklistURL = ""
	f.store.checklistErr = repository.ErrChecklistNotFound

	_, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123"})
	require.NoError(t, err)

	require.Len(t, f.runner.requests, 1)
	assert.Equal(t, "https://default.example.com/checklist.pdf", f.runner.requests[0].ChecklistURL)
}

func TestHandleCardEvent_QueueFull(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = dispatch.ErrQueueFull

	_, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123"})
	assert.ErrorIs(t, err, dispatch.ErrQueueFull)
}

func TestHandleCardEvent_FailedAnalysisDeadLettered(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = models.AnalysisOutcome{Status: models.OutcomeTimeout, Error: "analysis service timeout"}

	_, err := f.svc.HandleCardEvent(context.Background(), models.InboundEvent{CardID: "123"})
	require.NoError(t, err)

	jobs, err := f.deadLetter.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "analysis", jobs[0].Kind)
	assert.Equal(t, "analysis_failed", jobs[0].Reason)
}

func TestHandleReport_QueuesFieldUpdate(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleReport(context.Background(), &models.ReportRecord{
		CaseID:  "123",
		Content: "relatorio final",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"field_update"}, f.dispatcher.kinds)
	assert.Equal(t, 1, f.fields.calls)
	assert.Equal(t, "123", f.fields.cardID)
	assert.Equal(t, "relatorio final", f.fields.content)
}

func TestHandleReport_FailedUpdateDeadLettered(t *testing.T) {
	f := newFixture(t)
	f.fields.err = errors.New("field not found")

	err := f.svc.HandleReport(context.Background(), &models.ReportRecord{CaseID: "123", Content: "x"})
	require.NoError(t, err)

	jobs, err := f.deadLetter.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "field_update", jobs[0].Kind)
}
