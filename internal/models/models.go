package models

import "encoding/json"

// DocumentTag is the semantic category assigned to a transferred document.
// Values match the registry's document_tag column.
type DocumentTag string

const (
	TagContratoSocial        DocumentTag = "contrato_social"
	TagComprovanteResidencia DocumentTag = "comprovante_residencia"
	TagDocumentoIdentidade   DocumentTag = "documento_identidade"
	TagDeclaracaoImpostos    DocumentTag = "declaracao_impostos"
	TagCertificadoRegistro   DocumentTag = "certificado_registro"
	TagProcuracao            DocumentTag = "procuracao"
	TagBalancoPatrimonial    DocumentTag = "balanco_patrimonial"
	TagFaturamento           DocumentTag = "faturamento"
	TagOutroDocumento        DocumentTag = "outro_documento"
)

// InboundEvent is the validated form of a workflow webhook payload.
// It is built once per webhook call and read-only afterwards.
type InboundEvent struct {
	CardID string
	PipeID string
	Action string
}

// Attachment is a single file reference detected inside a card's field
// values. Produced by attachment resolution, consumed by exactly one
// transfer.
type Attachment struct {
	Name      string `json:"name"`
	SourceURL string `json:"path"`
}

// TransferredDocument is a document that completed download, upload and
// registration. Only fully transferred documents reach the analysis request.
type TransferredDocument struct {
	Name       string      `json:"name"`
	StorageURL string      `json:"file_url"`
	Tag        DocumentTag `json:"document_tag"`
}

// DocumentRecord is a registry row for a transferred document, keyed on
// (case_id, name).
type DocumentRecord struct {
	CaseID  string      `json:"case_id"`
	Name    string      `json:"name"`
	Tag     DocumentTag `json:"document_tag"`
	FileURL string      `json:"file_url"`
	PipeID  string      `json:"pipe_id,omitempty"`
	Status  string      `json:"status"`
}

// AnalysisRequest is the payload sent to the analysis service. Serialized
// verbatim; field names are part of the wire contract.
type AnalysisRequest struct {
	CaseID       string                `json:"case_id"`
	Documents    []TransferredDocument `json:"documents"`
	ChecklistURL string                `json:"checklist_url"`
	CurrentDate  string                `json:"current_date"`
	PipeID       string                `json:"pipe_id,omitempty"`
}

// OutcomeStatus tags the result of one analysis invocation.
type OutcomeStatus string

const (
	OutcomeSuccess           OutcomeStatus = "success"
	OutcomePartialSuccess    OutcomeStatus = "partial_success"
	OutcomeSuccessAfterRetry OutcomeStatus = "success_after_retry"
	OutcomeError             OutcomeStatus = "error"
	OutcomeTimeout           OutcomeStatus = "timeout"
)

// AnalysisOutcome is the fire-and-forget result of an analysis invocation.
// It is never returned to the webhook caller; it surfaces through logs,
// metrics and the DLQ.
type AnalysisOutcome struct {
	Status        OutcomeStatus   `json:"status"`
	RiskScore     float64         `json:"risk_score,omitempty"`
	SummaryReport string          `json:"summary_report,omitempty"`
	FieldUpdated  bool            `json:"field_updated"`
	ColdStart     bool            `json:"cold_start_handled,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// WebhookResponse is returned to the workflow tool after a webhook is
// accepted.
type WebhookResponse struct {
	Status             string `json:"status"`
	Message            string `json:"message"`
	CardID             string `json:"card_id"`
	PipeID             string `json:"pipe_id,omitempty"`
	DocumentsProcessed int    `json:"documents_processed"`
	Analysis           string `json:"crewai_analysis"`
}

// ReportNotification is the payload of the secondary inbound endpoint: a
// database change notification carrying a finished analysis report.
type ReportNotification struct {
	Type   string        `json:"type"`
	Table  string        `json:"table"`
	Record *ReportRecord `json:"record"`
}

// ReportRecord is the inserted report row inside a ReportNotification.
type ReportRecord struct {
	CaseID  string `json:"case_id"`
	Content string `json:"informe"`
	Status  string `json:"status"`
}
