package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService  = "service"
	FieldCardID   = "card_id"
	FieldCaseID   = "case_id"
	FieldPipeID   = "pipe_id"
	FieldDocument = "document"
	FieldTag      = "document_tag"
	FieldStage    = "stage"
	FieldOutcome  = "outcome"
	FieldError    = "error"
	FieldDuration = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// CardID returns a slog attribute for the workflow card id.
func CardID(id string) slog.Attr {
	return slog.String(FieldCardID, id)
}

// CaseID returns a slog attribute for the case id.
func CaseID(id string) slog.Attr {
	return slog.String(FieldCaseID, id)
}

// PipeID returns a slog attribute for the workflow pipe id.
func PipeID(id string) slog.Attr {
	return slog.String(FieldPipeID, id)
}

// Document returns a slog attribute for a document name.
func Document(name string) slog.Attr {
	return slog.String(FieldDocument, name)
}

// Stage returns a slog attribute for a pipeline stage name.
func Stage(name string) slog.Attr {
	return slog.String(FieldStage, name)
}

// Outcome returns a slog attribute for an analysis outcome status.
func Outcome(status string) slog.Attr {
	return slog.String(FieldOutcome, status)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
