package repository

import (
	"context"
	"errors"

	"github.com/caseflow-systems/docingest/internal/models"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrChecklistNotFound = errors.New("checklist config not found")
)

// Repository defines the interface for document and checklist persistence
type Repository interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error
	GetDocument(ctx context.Context, caseID, name string) (*models.DocumentRecord, error)
	ListDocuments(ctx context.Context, caseID string) ([]*models.DocumentRecord, error)
	CountDocuments(ctx context.Context) (int, error)

	// Checklist operations
	ChecklistURL(ctx context.Context, configName string) (string, error)
	SetChecklistURL(ctx context.Context, configName, url string) error

	// Utility
	Close() error
}
