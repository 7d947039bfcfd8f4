package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caseflow-systems/docingest/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// UpsertDocument inserts the document record, overwriting the existing row
// when the same case already holds a document with the same name.
func (r *PostgresRepository) UpsertDocument(ctx context.Context, doc *models.DocumentRecord) error {
	query := `
		INSERT INTO documents (case_id, name, document_tag, file_url, pipe_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (case_id, name) DO UPDATE SET
			document_tag = EXCLUDED.document_tag,
			file_url = EXCLUDED.file_url,
			pipe_id = EXCLUDED.pipe_id,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		doc.CaseID, doc.Name, doc.Tag, doc.FileURL, doc.PipeID, doc.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// GetDocument retrieves a single document by case id and name
func (r *PostgresRepository) GetDocument(ctx context.Context, caseID, name string) (*models.DocumentRecord, error) {
	query := `
		SELECT case_id, name, document_tag, file_url, pipe_id, status
		FROM documents
		WHERE case_id = $1 AND name = $2
	`

	doc := &models.DocumentRecord{}
	err := r.pool.QueryRow(ctx, query, caseID, name).Scan(
		&doc.CaseID, &doc.Name, &doc.Tag, &doc.FileURL, &doc.PipeID, &doc.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListDocuments retrieves all documents registered for a case
func (r *PostgresRepository) ListDocuments(ctx context.Context, caseID string) ([]*models.DocumentRecord, error) {
	query := `
		SELECT case_id, name, document_tag, file_url, pipe_id, status
		FROM documents
		WHERE case_id = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.DocumentRecord
	for rows.Next() {
		doc := &models.DocumentRecord{}
		if err := rows.Scan(
			&doc.CaseID, &doc.Name, &doc.Tag, &doc.FileURL, &doc.PipeID, &doc.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// CountDocuments returns the total number of registered documents
func (r *PostgresRepository) CountDocuments(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return total, nil
}

// ChecklistURL retrieves the checklist file URL for a named config
func (r *PostgresRepository) ChecklistURL(ctx context.Context, configName string) (string, error) {
	query := `
		SELECT arquivo_url
		FROM checklist_config
		WHERE nome_config = $1
	`

	var url string
	err := r.pool.QueryRow(ctx, query, configName).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrChecklistNotFound
		}
		return "", fmt.Errorf("failed to get checklist config: %w", err)
	}

	return url, nil
}

// SetChecklistURL inserts or replaces a named checklist config
func (r *PostgresRepository) SetChecklistURL(ctx context.Context, configName, url string) error {
	query := `
		INSERT INTO checklist_config (nome_config, arquivo_url, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (nome_config) DO UPDATE SET
			arquivo_url = EXCLUDED.arquivo_url,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, configName, url); err != nil {
		return fmt.Errorf("failed to set checklist config: %w", err)
	}

	return nil
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
