package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
	"github.com/docketry/docketd/internal/infra/storage"
)

// DocumentRepo implements storage.DocumentRepository using PostgreSQL.
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new PostgreSQL document repository.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const upsertDocumentQuery = `
	INSERT INTO documents (id, case_id, name, storage_path, mime_type, size_bytes,
		summary, summary_status, uploaded_by, created_at, updated_at)
	VALUES (:id, :case_id, :name, :storage_path, :mime_type, :size_bytes,
		:summary, :summary_status, :uploaded_by, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		case_id = EXCLUDED.case_id,
		name = EXCLUDED.name,
		storage_path = EXCLUDED.storage_path,
		mime_type = EXCLUDED.mime_type,
		size_bytes = EXCLUDED.size_bytes,
		summary = EXCLUDED.summary,
		summary_status = EXCLUDED.summary_status,
		uploaded_by = EXCLUDED.uploaded_by,
		updated_at = EXCLUDED.updated_at`

// Upsert saves a document row.
func (r *DocumentRepo) Upsert(ctx context.Context, d *domain.Document) error {
	if _, err := r.db.NamedExecContext(ctx, upsertDocumentQuery, d); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// UpsertBatch saves multiple document rows in one transaction.
func (r *DocumentRepo) UpsertBatch(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range docs {
		if _, err := tx.NamedExecContext(ctx, upsertDocumentQuery, d); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// GetByID retrieves a document by id.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	err := r.db.GetContext(ctx, &d, `SELECT * FROM documents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// ListByCase returns documents for a case.
func (r *DocumentRepo) ListByCase(ctx context.Context, caseID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// SetSummary stores a summarization outcome.
func (r *DocumentRepo) SetSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET summary = $1, summary_status = $2 WHERE id = $3`,
		summary, status, id)
	if err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of mirrored documents.
func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM documents`); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// MaxUpdatedAt returns the newest updated_at in the mirror.
func (r *DocumentRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	var t sql.NullTime
	if err := r.db.GetContext(ctx, &t, `SELECT MAX(updated_at) FROM documents`); err != nil {
		return time.Time{}, fmt.Errorf("failed to get document cursor: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// DeleteByCase removes documents belonging to a case.
func (r *DocumentRepo) DeleteByCase(ctx context.Context, caseID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE case_id = $1`, caseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	return res.RowsAffected()
}
