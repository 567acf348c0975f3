package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
)

// NoteRepo implements storage.NoteRepository using PostgreSQL.
type NoteRepo struct {
	db *DB
}

// NewNoteRepo creates a new PostgreSQL note repository.
func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

const upsertNoteQuery = `
	INSERT INTO notes (id, case_id, author_id, title, body, created_at, updated_at)
	VALUES (:id, :case_id, :author_id, :title, :body, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		case_id = EXCLUDED.case_id,
		author_id = EXCLUDED.author_id,
		title = EXCLUDED.title,
		body = EXCLUDED.body,
		updated_at = EXCLUDED.updated_at`

// Upsert saves a note row.
func (r *NoteRepo) Upsert(ctx context.Context, n *domain.Note) error {
	if _, err := r.db.NamedExecContext(ctx, upsertNoteQuery, n); err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

// UpsertBatch saves multiple note rows in one transaction.
func (r *NoteRepo) UpsertBatch(ctx context.Context, notes []*domain.Note) error {
	if len(notes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, n := range notes {
		if _, err := tx.NamedExecContext(ctx, upsertNoteQuery, n); err != nil {
			return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// ListByCase returns notes for a case.
func (r *NoteRepo) ListByCase(ctx context.Context, caseID string) ([]*domain.Note, error) {
	var notes []*domain.Note
	err := r.db.SelectContext(ctx, &notes,
		`SELECT * FROM notes WHERE case_id = $1 ORDER BY updated_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// Count returns the number of mirrored notes.
func (r *NoteRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notes`); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

// MaxUpdatedAt returns the newest updated_at in the mirror.
func (r *NoteRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	var t sql.NullTime
	if err := r.db.GetContext(ctx, &t, `SELECT MAX(updated_at) FROM notes`); err != nil {
		return time.Time{}, fmt.Errorf("failed to get note cursor: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}
