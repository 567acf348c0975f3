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

// CaseRepo implements storage.CaseRepository using PostgreSQL.
type CaseRepo struct {
	db *DB
}

// NewCaseRepo creates a new PostgreSQL case repository.
func NewCaseRepo(db *DB) *CaseRepo {
	return &CaseRepo{db: db}
}

const upsertCaseQuery = `
	INSERT INTO cases (id, title, client_name, status, description, owner_id, created_at, updated_at)
	VALUES (:id, :title, :client_name, :status, :description, :owner_id, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		client_name = EXCLUDED.client_name,
		status = EXCLUDED.status,
		description = EXCLUDED.description,
		owner_id = EXCLUDED.owner_id,
		updated_at = EXCLUDED.updated_at`

// Upsert saves a case row.
func (r *CaseRepo) Upsert(ctx context.Context, c *domain.Case) error {
	if _, err := r.db.NamedExecContext(ctx, upsertCaseQuery, c); err != nil {
		return fmt.Errorf("failed to upsert case: %w", err)
	}
	return nil
}

// UpsertBatch saves multiple case rows in one transaction.
func (r *CaseRepo) UpsertBatch(ctx context.Context, cases []*domain.Case) error {
	if len(cases) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cases {
		if _, err := tx.NamedExecContext(ctx, upsertCaseQuery, c); err != nil {
			return fmt.Errorf("failed to upsert case %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetByID retrieves a case by id.
func (r *CaseRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	var c domain.Case
	err := r.db.GetContext(ctx, &c, `SELECT * FROM cases WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

// List returns cases ordered by most recently updated.
func (r *CaseRepo) List(ctx context.Context, limit int) ([]*domain.Case, error) {
	if limit <= 0 {
		limit = 100
	}
	var cases []*domain.Case
	err := r.db.SelectContext(ctx, &cases,
		`SELECT * FROM cases ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

// Count returns the number of mirrored cases.
func (r *CaseRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM cases`); err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	return n, nil
}

// MaxUpdatedAt returns the newest updated_at in the mirror.
func (r *CaseRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	var t sql.NullTime
	if err := r.db.GetContext(ctx, &t, `SELECT MAX(updated_at) FROM cases`); err != nil {
		return time.Time{}, fmt.Errorf("failed to get case cursor: %w", err)
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// DeleteClosedBefore removes closed cases not updated since the cutoff.
func (r *CaseRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cases WHERE status = $1 AND updated_at < $2`,
		domain.CaseStatusClosed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cases: %w", err)
	}
	return res.RowsAffected()
}
