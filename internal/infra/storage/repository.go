// Package storage defines the repository interfaces for the local mirror.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
)

var (
	// ErrNotFound is returned when a mirrored row doesn't exist
	ErrNotFound = errors.New("not found")
)

// CaseRepository handles mirrored case rows
type CaseRepository interface {
	// Upsert saves a case, replacing any existing row
	Upsert(ctx context.Context, c *domain.Case) error

	// UpsertBatch saves multiple cases
	UpsertBatch(ctx context.Context, cases []*domain.Case) error

	// GetByID retrieves a case
	GetByID(ctx context.Context, id string) (*domain.Case, error)

	// List returns cases ordered by most recently updated
	List(ctx context.Context, limit int) ([]*domain.Case, error)

	// Count returns the number of mirrored cases
	Count(ctx context.Context) (int, error)

	// MaxUpdatedAt returns the newest updated_at in the mirror (sync cursor)
	MaxUpdatedAt(ctx context.Context) (time.Time, error)

	// DeleteClosedBefore removes closed cases not updated since the cutoff
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentRepository handles mirrored document rows
type DocumentRepository interface {
	// Upsert saves a document, replacing any existing row
	Upsert(ctx context.Context, d *domain.Document) error

	// UpsertBatch saves multiple documents
	UpsertBatch(ctx context.Context, docs []*domain.Document) error

	// GetByID retrieves a document
	GetByID(ctx context.Context, id string) (*domain.Document, error)

	// ListByCase returns documents for a case
	ListByCase(ctx context.Context, caseID string) ([]*domain.Document, error)

	// SetSummary stores a summarization outcome
	SetSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error

	// Count returns the number of mirrored documents
	Count(ctx context.Context) (int, error)

	// MaxUpdatedAt returns the newest updated_at in the mirror (sync cursor)
	MaxUpdatedAt(ctx context.Context) (time.Time, error)

	// DeleteByCase removes documents belonging to a case
	DeleteByCase(ctx context.Context, caseID string) (int64, error)
}

// NoteRepository handles mirrored note rows
type NoteRepository interface {
	// Upsert saves a note, replacing any existing row
	Upsert(ctx context.Context, n *domain.Note) error

	// UpsertBatch saves multiple notes
	UpsertBatch(ctx context.Context, notes []*domain.Note) error

	// ListByCase returns notes for a case
	ListByCase(ctx context.Context, caseID string) ([]*domain.Note, error)

	// Count returns the number of mirrored notes
	Count(ctx context.Context) (int, error)

	// MaxUpdatedAt returns the newest updated_at in the mirror (sync cursor)
	MaxUpdatedAt(ctx context.Context) (time.Time, error)
}
