// Package memory provides in-memory repository implementations for tests
// and for running without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
	"github.com/docketry/docketd/internal/infra/storage"
)

// Storage holds all in-memory state.
type Storage struct {
	mu        sync.RWMutex
	cases     map[string]*domain.Case
	documents map[string]*domain.Document
	notes     map[string]*domain.Note
}

// NewStorage creates empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		cases:     make(map[string]*domain.Case),
		documents: make(map[string]*domain.Document),
		notes:     make(map[string]*domain.Note),
	}
}

// CaseRepo implements storage.CaseRepository in memory.
type CaseRepo struct{ s *Storage }

// NewCaseRepo creates an in-memory case repository.
func NewCaseRepo(s *Storage) *CaseRepo { return &CaseRepo{s: s} }

func (r *CaseRepo) Upsert(ctx context.Context, c *domain.Case) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.cases[c.ID] = &cp
	return nil
}

func (r *CaseRepo) UpsertBatch(ctx context.Context, cases []*domain.Case) error {
	for _, c := range cases {
		if err := r.Upsert(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *CaseRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cases[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CaseRepo) List(ctx context.Context, limit int) ([]*domain.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Case, 0, len(r.s.cases))
	for _, c := range r.s.cases {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CaseRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.cases), nil
}

func (r *CaseRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var max time.Time
	for _, c := range r.s.cases {
		if c.UpdatedAt.After(max) {
			max = c.UpdatedAt
		}
	}
	return max, nil
}

func (r *CaseRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, c := range r.s.cases {
		if c.Status == domain.CaseStatusClosed && c.UpdatedAt.Before(cutoff) {
			delete(r.s.cases, id)
			n++
		}
	}
	return n, nil
}

// DocumentRepo implements storage.DocumentRepository in memory.
type DocumentRepo struct{ s *Storage }

// NewDocumentRepo creates an in-memory document repository.
func NewDocumentRepo(s *Storage) *DocumentRepo { return &DocumentRepo{s: s} }

func (r *DocumentRepo) Upsert(ctx context.Context, d *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *d
	r.s.documents[d.ID] = &cp
	return nil
}

func (r *DocumentRepo) UpsertBatch(ctx context.Context, docs []*domain.Document) error {
	for _, d := range docs {
		if err := r.Upsert(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DocumentRepo) ListByCase(ctx context.Context, caseID string) ([]*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Document
	for _, d := range r.s.documents {
		if d.CaseID == caseID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DocumentRepo) SetSummary(ctx context.Context, id, summary string, status domain.SummaryStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	d.Summary = summary
	d.SummaryStatus = status
	return nil
}

func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.documents), nil
}

func (r *DocumentRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var max time.Time
	for _, d := range r.s.documents {
		if d.UpdatedAt.After(max) {
			max = d.UpdatedAt
		}
	}
	return max, nil
}

func (r *DocumentRepo) DeleteByCase(ctx context.Context, caseID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, d := range r.s.documents {
		if d.CaseID == caseID {
			delete(r.s.documents, id)
			n++
		}
	}
	return n, nil
}

// NoteRepo implements storage.NoteRepository in memory.
type NoteRepo struct{ s *Storage }

// NewNoteRepo creates an in-memory note repository.
func NewNoteRepo(s *Storage) *NoteRepo { return &NoteRepo{s: s} }

func (r *NoteRepo) Upsert(ctx context.Context, n *domain.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *n
	r.s.notes[n.ID] = &cp
	return nil
}

func (r *NoteRepo) UpsertBatch(ctx context.Context, notes []*domain.Note) error {
	for _, n := range notes {
		if err := r.Upsert(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *NoteRepo) ListByCase(ctx context.Context, caseID string) ([]*domain.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Note
	for _, n := range r.s.notes {
		if n.CaseID == caseID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *NoteRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.notes), nil
}

func (r *NoteRepo) MaxUpdatedAt(ctx context.Context) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var max time.Time
	for _, n := range r.s.notes {
		if n.UpdatedAt.After(max) {
			max = n.UpdatedAt
		}
	}
	return max, nil
}
