package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/docketry/docketd/internal/core/config"
	"github.com/docketry/docketd/internal/core/domain"
	"github.com/docketry/docketd/internal/infra/backend"
	"github.com/docketry/docketd/internal/infra/storage"
	"github.com/docketry/docketd/internal/metrics"
	"github.com/docketry/docketd/internal/notify"
)

// Worker pulls cases, documents and notes updated since the last cursor
// through the resilient backend client and upserts them into the mirror.
type Worker struct {
	cfg   config.SyncConfig
	q     backend.Querier
	cases storage.CaseRepository
	docs  storage.DocumentRepository
	notes storage.NoteRepository
	queue JobQueue // may be nil; summarization jobs are then skipped
	hub   *notify.Hub
	log   *slog.Logger

	mu         sync.Mutex
	lastSync   time.Time
	caseCursor time.Time
	docCursor  time.Time
	noteCursor time.Time
}

// NewWorker creates a sync worker.
func NewWorker(
	cfg config.SyncConfig,
	q backend.Querier,
	cases storage.CaseRepository,
	docs storage.DocumentRepository,
	notes storage.NoteRepository,
	queue JobQueue,
	hub *notify.Hub,
) *Worker {
	return &Worker{
		cfg:   cfg,
		q:     q,
		cases: cases,
		docs:  docs,
		notes: notes,
		queue: queue,
		hub:   hub,
		log:   slog.Default().With("component", "syncer"),
	}
}

// LastSync returns when the last full sync pass completed successfully.
func (w *Worker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

// Start runs the sync loop until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.seedCursors(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.SyncOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.SyncOnce(ctx)
		}
	}
}

// SyncOnce performs one full sync pass. The three entity syncs run
// concurrently; a failure of any marks the pass failed and raises one
// sync-failed notification.
func (w *Worker) SyncOnce(ctx context.Context) {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.syncCases(gctx) })
	g.Go(func() error { return w.syncDocuments(gctx) })
	g.Go(func() error { return w.syncNotes(gctx) })

	if err := g.Wait(); err != nil {
		w.log.Error("sync pass failed", "error", err)
		if w.hub != nil {
			w.hub.Publish(notify.KindSyncFailed, "case sync failed: "+err.Error())
		}
		return
	}

	w.mu.Lock()
	w.lastSync = time.Now()
	w.mu.Unlock()

	w.log.Debug("sync pass completed", "duration", time.Since(start))
}

// seedCursors resumes from the newest mirrored rows so a restart does not
// re-fetch the whole backend.
func (w *Worker) seedCursors(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, err := w.cases.MaxUpdatedAt(ctx); err == nil {
		w.caseCursor = t
	}
	if t, err := w.docs.MaxUpdatedAt(ctx); err == nil {
		w.docCursor = t
	}
	if t, err := w.notes.MaxUpdatedAt(ctx); err == nil {
		w.noteCursor = t
	}
}

func (w *Worker) syncCases(ctx context.Context) error {
	w.mu.Lock()
	cursor := w.caseCursor
	w.mu.Unlock()

	for {
		var rows []*domain.Case
		err := w.page("cases", cursor).Get(ctx, &rows)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if err := w.cases.UpsertBatch(ctx, rows); err != nil {
			return err
		}
		metrics.CasesSynced.Add(float64(len(rows)))

		cursor = rows[len(rows)-1].UpdatedAt
		w.mu.Lock()
		w.caseCursor = cursor
		w.mu.Unlock()

		if len(rows) < w.cfg.PageSize {
			return nil
		}
	}
}

func (w *Worker) syncDocuments(ctx context.Context) error {
	w.mu.Lock()
	cursor := w.docCursor
	w.mu.Unlock()

	for {
		var rows []*domain.Document
		err := w.page("documents", cursor).Get(ctx, &rows)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if err := w.docs.UpsertBatch(ctx, rows); err != nil {
			return err
		}
		metrics.DocumentsSynced.Add(float64(len(rows)))

		for _, d := range rows {
			w.maybeEnqueueSummary(ctx, d)
		}

		cursor = rows[len(rows)-1].UpdatedAt
		w.mu.Lock()
		w.docCursor = cursor
		w.mu.Unlock()

		if len(rows) < w.cfg.PageSize {
			return nil
		}
	}
}

func (w *Worker) syncNotes(ctx context.Context) error {
	w.mu.Lock()
	cursor := w.noteCursor
	w.mu.Unlock()

	for {
		var rows []*domain.Note
		err := w.page("notes", cursor).Get(ctx, &rows)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if err := w.notes.UpsertBatch(ctx, rows); err != nil {
			return err
		}

		cursor = rows[len(rows)-1].UpdatedAt
		w.mu.Lock()
		w.noteCursor = cursor
		w.mu.Unlock()

		if len(rows) < w.cfg.PageSize {
			return nil
		}
	}
}

func (w *Worker) page(table string, cursor time.Time) *backend.QueryBuilder {
	q := w.q.From(table).Select("*").
		Order("updated_at", true).
		Limit(w.cfg.PageSize)
	if !cursor.IsZero() {
		q = q.Gt("updated_at", cursor.UTC().Format(time.RFC3339Nano))
	}
	return q
}

func (w *Worker) maybeEnqueueSummary(ctx context.Context, d *domain.Document) {
	if w.queue == nil || !d.NeedsSummary() {
		return
	}

	job := &domain.SummaryJob{
		ID:         uuid.NewString(),
		DocumentID: d.ID,
		CaseID:     d.CaseID,
		EnqueuedAt: time.Now(),
	}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		w.log.Warn("failed to enqueue summary job", "document", d.ID, "error", err)
		return
	}
	w.log.Debug("summary job enqueued", "document", d.ID)
}
