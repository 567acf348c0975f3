package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/docketry/docketd/internal/core/config"
	"github.com/docketry/docketd/internal/core/domain"
	"github.com/docketry/docketd/internal/infra/backend"
	"github.com/docketry/docketd/internal/infra/storage"
	"github.com/docketry/docketd/internal/metrics"
)

// Summarizer drains the job queue, invoking the backend summarize_document
// function through the resilient client and recording the outcome both in
// the mirror and on the remote row.
type Summarizer struct {
	cfg   config.SummarizeConfig
	q     backend.Querier
	docs  storage.DocumentRepository
	queue JobQueue
	log   *slog.Logger
}

// NewSummarizer creates a summarization worker.
func NewSummarizer(
	cfg config.SummarizeConfig,
	q backend.Querier,
	docs storage.DocumentRepository,
	queue JobQueue,
) *Summarizer {
	return &Summarizer{
		cfg:   cfg,
		q:     q,
		docs:  docs,
		queue: queue,
		log:   slog.Default().With("component", "summarizer"),
	}
}

// Start runs the drain loop until ctx is done.
func (s *Summarizer) Start(ctx context.Context) {
	for {
		job, found, err := s.queue.Pop(ctx)
		if err != nil {
			s.log.Warn("failed to pop summary job", "error", err)
		}
		if !found {
			if depth, err := s.queue.Depth(ctx); err == nil {
				metrics.QueueDepth.Set(float64(depth))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.PollInterval):
			}
			continue
		}

		s.process(ctx, job)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Summarizer) process(ctx context.Context, job *domain.SummaryJob) {
	// Another agent instance may already be summarizing this document.
	ok, err := s.queue.AcquireLock(ctx, job.DocumentID, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("failed to acquire summary lock", "document", job.DocumentID, "error", err)
		return
	}
	if !ok {
		s.log.Debug("summary lock held elsewhere, skipping", "document", job.DocumentID)
		return
	}
	defer func() {
		if err := s.queue.ReleaseLock(ctx, job.DocumentID); err != nil {
			s.log.Warn("failed to release summary lock", "document", job.DocumentID, "error", err)
		}
	}()

	var result struct {
		Summary string `json:"summary"`
	}
	err = s.q.RPC(ctx, "summarize_document", map[string]string{
		"document_id": job.DocumentID,
	}, &result)
	if err != nil {
		s.handleFailure(ctx, job, err)
		return
	}

	if err := s.docs.SetSummary(ctx, job.DocumentID, result.Summary, domain.SummaryStatusCompleted); err != nil {
		s.log.Warn("failed to store summary in mirror", "document", job.DocumentID, "error", err)
	}

	// Write the outcome back so the web client sees it too.
	err = s.q.From("documents").
		Eq("id", job.DocumentID).
		Update(ctx, map[string]any{
			"summary":        result.Summary,
			"summary_status": string(domain.SummaryStatusCompleted),
		}, nil)
	if err != nil {
		s.log.Warn("failed to update remote summary", "document", job.DocumentID, "error", err)
	}

	metrics.SummariesTotal.WithLabelValues("success").Inc()
	s.log.Info("document summarized", "document", job.DocumentID, "attempts", job.Attempts+1)
}

// requeueDelay is the base hold-off before a failed job runs again; it is
// scaled by the attempt count.
const requeueDelay = 30 * time.Second

func (s *Summarizer) handleFailure(ctx context.Context, job *domain.SummaryJob, cause error) {
	job.Attempts++
	if job.Attempts < s.cfg.MaxAttempts {
		job.EnqueuedAt = time.Now().Add(time.Duration(job.Attempts) * requeueDelay)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.log.Warn("failed to requeue summary job", "document", job.DocumentID, "error", err)
		}
		s.log.Debug("summary job requeued",
			"document", job.DocumentID,
			"attempts", job.Attempts,
			"error", cause)
		return
	}

	metrics.SummariesTotal.WithLabelValues("failure").Inc()
	s.log.Error("summary job exhausted", "document", job.DocumentID, "error", cause)

	if err := s.docs.SetSummary(ctx, job.DocumentID, "", domain.SummaryStatusFailed); err != nil {
		s.log.Warn("failed to mark summary failed", "document", job.DocumentID, "error", err)
	}
}
