// Package syncer contains the workers that keep the local mirror current
// and drive document summarization jobs.
package syncer

import (
	"context"
	"time"

	"github.com/docketry/docketd/internal/core/domain"
)

// JobQueue is the queue surface the workers depend on. Implemented by the
// Redis client in production and by an in-memory fake in tests.
type JobQueue interface {
	Enqueue(ctx context.Context, job *domain.SummaryJob) error
	Pop(ctx context.Context) (*domain.SummaryJob, bool, error)
	Depth(ctx context.Context) (int64, error)
	AcquireLock(ctx context.Context, documentID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, documentID string) error
	RefreshLock(ctx context.Context, documentID string, ttl time.Duration) error
}
