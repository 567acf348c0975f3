package health

import (
	"context"
	"sync"
	"time"

	"github.com/docketry/docketd/internal/infra/storage"
	"github.com/docketry/docketd/internal/resilience/netwatch"
	"github.com/docketry/docketd/internal/resilience/session"
)

// Connectivity is the slice of the network monitor the health check reads.
type Connectivity interface {
	IsOnline() bool
	Quality() netwatch.Quality
}

// SessionStatus reports the cached session state.
type SessionStatus interface {
	State() session.State
}

// QueueDepther reports pending summarization jobs. May be nil when Redis is
// not configured.
type QueueDepther interface {
	Depth(ctx context.Context) (int64, error)
}

// LastSyncer reports when the last sync pass completed.
type LastSyncer interface {
	LastSync() time.Time
}

// Monitor aggregates health status from the agent's components.
type Monitor struct {
	net      Connectivity
	sessions SessionStatus
	queue    QueueDepther
	sync     LastSyncer
	cases    storage.CaseRepository
	docs     storage.DocumentRepository

	syncInterval time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a health monitor. queue may be nil.
func NewMonitor(
	net Connectivity,
	sessions SessionStatus,
	queue QueueDepther,
	syncState LastSyncer,
	cases storage.CaseRepository,
	docs storage.DocumentRepository,
	syncInterval time.Duration,
) *Monitor {
	return &Monitor{
		net:          net,
		sessions:     sessions,
		queue:        queue,
		sync:         syncState,
		cases:        cases,
		docs:         docs,
		syncInterval: syncInterval,
	}
}

// Check performs a health check.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering the mirror and Redis.
	if time.Since(m.lastCheck) < 10*time.Second && !m.lastCheck.IsZero() {
		return m.lastReport
	}

	report := Report{
		Status:  StatusHealthy,
		Online:  m.net.IsOnline(),
		Quality: m.net.Quality().String(),
		Session: m.sessions.State().String(),
	}

	if m.queue != nil {
		if depth, err := m.queue.Depth(ctx); err == nil {
			report.QueueDepth = depth
		}
	}

	if last := m.sync.LastSync(); !last.IsZero() {
		report.LastSyncAge = time.Since(last).Seconds()
	}

	if n, err := m.cases.Count(ctx); err == nil {
		report.CasesInMirr = n
	}
	if n, err := m.docs.Count(ctx); err == nil {
		report.DocsInMirror = n
	}

	// Evaluate status: a dead session or offline backend is critical; a
	// stale sync or a deep queue is degradation.
	switch {
	case report.Session == "unauthenticated", !report.Online:
		report.Status = StatusCritical
	case m.syncInterval > 0 && report.LastSyncAge > (3*m.syncInterval).Seconds(),
		report.QueueDepth > 100:
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
