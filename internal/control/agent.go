// Package control wires the agent's components together and manages their
// lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/docketry/docketd/internal/core/config"
	"github.com/docketry/docketd/internal/health"
	"github.com/docketry/docketd/internal/infra/backend"
	redisclient "github.com/docketry/docketd/internal/infra/redis"
	"github.com/docketry/docketd/internal/infra/storage"
	"github.com/docketry/docketd/internal/infra/storage/memory"
	"github.com/docketry/docketd/internal/infra/storage/postgres"
	"github.com/docketry/docketd/internal/metrics"
	"github.com/docketry/docketd/internal/notify"
	"github.com/docketry/docketd/internal/resilience"
	"github.com/docketry/docketd/internal/resilience/netwatch"
	"github.com/docketry/docketd/internal/resilience/session"
	"github.com/docketry/docketd/internal/syncer"
)

// Agent is the main application struct that manages the component lifecycle.
type Agent struct {
	cfg config.AppConfig

	hub          *notify.Hub
	monitor      *netwatch.Monitor
	sessions     *session.Manager
	policy       *resilience.Policy
	client       *backend.Client
	querier      backend.Querier
	syncWorker   *syncer.Worker
	summarizer   *syncer.Summarizer
	pruner       *syncer.Pruner
	healthServer *health.Server

	db    *postgres.DB
	redis *redisclient.Client
	log   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAgent creates an Agent with all dependencies initialized.
func NewAgent(cfg config.AppConfig) (*Agent, error) {
	log := slog.Default().With("component", "control")

	// Notifications are shared by the session manager, the retry policy and
	// the sync worker; coalescing keeps one logical failure to one message.
	hub := notify.NewHub(30 * time.Second)

	// Storage: Postgres mirror when configured, memory otherwise.
	var (
		caseRepo storage.CaseRepository
		docRepo  storage.DocumentRepository
		noteRepo storage.NoteRepository
		db       *postgres.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		caseRepo = postgres.NewCaseRepo(db)
		docRepo = postgres.NewDocumentRepo(db)
		noteRepo = postgres.NewNoteRepo(db)
		log.Info("Using PostgreSQL mirror")
	} else {
		store := memory.NewStorage()
		caseRepo = memory.NewCaseRepo(store)
		docRepo = memory.NewDocumentRepo(store)
		noteRepo = memory.NewNoteRepo(store)
		log.Info("Using in-memory mirror")
	}

	// Job queue
	var rdb *redisclient.Client
	var queue syncer.JobQueue
	if cfg.Redis.URL != "" {
		var err error
		rdb, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		queue = rdb
	} else {
		log.Warn("Redis not configured, summarization disabled")
	}

	// Resilience core
	monitor := netwatch.NewMonitor(cfg.Probe)
	authClient := backend.NewAuthClient(cfg.Backend)
	tokenStore := session.NewFileStore(cfg.Auth.TokenFile)
	sessions := session.NewManager(authClient, tokenStore, hub)
	policy := resilience.NewPolicy(cfg.Retry, monitor, sessions, hub)

	client := backend.NewClient(cfg.Backend, sessions)
	client.SetObserver(func(operation string, d time.Duration, err error) {
		metrics.BackendCallsTotal.WithLabelValues(operation).Inc()
		metrics.BackendLatency.WithLabelValues(operation).Observe(d.Seconds())
		if err != nil {
			cat := resilience.Classify(err)
			metrics.BackendErrorsTotal.WithLabelValues(operation, cat.String()).Inc()
		} else {
			monitor.RecordLatency(d)
		}
	})
	querier := backend.Resilient(client, policy)

	// Workers
	syncWorker := syncer.NewWorker(cfg.Sync, querier, caseRepo, docRepo, noteRepo, queue, hub)
	var summarizer *syncer.Summarizer
	if queue != nil {
		summarizer = syncer.NewSummarizer(cfg.Summarize, querier, docRepo, queue)
	}
	pruner := syncer.NewPruner(cfg.Sync, caseRepo)

	// Health
	var depther health.QueueDepther
	if rdb != nil {
		depther = rdb
	}
	healthMon := health.NewMonitor(
		monitor, sessions, depther, syncWorker, caseRepo, docRepo, cfg.Sync.Interval)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Agent{
		cfg:          cfg,
		hub:          hub,
		monitor:      monitor,
		sessions:     sessions,
		policy:       policy,
		client:       client,
		querier:      querier,
		syncWorker:   syncWorker,
		summarizer:   summarizer,
		pruner:       pruner,
		healthServer: healthServer,
		db:           db,
		redis:        rdb,
		log:          log,
	}, nil
}

// Start establishes a session and launches the workers.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.run(func() { a.monitor.Start(runCtx) })
	a.run(func() { a.sessions.KeepFresh(runCtx, time.Minute, 5*time.Minute) })
	a.run(func() { a.syncWorker.Start(runCtx) })
	if a.summarizer != nil {
		a.run(func() { a.summarizer.Start(runCtx) })
	}
	a.run(func() { a.pruner.Start(runCtx) })
	a.run(func() { a.logNotifications(runCtx) })

	a.run(func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("health server stopped", "error", err)
		}
	})

	a.log.Info("agent started", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts the agent down gracefully.
func (a *Agent) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.healthServer.Stop(ctx); err != nil {
		a.log.Warn("health server shutdown failed", "error", err)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for workers")
	}

	a.hub.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("db close failed", "error", err)
		}
	}

	a.log.Info("agent stopped")
	return nil
}

func (a *Agent) run(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// ensureSession resumes a persisted session, refreshing it when stale, and
// falls back to a credential sign-in.
func (a *Agent) ensureSession(ctx context.Context) error {
	ok, err := a.sessions.HasActiveSession(ctx)
	if err != nil {
		a.log.Warn("session validation failed", "error", err)
	}
	if !ok {
		if refreshed, _ := a.sessions.Refresh(ctx); refreshed {
			ok = true
		}
	}
	if ok {
		a.log.Info("resumed persisted session")
		return nil
	}

	if a.cfg.Auth.Email == "" || a.cfg.Auth.Password == "" {
		return fmt.Errorf("no usable session and no credentials configured")
	}
	if err := a.sessions.SignIn(ctx, a.cfg.Auth.Email, a.cfg.Auth.Password); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	return nil
}

// logNotifications drains the hub so user-facing notifications reach the
// log even with no other subscriber attached.
func (a *Agent) logNotifications(ctx context.Context) {
	ch := a.hub.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			a.log.Warn("notification", "kind", n.Kind, "message", n.Message)
		}
	}
}
