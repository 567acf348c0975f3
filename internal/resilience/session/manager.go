// Package session owns the single source of truth for whether a valid
// authenticated session is held, and performs mutually-exclusive refresh.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/docketry/docketd/internal/core/domain"
	"github.com/docketry/docketd/internal/metrics"
	"github.com/docketry/docketd/internal/notify"
)

// State is the tri-state session status.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// AuthAPI is the slice of the backend auth client the manager depends on.
type AuthAPI interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Validate(ctx context.Context, accessToken string) error
}

// Manager holds the current session and serializes refresh through a
// single-flight group: concurrent refresh callers share one underlying
// network call and all observe its true outcome.
type Manager struct {
	mu      sync.Mutex
	state   State
	current *domain.Session

	auth  AuthAPI
	store TokenStore
	hub   *notify.Hub
	group singleflight.Group
	log   *slog.Logger
}

// NewManager creates a manager in the unknown state, picking up a persisted
// session from the store when one exists. store and hub may be nil.
func NewManager(auth AuthAPI, store TokenStore, hub *notify.Hub) *Manager {
	m := &Manager{
		auth:  auth,
		store: store,
		hub:   hub,
		log:   slog.Default().With("component", "session"),
	}

	if store != nil {
		if s, err := store.Load(); err != nil {
			m.log.Warn("failed to load persisted session", "error", err)
		} else if s != nil {
			m.current = s
		}
	}

	return m
}

// State returns the cached session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Unauthenticated reports whether the session is known to be invalid.
func (m *Manager) Unauthenticated() bool {
	return m.State() == StateUnauthenticated
}

// AccessToken returns the current access token, or "" when no session is
// held. Implements the backend client's token provider.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.AccessToken
}

// Current returns a copy of the held session, or nil.
func (m *Manager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// SignIn authenticates with credentials and installs the resulting session.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	m.install(s)
	m.log.Info("signed in", "user", s.User.Email)
	return nil
}

// HasActiveSession checks the held session against the backend and caches
// the result.
func (m *Manager) HasActiveSession(ctx context.Context) (bool, error) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()

	if cur == nil {
		m.setState(StateUnauthenticated)
		return false, nil
	}

	if err := m.auth.Validate(ctx, cur.AccessToken); err != nil {
		// Token may simply be stale; a refresh can still recover it, so the
		// session itself is not discarded here.
		m.setState(StateUnauthenticated)
		return false, err
	}

	m.setState(StateAuthenticated)
	return true, nil
}

// refreshTimeout bounds the shared refresh call once it is detached from
// the caller that triggered it.
const refreshTimeout = 30 * time.Second

// Refresh exchanges the held refresh token for a new session. Concurrent
// callers join the in-flight refresh. Internal errors are treated as refresh
// failure, never surfaced; the returned error is reserved for context
// cancellation of the caller itself.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	type outcome struct{ ok bool }

	ch := m.group.DoChan("refresh", func() (any, error) {
		// The refresh is shared by every joined caller, so it must not die
		// with whichever caller happened to start it.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return outcome{ok: m.refresh(rctx)}, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		return res.Val.(outcome).ok, nil
	}
}

func (m *Manager) refresh(ctx context.Context) bool {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()

	// A refresh with nothing to refresh is a no-op.
	if cur == nil || cur.RefreshToken == "" {
		m.setState(StateUnauthenticated)
		return false
	}

	s, err := m.auth.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		metrics.SessionRefreshTotal.WithLabelValues("failure").Inc()

		// A cancelled or timed-out call says nothing about the token itself;
		// keep the session for a later attempt.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.log.Warn("session refresh aborted", "error", err)
			return false
		}

		m.log.Warn("session refresh failed", "error", err)

		m.mu.Lock()
		m.state = StateUnauthenticated
		m.current = nil
		m.mu.Unlock()

		if m.hub != nil {
			m.hub.Publish(notify.KindSessionExpired, "your session has expired, please sign in again")
		}
		return false
	}

	metrics.SessionRefreshTotal.WithLabelValues("success").Inc()
	m.install(s)
	m.log.Debug("session refreshed", "expires_at", s.ExpiresAt)
	return true
}

// KeepFresh refreshes the session ahead of its expiry so data calls rarely
// hit a 401 mid-flight. Runs until ctx is done.
func (m *Manager) KeepFresh(ctx context.Context, interval, leeway time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := m.Current()
			if cur == nil || !cur.ExpiresWithin(leeway) {
				continue
			}
			if ok, err := m.Refresh(ctx); err == nil && !ok {
				m.log.Warn("proactive session refresh failed")
			}
		}
	}
}

// ForceSignOut unconditionally invalidates the session. Best-effort cleanup:
// underlying errors are logged, never propagated. Idempotent.
func (m *Manager) ForceSignOut(ctx context.Context) error {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	already := m.state == StateUnauthenticated
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if cur != nil {
		if err := m.auth.SignOut(ctx, cur.AccessToken); err != nil {
			m.log.Warn("backend sign-out failed", "error", err)
		}
	}
	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.log.Warn("failed to clear persisted session", "error", err)
		}
	}

	if !already {
		metrics.SignOutsTotal.Inc()
		if m.hub != nil {
			m.hub.Publish(notify.KindSignedOut, "you have been signed out")
		}
	}
	return nil
}

func (m *Manager) install(s *domain.Session) {
	m.mu.Lock()
	m.current = s
	m.state = StateAuthenticated
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(s); err != nil {
			m.log.Warn("failed to persist session", "error", err)
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
