package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docketry/docketd/internal/metrics"
	"github.com/docketry/docketd/internal/notify"
)

// ErrSessionExpired is returned when an operation is abandoned because the
// session could not be refreshed. Retrying against an unrefreshable session
// is futile, so this is a fast-fail rather than a retry exhaustion.
var ErrSessionExpired = errors.New("session expired")

// Network is the connectivity surface the policy consults before each
// attempt.
type Network interface {
	IsOnline() bool
	WaitForOnline(ctx context.Context) error
}

// SessionGate is the session surface the policy consults. Unauthenticated
// reports true only when the session is known to be invalid, not when it has
// simply never been checked.
type SessionGate interface {
	Unauthenticated() bool
	Refresh(ctx context.Context) (bool, error)
	ForceSignOut(ctx context.Context) error
}

// Config defines retry behavior.
type Config struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// DefaultConfig provides sensible defaults: delays of 1s, 2s, 4s between
// four total attempts.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier <= 1 {
		c.Multiplier = d.Multiplier
	}
	return c
}

// Policy executes operations against the backend with bounded retry,
// waiting out offline windows and recovering expired sessions before
// burning attempts. Independent operations may retry concurrently; they
// coordinate only through the shared session manager.
type Policy struct {
	cfg      Config
	net      Network
	sessions SessionGate
	hub      *notify.Hub
	log      *slog.Logger
}

// NewPolicy creates a retry policy. net, sessions and hub may each be nil,
// in which case the corresponding checks and notifications are skipped.
func NewPolicy(cfg Config, net Network, sessions SessionGate, hub *notify.Hub) *Policy {
	return &Policy{
		cfg:      cfg.withDefaults(),
		net:      net,
		sessions: sessions,
		hub:      hub,
		log:      slog.Default().With("component", "retry"),
	}
}

// Do runs op with the policy's configured bounds.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return p.DoWithConfig(ctx, p.cfg, op)
}

// DoWithConfig runs op with per-call retry bounds. Attempts are strictly
// sequential; ctx is honored at every suspension point so callers can
// abandon a long retry sequence cleanly.
func (p *Policy) DoWithConfig(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 0; ; attempt++ {
		// Do not burn attempts while offline.
		if p.net != nil && !p.net.IsOnline() {
			if err := p.net.WaitForOnline(ctx); err != nil {
				return err
			}
		}

		// A known-dead session makes the attempt hopeless: refresh first,
		// and fast-fail if that cannot succeed.
		if p.sessions != nil && p.sessions.Unauthenticated() {
			ok, err := p.sessions.Refresh(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return ErrSessionExpired
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		cat := Classify(err)
		metrics.RetryAttemptsTotal.WithLabelValues(cat.String()).Inc()

		if cat == CategoryAuth {
			ok, rerr := p.refreshSession(ctx)
			if rerr != nil {
				return rerr
			}
			if !ok {
				if p.sessions != nil {
					_ = p.sessions.ForceSignOut(ctx)
				}
				return fmt.Errorf("%w: %v", ErrSessionExpired, err)
			}
			// Refreshed: the retry below gets a fresh token.
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		p.log.Debug("retrying operation",
			"attempt", attempt+1,
			"category", cat.String(),
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if Classify(lastErr) == CategoryNetwork && p.hub != nil {
		p.hub.Publish(notify.KindConnectivityLost, "connection to the case backend was lost")
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func (p *Policy) refreshSession(ctx context.Context) (bool, error) {
	if p.sessions == nil {
		return false, nil
	}
	return p.sessions.Refresh(ctx)
}

// DoValue runs op through the policy and returns its result.
func DoValue[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
