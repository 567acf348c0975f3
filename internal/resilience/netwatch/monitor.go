// Package netwatch tracks connectivity to the case backend and exposes it as
// a queryable flag plus a one-shot wait primitive for the retry policy.
package netwatch

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/docketry/docketd/internal/metrics"
)

// Quality is a coarse classification of the current connection.
// Informational only; it does not gate retry decisions.
type Quality int

const (
	QualitySlow Quality = iota
	QualityMedium
	QualityFast
)

func (q Quality) String() string {
	switch q {
	case QualitySlow:
		return "slow"
	case QualityFast:
		return "fast"
	default:
		return "medium"
	}
}

// Config holds probe settings.
type Config struct {
	ProbeURL      string        `yaml:"probe_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// Monitor tracks connectivity transitions. Transitions are produced by the
// probe loop and may also be injected via SetOnline (platform event bridges,
// tests).
type Monitor struct {
	mu        sync.Mutex
	online    bool
	waitCh    chan struct{} // non-nil while offline; closed on the online transition
	latencies []time.Duration

	cfg  Config
	http *http.Client
	log  *slog.Logger
}

const (
	latencyWindow = 20
	slowThreshold = 1500 * time.Millisecond
	fastThreshold = 250 * time.Millisecond
)

// NewMonitor creates a monitor. It starts optimistic: online until a probe
// or an injected event says otherwise.
func NewMonitor(cfg Config) *Monitor {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}

	metrics.Online.Set(1)
	return &Monitor{
		online: true,
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.ProbeTimeout},
		log:    slog.Default().With("component", "netwatch"),
	}
}

// IsOnline returns current connectivity.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity transition. Waiters blocked in
// WaitForOnline are released on the offline-to-online edge.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if online == m.online {
		return
	}
	m.online = online

	if online {
		metrics.Online.Set(1)
		m.log.Info("connectivity restored")
		if m.waitCh != nil {
			close(m.waitCh)
			m.waitCh = nil
		}
	} else {
		metrics.Online.Set(0)
		m.log.Warn("connectivity lost")
		m.waitCh = make(chan struct{})
	}
}

// WaitForOnline returns immediately when online; otherwise it suspends until
// the next online transition or ctx is done.
func (m *Monitor) WaitForOnline(ctx context.Context) error {
	m.mu.Lock()
	if m.online {
		m.mu.Unlock()
		return nil
	}
	ch := m.waitCh
	if ch == nil {
		ch = make(chan struct{})
		m.waitCh = ch
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// RecordLatency feeds a transport latency sample into the quality window.
func (m *Monitor) RecordLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latencies = append(m.latencies, d)
	if len(m.latencies) > latencyWindow {
		m.latencies = m.latencies[1:]
	}
}

// Quality classifies the connection from recent latency samples. Defaults to
// medium when no samples are available.
func (m *Monitor) Quality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return QualityMedium
	}

	var total time.Duration
	for _, d := range m.latencies {
		total += d
	}
	avg := total / time.Duration(len(m.latencies))

	switch {
	case avg > slowThreshold:
		return QualitySlow
	case avg < fastThreshold:
		return QualityFast
	default:
		return QualityMedium
	}
}

// Start runs the probe loop until ctx is done. No-op when no probe URL is
// configured.
func (m *Monitor) Start(ctx context.Context) {
	if m.cfg.ProbeURL == "" {
		return
	}

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	m.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.cfg.ProbeURL, nil)
	if err != nil {
		m.log.Error("invalid probe URL", "url", m.cfg.ProbeURL, "error", err)
		return
	}

	start := time.Now()
	resp, err := m.http.Do(req)
	if err != nil {
		m.SetOnline(false)
		return
	}
	defer resp.Body.Close()

	// Any response at all proves reachability; status is irrelevant here.
	m.RecordLatency(time.Since(start))
	m.SetOnline(true)
}
