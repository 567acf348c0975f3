package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/docketry/docketd/internal/notify"
)

// =============================================================================
// Stubs
// =============================================================================

type stubNetwork struct {
	mu     sync.Mutex
	online bool
	waitCh chan struct{}
}

func newStubNetwork(online bool) *stubNetwork {
	return &stubNetwork{online: online, waitCh: make(chan struct{})}
}

func (n *stubNetwork) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

func (n *stubNetwork) WaitForOnline(ctx context.Context) error {
	n.mu.Lock()
	if n.online {
		n.mu.Unlock()
		return nil
	}
	ch := n.waitCh
	n.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (n *stubNetwork) setOnline() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online {
		n.online = true
		close(n.waitCh)
	}
}

type stubSessions struct {
	mu              sync.Mutex
	unauthenticated bool
	refreshOK       bool
	refreshCalls    int
	signOutCalls    int
}

func (s *stubSessions) Unauthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unauthenticated
}

func (s *stubSessions) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshOK {
		s.unauthenticated = false
	} else {
		s.unauthenticated = true
	}
	return s.refreshOK, nil
}

func (s *stubSessions) ForceSignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutCalls++
	s.unauthenticated = true
	return nil
}

func testConfig() Config {
	return Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2.0}
}

// =============================================================================
// Tests
// =============================================================================

func TestDoSucceedsFirstTry(t *testing.T) {
	p := NewPolicy(testConfig(), nil, nil, nil)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoRetriesNetworkErrorsToBound(t *testing.T) {
	p := NewPolicy(testConfig(), nil, nil, nil)
	netErr := errors.New("network unreachable")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return netErr
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if !errors.Is(err, netErr) {
		t.Errorf("final error does not wrap the last failure: %v", err)
	}
	if calls != 4 { // 1 initial + 3 retries
		t.Errorf("op called %d times, want 4", calls)
	}
}

func TestDoBackoffDelays(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}
	p := NewPolicy(cfg, nil, nil, nil)
	genErr := errors.New("something broke")

	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return genErr
	})
	elapsed := time.Since(start)

	if !errors.Is(err, genErr) {
		t.Errorf("final error does not wrap the last failure: %v", err)
	}
	if calls != 3 { // 1 initial + 2 retries
		t.Errorf("op called %d times, want 3", calls)
	}
	// Waits of 10ms then 20ms between the three attempts.
	if elapsed < 30*time.Millisecond {
		t.Errorf("elapsed %v, want >= 30ms", elapsed)
	}
}

func TestDoAuthErrorRefreshesThenSucceeds(t *testing.T) {
	sessions := &stubSessions{refreshOK: true}
	p := NewPolicy(testConfig(), nil, sessions, nil)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &statusErr{code: 401, msg: "jwt expired"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
	if sessions.refreshCalls != 1 {
		t.Errorf("refresh called %d times, want 1", sessions.refreshCalls)
	}
}

func TestDoAuthErrorRefreshFailureIsTerminal(t *testing.T) {
	sessions := &stubSessions{refreshOK: false}
	p := NewPolicy(testConfig(), nil, sessions, nil)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &statusErr{code: 401, msg: "jwt expired"}
	})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Do() = %v, want ErrSessionExpired", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (no retry against a dead session)", calls)
	}
	if sessions.signOutCalls != 1 {
		t.Errorf("forceSignOut called %d times, want 1", sessions.signOutCalls)
	}
}

func TestDoFastFailsKnownDeadSession(t *testing.T) {
	sessions := &stubSessions{unauthenticated: true, refreshOK: false}
	p := NewPolicy(testConfig(), nil, sessions, nil)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Do() = %v, want ErrSessionExpired", err)
	}
	if calls != 0 {
		t.Errorf("op called %d times, want 0", calls)
	}
}

func TestDoRecoversKnownDeadSessionBeforeAttempt(t *testing.T) {
	sessions := &stubSessions{unauthenticated: true, refreshOK: true}
	p := NewPolicy(testConfig(), nil, sessions, nil)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if sessions.refreshCalls != 1 {
		t.Errorf("refresh called %d times, want 1", sessions.refreshCalls)
	}
}

func TestDoWaitsForConnectivity(t *testing.T) {
	net := newStubNetwork(false)
	p := NewPolicy(testConfig(), net, nil, nil)

	var mu sync.Mutex
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		})
	}()

	// While offline, the operation must not be attempted.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	if calls != 0 {
		mu.Unlock()
		t.Fatalf("op called %d times during offline window, want 0", calls)
	}
	mu.Unlock()

	net.setOnline()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Do() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not complete after connectivity restored")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoHonorsContextDuringBackoff(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}
	p := NewPolicy(cfg, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error {
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not honor cancellation during backoff")
	}
}

func TestDoNotifiesOnceOnExhaustedNetworkError(t *testing.T) {
	hub := notify.NewHub(time.Minute)
	ch := hub.Subscribe()

	p := NewPolicy(Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2.0}, nil, nil, hub)

	err := p.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}

	select {
	case n := <-ch:
		if n.Kind != notify.KindConnectivityLost {
			t.Errorf("notification kind = %q, want %q", n.Kind, notify.KindConnectivityLost)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no connectivity notification emitted")
	}

	select {
	case n := <-ch:
		t.Errorf("unexpected extra notification: %v", n)
	default:
	}
}

func TestDoValue(t *testing.T) {
	p := NewPolicy(testConfig(), nil, nil, nil)

	calls := 0
	got, err := DoValue(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient timeout")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoValue() = %v, want nil", err)
	}
	if got != "ok" {
		t.Errorf("DoValue() = %q, want %q", got, "ok")
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}
