// Package notify delivers categorized user-facing notifications raised by
// terminal failures (expired sessions, lost connectivity, failed syncs).
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind categorizes a notification.
type Kind string

const (
	KindSessionExpired   Kind = "session_expired"
	KindSignedOut        Kind = "signed_out"
	KindConnectivityLost Kind = "connectivity_lost"
	KindSyncFailed       Kind = "sync_failed"
)

// Notification is a single user-facing message.
type Notification struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Hub fans notifications out to subscribers. Publishes of the same kind
// within the coalesce window are dropped so one logical failure notifies
// exactly once even when several components observe it.
type Hub struct {
	mu       sync.Mutex
	subs     []chan Notification
	lastSent map[Kind]time.Time
	coalesce time.Duration
	closed   bool
}

// NewHub creates a hub. A coalesce window of 0 disables deduplication.
func NewHub(coalesce time.Duration) *Hub {
	return &Hub{
		lastSent: make(map[Kind]time.Time),
		coalesce: coalesce,
	}
}

// Subscribe returns a channel receiving future notifications. Slow consumers
// drop messages rather than blocking publishers.
func (h *Hub) Subscribe() <-chan Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Notification, 16)
	h.subs = append(h.subs, ch)
	return ch
}

// Publish emits a notification unless one of the same kind was sent within
// the coalesce window.
func (h *Hub) Publish(kind Kind, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	now := time.Now()
	if h.coalesce > 0 {
		if last, ok := h.lastSent[kind]; ok && now.Sub(last) < h.coalesce {
			slog.Debug("notification coalesced", "kind", kind)
			return
		}
	}
	h.lastSent[kind] = now

	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		At:      now,
	}

	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			slog.Warn("notification dropped, subscriber is slow", "kind", kind)
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
