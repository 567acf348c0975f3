package notify

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub(0)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(KindSyncFailed, "cases failed to sync")

	for _, ch := range []<-chan Notification{a, b} {
		select {
		case n := <-ch:
			if n.Kind != KindSyncFailed {
				t.Errorf("Kind = %q, want %q", n.Kind, KindSyncFailed)
			}
			if n.Message != "cases failed to sync" {
				t.Errorf("Message = %q", n.Message)
			}
			if n.ID == "" {
				t.Error("ID is empty")
			}
			if n.At.IsZero() {
				t.Error("At is zero")
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive notification")
		}
	}
}

func TestPublishCoalescesSameKind(t *testing.T) {
	h := NewHub(time.Minute)
	ch := h.Subscribe()

	h.Publish(KindConnectivityLost, "first")
	h.Publish(KindConnectivityLost, "second")
	h.Publish(KindSessionExpired, "different kind passes through")

	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("received %d notifications, want 2: %v", len(got), got)
	}
	if got[0].Kind != KindConnectivityLost || got[0].Message != "first" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Kind != KindSessionExpired {
		t.Errorf("second = %+v", got[1])
	}
}

func TestPublishZeroWindowDoesNotCoalesce(t *testing.T) {
	h := NewHub(0)
	ch := h.Subscribe()

	h.Publish(KindSyncFailed, "one")
	h.Publish(KindSyncFailed, "two")

	if got := drain(ch); len(got) != 2 {
		t.Errorf("received %d notifications, want 2", len(got))
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(0)
	ch := h.Subscribe()

	// Overfill the subscriber buffer; publishes must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			h.Publish(KindSyncFailed, "flood")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if got := drain(ch); len(got) == 0 {
		t.Error("subscriber received nothing")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	h := NewHub(0)
	ch := h.Subscribe()

	h.Close()
	h.Close() // idempotent
	h.Publish(KindSignedOut, "after close")

	if _, open := <-ch; open {
		t.Error("subscriber channel still open after Close")
	}
}

func drain(ch <-chan Notification) []Notification {
	var out []Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}
