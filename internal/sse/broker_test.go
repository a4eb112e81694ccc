package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "card.created", Data: map[string]string{"id": "Alpha"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: card.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"Alpha"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishCardEvent_GraphThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger graph.updated.
	b.PublishCardEvent("created", "Alpha")
	// Second event immediately should NOT trigger another graph.updated.
	b.PublishCardEvent("updated", "Beta")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	graphCount := 0
	cardCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "graph.updated") {
				graphCount++
			} else {
				cardCount++
			}
		default:
			break loop
		}
	}

	if cardCount != 2 {
		t.Errorf("card events = %d, want 2", cardCount)
	}
	if graphCount != 1 {
		t.Errorf("graph events = %d, want 1 (throttled)", graphCount)
	}
}

func TestPublishCardEvent_Payloads(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishCardEvent("deleted", "Old Card")
	// Unknown kinds from a misbehaving watcher are dropped, not broadcast.
	b.PublishCardEvent("renamed", "Other")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: card.deleted") {
			t.Errorf("wrong event type in %q", s)
		}
		if !strings.Contains(s, `{"id":"Old Card"}`) {
			t.Errorf("wrong payload in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for card.deleted")
	}

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "graph.updated") {
			t.Errorf("unexpected second event %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for graph.updated")
	}

	select {
	case msg := <-ch:
		t.Errorf("unknown kind was broadcast: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "card.updated", Data: map[string]string{"id": "X"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: card.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "card.updated", Data: map[string]string{"id": "X"}})
	b.PublishCardEvent("updated", "X")
}
