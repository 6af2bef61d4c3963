package server

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestHubPublish verifies every subscriber gets the encoded event.
func TestHubPublish(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.DiscardHandler))
	a, b := hub.Subscribe(), hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(Event{Type: EventFormShow})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case msg := <-sub.Send:
			if string(msg) != `{"type":"form.show"}` {
				t.Errorf("message = %s", msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
}

// TestHubUnsubscribeCloses verifies unsubscribing closes the channel and is
// safe to repeat.
func TestHubUnsubscribeCloses(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.DiscardHandler))
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.Send; ok {
		t.Fatal("expected channel closed")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

// TestHubClose verifies closing the hub disconnects current subscribers and
// hands later ones an already closed channel.
func TestHubClose(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.DiscardHandler))
	sub := hub.Subscribe()
	hub.Close()
	hub.Close()

	if _, ok := <-sub.Send; ok {
		t.Fatal("expected channel closed")
	}
	late := hub.Subscribe()
	if _, ok := <-late.Send; ok {
		t.Fatal("expected late subscriber closed")
	}
	hub.Unsubscribe(sub)
	hub.Unsubscribe(late)
	hub.Publish(Event{Type: EventFormShow})
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

// TestHubSlowSubscriber verifies a full subscriber buffer does not block
// publishing.
func TestHubSlowSubscriber(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.DiscardHandler))
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(sub.Send)+10; i++ {
			hub.Publish(Event{Type: EventFormHide})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(sub.Send) != cap(sub.Send) {
		t.Errorf("buffered = %d, want %d", len(sub.Send), cap(sub.Send))
	}
}

// TestHubRedisMirror verifies events are mirrored to the Redis channel.
func TestHubRedisMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	pubsub := client.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hub := NewHub(client, slog.New(slog.DiscardHandler))
	hub.Publish(Event{Type: EventAlert, Payload: map[string]any{"message": "hello"}})

	select {
	case msg := <-pubsub.Channel():
		if !strings.Contains(msg.Payload, `"message":"hello"`) {
			t.Errorf("payload = %s", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for redis message")
	}
}

// TestHubRedisDown verifies a broken Redis does not stop local delivery.
func TestHubRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()
	defer client.Close()

	hub := NewHub(client, slog.New(slog.DiscardHandler))
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	hub.Publish(Event{Type: EventFormShow})
	select {
	case <-sub.Send:
	default:
		t.Fatal("local subscriber missed the event")
	}
}
