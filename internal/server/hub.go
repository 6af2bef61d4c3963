package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel events are mirrored to when the hub has
// a Redis client.
const EventsChannel = "mapty:events"

// Event is one view command sent to connected browsers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Subscriber receives encoded events until it is unsubscribed.
type Subscriber struct {
	Send chan []byte
}

// Hub fans events out to every subscriber. Slow subscribers drop events
// rather than block the session.
type Hub struct {
	redis *redis.Client
	log   *slog.Logger

	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	closed bool
}

// NewHub creates a hub. redisClient may be nil.
func NewHub(redisClient *redis.Client, log *slog.Logger) *Hub {
	return &Hub{
		redis: redisClient,
		log:   log,
		subs:  map[*Subscriber]struct{}{},
	}
}

// Subscribe registers a new subscriber. After Close the returned
// subscriber's channel is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{Send: make(chan []byte, 64)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.Send)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.Send)
}

// Close disconnects every subscriber so open event streams return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.Send)
	}
}

// Subscribers reports how many streams are connected.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish encodes ev and delivers it to every subscriber.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encoding event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	for sub := range h.subs {
		select {
		case sub.Send <- data:
		default:
			h.log.Warn("dropping event for slow subscriber", "type", ev.Type)
		}
	}
	h.mu.RUnlock()

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), EventsChannel, data).Err(); err != nil {
			h.log.Warn("redis publish failed", "type", ev.Type, "error", err)
		}
	}
}
