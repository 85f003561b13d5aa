// Package events fans generation events out to streaming clients.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 64

// Subscription is one consumer of the hub.
type Subscription struct {
	ID string
	C  <-chan domain.GenerationEvent

	ch   chan domain.GenerationEvent
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub is an in-process publisher. A subscriber whose buffer is full is
// dropped rather than allowed to stall publishers.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers a consumer with a buffer of size events.
func (h *Hub) Subscribe(size int) *Subscription {
	if size <= 0 {
		size = DefaultBuffer
	}
	ch := make(chan domain.GenerationEvent, size)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.logger.Debug("event subscriber registered", slog.String("subscriber_id", sub.ID))
	return sub
}

// Publish implements ports.EventPublisher.
func (h *Hub) Publish(ctx context.Context, ev domain.GenerationEvent) {
	var slow []*Subscription

	h.mu.RLock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("event subscriber buffer full, dropping subscriber",
			slog.String("subscriber_id", sub.ID),
		)
		h.remove(sub)
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		h.remove(s)
	}
}

func (h *Hub) remove(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, sub.ID)
		close(sub.ch)
		h.mu.Unlock()
	})
}
