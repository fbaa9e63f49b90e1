// Package broadcast fans reconciled updates out to subscribers and sinks.
//
// Subscribers receive the latest update only: a slow reader sees the newest
// state when it catches up, never a backlog.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/hashwatch/internal/model"
)

// Sink receives every published update, e.g. a message broker.
type Sink interface {
	Publish(ctx context.Context, update model.Update) error
}

// Hub distributes updates to in-process subscribers and sinks.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uuid.UUID]chan model.Update
	sinks     []Sink
	latest    model.Update
	hasLatest bool
	closed    bool
	logger    *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]chan model.Update),
		logger: logger,
	}
}

// AddSink registers a sink. Not safe to call concurrently with Publish.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	h.sinks = append(h.sinks, s)
	h.mu.Unlock()
}

// Subscribe registers a subscriber. The channel is primed with the latest
// update if there is one and is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() (uuid.UUID, <-chan model.Update) {
	id := uuid.New()
	ch := make(chan model.Update, 1)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return id, ch
	}
	if h.hasLatest {
		ch <- h.latest
	}
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish records update as the latest and delivers it.
func (h *Hub) Publish(ctx context.Context, update model.Update) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.latest, h.hasLatest = update, true
	for _, ch := range h.subs {
		offer(ch, update)
	}
	sinks := h.sinks
	h.mu.Unlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, update); err != nil {
			h.logger.Warn("sink publish failed", "err", err)
		}
	}
}

// Latest returns the most recent update.
func (h *Hub) Latest() (model.Update, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// offer replaces any undelivered update with the new one.
func offer(ch chan model.Update, u model.Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
