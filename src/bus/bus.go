// Package bus is the in-process replacement for the platform broadcast
// channel: fire-and-forget publish, per-topic subscriptions, no delivery
// guarantee when a subscriber's buffer is full. Consumers must be idempotent.
package bus

import (
	"log/slog"
	"sync"

	"overlaybox/src/events"
)

type subscriber struct {
	ch     chan events.Event
	topics map[string]bool // nil means all topics
}

// Bus routes events between the fixed set of components.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	closed bool
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers a channel receiving events for the given topics.
// With no topics, every event is delivered. The returned channel is closed
// by Close.
func (b *Bus) Subscribe(buffer int, topics ...string) <-chan events.Event {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan events.Event, buffer)}
	if len(topics) > 0 {
		s.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			s.topics[t] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s.ch
	}
	b.subs = append(b.subs, s)
	return s.ch
}

// Publish delivers ev to every matching subscriber without blocking.
// A full subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(ev events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.topics != nil && !s.topics[ev.Topic()] {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			slog.Warn("bus: dropped event for slow subscriber", "topic", ev.Topic())
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}
