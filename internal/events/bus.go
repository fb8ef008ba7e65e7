package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Filter selects the events a subscription receives.
type Filter func(Event) bool

// Types matches events of any of the given types.
func Types(types ...string) Filter {
	return func(e Event) bool {
		return slices.Contains(types, e.EventType())
	}
}

// Entity matches events about one run or target.
func Entity(entityType, key string) Filter {
	return func(e Event) bool {
		return e.EntityType() == entityType && e.EntityKey() == key
	}
}

type subscription struct {
	ch      chan Event
	filters []Filter
}

func (s *subscription) wants(e Event) bool {
	for _, f := range s.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// Bus fans run events out to in-process subscribers and, when an EventLog
// is attached, persists every published event first.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscription
	log     *EventLog
	logger  *slog.Logger
	closed  bool
	dropped atomic.Int64
}

// NewBus creates a new event bus. A nil EventLog disables persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{log: log, logger: logger}
}

// Publish persists e and offers it to every matching subscriber. A full
// subscriber misses the event; Publish never blocks on delivery.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.log != nil {
		if _, err := b.log.Append(ctx, e); err != nil {
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	// Read lock: Close must not close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	for _, s := range b.subs {
		if !s.wants(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
			b.logger.Warn("subscriber full, dropping event",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_key", e.EntityKey())
		}
	}
	return nil
}

// Subscribe returns a channel of the events matching every filter. With no
// filters it receives everything. The channel is closed by Unsubscribe or
// Close.
func (b *Bus) Subscribe(bufferSize int, filters ...Filter) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, &subscription{ch: ch, filters: filters})
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.ch == ch {
			b.subs = slices.Delete(b.subs, i, i+1)
			close(s.ch)
			return
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes all subscriber channels. Events
// already buffered stay readable. Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
	return nil
}
