package notifications

import (
	"context"
	"runtime/debug"
	"sync"

	"confide/internal/models"
	"confide/internal/observability"
)

const subscriberBuffer = 256

type memorySubscriber struct {
	patterns []string
	ch       chan models.Event
}

// MemoryBus is an in-process Bus for single-node deployments and tests.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[*memorySubscriber]struct{}
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySubscriber]struct{})}
}

// Publish hands the event to every matching subscriber. A subscriber whose
// buffer is full misses the event.
func (b *MemoryBus) Publish(_ context.Context, event models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !matchesAny(sub.patterns, event.Topic) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			observability.EventBusDrops.WithLabelValues("memory").Inc()
		}
	}
	return nil
}

// Subscribe registers handler and returns immediately.
func (b *MemoryBus) Subscribe(ctx context.Context, handler Handler, patterns ...string) error {
	sub := &memorySubscriber{patterns: patterns, ch: make(chan models.Event, subscriberBuffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-sub.ch:
				deliver(ctx, "memory", handler, ev)
			}
		}
	}()
	return nil
}

func deliver(ctx context.Context, bus string, handler Handler, ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.ErrorContext(ctx, "panic in event handler",
				"bus", bus,
				"event_type", ev.Type,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	handler(ev)
}
