package bus

import (
	"context"
	"sync"

	"polyflow/internal/logger"
	"polyflow/internal/metrics"
)

// Handler processes one event. Returning an error (or panicking) is
// isolated: it is logged and counted, and delivery to later subscribers of
// the same event continues.
type Handler func(ctx context.Context, evt Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus is the pub/sub core of the pipeline. Delivery is synchronous: Publish
// invokes every handler registered for the event's exact type, then every
// wildcard handler, in registration order, and returns only after all of
// them finished. A slow handler therefore applies backpressure to its
// publisher; that is the intended scheduling model.
//
// Publishers may run on different goroutines (ingestion pollers, background
// monitor loops), so handlers can run concurrently for *different* events.
// Stage-owned tables carry their own locks for that reason.
type Bus struct {
	mu         sync.Mutex
	subs       map[EventType][]subscription
	wildcard   []subscription
	history    []Event
	historyCap int
}

const DefaultHistoryCap = 10000

func New(historyCap int) *Bus {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Bus{
		subs:       make(map[EventType][]subscription),
		historyCap: historyCap,
	}
}

// Subscribe registers a named handler for one event type. Wildcard
// subscribers receive every event after the exact-type subscribers.
// Registration order is delivery order.
func (b *Bus) Subscribe(typ EventType, name string, handler Handler) {
	if handler == nil {
		logger.Warnf("bus: ignoring nil handler for %s (%s)", typ, name)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := subscription{name: name, handler: handler}
	if typ == Wildcard {
		b.wildcard = append(b.wildcard, sub)
		return
	}
	b.subs[typ] = append(b.subs[typ], sub)
}

// Publish appends the event to the bounded history and delivers it. The
// snapshot of subscribers is taken under the lock, but handlers run outside
// it so they may publish follow-up events without deadlocking.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > b.historyCap {
		b.history = b.history[len(b.history)-b.historyCap:]
	}
	metrics.BusHistorySize.Set(float64(len(b.history)))
	targets := make([]subscription, 0, len(b.subs[evt.Type])+len(b.wildcard))
	targets = append(targets, b.subs[evt.Type]...)
	targets = append(targets, b.wildcard...)
	b.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(string(evt.Type)).Inc()
	for _, sub := range targets {
		b.deliver(ctx, sub, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, sub subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.WithLabelValues(sub.name).Inc()
			logger.Errorf("bus: handler %s panicked on %s (id=%s): %v", sub.name, evt.Type, evt.ID, r)
		}
	}()
	if err := sub.handler(ctx, evt); err != nil {
		metrics.HandlerErrors.WithLabelValues(sub.name).Inc()
		logger.Errorf("bus: handler %s failed on %s (id=%s): %v", sub.name, evt.Type, evt.ID, err)
	}
}

// History returns a copy of the bounded event history, oldest first.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// Len reports the current history length (never exceeds the cap).
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}
