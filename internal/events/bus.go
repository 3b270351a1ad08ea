package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler processes one event.
type Handler func(ctx context.Context, evt Event) error

// Publisher is the port consumed by services.
type Publisher interface {
	Publish(ctx context.Context, evts ...Event)
}

// Bus dispatches events synchronously to subscribers in registration order.
// Handler failures and panics are logged and never reach the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers h for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers each event to its subscribers.
func (b *Bus) Publish(ctx context.Context, evts ...Event) {
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		b.mu.RLock()
		hs := append([]Handler(nil), b.handlers[evt.EventName()]...)
		b.mu.RUnlock()
		for _, h := range hs {
			if err := b.dispatch(ctx, h, evt); err != nil {
				b.logger.Error("event handler failed",
					slog.String("event", evt.EventName()),
					slog.Any("error", err))
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}

// Recorder is a Publisher that keeps events in memory. Tests use it to assert
// exactly-once emission.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Publish appends the events.
func (r *Recorder) Publish(_ context.Context, evts ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evts...)
}

// Count returns how many events with the name were recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}
