package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gsblab/gsb-frais/internal/domain/event"
)

// ErrClosed is returned once Close has been called
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher fans report lifecycle events out to in-process subscribers
type Dispatcher interface {
	// Subscribe registers a named handler for one event type
	Subscribe(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers the handler for every known event type
	SubscribeAll(name string, handler Handler)

	// Publish runs the handlers of evt in the background. Failures are logged.
	Publish(ctx context.Context, evt *event.Event)

	// Subscriptions lists the handler names registered for an event type
	Subscriptions(eventType event.Type) []string

	// Close waits for background handlers and refuses further events
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	// mu guards handlers and closed. Publish adds to wg under the read lock
	// so Close cannot start waiting while an Add is in flight.
	mu       sync.RWMutex
	handlers map[event.Type][]Subscription
	closed   bool
	logger   Logger

	wg sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]Subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], Subscription{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	d.info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	for _, t := range event.All {
		d.Subscribe(t, name, handler)
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, evt *event.Event) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.error("Event dropped, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}
	subs := append([]Subscription(nil), d.handlers[evt.Type]...)
	d.wg.Add(len(subs))
	d.mu.RUnlock()

	// handlers outlive the request that produced the event
	ctx = context.WithoutCancel(ctx)

	for _, sub := range subs {
		go func(sub Subscription) {
			defer d.wg.Done()
			if err := d.safeExecute(ctx, evt, sub); err != nil {
				d.error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", sub.Name,
					"error", err,
				)
			}
		}(sub)
	}
}

func (d *eventDispatcher) Subscriptions(eventType event.Type) []string {
	subs := d.snapshot(eventType)
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.Name
	}
	return names
}

func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.mu.Unlock()

	d.info("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.info("Dispatcher closed")
	return nil
}

func (d *eventDispatcher) snapshot(eventType event.Type) []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Subscription(nil), d.handlers[eventType]...)
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.error("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", sub.Name,
				"panic", r,
			)
		}
	}()

	return sub.Handler(ctx, evt)
}

func (d *eventDispatcher) info(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) error(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
