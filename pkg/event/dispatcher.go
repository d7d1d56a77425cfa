package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/model"
)

// Handler reacts to a freshly committed event in-process.
type Handler interface {
	Handle(ctx context.Context, evt model.Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt model.Event) error

func (f HandlerFunc) Handle(ctx context.Context, evt model.Event) error {
	return f(ctx, evt)
}

// Dispatcher fans events out synchronously to local handlers. It is the
// low-latency fast path next to the durable outbox: handler failures are
// logged and swallowed, never rethrown, because the outbox already holds the
// event and the processor will deliver it.
type Dispatcher struct {
	logger   *zap.Logger
	handlers map[string][]Handler
	catchAll []Handler
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for one event type.
func (d *Dispatcher) Subscribe(eventType string, handler Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (d *Dispatcher) SubscribeAll(handler Handler) {
	d.catchAll = append(d.catchAll, handler)
}

// Publish invokes the matching handlers for each event, in order.
func (d *Dispatcher) Publish(ctx context.Context, events ...model.Event) {
	for _, evt := range events {
		for _, handler := range d.catchAll {
			d.invoke(ctx, handler, evt)
		}
		for _, handler := range d.handlers[evt.EventType()] {
			d.invoke(ctx, handler, evt)
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, evt model.Event) {
	if err := handler.Handle(ctx, evt); err != nil {
		d.logger.Warn("in-process event handler failed",
			zap.Error(err),
			zap.String("event_type", evt.EventType()),
			zap.String("event_id", evt.EventID().String()),
		)
	}
}
