package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/event"
	"github.com/flowline/flowline/pkg/model"
)

// Transactor runs fn inside one database transaction; fn's writes are either
// all visible or none.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TxStore inserts outbox rows within a caller-supplied transaction.
type TxStore interface {
	InsertTx(tx *gorm.DB, msg *model.OutboxMessage) error
}

// StateChange persists the aggregate's new state inside tx.
type StateChange func(tx *gorm.DB) error

// Writer commits an aggregate state change together with its drained events.
// The state rows and the outbox rows land in one transaction, so a crash can
// never leave "state changed but no event" or "event queued for a rolled-back
// change". After the commit the events are handed to the in-process
// dispatcher as a best-effort fast path.
type Writer struct {
	transactor Transactor
	store      TxStore
	registry   *event.Registry
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

func NewWriter(transactor Transactor, store TxStore, registry *event.Registry, dispatcher *event.Dispatcher, logger *zap.Logger) *Writer {
	return &Writer{
		transactor: transactor,
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Commit serializes events, then atomically applies change and inserts one
// outbox row per event. A serialization failure, like an event type the
// processor has no decoder for, aborts the whole commit before the
// transaction opens; an unserializable event is never silently dropped or
// partially recorded.
func (w *Writer) Commit(ctx context.Context, change StateChange, events []model.Event) error {
	messages := make([]model.OutboxMessage, 0, len(events))
	for _, evt := range events {
		if !w.registry.Known(evt.EventType()) {
			return fmt.Errorf("event type %q has no registered decoder", evt.EventType())
		}
		msg, err := model.NewOutboxMessage(evt)
		if err != nil {
			return fmt.Errorf("serialize event %s: %w", evt.EventType(), err)
		}
		messages = append(messages, msg)
	}

	err := w.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		if change != nil {
			if err := change(tx); err != nil {
				return err
			}
		}
		for i := range messages {
			if err := w.store.InsertTx(tx, &messages[i]); err != nil {
				return fmt.Errorf("insert outbox message %s: %w", messages[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Debug("commit recorded outbox messages", zap.Int("count", len(messages)))

	if w.dispatcher != nil && len(events) > 0 {
		// Fast path only; failures are logged inside the dispatcher and the
		// durably queued messages are delivered by the processor.
		w.dispatcher.Publish(ctx, events...)
	}
	return nil
}
