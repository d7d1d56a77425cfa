package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/model"
)

// AuditLogger writes one structured log line per committed domain event.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) Handle(_ context.Context, evt model.Event) error {
	a.logger.Info("domain event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	)
	return nil
}
