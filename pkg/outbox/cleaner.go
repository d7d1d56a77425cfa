package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/metrics"
)

const (
	defaultCleanupInterval = time.Hour
	defaultRetention       = 7 * 24 * time.Hour
)

// Pruner deletes processed rows past the retention cutoff. Rows with a null
// processed_on are never touched, whatever their age.
type Pruner interface {
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner bounds outbox storage growth by pruning delivered rows older than
// the retention window. A failed cycle is logged and the next interval tries
// again; it never interferes with the processor.
type Cleaner struct {
	aggregate string
	pruner    Pruner
	clock     Clock
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
}

type CleanerOption func(*Cleaner)

func WithCleanerClock(clock Clock) CleanerOption {
	return func(c *Cleaner) { c.clock = clock }
}

func NewCleaner(aggregate string, pruner Pruner, logger *zap.Logger, interval, retention time.Duration, opts ...CleanerOption) *Cleaner {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	c := &Cleaner{
		aggregate: aggregate,
		pruner:    pruner,
		clock:     SystemClock{},
		logger:    logger.With(zap.String("aggregate", aggregate)),
		interval:  interval,
		retention: retention,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cleaner) Run(ctx context.Context) error {
	c.logger.Info("outbox cleaner starting",
		zap.Duration("interval", c.interval),
		zap.Duration("retention", c.retention),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("outbox cleaner shutting down")
			return ctx.Err()
		case <-ticker.C:
			c.CleanOnce(ctx)
		}
	}
}

// CleanOnce deletes processed rows whose occurred_on is past the retention
// cutoff.
func (c *Cleaner) CleanOnce(ctx context.Context) {
	cutoff := c.clock.Now().Add(-c.retention)

	deleted, err := c.pruner.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		c.logger.Warn("outbox cleanup cycle failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		metrics.OutboxCleanedTotal.WithLabelValues(c.aggregate).Add(float64(deleted))
		c.logger.Info("pruned processed outbox messages",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
