package outbox

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/event"
	"github.com/flowline/flowline/pkg/metrics"
	"github.com/flowline/flowline/pkg/model"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
)

// Repository is the delivery-bookkeeping view of one outbox table.
type Repository interface {
	ListUnprocessed(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	Update(ctx context.Context, msg *model.OutboxMessage) error
}

// Bus publishes a serialized event envelope. Any error is treated as
// transient; only a decode failure on our side is terminal.
type Bus interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Envelope is the wire form published to the bus.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Processor polls one aggregate family's outbox table and drives each pending
// row to processed or dead. Rows are attempted sequentially, oldest first,
// and each outcome is persisted before the next attempt, so a crash mid-batch
// only loses progress on the untouched tail. There is no in-band retry cap:
// transiently failing rows are retried every cycle until the bus accepts
// them, and retry_count is the operational signal for stuck messages.
type Processor struct {
	aggregate    string
	repo         Repository
	registry     *event.Registry
	bus          Bus
	clock        Clock
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int
}

type ProcessorOption func(*Processor)

func WithProcessorClock(clock Clock) ProcessorOption {
	return func(p *Processor) { p.clock = clock }
}

func NewProcessor(aggregate string, repo Repository, registry *event.Registry, bus Bus, logger *zap.Logger, pollInterval time.Duration, batchSize int, opts ...ProcessorOption) *Processor {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	p := &Processor{
		aggregate:    aggregate,
		repo:         repo,
		registry:     registry,
		bus:          bus,
		clock:        SystemClock{},
		logger:       logger.With(zap.String("aggregate", aggregate)),
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled. The first pass happens immediately; an
// in-flight row attempt is allowed to finish before the loop returns.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("outbox processor starting",
		zap.Duration("poll_interval", p.pollInterval),
		zap.Int("batch_size", p.batchSize),
	)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.ProcessOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor shutting down")
			return ctx.Err()
		case <-ticker.C:
			p.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce fetches one batch and attempts every row in it. A row's failure
// never skips the rows after it.
func (p *Processor) ProcessOnce(ctx context.Context) {
	start := time.Now()

	messages, err := p.repo.ListUnprocessed(ctx, p.batchSize)
	if err != nil {
		p.logger.Warn("failed to list unprocessed outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	for i := range messages {
		if ctx.Err() != nil {
			return
		}
		p.deliver(ctx, &messages[i])
	}

	metrics.OutboxBatchDuration.WithLabelValues(p.aggregate).Observe(time.Since(start).Seconds())
}

func (p *Processor) deliver(ctx context.Context, msg *model.OutboxMessage) {
	evt, err := p.registry.Decode(msg.EventType, []byte(msg.EventContent))
	if err != nil {
		// Retrying can never fix an undecodable row: park it as processed
		// with the reason preserved for the operator.
		msg.MarkDead(p.clock.Now(), err.Error())
		p.persistOutcome(ctx, msg)
		metrics.OutboxDeadTotal.WithLabelValues(p.aggregate).Inc()
		p.logger.Error("outbox message is undeliverable",
			zap.Error(err),
			zap.String("event_id", msg.ID.String()),
			zap.String("event_type", msg.EventType),
		)
		return
	}

	payload, err := json.Marshal(Envelope{
		EventID:    msg.ID.String(),
		EventType:  msg.EventType,
		OccurredAt: msg.OccurredOn,
		Payload:    json.RawMessage(msg.EventContent),
	})
	if err != nil {
		msg.MarkDead(p.clock.Now(), err.Error())
		p.persistOutcome(ctx, msg)
		metrics.OutboxDeadTotal.WithLabelValues(p.aggregate).Inc()
		return
	}

	if err := p.bus.Publish(ctx, evt.AggregateID().String(), payload); err != nil {
		msg.MarkFailed(err.Error())
		p.persistOutcome(ctx, msg)
		metrics.OutboxRetriesTotal.WithLabelValues(p.aggregate).Inc()
		p.logger.Warn("failed to publish outbox message",
			zap.Error(err),
			zap.String("event_id", msg.ID.String()),
			zap.Int("retry_count", msg.RetryCount),
		)
		return
	}

	msg.MarkProcessed(p.clock.Now())
	p.persistOutcome(ctx, msg)
	metrics.OutboxPublishedTotal.WithLabelValues(p.aggregate).Inc()
}

func (p *Processor) persistOutcome(ctx context.Context, msg *model.OutboxMessage) {
	if err := p.repo.Update(ctx, msg); err != nil {
		// The row keeps its previous bookkeeping; at-least-once delivery
		// covers the re-attempt after the next poll.
		p.logger.Warn("failed to persist outbox outcome",
			zap.Error(err),
			zap.String("event_id", msg.ID.String()),
		)
	}
}
