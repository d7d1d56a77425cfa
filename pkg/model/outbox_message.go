package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowOutboxTable = "workflow_outbox"
	UserOutboxTable     = "user_outbox"
)

// OutboxMessage is one durable row of a per-aggregate-family outbox table.
// The id is the originating event's id, assigned before the row exists, so
// retrying the insert is idempotent. EventType, EventContent and OccurredOn
// are immutable after creation; only delivery bookkeeping changes. Seq is
// assigned by the database and breaks ordering ties between rows written in
// the same transaction.
type OutboxMessage struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key"`
	Seq          int64      `gorm:"autoIncrement;not null;index"`
	EventType    string     `gorm:"not null"`
	EventContent string     `gorm:"type:text;not null"`
	OccurredOn   time.Time  `gorm:"not null;index"`
	ProcessedOn  *time.Time `gorm:"index"`
	Error        *string
	RetryCount   int `gorm:"not null;default:0"`
}

// NewOutboxMessage serializes evt into a row awaiting delivery. A
// serialization failure is returned untouched so the caller can abort the
// whole commit.
func NewOutboxMessage(evt Event) (OutboxMessage, error) {
	content, err := json.Marshal(evt)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:           evt.EventID(),
		EventType:    evt.EventType(),
		EventContent: string(content),
		OccurredOn:   evt.OccurredAt().UTC(),
	}, nil
}

func (m *OutboxMessage) Processed() bool {
	return m.ProcessedOn != nil
}

// MarkProcessed records a successful delivery. ProcessedOn is set exactly
// once; the error from earlier failed attempts is cleared.
func (m *OutboxMessage) MarkProcessed(now time.Time) {
	processedOn := now.UTC()
	m.ProcessedOn = &processedOn
	m.Error = nil
}

// MarkDead terminally parks an undeliverable message: ProcessedOn stops it
// from being re-selected while Error preserves the reason for diagnosis.
// RetryCount is left unchanged.
func (m *OutboxMessage) MarkDead(now time.Time, reason string) {
	processedOn := now.UTC()
	m.ProcessedOn = &processedOn
	m.Error = &reason
}

// MarkFailed records a transient delivery failure; the message stays pending
// and is retried on the next poll cycle.
func (m *OutboxMessage) MarkFailed(reason string) {
	m.RetryCount++
	m.Error = &reason
}
