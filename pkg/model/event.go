package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable fact recorded by an aggregate operation. Identity is
// the event id; two events with the same id describe the same occurrence.
type Event interface {
	EventID() uuid.UUID
	AggregateID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by every domain event. Concrete events
// embed it and add their own payload.
type BaseEvent struct {
	ID   uuid.UUID `json:"event_id"`
	Time time.Time `json:"occurred_at"`
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{
		ID:   uuid.New(),
		Time: time.Now().UTC(),
	}
}

func (b BaseEvent) EventID() uuid.UUID    { return b.ID }
func (b BaseEvent) OccurredAt() time.Time { return b.Time }
