package model

import "github.com/google/uuid"

const (
	EventTypeUserCreated = "user.created"
	EventTypeUserUpdated = "user.updated"
	EventTypeUserDeleted = "user.deleted"
)

type UserCreated struct {
	BaseEvent
	UserID     uuid.UUID `json:"user_id"`
	ExternalID string    `json:"external_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
}

func (e UserCreated) EventType() string      { return EventTypeUserCreated }
func (e UserCreated) AggregateID() uuid.UUID { return e.UserID }

type UserUpdated struct {
	BaseEvent
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (e UserUpdated) EventType() string      { return EventTypeUserUpdated }
func (e UserUpdated) AggregateID() uuid.UUID { return e.UserID }

type UserDeletedEvent struct {
	BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

func (e UserDeletedEvent) EventType() string      { return EventTypeUserDeleted }
func (e UserDeletedEvent) AggregateID() uuid.UUID { return e.UserID }
