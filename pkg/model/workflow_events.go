package model

import "github.com/google/uuid"

const (
	EventTypeWorkflowCreated = "workflow.created"
	EventTypeWorkflowUpdated = "workflow.updated"
	EventTypeWorkflowDeleted = "workflow.deleted"
)

type WorkflowCreated struct {
	BaseEvent
	WorkflowID uuid.UUID `json:"workflow_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Name       string    `json:"name"`
	Graph      Graph     `json:"graph"`
}

func (e WorkflowCreated) EventType() string      { return EventTypeWorkflowCreated }
func (e WorkflowCreated) AggregateID() uuid.UUID { return e.WorkflowID }

type WorkflowUpdated struct {
	BaseEvent
	WorkflowID uuid.UUID      `json:"workflow_id"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	Name       string         `json:"name"`
	Status     WorkflowStatus `json:"status"`
	Graph      Graph          `json:"graph"`
}

func (e WorkflowUpdated) EventType() string      { return EventTypeWorkflowUpdated }
func (e WorkflowUpdated) AggregateID() uuid.UUID { return e.WorkflowID }

// WorkflowDeletedEvent carries the Event suffix to avoid clashing with the
// WorkflowDeleted status constant.
type WorkflowDeletedEvent struct {
	BaseEvent
	WorkflowID uuid.UUID `json:"workflow_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
}

func (e WorkflowDeletedEvent) EventType() string      { return EventTypeWorkflowDeleted }
func (e WorkflowDeletedEvent) AggregateID() uuid.UUID { return e.WorkflowID }
