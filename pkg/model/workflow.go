package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WorkflowStatus string

const (
	WorkflowDraft   WorkflowStatus = "DRAFT"
	WorkflowActive  WorkflowStatus = "ACTIVE"
	WorkflowDeleted WorkflowStatus = "DELETED"
)

var (
	ErrEmptyWorkflowName = errors.New("workflow name must not be empty")
	ErrWorkflowDeleted   = errors.New("workflow is deleted")
)

type Node struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Config JSONB  `json:"config,omitempty"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the node/edge definition of a workflow, stored as one jsonb column.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (g Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		if node.ID == "" {
			return errors.New("graph node is missing an id")
		}
		if _, ok := seen[node.ID]; ok {
			return fmt.Errorf("duplicate graph node id %q", node.ID)
		}
		seen[node.ID] = struct{}{}
	}
	for _, edge := range g.Edges {
		if _, ok := seen[edge.From]; !ok {
			return fmt.Errorf("edge references unknown node %q", edge.From)
		}
		if _, ok := seen[edge.To]; !ok {
			return fmt.Errorf("edge references unknown node %q", edge.To)
		}
	}
	return nil
}

func (g Graph) Value() (driver.Value, error) {
	return json.Marshal(g)
}

func (g *Graph) Scan(value interface{}) error {
	if value == nil {
		*g = Graph{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan Graph: %v", value)
	}
	return json.Unmarshal(bytes, g)
}

func (g Graph) GormDataType() string {
	return "jsonb"
}

// Workflow is the aggregate root for a tenant's automation definition. Every
// mutating operation validates its input first, then changes state and raises
// the events describing the change; a failed operation leaves both untouched.
// Version is the optimistic concurrency token checked at persistence time.
type Workflow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name      string         `gorm:"not null"`
	Status    WorkflowStatus `gorm:"type:varchar(50);not null;default:'DRAFT';index"`
	Graph     Graph          `gorm:"type:jsonb;not null"`
	Version   int            `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	pending []Event `gorm:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}

func NewWorkflow(tenantID uuid.UUID, name string, graph Graph) (*Workflow, error) {
	if name == "" {
		return nil, ErrEmptyWorkflowName
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow := &Workflow{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Status:    WorkflowDraft,
		Graph:     graph,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	workflow.raise(WorkflowCreated{
		BaseEvent:  NewBaseEvent(),
		WorkflowID: workflow.ID,
		TenantID:   workflow.TenantID,
		Name:       workflow.Name,
		Graph:      workflow.Graph,
	})
	return workflow, nil
}

func (w *Workflow) Rename(name string) error {
	if name == "" {
		return ErrEmptyWorkflowName
	}
	if w.Status == WorkflowDeleted {
		return ErrWorkflowDeleted
	}

	w.Name = name
	w.raise(w.updatedEvent())
	return nil
}

func (w *Workflow) UpdateGraph(graph Graph) error {
	if w.Status == WorkflowDeleted {
		return ErrWorkflowDeleted
	}
	if err := graph.Validate(); err != nil {
		return err
	}

	w.Graph = graph
	w.raise(w.updatedEvent())
	return nil
}

func (w *Workflow) Activate() error {
	if w.Status == WorkflowDeleted {
		return ErrWorkflowDeleted
	}
	if w.Status == WorkflowActive {
		return nil
	}

	w.Status = WorkflowActive
	w.raise(w.updatedEvent())
	return nil
}

func (w *Workflow) Delete() error {
	if w.Status == WorkflowDeleted {
		return ErrWorkflowDeleted
	}

	w.Status = WorkflowDeleted
	w.raise(WorkflowDeletedEvent{
		BaseEvent:  NewBaseEvent(),
		WorkflowID: w.ID,
		TenantID:   w.TenantID,
	})
	return nil
}

func (w *Workflow) updatedEvent() WorkflowUpdated {
	return WorkflowUpdated{
		BaseEvent:  NewBaseEvent(),
		WorkflowID: w.ID,
		TenantID:   w.TenantID,
		Name:       w.Name,
		Status:     w.Status,
		Graph:      w.Graph,
	}
}

func (w *Workflow) raise(evt Event) {
	w.pending = append(w.pending, evt)
}

// pendingEvents returns the events raised since load without clearing them.
func (w *Workflow) pendingEvents() []Event {
	return w.pending
}

// DrainEvents returns the pending events in append order and clears the list.
// It is called once per unit of work, by the outbox writer.
func (w *Workflow) DrainEvents() []Event {
	events := w.pending
	w.pending = nil
	return events
}
