package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/event"
	"github.com/flowline/flowline/pkg/model"
	"github.com/flowline/flowline/pkg/outbox"
)

// stagingOutbox stages rows per transaction and keeps only committed ones,
// mimicking transactional visibility without a database.
type stagingOutbox struct {
	mu        sync.Mutex
	staged    []model.OutboxMessage
	committed []model.OutboxMessage
}

func (s *stagingOutbox) InsertTx(_ *gorm.DB, msg *model.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, *msg)
	return nil
}

type stagingTransactor struct {
	outbox *stagingOutbox
}

func (t *stagingTransactor) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.outbox.staged = nil
	if err := fn(nil); err != nil {
		t.outbox.staged = nil
		return err
	}
	t.outbox.committed = append(t.outbox.committed, t.outbox.staged...)
	t.outbox.staged = nil
	return nil
}

type memoryWorkflowStore struct {
	workflows map[uuid.UUID]model.Workflow
	saveErr   error
}

func newMemoryWorkflowStore() *memoryWorkflowStore {
	return &memoryWorkflowStore{workflows: make(map[uuid.UUID]model.Workflow)}
}

func (s *memoryWorkflowStore) GetByID(_ context.Context, id uuid.UUID) (*model.Workflow, error) {
	workflow, ok := s.workflows[id]
	if !ok {
		return nil, errors.New("workflow not found")
	}
	return &workflow, nil
}

func (s *memoryWorkflowStore) CreateTx(_ *gorm.DB, workflow *model.Workflow) error {
	s.workflows[workflow.ID] = *workflow
	return nil
}

func (s *memoryWorkflowStore) SaveTx(_ *gorm.DB, workflow *model.Workflow) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.workflows[workflow.ID] = *workflow
	return nil
}

func newWorkflowService(store *memoryWorkflowStore) (*WorkflowService, *stagingOutbox) {
	staged := &stagingOutbox{}
	writer := outbox.NewWriter(&stagingTransactor{outbox: staged}, staged, event.NewWorkflowRegistry(), nil, zap.NewNop())
	return NewWorkflowService(store, writer, zap.NewNop()), staged
}

func TestWorkflowServiceCreateQueuesCreatedEvent(t *testing.T) {
	store := newMemoryWorkflowStore()
	svc, staged := newWorkflowService(store)

	graph := model.Graph{Nodes: []model.Node{{ID: "a", Type: "noop"}}}
	workflow, err := svc.Create(context.Background(), uuid.New(), "pipeline", graph)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, ok := store.workflows[workflow.ID]; !ok {
		t.Fatal("workflow state not persisted")
	}
	if len(staged.committed) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(staged.committed))
	}
	if staged.committed[0].EventType != model.EventTypeWorkflowCreated {
		t.Fatalf("unexpected event type %q", staged.committed[0].EventType)
	}
	if drained := workflow.DrainEvents(); len(drained) != 0 {
		t.Fatalf("commit must drain the pending events, %d left", len(drained))
	}
}

func TestWorkflowServiceRenameQueuesUpdatedEvent(t *testing.T) {
	store := newMemoryWorkflowStore()
	svc, staged := newWorkflowService(store)

	graph := model.Graph{Nodes: []model.Node{{ID: "a", Type: "noop"}}}
	workflow, err := svc.Create(context.Background(), uuid.New(), "pipeline", graph)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	renamed, err := svc.Rename(context.Background(), workflow.ID, "pipeline-v2")
	if err != nil {
		t.Fatalf("Rename() error: %v", err)
	}
	if renamed.Name != "pipeline-v2" {
		t.Fatalf("unexpected name %q", renamed.Name)
	}
	if len(staged.committed) != 2 {
		t.Fatalf("expected 2 outbox rows total, got %d", len(staged.committed))
	}
	if staged.committed[1].EventType != model.EventTypeWorkflowUpdated {
		t.Fatalf("unexpected event type %q", staged.committed[1].EventType)
	}
}

func TestWorkflowServiceSaveFailureQueuesNothing(t *testing.T) {
	store := newMemoryWorkflowStore()
	svc, staged := newWorkflowService(store)

	graph := model.Graph{Nodes: []model.Node{{ID: "a", Type: "noop"}}}
	workflow, err := svc.Create(context.Background(), uuid.New(), "pipeline", graph)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	conflict := errors.New("workflow was modified concurrently")
	store.saveErr = conflict
	if _, err := svc.Rename(context.Background(), workflow.ID, "pipeline-v2"); !errors.Is(err, conflict) {
		t.Fatalf("expected conflict surfaced, got %v", err)
	}
	if len(staged.committed) != 1 {
		t.Fatalf("failed save must queue no new rows, got %d total", len(staged.committed))
	}
}

func TestWorkflowServiceInvalidCommandTouchesNothing(t *testing.T) {
	store := newMemoryWorkflowStore()
	svc, staged := newWorkflowService(store)

	if _, err := svc.Create(context.Background(), uuid.New(), "", model.Graph{}); err == nil {
		t.Fatal("expected validation error")
	}
	if len(store.workflows) != 0 || len(staged.committed) != 0 {
		t.Fatal("rejected command must leave no trace")
	}
}

type memoryUserStore struct {
	users map[uuid.UUID]model.User
}

func (s *memoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func (s *memoryUserStore) CreateTx(_ *gorm.DB, user *model.User) error {
	s.users[user.ID] = *user
	return nil
}

func (s *memoryUserStore) SaveTx(_ *gorm.DB, user *model.User) error {
	s.users[user.ID] = *user
	return nil
}

func TestUserServiceLifecycleQueuesEvents(t *testing.T) {
	store := &memoryUserStore{users: make(map[uuid.UUID]model.User)}
	staged := &stagingOutbox{}
	writer := outbox.NewWriter(&stagingTransactor{outbox: staged}, staged, event.NewUserRegistry(), nil, zap.NewNop())
	svc := NewUserService(store, writer, zap.NewNop())

	ctx := context.Background()
	user, err := svc.Provision(ctx, "auth0|abc", "maria", "maria@example.com")
	if err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, user.ID, "maria.g", "maria.g@example.com"); err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	wantTypes := []string{model.EventTypeUserCreated, model.EventTypeUserUpdated, model.EventTypeUserDeleted}
	if len(staged.committed) != len(wantTypes) {
		t.Fatalf("expected %d outbox rows, got %d", len(wantTypes), len(staged.committed))
	}
	for i, want := range wantTypes {
		if staged.committed[i].EventType != want {
			t.Fatalf("row %d: expected %q, got %q", i, want, staged.committed[i].EventType)
		}
	}
	if !store.users[user.ID].Deleted {
		t.Fatal("user state must reflect the delete")
	}
}
