package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/model"
	"github.com/flowline/flowline/pkg/outbox"
)

// WorkflowStore persists workflow aggregate state. The Tx variants run inside
// the outbox writer's transaction.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
	CreateTx(tx *gorm.DB, workflow *model.Workflow) error
	SaveTx(tx *gorm.DB, workflow *model.Workflow) error
}

// WorkflowService executes workflow commands: load, mutate, then commit state
// and drained events through the outbox writer. It knows nothing about how a
// command was transported or authorized.
type WorkflowService struct {
	workflows WorkflowStore
	writer    *outbox.Writer
	logger    *zap.Logger
}

func NewWorkflowService(workflows WorkflowStore, writer *outbox.Writer, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		workflows: workflows,
		writer:    writer,
		logger:    logger,
	}
}

func (s *WorkflowService) Create(ctx context.Context, tenantID uuid.UUID, name string, graph model.Graph) (*model.Workflow, error) {
	workflow, err := model.NewWorkflow(tenantID, name, graph)
	if err != nil {
		return nil, err
	}

	err = s.writer.Commit(ctx, func(tx *gorm.DB) error {
		return s.workflows.CreateTx(tx, workflow)
	}, workflow.DrainEvents())
	if err != nil {
		return nil, err
	}

	s.logger.Info("workflow created",
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return workflow, nil
}

func (s *WorkflowService) Rename(ctx context.Context, id uuid.UUID, name string) (*model.Workflow, error) {
	return s.mutate(ctx, id, func(workflow *model.Workflow) error {
		return workflow.Rename(name)
	})
}

func (s *WorkflowService) UpdateGraph(ctx context.Context, id uuid.UUID, graph model.Graph) (*model.Workflow, error) {
	return s.mutate(ctx, id, func(workflow *model.Workflow) error {
		return workflow.UpdateGraph(graph)
	})
}

func (s *WorkflowService) Activate(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	return s.mutate(ctx, id, func(workflow *model.Workflow) error {
		return workflow.Activate()
	})
}

func (s *WorkflowService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.mutate(ctx, id, func(workflow *model.Workflow) error {
		return workflow.Delete()
	})
	return err
}

func (s *WorkflowService) mutate(ctx context.Context, id uuid.UUID, op func(*model.Workflow) error) (*model.Workflow, error) {
	workflow, err := s.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(workflow); err != nil {
		return nil, err
	}

	err = s.writer.Commit(ctx, func(tx *gorm.DB) error {
		return s.workflows.SaveTx(tx, workflow)
	}, workflow.DrainEvents())
	if err != nil {
		return nil, err
	}
	return workflow, nil
}
