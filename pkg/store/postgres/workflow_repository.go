package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/model"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).First(&workflow, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]model.Workflow, error) {
	var workflows []model.Workflow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenantID, model.WorkflowDeleted).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&workflows).Error
	return workflows, err
}

// CreateTx inserts a new workflow within the caller's transaction.
func (r *WorkflowRepository) CreateTx(tx *gorm.DB, workflow *model.Workflow) error {
	return tx.Create(workflow).Error
}

// SaveTx persists the mutated workflow within the caller's transaction,
// guarded by the optimistic version token. Zero affected rows means the
// loaded version is stale and the caller must reload and retry.
func (r *WorkflowRepository) SaveTx(tx *gorm.DB, workflow *model.Workflow) error {
	loadedVersion := workflow.Version
	result := tx.Model(&model.Workflow{}).
		Where("id = ? AND version = ?", workflow.ID, loadedVersion).
		Updates(map[string]interface{}{
			"name":       workflow.Name,
			"status":     workflow.Status,
			"graph":      workflow.Graph,
			"version":    loadedVersion + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	workflow.Version = loadedVersion + 1
	return nil
}
