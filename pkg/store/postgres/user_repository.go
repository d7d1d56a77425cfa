package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) CreateTx(tx *gorm.DB, user *model.User) error {
	return tx.Create(user).Error
}

func (r *UserRepository) SaveTx(tx *gorm.DB, user *model.User) error {
	return tx.Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":   user.Username,
			"email":      user.Email,
			"deleted":    user.Deleted,
			"updated_at": time.Now().UTC(),
		}).Error
}
