package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/model"
	"github.com/flowline/flowline/pkg/outbox"
)

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	CreateTx(tx *gorm.DB, user *model.User) error
	SaveTx(tx *gorm.DB, user *model.User) error
}

type UserService struct {
	users  UserStore
	writer *outbox.Writer
	logger *zap.Logger
}

func NewUserService(users UserStore, writer *outbox.Writer, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		writer: writer,
		logger: logger,
	}
}

// Provision creates the local account for an identity-provider subject.
func (s *UserService) Provision(ctx context.Context, externalID, username, email string) (*model.User, error) {
	user, err := model.NewUser(externalID, username, email)
	if err != nil {
		return nil, err
	}

	err = s.writer.Commit(ctx, func(tx *gorm.DB) error {
		return s.users.CreateTx(tx, user)
	}, user.DrainEvents())
	if err != nil {
		return nil, err
	}

	s.logger.Info("user provisioned",
		zap.String("user_id", user.ID.String()),
		zap.String("external_id", externalID),
	)
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) (*model.User, error) {
	return s.mutate(ctx, id, func(user *model.User) error {
		return user.UpdateProfile(username, email)
	})
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.mutate(ctx, id, func(user *model.User) error {
		return user.Delete()
	})
	return err
}

func (s *UserService) mutate(ctx context.Context, id uuid.UUID, op func(*model.User) error) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(user); err != nil {
		return nil, err
	}

	err = s.writer.Commit(ctx, func(tx *gorm.DB) error {
		return s.users.SaveTx(tx, user)
	}, user.DrainEvents())
	if err != nil {
		return nil, err
	}
	return user, nil
}
