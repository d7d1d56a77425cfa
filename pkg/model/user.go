package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyUsername = errors.New("username must not be empty")
	ErrInvalidEmail  = errors.New("email address is invalid")
	ErrUserDeleted   = errors.New("user is deleted")
)

// User is the aggregate root for an account provisioned from an external
// identity provider. ExternalID is the provider subject, unique per user.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ExternalID string    `gorm:"not null;uniqueIndex"`
	Username   string    `gorm:"not null"`
	Email      string    `gorm:"not null"`
	Deleted    bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	pending []Event `gorm:"-"`
}

func (User) TableName() string {
	return "users"
}

func NewUser(externalID, username, email string) (*User, error) {
	if externalID == "" {
		return nil, errors.New("external id must not be empty")
	}
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()
	user := &User{
		ID:         uuid.New(),
		ExternalID: externalID,
		Username:   username,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	user.raise(UserCreated{
		BaseEvent:  NewBaseEvent(),
		UserID:     user.ID,
		ExternalID: user.ExternalID,
		Username:   user.Username,
		Email:      user.Email,
	})
	return user, nil
}

func (u *User) UpdateProfile(username, email string) error {
	if u.Deleted {
		return ErrUserDeleted
	}
	if username == "" {
		return ErrEmptyUsername
	}
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	u.Username = username
	u.Email = email
	u.raise(UserUpdated{
		BaseEvent: NewBaseEvent(),
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
	})
	return nil
}

func (u *User) Delete() error {
	if u.Deleted {
		return ErrUserDeleted
	}

	u.Deleted = true
	u.raise(UserDeletedEvent{
		BaseEvent: NewBaseEvent(),
		UserID:    u.ID,
	})
	return nil
}

func (u *User) raise(evt Event) {
	u.pending = append(u.pending, evt)
}

func (u *User) pendingEvents() []Event {
	return u.pending
}

func (u *User) DrainEvents() []Event {
	events := u.pending
	u.pending = nil
	return events
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
