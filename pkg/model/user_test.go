package model

import "testing"

func TestNewUserRaisesCreated(t *testing.T) {
	user, err := NewUser("auth0|abc123", "maria", "maria@example.com")
	if err != nil {
		t.Fatalf("NewUser() error: %v", err)
	}

	events := user.pendingEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(events))
	}
	created, ok := events[0].(UserCreated)
	if !ok {
		t.Fatalf("expected UserCreated, got %T", events[0])
	}
	if created.UserID != user.ID {
		t.Fatalf("event user id %s does not match aggregate id %s", created.UserID, user.ID)
	}
	if created.ExternalID != "auth0|abc123" {
		t.Fatalf("unexpected external id %q", created.ExternalID)
	}
}

func TestNewUserValidation(t *testing.T) {
	cases := []struct {
		name       string
		externalID string
		username   string
		email      string
	}{
		{"empty external id", "", "maria", "maria@example.com"},
		{"empty username", "auth0|abc", "", "maria@example.com"},
		{"missing at sign", "auth0|abc", "maria", "maria.example.com"},
		{"empty local part", "auth0|abc", "maria", "@example.com"},
		{"empty domain", "auth0|abc", "maria", "maria@"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewUser(tc.externalID, tc.username, tc.email); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestUserUpdateProfile(t *testing.T) {
	user, err := NewUser("auth0|abc123", "maria", "maria@example.com")
	if err != nil {
		t.Fatalf("NewUser() error: %v", err)
	}
	user.DrainEvents()

	if err := user.UpdateProfile("maria.g", "maria.g@example.com"); err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if user.Username != "maria.g" || user.Email != "maria.g@example.com" {
		t.Fatalf("profile not updated: %q %q", user.Username, user.Email)
	}

	events := user.DrainEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType() != EventTypeUserUpdated {
		t.Fatalf("expected %q, got %q", EventTypeUserUpdated, events[0].EventType())
	}

	if err := user.UpdateProfile("x", "not-an-email"); err != ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if user.Username != "maria.g" {
		t.Fatal("failed update must not mutate the username")
	}
	if len(user.pendingEvents()) != 0 {
		t.Fatal("failed update must not raise events")
	}
}

func TestUserDelete(t *testing.T) {
	user, err := NewUser("auth0|abc123", "maria", "maria@example.com")
	if err != nil {
		t.Fatalf("NewUser() error: %v", err)
	}
	user.DrainEvents()

	if err := user.Delete(); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	events := user.DrainEvents()
	if len(events) != 1 || events[0].EventType() != EventTypeUserDeleted {
		t.Fatalf("expected a single %s event, got %v", EventTypeUserDeleted, events)
	}

	if err := user.Delete(); err != ErrUserDeleted {
		t.Fatalf("expected ErrUserDeleted, got %v", err)
	}
	if err := user.UpdateProfile("ghost", "ghost@example.com"); err != ErrUserDeleted {
		t.Fatalf("expected ErrUserDeleted, got %v", err)
	}
}
