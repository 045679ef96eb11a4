package domain

import (
	"context"
	"time"
)

// User is the account a score record belongs to. the engine itself never
// creates or deletes users; provisioning lives in the registration flow.
type User struct {
	id         UserID
	externalID string
	username   Username
	createdAt  time.Time
	updatedAt  time.Time
}

// NewUser creates a new user from the auth provider identity.
func NewUser(externalID string, username Username) (*User, error) {
	if externalID == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	return &User{
		id:         NewUserID(),
		externalID: externalID,
		username:   username,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructUser rebuilds a user from persistence.
// bypasses validation for trusted data from database.
func ReconstructUser(
	id UserID,
	externalID string,
	username Username,
	createdAt time.Time,
	updatedAt time.Time,
) *User {
	return &User{
		id:         id,
		externalID: externalID,
		username:   username,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (u *User) ID() UserID           { return u.id }
func (u *User) ExternalID() string   { return u.externalID }
func (u *User) Username() Username   { return u.username }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// UserRepository defines persistence for users.
type UserRepository interface {
	// FindByID retrieves a user by their internal ID.
	FindByID(ctx context.Context, id UserID) (*User, error)

	// FindByExternalID retrieves a user by their auth provider ID.
	FindByExternalID(ctx context.Context, externalID string) (*User, error)

	// Save persists a user (insert or update).
	Save(ctx context.Context, user *User) error

	// Exists checks if a user with the given ID exists.
	Exists(ctx context.Context, id UserID) (bool, error)
}
