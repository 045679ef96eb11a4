package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// UserID represents a unique identifier for a user.
// wrapping uuid to enforce type safety and prevent mixing with other ids.
type UserID struct {
	value uuid.UUID
}

// NewUserID creates a new random UserID.
func NewUserID() UserID {
	return UserID{value: uuid.New()}
}

// ParseUserID parses a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id: %w", err)
	}
	return UserID{value: id}, nil
}

// UserIDFromUUID creates a UserID from an existing uuid.
func UserIDFromUUID(id uuid.UUID) UserID {
	return UserID{value: id}
}

// String returns the string representation of the UserID.
func (id UserID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id UserID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the UserID is not set.
func (id UserID) IsZero() bool {
	return id.value == uuid.Nil
}

// SubscriptionID represents a unique identifier for a webhook subscription.
type SubscriptionID struct {
	value uuid.UUID
}

// NewSubscriptionID creates a new random SubscriptionID.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID{value: uuid.New()}
}

// ParseSubscriptionID parses a string into a SubscriptionID.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SubscriptionID{}, fmt.Errorf("invalid subscription id: %w", err)
	}
	return SubscriptionID{value: id}, nil
}

// String returns the string representation of the SubscriptionID.
func (id SubscriptionID) String() string {
	return id.value.String()
}

// IsZero returns true if the SubscriptionID is not set.
func (id SubscriptionID) IsZero() bool {
	return id.value == uuid.Nil
}

// Username represents a validated username.
// must be 3-50 chars, alphanumeric with underscores.
type Username struct {
	value string
}

var (
	ErrUsernameEmpty    = errors.New("username cannot be empty")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrUsernameTooLong  = errors.New("username must be at most 50 characters")
	ErrUsernameInvalid  = errors.New("username must contain only letters, numbers, and underscores")
)

// NewUsername creates a new Username from a string, validating the format.
func NewUsername(s string) (Username, error) {
	if s == "" {
		return Username{}, ErrUsernameEmpty
	}
	if len(s) < 3 {
		return Username{}, ErrUsernameTooShort
	}
	if len(s) > 50 {
		return Username{}, ErrUsernameTooLong
	}

	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return Username{}, ErrUsernameInvalid
		}
	}

	return Username{value: s}, nil
}

// UsernameFromTrusted creates a Username without validation.
// only use this when loading from database where data is already validated.
func UsernameFromTrusted(s string) Username {
	return Username{value: s}
}

// String returns the string representation of the Username.
func (u Username) String() string {
	return u.value
}
