// Package domain holds typed identifiers shared across layers. Typed IDs keep
// the compiler from letting a request id stand in for a user id.
package domain

import (
	"github.com/google/uuid"

	dErrors "clavis/pkg/domain-errors"
)

// UserID identifies a stored user. The store assigns it at creation time.
type UserID uuid.UUID

// NewUserID generates a fresh user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses and validates a user ID from its string form.
// Empty strings, malformed UUIDs, and the nil UUID are rejected.
func ParseUserID(raw string) (UserID, error) {
	if raw == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id must not be the nil UUID")
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText renders the ID as its canonical UUID string, so JSON bodies
// carry "id": "..." rather than a byte array.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText parses the canonical UUID string form.
func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

// IsZero reports whether the ID is unset.
func (id UserID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}
