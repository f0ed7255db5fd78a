// Package store holds the credential store adapters. Stores are pure I/O:
// they return sentinel errors and leave all policy (hashing, projections,
// version semantics) to the user and session services.
package store

import (
	"context"
	"time"

	"clavis/internal/user"
	id "clavis/pkg/domain"
)

// UserStore is the credential store contract. Implementations report missing
// records as sentinel.ErrNotFound and email uniqueness violations as
// sentinel.ErrConflict, optionally wrapped.
type UserStore interface {
	// Create persists a new record, assigning ID and timestamps on the way in.
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	// Update rewrites the mutable fields (name, email, password hash,
	// token version, last login) and refreshes updated_at.
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, userID id.UserID) error
	// SetLastLogin records a successful login without touching other fields.
	SetLastLogin(ctx context.Context, userID id.UserID, at time.Time) error
	// BumpTokenVersion atomically increments the version counter and returns
	// the new value. Concurrent bumps never lose increments.
	BumpTokenVersion(ctx context.Context, userID id.UserID) (int64, error)
}
