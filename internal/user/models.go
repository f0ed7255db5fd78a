package user

import (
	"time"

	id "clavis/pkg/domain"
)

// User is the internal representation, visible only to the store adapter and
// the services that own credential checks. It never crosses the transport
// boundary; handlers see Public instead.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string `json:"-"`
	TokenVersion int64
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the client-safe projection. The only path from User to Public is
// the explicit mapping below; new sensitive fields on User stay internal unless
// deliberately added here.
type Public struct {
	ID        id.UserID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Public maps the internal record onto its safe projection.
func (u *User) Public() Public {
	return Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
