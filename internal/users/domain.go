package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/policy"
)

// User represents a member account. Associate fields describe the member's
// standing in the association and are only listed publicly when IsPublic is set.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       string
	Role         policy.Role

	IsAssociate bool
	Position    string
	Biography   string
	IsPublic    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Positions lists the valid associate positions.
var Positions = []string{
	"President",
	"Vice-President",
	"Secretary",
	"Sub-Secretary",
	"Treasurer",
	"Sub-Treasurer",
	"Auditor",
	"Vocal",
	"Member",
}

// ValidPosition reports whether position names a known associate position.
func ValidPosition(position string) bool {
	for _, p := range Positions {
		if p == position {
			return true
		}
	}
	return false
}

// IsAdministrator reports whether the user's role is Administrator.
func (u *User) IsAdministrator() bool {
	return u.Role == policy.Administrator
}
