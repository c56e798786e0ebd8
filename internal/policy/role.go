package policy

import "strings"

// Role is one of the fixed publishing roles, ordered by privilege. The order is
// the visibility ranking: a viewer whose role ranks at least as high as a post's
// visibility level may view it. Private ranks above Administrator on purpose so
// that private content is reachable through ownership only; it is never an
// assignable user role, and Public doubles as the anonymous visibility floor.
type Role uint8

const (
	Public Role = iota
	Subscriber
	Contributor
	Author
	Editor
	Administrator
	Private
)

var roleNames = [...]string{
	Public:        "Public",
	Subscriber:    "Subscriber",
	Contributor:   "Contributor",
	Author:        "Author",
	Editor:        "Editor",
	Administrator: "Administrator",
	Private:       "Private",
}

// String returns the canonical role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "Unknown"
}

// Rank returns the position of the role in the hierarchy. Ranks are only ever
// compared, never used arithmetically.
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// RoleFromString resolves a role by name, case-insensitively.
func RoleFromString(name string) (Role, bool) {
	name = strings.TrimSpace(name)
	for i, candidate := range roleNames {
		if strings.EqualFold(candidate, name) {
			return Role(i), true
		}
	}
	return Public, false
}

// AssignableRoles lists the roles a user account may hold. Public and Private
// are visibility sentinels, not account roles.
func AssignableRoles() []Role {
	return []Role{Subscriber, Contributor, Author, Editor, Administrator}
}

// Assignable reports whether the role may be stored on a user account.
func (r Role) Assignable() bool {
	return r >= Subscriber && r <= Administrator
}
