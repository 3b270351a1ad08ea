package shared

import (
	"fmt"
	"strings"
)

// Role is the caller role supplied by the request layer.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleUser       Role = "USER"
)

// ParseRole normalises a role string; unknown roles map to RoleUser.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleUser
	}
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   int64
	Role Role
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// Validate ensures the actor carries an identity.
func (a Actor) Validate() error {
	if a.ID <= 0 {
		return fmt.Errorf("%w: actor id required", ErrAccessDenied)
	}
	return nil
}

// Owned is implemented by documents that are scoped to their creator and
// optional assignees.
type Owned interface {
	OwnerID() int64
	AssigneeIDs() []int64
}

// CanAccess is the single capability check reused by every module.
func CanAccess(doc Owned, actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.ID <= 0 || doc == nil {
		return false
	}
	if doc.OwnerID() == actor.ID {
		return true
	}
	for _, id := range doc.AssigneeIDs() {
		if id == actor.ID {
			return true
		}
	}
	return false
}

// EnsureAccess returns ErrAccessDenied when CanAccess fails.
func EnsureAccess(doc Owned, actor Actor) error {
	if !CanAccess(doc, actor) {
		return ErrAccessDenied
	}
	return nil
}

// ScopeOwner returns the created_by filter to apply for list queries; zero
// means unscoped.
func ScopeOwner(actor Actor) int64 {
	if actor.IsAdmin() {
		return 0
	}
	return actor.ID
}
