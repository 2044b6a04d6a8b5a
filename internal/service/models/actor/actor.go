package actor

import "errors"

// Role is assigned by the identity layer before a request reaches the core.
type Role string

const (
	RoleEmployee     Role = "employee"
	RoleCanteenAdmin Role = "canteen_admin"
	RoleSystemAdmin  Role = "system_admin"
	RoleSystem       Role = "system"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleCanteenAdmin, RoleSystemAdmin, RoleSystem:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// Actor is the already-authenticated caller of a core operation.
type Actor struct {
	UserID int64
	Role   Role
}

// CanManageOrders is the single capability check performed at the service
// boundary. The core itself stays role-agnostic.
func (a Actor) CanManageOrders() bool {
	switch a.Role {
	case RoleCanteenAdmin, RoleSystemAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

// System is the actor recorded for transitions driven by reconciliation and
// background workers rather than a person.
func System() Actor {
	return Actor{UserID: 0, Role: RoleSystem}
}
