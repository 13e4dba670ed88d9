package enums

import "fmt"

// ActorRole is the caller role asserted by the identity service.
type ActorRole string

const (
	RoleRenter ActorRole = "RENTER"
	RoleStaff  ActorRole = "STAFF"
	RoleAdmin  ActorRole = "ADMIN"
)

var validActorRoles = []ActorRole{
	RoleRenter,
	RoleStaff,
	RoleAdmin,
}

// IsValid reports whether the value matches a known role.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may operate station-scoped POS flows.
func (r ActorRole) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
