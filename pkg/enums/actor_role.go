package enums

import "fmt"

// ActorRole represents the caller identity class carried in access tokens.
// Shoppers may only touch their own account; service and admin callers may
// act on any account.
type ActorRole string

const (
	ActorRoleShopper ActorRole = "shopper"
	ActorRoleService ActorRole = "service"
	ActorRoleAdmin   ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleShopper,
	ActorRoleService,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// Elevated reports whether the role may act on accounts other than its own.
func (r ActorRole) Elevated() bool {
	return r == ActorRoleService || r == ActorRoleAdmin
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
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
