package domain

import (
	"fmt"
	"strings"
)

// Role is a privilege level. Roles are strictly ordered:
// RoleUser < RoleAdmin < RoleSuperAdmin.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleUser:       "user",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super_admin",
}

// ParseRole converts the stored representation back into a Role.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == normalized {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrDomainField, s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// Outranks reports whether r is strictly higher than other.
func (r Role) Outranks(other Role) bool {
	return r > other
}

// IsChangeable is false for super admins: their activation state and role
// are fixed.
func (r Role) IsChangeable() bool {
	return r != RoleSuperAdmin
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %d", ErrDomainField, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
