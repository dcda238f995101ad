package authz

import (
	"fmt"
	"strings"
)

// Role is the closed set of functional roles an actor can hold.
type Role string

const (
	RoleRequester     Role = "requester"
	RoleDispatcher    Role = "dispatcher"
	RoleDriver        Role = "driver"
	RoleSecurity      Role = "security"
	RoleAdministrator Role = "administrator"
)

var roles = []Role{
	RoleRequester,
	RoleDispatcher,
	RoleDriver,
	RoleSecurity,
	RoleAdministrator,
}

func Roles() []Role {
	return append([]Role(nil), roles...)
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", s)
	}
	return r, nil
}
