package domain

import (
	"errors"
	"fmt"
)

// Role is the closed set of actor roles. Every branch on a role must handle
// all four values.
type Role string

const (
	RoleUser    Role = "user"
	RoleBuddy   Role = "buddy"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleUser, RoleBuddy, RoleManager, RoleAdmin}
}

// ParseRole converts a stored or transported string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleBuddy, RoleManager, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// DashboardRoute is the landing page for a role after sign-in or elevation.
func (r Role) DashboardRoute() string {
	switch r {
	case RoleBuddy:
		return "/buddy/dashboard"
	case RoleManager:
		return "/manager/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleUser:
		return "/"
	}
	return "/"
}

// Elevated reports whether the role can only be reached through an approval
// decision (or, for admin, out of band).
func (r Role) Elevated() bool {
	switch r {
	case RoleBuddy, RoleManager, RoleAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}
