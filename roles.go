package identity

import (
	"strings"
)

// Role is the account's role, fixed at registration
type Role string

const (
	// RoleAdmin manages a school and approves accounts
	RoleAdmin Role = "ADMIN"
	// RoleTeacher is a registered teacher (TSC number)
	RoleTeacher Role = "TEACHER"
	// RoleStudent is a learner (admission number)
	RoleStudent Role = "STUDENT"
	// RoleParent is a parent or guardian of one or more students
	RoleParent Role = "PARENT"
)

// Roles lists every valid role
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role, case insensitive
func ParseRole(role string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "TEACHER":
		return RoleTeacher, nil
	case "STUDENT":
		return RoleStudent, nil
	case "PARENT":
		return RoleParent, nil
	default:
		return "", invalidRoleError(role)
	}
}

// RoleSet is an "any of" list of roles required by a route.
// An empty set admits any authenticated account.
type RoleSet []Role

// AnyOf builds a RoleSet
func AnyOf(roles ...Role) RoleSet {
	return RoleSet(roles)
}

// Admits reports whether role satisfies the set
func (s RoleSet) Admits(role Role) bool {
	if !role.IsValid() {
		return false
	}
	if len(s) == 0 {
		return true
	}
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Strings returns the roles as plain strings
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Route role sets used across the platform
var (
	AnyRole   = RoleSet{}
	AdminOnly = AnyOf(RoleAdmin)
	Staff     = AnyOf(RoleAdmin, RoleTeacher)
	Learners  = AnyOf(RoleAdmin, RoleTeacher, RoleStudent)
	Guardians = AnyOf(RoleAdmin, RoleParent)
)
