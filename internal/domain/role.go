package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleCoordinator
	RoleTeacher
	RoleStudent
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleCoordinator, RoleTeacher, RoleStudent}

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleTeacher:
		return "teacher"
	case RoleStudent:
		return "student"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCoordinator, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole accepts the canonical names and the legacy Portuguese ones.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coordinator", "coordenador":
		return RoleCoordinator, nil
	case "teacher", "professor":
		return RoleTeacher, nil
	case "student", "estudante":
		return RoleStudent, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", r)
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
