// Package policy answers which role may perform which action and how much
// of a project or team a caller may see.
package policy

import (
	"github.com/spec-kit/devlab/internal/domain"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// Action is an operation gated by role.
type Action string

const (
	ActionManageUsers          Action = "manage_users"
	ActionManageProjects       Action = "manage_projects"
	ActionManageTeams          Action = "manage_teams"
	ActionProcessRegistrations Action = "process_registrations"
	ActionViewRegistrations    Action = "view_registrations"
	ActionViewDirectory        Action = "view_directory"
	ActionViewStatistics       Action = "view_statistics"
	ActionChangeOwnPassword    Action = "change_own_password"
)

// Visibility is the level of detail a caller gets on a read.
type Visibility int

const (
	VisibilityRestricted Visibility = iota
	VisibilityFull
)

func (v Visibility) String() string {
	if v == VisibilityFull {
		return "full"
	}
	return "restricted"
}

// Allowed reports whether role may perform action.
func Allowed(role domain.Role, action Action) bool {
	switch role {
	case domain.RoleCoordinator:
		return true
	case domain.RoleTeacher, domain.RoleStudent:
		switch action {
		case ActionViewDirectory, ActionChangeOwnPassword:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// Authorize fails with PermissionDenied unless the session may perform action.
func Authorize(session domain.Session, action Action) error {
	if !session.Authenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !Allowed(session.Role, action) {
		return apperrors.ErrPermissionDenied.WithDetails(map[string]any{"action": string(action)})
	}
	return nil
}

// DetailVisibility grants full detail to coordinators and to participants.
// isParticipant means project participant for projects and team member for teams.
func DetailVisibility(session domain.Session, isParticipant bool) Visibility {
	switch session.Role {
	case domain.RoleCoordinator:
		return VisibilityFull
	case domain.RoleTeacher, domain.RoleStudent:
		if isParticipant {
			return VisibilityFull
		}
		return VisibilityRestricted
	default:
		return VisibilityRestricted
	}
}

// CanEditPassword allows a caller to change only their own password.
func CanEditPassword(session domain.Session, targetUserID string) error {
	if err := Authorize(session, ActionChangeOwnPassword); err != nil {
		return err
	}
	if session.UserID != targetUserID {
		return apperrors.NewForbidden("only the account owner may change this password")
	}
	return nil
}
