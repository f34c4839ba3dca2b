package domain

import "time"

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "planned"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	default:
		return false
	}
}

// Project is a client engagement staffed through teams.
type Project struct {
	ID              string
	Title           string
	Description     string
	Client          string
	Status          ProjectStatus
	StartDate       time.Time
	ExpectedEndDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
