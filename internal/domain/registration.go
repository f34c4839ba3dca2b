package domain

import "time"

// RegistrationStatus enumerates the states of a signup request.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed.
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationApproved || s == RegistrationRejected
}

// RegistrationRequest is a public signup awaiting a coordinator decision.
type RegistrationRequest struct {
	ID                 string
	FullName           string
	Email              string
	BirthDate          time.Time
	PasswordHash       string
	RegistrationNumber string
	Status             RegistrationStatus
	SubmittedAt        time.Time
	ProcessedAt        *time.Time
	ProcessedBy        *string
	RejectionReason    *string
}
