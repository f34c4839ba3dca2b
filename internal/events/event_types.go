package events

import (
	"time"

	"github.com/spec-kit/devlab/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationSubmitted EventType = "registration_submitted"
	EventRegistrationApproved  EventType = "registration_approved"
	EventRegistrationRejected  EventType = "registration_rejected"
)

// AllTypes lists every event type in publication order of the workflow.
var AllTypes = []EventType{
	EventRegistrationSubmitted,
	EventRegistrationApproved,
	EventRegistrationRejected,
}

// Actor encapsulates actor metadata for an event. Public submissions have no user.
type Actor struct {
	UserID *string      `json:"user_id,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	RegistrationID string      `json:"registration_id"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// RegistrationSubmittedPayload payload.
type RegistrationSubmittedPayload struct {
	Email              string `json:"email"`
	RegistrationNumber string `json:"registration_number"`
}

// RegistrationApprovedPayload payload.
type RegistrationApprovedPayload struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	RegistrationNumber string `json:"registration_number"`
	Notified           bool   `json:"notified"`
}

// RegistrationRejectedPayload payload.
type RegistrationRejectedPayload struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// SessionActor describes the caller of a state-changing operation.
func SessionActor(s domain.Session) Actor {
	if !s.Authenticated() {
		return Actor{}
	}
	id, role := s.UserID, s.Role
	return Actor{UserID: &id, Role: &role}
}
