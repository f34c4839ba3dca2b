package dto

import (
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/service"
)

// SubmitRegistrationRequest is the public signup form.
type SubmitRegistrationRequest struct {
	FullName        string `json:"full_name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	BirthDate       string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// RejectRegistrationRequest carries the coordinator's reason.
type RejectRegistrationRequest struct {
	Reason string `json:"reason"`
}

// RegistrationResponse hides the password hash.
type RegistrationResponse struct {
	ID                 string     `json:"id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	BirthDate          string     `json:"birth_date"`
	RegistrationNumber string     `json:"registration_number"`
	Status             string     `json:"status"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
	ProcessedBy        *string    `json:"processed_by,omitempty"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
}

// NewRegistrationResponse maps a request to its payload.
func NewRegistrationResponse(r *domain.RegistrationRequest) RegistrationResponse {
	birth := r.BirthDate
	return RegistrationResponse{
		ID:                 r.ID,
		FullName:           r.FullName,
		Email:              r.Email,
		BirthDate:          FormatDate(&birth),
		RegistrationNumber: r.RegistrationNumber,
		Status:             string(r.Status),
		SubmittedAt:        r.SubmittedAt,
		ProcessedAt:        r.ProcessedAt,
		ProcessedBy:        r.ProcessedBy,
		RejectionReason:    r.RejectionReason,
	}
}

// RegistrationListResponse is a filtered queue with per-status totals.
type RegistrationListResponse struct {
	Status string                 `json:"status"`
	Items  []RegistrationResponse `json:"items"`
	Counts map[string]int         `json:"counts"`
}

// NewRegistrationListResponse maps a service listing.
func NewRegistrationListResponse(l *service.RegistrationList) RegistrationListResponse {
	items := make([]RegistrationResponse, 0, len(l.Items))
	for i := range l.Items {
		items = append(items, NewRegistrationResponse(&l.Items[i]))
	}
	counts := make(map[string]int, len(l.Counts))
	for status, n := range l.Counts {
		counts[string(status)] = n
	}
	return RegistrationListResponse{Status: l.Status, Items: items, Counts: counts}
}

// ApprovalResponse reports the created account and whether the e-mail went out.
type ApprovalResponse struct {
	Request           RegistrationResponse `json:"request"`
	User              UserResponse         `json:"user"`
	Notified          bool                 `json:"notified"`
	NotificationError string               `json:"notification_error,omitempty"`
}

// NewApprovalResponse maps an approval result.
func NewApprovalResponse(r *service.ApprovalResult) ApprovalResponse {
	out := ApprovalResponse{
		Request:  NewRegistrationResponse(r.Request),
		User:     NewUserResponse(r.User),
		Notified: r.Notified(),
	}
	if r.NotificationError != nil {
		out.NotificationError = r.NotificationError.Error()
	}
	return out
}
