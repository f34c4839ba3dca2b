package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_FAILED"
	KindConflict         Kind = "CONFLICT"
	KindAlreadyProcessed Kind = "ALREADY_PROCESSED"
	KindForbidden        Kind = "FORBIDDEN"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindNotFound         Kind = "NOT_FOUND"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy carrying the given details.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewDomainError constructs a DomainError.
func NewDomainError(code string, kind Kind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

// Named errors. Compare with errors.Is.
var (
	ErrPasswordMismatch             = NewDomainError("PASSWORD_MISMATCH", KindValidation, "passwords do not match", http.StatusBadRequest, nil)
	ErrMissingReason                = NewDomainError("MISSING_REASON", KindValidation, "a rejection reason is required", http.StatusBadRequest, nil)
	ErrEmailTaken                   = NewDomainError("EMAIL_TAKEN", KindConflict, "email already registered", http.StatusConflict, nil)
	ErrRegistrationNumberTaken      = NewDomainError("REGISTRATION_NUMBER_TAKEN", KindConflict, "registration number already in use", http.StatusConflict, nil)
	ErrNationalIDTaken              = NewDomainError("NATIONAL_ID_TAKEN", KindConflict, "national id already in use", http.StatusConflict, nil)
	ErrUsernameTaken                = NewDomainError("USERNAME_TAKEN", KindConflict, "username already in use", http.StatusConflict, nil)
	ErrLeaderTaken                  = NewDomainError("LEADER_TAKEN", KindConflict, "user already leads another team", http.StatusConflict, nil)
	ErrAlreadyProcessed             = NewDomainError("ALREADY_PROCESSED", KindAlreadyProcessed, "registration request already processed", http.StatusConflict, nil)
	ErrExhaustedRegistrationNumbers = NewDomainError("EXHAUSTED_REGISTRATION_NUMBERS", KindInternal, "could not allocate a unique registration number", http.StatusServiceUnavailable, nil)
	ErrPermissionDenied             = NewDomainError("FORBIDDEN", KindForbidden, "permission denied", http.StatusForbidden, nil)
	ErrNotFound                     = NewDomainError("NOT_FOUND", KindNotFound, "resource not found", http.StatusNotFound, nil)
	ErrInvalidCredentials           = NewDomainError("UNAUTHORIZED", KindUnauthorized, "invalid credentials", http.StatusUnauthorized, nil)
)

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", KindValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", KindUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", KindForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", KindConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// KindOf reports the category of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError is ToDomainError that keeps a nil error nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
