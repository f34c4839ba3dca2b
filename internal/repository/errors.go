package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

// Unique constraint and index names declared by the migrations.
var uniqueConstraints = map[string]*apperrors.DomainError{
	"users_username_key":                           apperrors.ErrUsernameTaken,
	"users_email_key":                              apperrors.ErrEmailTaken,
	"users_registration_number_key":                apperrors.ErrRegistrationNumberTaken,
	"users_national_id_key":                        apperrors.ErrNationalIDTaken,
	"teams_leader_id_key":                          apperrors.ErrLeaderTaken,
	"registration_requests_email_active_key":       apperrors.ErrEmailTaken,
	"registration_requests_registration_number_key": apperrors.ErrRegistrationNumberTaken,
}

// translate maps storage failures onto domain errors. Unknown errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if named, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
			return named
		}
		return apperrors.NewConflict("duplicate value", map[string]any{"constraint": pgErr.ConstraintName})
	case pgForeignKeyViolation:
		return apperrors.NewValidationError("referenced record does not exist", map[string]any{"constraint": pgErr.ConstraintName})
	case pgCheckViolation:
		return apperrors.NewValidationError("value violates a check constraint", map[string]any{"constraint": pgErr.ConstraintName})
	case pgInvalidText:
		return apperrors.NewValidationError("malformed identifier", nil)
	default:
		return err
	}
}

// NotFound builds the error returned when a lookup by id misses.
func NotFound(resource, id string) error {
	return apperrors.NewNotFound(resource, map[string]any{"id": id})
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return apperrors.KindOf(err) == apperrors.KindNotFound
}

func notFoundOr(err error, resource, id string) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == pgInvalidText) {
		return NotFound(resource, id)
	}
	return translate(err)
}

// likePattern wraps q for a case-insensitive substring ILIKE match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
