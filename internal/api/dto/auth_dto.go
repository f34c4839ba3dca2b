package dto

import (
	"time"

	"github.com/spec-kit/devlab/internal/domain"
)

// LoginRequest accepts a username or an e-mail as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// NewAuthResponse builds the login payload.
func NewAuthResponse(user *domain.User, token domain.IssuedToken) AuthResponse {
	return AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: NewUserResponse(user)}
}

// ChangePasswordRequest payload for changing the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}
