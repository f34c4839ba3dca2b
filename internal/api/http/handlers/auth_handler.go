package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/service"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// AuthHandler exposes sign-in endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewAuthResponse(res.User, res.Token))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.Claims); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return data(c, fiber.StatusOK, dto.NewUserResponse(principal.User))
}

// ChangePassword handles POST /auth/password/change and returns a fresh token.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.ChangePassword(c.UserContext(), auth.SessionFromContext(c), service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewAuthResponse(res.User, res.Token))
}
