package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/policy"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Users       repository.UserRepository
	Revocations repository.RevocationRepository
	Tokens      *auth.TokenManager
	Hasher      auth.Hasher
	Logger      *zap.Logger
}

// AuthService coordinates login, logout and password changes.
type AuthService struct {
	users       repository.UserRepository
	revocations repository.RevocationRepository
	tokens      *auth.TokenManager
	hasher      auth.Hasher
	policy      PasswordPolicy
	logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.Users,
		revocations: deps.Revocations,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		logger:      logger,
	}
}

// LoginResult is a signed-in user with their access token.
type LoginResult struct {
	User  *domain.User
	Token domain.IssuedToken
}

// Login authenticates by username or e-mail.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active || !s.hasher.Verify(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", user.Role.String()))
	return &LoginResult{User: user, Token: token}, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		user, err := s.users.GetByEmail(ctx, NormalizeEmail(identifier))
		if err == nil || !repository.IsNotFound(err) {
			return user, err
		}
	}
	return s.users.GetByUsername(ctx, identifier)
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	ttl := s.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged out", zap.String("user_id", claims.Subject))
	return nil
}

// ChangePasswordInput is the own-password form.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword replaces the caller's own password and ends every other
// session of the account. The returned token keeps the caller signed in.
func (s *AuthService) ChangePassword(ctx context.Context, session domain.Session, in ChangePasswordInput) (*LoginResult, error) {
	if err := policy.CanEditPassword(session, session.UserID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !s.hasher.Verify(user.PasswordHash, in.CurrentPassword) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"current_password": "current password is incorrect"})
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, apperrors.ErrPasswordMismatch
	}
	if msg := s.policy.Check(in.NewPassword, user.Username, user.Email); msg != "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"new_password": msg})
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, apperrors.MapError(err)
	}
	user.PasswordHash = hash

	if err := s.revocations.RevokeIssuedBefore(ctx, user.ID, s.tokens.Cutoff(), s.tokens.TTL()); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return &LoginResult{User: user, Token: token}, nil
}

// Tokens exposes the token manager for middleware usage.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokens
}
