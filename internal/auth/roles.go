package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/domain"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// RequireRole ensures the authenticated user holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.ErrPermissionDenied
		}
		return c.Next()
	}
}

// RequireCoordinator is RequireRole(domain.RoleCoordinator).
func RequireCoordinator() fiber.Handler {
	return RequireRole(domain.RoleCoordinator)
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
