package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository/memory"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, "devlab")
	user := &domain.User{ID: "u-1", Role: domain.RoleTeacher}

	issued, err := tm.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := tm.Parse(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleTeacher, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Minute.Seconds(), tm.Remaining(claims).Seconds(), 2)
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, "devlab")
	issued, err := tm.Issue(&domain.User{ID: "u-1", Role: domain.RoleStudent})
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Minute, "devlab").Parse(issued.Value)
	assert.Error(t, err)

	later := NewTokenManager("secret", time.Minute, "devlab")
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = later.Parse(issued.Value)
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, "correct horse"))
	assert.False(t, h.Verify(hash, "wrong"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost)
}

func newProtectedApp(t *testing.T) (*fiber.App, *memory.Store, *memory.Revocations, *TokenManager) {
	t.Helper()
	store := memory.NewStore()
	revocations := memory.NewRevocations()
	tm := NewTokenManager("secret", time.Minute, "devlab")
	mw := NewAuthMiddleware(tm, store.Users(), revocations, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			d := apperrors.ToDomainError(err)
			return c.Status(d.HTTPStatus).SendString(d.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		return c.SendString(SessionFromContext(c).Username)
	})
	app.Get("/admin", mw.Handle, RequireCoordinator(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, store, revocations, tm
}

func TestAuthMiddleware(t *testing.T) {
	app, store, revocations, tm := newProtectedApp(t)
	ctx := context.Background()

	user := &domain.User{Username: "bia", Email: "bia@x.com", Role: domain.RoleStudent, Active: true}
	require.NoError(t, store.Users().Create(ctx, user))
	issued, err := tm.Issue(user)
	require.NoError(t, err)

	do := func(path, token string) int {
		req := httptest.NewRequest("GET", path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusUnauthorized, do("/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, do("/me", "garbage"))
	assert.Equal(t, fiber.StatusOK, do("/me", issued.Value))
	assert.Equal(t, fiber.StatusForbidden, do("/admin", issued.Value))

	require.NoError(t, revocations.Revoke(ctx, issued.ID, time.Minute))
	assert.Equal(t, fiber.StatusUnauthorized, do("/me", issued.Value))

	fresh, err := tm.Issue(user)
	require.NoError(t, err)
	user.Active = false
	require.NoError(t, store.Users().Update(ctx, user))
	assert.Equal(t, fiber.StatusUnauthorized, do("/me", fresh.Value))
}

func TestAuthMiddlewareRejectsTokensBeforeCutoff(t *testing.T) {
	app, store, revocations, tm := newProtectedApp(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.WithClock(func() time.Time { return now })

	user := &domain.User{Username: "bia", Email: "bia@x.com", Role: domain.RoleStudent, Active: true}
	require.NoError(t, store.Users().Create(ctx, user))
	old, err := tm.Issue(user)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	require.NoError(t, revocations.RevokeIssuedBefore(ctx, user.ID, tm.Cutoff(), tm.TTL()))
	fresh, err := tm.Issue(user)
	require.NoError(t, err)

	do := func(token string) int {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusUnauthorized, do(old.Value))
	assert.Equal(t, fiber.StatusOK, do(fresh.Value))
}
