package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository/memory"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

func newAuthFixture(t *testing.T) (*AuthService, *memory.Store, *memory.Revocations) {
	t.Helper()
	store := memory.NewStore()
	revocations := memory.NewRevocations()
	svc := NewAuthService(AuthDependencies{
		Users:       store.Users(),
		Revocations: revocations,
		Tokens:      auth.NewTokenManager("test-secret", time.Hour, "devlab"),
		Hasher:      testHasher,
	})
	return svc, store, revocations
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newAuthFixture(t)
	u := seedUser(t, store, "maria", domain.RoleTeacher)

	for _, identifier := range []string{"maria", "MARIA@devlab.test", " maria@devlab.test "} {
		res, err := svc.Login(ctx, identifier, "s3cret-pass")
		require.NoError(t, err, identifier)
		assert.Equal(t, u.ID, res.User.ID)
		claims, err := svc.Tokens().Parse(res.Token.Value)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.Subject)
		assert.Equal(t, domain.RoleTeacher, claims.Role)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newAuthFixture(t)
	u := seedUser(t, store, "maria", domain.RoleStudent)

	_, err := svc.Login(ctx, "maria", "wrong-pass")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	_, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	_, err = svc.Login(ctx, "", "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	u.Active = false
	require.NoError(t, store.Users().Update(ctx, u))
	_, err = svc.Login(ctx, "maria", "s3cret-pass")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, store, revocations := newAuthFixture(t)
	seedUser(t, store, "maria", domain.RoleStudent)

	res, err := svc.Login(ctx, "maria", "s3cret-pass")
	require.NoError(t, err)
	claims, err := svc.Tokens().Parse(res.Token.Value)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))
	revoked, err := revocations.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(svc.Logout(ctx, nil)))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newAuthFixture(t)
	u := seedUser(t, store, "maria", domain.RoleStudent)
	session := sessionOf(u)

	cases := map[string]struct {
		in   ChangePasswordInput
		kind apperrors.Kind
		is   error
	}{
		"wrong current": {ChangePasswordInput{"nope", "Tr0ub4dor&3x", "Tr0ub4dor&3x"}, apperrors.KindValidation, nil},
		"mismatch":      {ChangePasswordInput{"s3cret-pass", "Tr0ub4dor&3x", "Tr0ub4dor&3y"}, apperrors.KindValidation, apperrors.ErrPasswordMismatch},
		"too short":     {ChangePasswordInput{"s3cret-pass", "Ab1!", "Ab1!"}, apperrors.KindValidation, nil},
		"numeric":       {ChangePasswordInput{"s3cret-pass", "90817263", "90817263"}, apperrors.KindValidation, nil},
		"common":        {ChangePasswordInput{"s3cret-pass", "password123", "password123"}, apperrors.KindValidation, nil},
		"like username": {ChangePasswordInput{"s3cret-pass", "maria2024!", "maria2024!"}, apperrors.KindValidation, nil},
		"over 72 bytes": {ChangePasswordInput{"s3cret-pass", strings.Repeat("Tr0ub4dor&", 8), strings.Repeat("Tr0ub4dor&", 8)}, apperrors.KindValidation, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ChangePassword(ctx, session, tc.in)
			assert.Equal(t, tc.kind, apperrors.KindOf(err), "got %v", err)
			if tc.is != nil {
				assert.True(t, errors.Is(err, tc.is))
			}
		})
	}

	res, err := svc.ChangePassword(ctx, session, ChangePasswordInput{"s3cret-pass", "Tr0ub4dor&3x", "Tr0ub4dor&3x"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.Token.UserID)
	_, err = svc.Login(ctx, "maria", "Tr0ub4dor&3x")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "maria", "s3cret-pass")
	assert.Error(t, err)

	_, err = svc.ChangePassword(ctx, domain.Session{}, ChangePasswordInput{})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestChangePasswordEndsOtherSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	revocations := memory.NewRevocations()
	now := fixedNow
	tokens := auth.NewTokenManager("test-secret", time.Hour, "devlab").WithClock(func() time.Time { return now })
	svc := NewAuthService(AuthDependencies{
		Users:       store.Users(),
		Revocations: revocations,
		Tokens:      tokens,
		Hasher:      testHasher,
	})
	u := seedUser(t, store, "maria", domain.RoleStudent)

	other, err := svc.Login(ctx, "maria", "s3cret-pass")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	res, err := svc.ChangePassword(ctx, sessionOf(u), ChangePasswordInput{"s3cret-pass", "Tr0ub4dor&3x", "Tr0ub4dor&3x"})
	require.NoError(t, err)

	cutoff, err := revocations.IssuedCutoff(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, other.Token.IssuedAt.Before(cutoff), "earlier session must fall before the cutoff")
	assert.False(t, res.Token.IssuedAt.Before(cutoff), "the caller's new token stays valid")
}

func TestPasswordPolicy(t *testing.T) {
	var p PasswordPolicy
	assert.Empty(t, p.Check("Tr0ub4dor&3x", "maria", "maria@devlab.test"))
	assert.NotEmpty(t, p.Check("1234567"))
	assert.NotEmpty(t, p.Check("12345678"))
	assert.NotEmpty(t, p.Check("Senha123"))
	assert.NotEmpty(t, p.Check("xxjoaoxx99", "joao", "j@x.com"))
	assert.NotEmpty(t, p.Check("carolina7", "someone", "carolina@x.com"))
	assert.Empty(t, p.Check("longenough", "ab"), "short attributes are ignored")
	assert.Empty(t, p.Check(strings.Repeat("x", 71)+"!"))
	assert.NotEmpty(t, p.Check(strings.Repeat("x", 72)+"!"), "bcrypt cannot hash more than 72 bytes")
}
