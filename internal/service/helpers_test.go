package service

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository/memory"
)

var (
	testHasher = auth.NewBcryptHasher(bcrypt.MinCost)
	fixedNow   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedNow }

// sequence yields the given numbers in order, then 8-digit counters.
func sequence(numbers ...string) NumberSource {
	var i int64
	return NumberSourceFunc(func() (string, error) {
		n := atomic.AddInt64(&i, 1) - 1
		if int(n) < len(numbers) {
			return numbers[n], nil
		}
		return strconv.FormatInt(90000000+n, 10), nil
	})
}

func seedUser(t *testing.T, store *memory.Store, username string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := testHasher.Hash("s3cret-pass")
	require.NoError(t, err)
	u := &domain.User{
		Username:     username,
		FirstName:    username,
		Email:        username + "@devlab.test",
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func sessionOf(u *domain.User) domain.Session {
	return domain.SessionFor(u)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
