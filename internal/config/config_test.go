package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("NATS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "devlab", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, 8, cfg.Registration.NumberLength)
	assert.Equal(t, 100, cfg.Registration.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "devlab", cfg.NATS.SubjectPrefix)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_STARTTLS", "false")
	t.Setenv("REGISTRATION_NUMBER_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.False(t, cfg.Mail.StartTLS)
	assert.Equal(t, 100, cfg.Registration.MaxAttempts)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveNumberLength(t *testing.T) {
	t.Setenv("REGISTRATION_NUMBER_LENGTH", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBootstrap(t *testing.T) {
	t.Setenv("BOOTSTRAP_COORDINATOR_USERNAME", "admin")
	t.Setenv("BOOTSTRAP_COORDINATOR_PASSWORD", "change-me-now")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Bootstrap.Username)
	assert.Equal(t, "coordenacao@devlab.local", cfg.Bootstrap.Email)
	assert.Equal(t, "change-me-now", cfg.Bootstrap.Password)
}
