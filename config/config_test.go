package config

import (
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ auth.Config = Config{}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STOREAUTH_SIGNING_KEY", strings.Repeat("k", MinSigningKeyLength))
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "storeauth", cfg.GetIssuer())
	assert.Equal(t, time.Hour, cfg.GetAccessTTL())
	assert.Equal(t, 720*time.Hour, cfg.GetRefreshTTL())
	assert.Equal(t, 10*time.Minute, cfg.GetRefreshInterval())
	assert.Equal(t, 10*time.Second, cfg.GetStepTimeout())
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "pt", cfg.GetLocale())
	assert.Equal(t, "store.activity", cfg.ActivityQueue)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.AMQPURL)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STOREAUTH_REFRESH_INTERVAL", "30s")
	t.Setenv("STOREAUTH_STEP_TIMEOUT", "2s")
	t.Setenv("STOREAUTH_LOCALE", "en")
	t.Setenv("STOREAUTH_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.GetRefreshInterval())
	assert.Equal(t, 2*time.Second, cfg.GetStepTimeout())
	assert.Equal(t, "en", cfg.GetLocale())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseDSN:     "file::memory:",
			SigningKey:      strings.Repeat("k", MinSigningKeyLength),
			AccessTTL:       time.Hour,
			RefreshTTL:      24 * time.Hour,
			RefreshInterval: time.Minute,
			StepTimeout:     time.Second,
			BcryptCost:      10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }, "STOREAUTH_DATABASE_DSN is required"},
		{"missing key", func(c *Config) { c.SigningKey = "" }, "STOREAUTH_SIGNING_KEY is required"},
		{"short key", func(c *Config) { c.SigningKey = "short" }, "STOREAUTH_SIGNING_KEY must be at least 32 characters"},
		{"zero step timeout", func(c *Config) { c.StepTimeout = 0 }, "STOREAUTH_STEP_TIMEOUT must be positive"},
		{"refresh shorter than access", func(c *Config) { c.RefreshTTL = time.Minute }, "STOREAUTH_REFRESH_TTL must not be shorter than STOREAUTH_ACCESS_TTL"},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 99 }, "STOREAUTH_BCRYPT_COST must be between 4 and 31"},
	}

	cfg := valid()
	require.NoError(t, validate(&cfg))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validate(&cfg)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
