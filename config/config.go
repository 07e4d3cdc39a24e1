// Package config loads storeadmin settings from the environment. A local
// .env file is read first when present.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"golang.org/x/crypto/bcrypt"
)

// MinSigningKeyLength is the shortest accepted HS256 key.
const MinSigningKeyLength = 32

type Config struct {
	DatabaseDSN     string        `env:"STOREAUTH_DATABASE_DSN" default:"file:storeauth.db?cache=shared"`
	SigningKey      string        `env:"STOREAUTH_SIGNING_KEY"`
	Issuer          string        `env:"STOREAUTH_ISSUER" default:"storeauth"`
	AccessTTL       time.Duration `env:"STOREAUTH_ACCESS_TTL" default:"1h"`
	RefreshTTL      time.Duration `env:"STOREAUTH_REFRESH_TTL" default:"720h"`
	RefreshInterval time.Duration `env:"STOREAUTH_REFRESH_INTERVAL" default:"10m"`
	StepTimeout     time.Duration `env:"STOREAUTH_STEP_TIMEOUT" default:"10s"`
	BcryptCost      int           `env:"STOREAUTH_BCRYPT_COST" default:"12"`
	RedisURL        string        `env:"STOREAUTH_REDIS_URL"`
	AMQPURL         string        `env:"STOREAUTH_AMQP_URL"`
	ActivityQueue   string        `env:"STOREAUTH_ACTIVITY_QUEUE" default:"store.activity"`
	Locale          string        `env:"STOREAUTH_LOCALE" default:"pt"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseDSN == "" {
		return errors.New("STOREAUTH_DATABASE_DSN is required")
	}
	if cfg.SigningKey == "" {
		return errors.New("STOREAUTH_SIGNING_KEY is required")
	}
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("STOREAUTH_SIGNING_KEY must be at least %d characters", MinSigningKeyLength)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"STOREAUTH_ACCESS_TTL", cfg.AccessTTL},
		{"STOREAUTH_REFRESH_TTL", cfg.RefreshTTL},
		{"STOREAUTH_REFRESH_INTERVAL", cfg.RefreshInterval},
		{"STOREAUTH_STEP_TIMEOUT", cfg.StepTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if cfg.RefreshTTL < cfg.AccessTTL {
		return errors.New("STOREAUTH_REFRESH_TTL must not be shorter than STOREAUTH_ACCESS_TTL")
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("STOREAUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return nil
}

func (c Config) GetRefreshInterval() time.Duration {
	return c.RefreshInterval
}

func (c Config) GetStepTimeout() time.Duration {
	return c.StepTimeout
}

func (c Config) GetLocale() string {
	return c.Locale
}

func (c Config) GetSigningKey() []byte {
	return []byte(c.SigningKey)
}

func (c Config) GetAccessTTL() time.Duration {
	return c.AccessTTL
}

func (c Config) GetRefreshTTL() time.Duration {
	return c.RefreshTTL
}

func (c Config) GetIssuer() string {
	return c.Issuer
}
