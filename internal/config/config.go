// Package config reads the service configuration from CC_* environment
// variables. Every field has a sane default so a bare `go run ./cmd/api`
// starts in development mode with in-memory stores.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// PostgresDSN enables the postgres stores; empty means in-memory.
	PostgresDSN string
	// RedisAddr enables the shared sign-in limiter; empty means in-process.
	RedisAddr string

	// SigningKey signs access tokens. Required outside development mode.
	SigningKey string

	SignInLimit  int
	SignInWindow time.Duration

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	InviteTTL       time.Duration
}

// FromEnv builds the configuration from the environment.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            getenv("CC_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("CC_PG_DSN"),
		RedisAddr:       os.Getenv("CC_REDIS_ADDR"),
		SigningKey:      getenv("CC_SIGNING_KEY", "dev-signing-key"),
		SignInLimit:     5,
		SignInWindow:    time.Minute,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		InviteTTL:       7 * 24 * time.Hour,
	}

	var err error
	if cfg.SignInLimit, err = intEnv("CC_SIGNIN_LIMIT", cfg.SignInLimit); err != nil {
		return Config{}, err
	}
	if cfg.SignInWindow, err = durationEnv("CC_SIGNIN_WINDOW", cfg.SignInWindow); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("CC_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("CC_REFRESH_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.InviteTTL, err = durationEnv("CC_INVITE_TTL", cfg.InviteTTL); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
