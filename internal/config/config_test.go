package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE_DRIVER", "JWT_SECRET", "REDIS_URL", "RESULT_START_TIMEOUT_HOURS", "EXPIRE_INTERVAL_MINUTES", "API_PORT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "3000", cfg.APIPort)
	assert.Equal(t, 24*time.Hour, cfg.ResultStartTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ExpireInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("RESULT_START_TIMEOUT_HOURS", "6")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseDSN)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 6*time.Hour, cfg.ResultStartTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestValidate_Warnings(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := &Config{JWTSecret: defaultJWTSecret, StorageDriver: "sqlite", ResultStartTimeout: time.Hour}

	cfg.Validate(zap.New(core))

	msgs := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Contains(t, msgs, "JWT_SECRET is default, change in production")
	assert.Contains(t, msgs, "STORAGE_DRIVER is sqlite, connections are serialised")
	assert.Contains(t, msgs, "REDIS_URL is not set, events and rate limiting are disabled")
	assert.Len(t, msgs, 3)
}
