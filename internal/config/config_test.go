package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInMemoryMode(t *testing.T) {
	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageModeMemory, cfg.Storage.Mode)
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.Timeout())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("STORAGE_MODE", "POSTGRES")
	t.Setenv("POSTGRES_DSN", "postgres://results@localhost/results")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "120")
	t.Setenv("RATE_LIMIT_LOGIN_PER_MINUTE", "5")
	t.Setenv("NOTIFY_QUEUE_KEY", "custom:events")
	t.Setenv("REDIS_TIMEOUT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageModePostgres, cfg.Storage.Mode)
	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 5, cfg.RateLimit.LoginPerMinute)
	assert.Equal(t, "custom:events", cfg.Notification.QueueKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.Timeout())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:     AppConfig{Env: "development"},
			Storage: StorageConfig{Mode: StorageModeMemory},
			Auth:    AuthConfig{JWTSecret: "s3cret", AccessTokenTTLMinutes: 60},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid memory", mutate: func(*Config) {}},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Mode = StorageModePostgres },
			wantErr: "POSTGRES_DSN",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Storage.Mode = "sqlite" },
			wantErr: "unknown STORAGE_MODE",
		},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Auth.JWTSecret = DefaultJWTSecret
			},
			wantErr: "must be set in production",
		},
		{
			name:    "empty secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "must not be empty",
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Auth.AccessTokenTTLMinutes = 0 },
			wantErr: "AUTH_ACCESS_TOKEN_TTL_MINUTES",
		},
		{
			name:    "unbounded ttl",
			mutate:  func(c *Config) { c.Auth.AccessTokenTTLMinutes = 60 * 24 * 30 },
			wantErr: "AUTH_ACCESS_TOKEN_TTL_MINUTES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
