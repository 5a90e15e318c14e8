package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		setupEnv      func(cfg *Config) error
		expectError   bool
		errorContains string
		validate      func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid configuration with defaults",
			setupEnv: func(cfg *Config) error {
				cfg.User = "testuser"
				cfg.Password = "testpass"
				cfg.Host = "localhost"
				cfg.Port = "5432"
				cfg.Database = "fabriq"
				cfg.MaxRetries = 10
				cfg.RetryDelay = 2 * time.Second
				cfg.LogLevelString = "warn"
				return nil
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "testuser", cfg.User)
				assert.Equal(t, 10, cfg.MaxRetries)
				assert.Equal(t, 2*time.Second, cfg.RetryDelay)
				assert.Equal(t, logger.Warn, cfg.LogLevel)
			},
		},
		{
			name: "env processing failure",
			setupEnv: func(cfg *Config) error {
				return errors.New("env: POSTGRES_USER is required but not set")
			},
			expectError:   true,
			errorContains: "failed to process env config",
		},
		{
			name: "validation error after successful env processing",
			setupEnv: func(cfg *Config) error {
				cfg.User = ""
				cfg.Password = "testpass"
				cfg.Host = "localhost"
				cfg.Port = "5432"
				cfg.Database = "fabriq"
				cfg.MaxRetries = 10
				cfg.RetryDelay = 2 * time.Second
				return nil
			},
			expectError:   true,
			errorContains: "config validation failed",
		},
		{
			name: "silent log level parsed",
			setupEnv: func(cfg *Config) error {
				cfg.User = "testuser"
				cfg.Password = "testpass"
				cfg.Host = "localhost"
				cfg.Port = "5432"
				cfg.Database = "fabriq"
				cfg.MaxRetries = 1
				cfg.RetryDelay = time.Second
				cfg.LogLevelString = "silent"
				return nil
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, logger.Silent, cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalEnvProcess := envProcess
			defer func() { envProcess = originalEnvProcess }()

			envProcess = func(ctx context.Context, v any, mus ...envconfig.Mutator) error {
				return tt.setupEnv(v.(*Config))
			}

			cfg, err := LoadConfigFromEnv(context.Background())

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			User:       "user",
			Password:   "pass",
			Host:       "localhost",
			Port:       "5432",
			Database:   "db",
			MaxRetries: 10,
			RetryDelay: 2 * time.Second,
		}
	}

	tests := []struct {
		name          string
		mutate        func(cfg *Config)
		errorContains string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:          "empty user",
			mutate:        func(cfg *Config) { cfg.User = "" },
			errorContains: "POSTGRES_USER is required",
		},
		{
			name:          "empty database",
			mutate:        func(cfg *Config) { cfg.Database = " " },
			errorContains: "POSTGRES_DB is required",
		},
		{
			name:          "non-numeric port",
			mutate:        func(cfg *Config) { cfg.Port = "not-a-port" },
			errorContains: "POSTGRES_PORT must be a valid number",
		},
		{
			name:          "port out of range",
			mutate:        func(cfg *Config) { cfg.Port = "70000" },
			errorContains: "POSTGRES_PORT must be between 1 and 65535",
		},
		{
			name:          "negative retries",
			mutate:        func(cfg *Config) { cfg.MaxRetries = -1 },
			errorContains: "DB_MAX_RETRIES must be non-negative",
		},
		{
			name:          "zero retry delay",
			mutate:        func(cfg *Config) { cfg.RetryDelay = 0 },
			errorContains: "DB_RETRY_DELAY must be positive",
		},
		{
			name:          "excessive retry delay",
			mutate:        func(cfg *Config) { cfg.RetryDelay = time.Hour },
			errorContains: "DB_RETRY_DELAY must not exceed 10 minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)

			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestSimplifyDBError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "password authentication failed", err: errors.New("pq: password authentication failed for user"), expected: "invalid database credentials"},
		{name: "i/o timeout", err: errors.New("dial tcp: i/o timeout"), expected: "database connection timed out"},
		{name: "connection refused", err: errors.New("connect: connection refused"), expected: "cannot reach database server"},
		{name: "SASL authentication error", err: errors.New("SASL authentication failed"), expected: "authentication error"},
		{name: "anything else", err: errors.New("boom"), expected: "database error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, simplifyDBError(tt.err))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, ParseLogLevel("silent"))
	assert.Equal(t, logger.Error, ParseLogLevel("error"))
	assert.Equal(t, logger.Warn, ParseLogLevel("warn"))
	assert.Equal(t, logger.Info, ParseLogLevel("INFO"))
	assert.Equal(t, logger.Warn, ParseLogLevel("bogus"), "unknown levels fall back to warn")
}

func TestConnectDB_ExhaustsRetries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection retry test in short mode")
	}

	cfg := &Config{
		User:       "testuser",
		Password:   "testpass",
		Host:       "localhost",
		Port:       "19999", // nothing listens here
		Database:   "fabriq",
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		LogLevel:   logger.Silent,
	}

	_, err := ConnectDB(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "database connection failed after 2 attempts"))
}
