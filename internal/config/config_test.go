package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "PORT", "LOG_LEVEL", "CARTRULES_DATABASE_URL", "CARTRULES_PORT", "CARTRULES_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartrules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite://cartrules.db", cfg.DatabaseURL)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.EvaluationConcurrency)
	assert.Equal(t, time.Duration(0), cfg.DiscountCacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowEvaluationThreshold)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadEnvironment(t *testing.T) {
	t.Run("prefixed variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CARTRULES_PORT", "9090")
		t.Setenv("CARTRULES_EVALUATION_CONCURRENCY", "2")
		t.Setenv("CARTRULES_EVALUATION_CACHE_TTL", "30s")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 2, cfg.EvaluationConcurrency)
		assert.Equal(t, 30*time.Second, cfg.DiscountCacheTTL)
	})

	t.Run("unprefixed database url and port", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cartrules")
		t.Setenv("PORT", "7000")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@db:5432/cartrules", cfg.DatabaseURL)
		assert.Equal(t, 7000, cfg.Port)
	})

	t.Run("prefixed wins over unprefixed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CARTRULES_DATABASE_URL", "sqlite://a.db")
		t.Setenv("DATABASE_URL", "sqlite://b.db")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "sqlite://a.db", cfg.DatabaseURL)
	})
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: 8181
http:
  read_timeout: 5s
evaluation:
  slow_threshold: 1s
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Second, cfg.SlowEvaluationThreshold)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("CARTRULES_PORT", "8282")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8282, cfg.Port, "environment overrides the file")
}

func TestLoadRejectsCredentialsInFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "database_url: postgres://user:secret@db/cartrules\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL:           "sqlite://x.db",
			Port:                  8080,
			ReadTimeout:           time.Second,
			WriteTimeout:          time.Second,
			IdleTimeout:           time.Second,
			RequestTimeout:        time.Second,
			ShutdownTimeout:       time.Second,
			EvaluationConcurrency: 1,
			ErrorSampleRate:       1,
			LogLevel:              "INFO",
		}
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }},
		{"port too low", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"zero timeout", func(c *Config) { c.WriteTimeout = 0 }},
		{"zero concurrency", func(c *Config) { c.EvaluationConcurrency = 0 }},
		{"negative cache ttl", func(c *Config) { c.DiscountCacheTTL = -time.Second }},
		{"zero sample rate", func(c *Config) { c.ErrorSampleRate = 0 }},
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
