// Package config loads the service configuration.
//
// Precedence is environment > config file > defaults. Environment variables
// use the CARTRULES_ prefix with dots replaced by underscores
// (CARTRULES_HTTP_READ_TIMEOUT); DATABASE_URL, PORT and LOG_LEVEL are also
// honoured unprefixed.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/liamcoop/cartrules/internal/logger"
)

// Config is the runtime configuration of the server
type Config struct {
	DatabaseURL    string
	MigrateOnStart bool

	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	EvaluationConcurrency   int
	DiscountCacheTTL        time.Duration
	SlowEvaluationThreshold time.Duration

	LogLevel        string
	ErrorSampleRate int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "sqlite://cartrules.db")
	v.SetDefault("migrate_on_start", true)

	v.SetDefault("port", 8080)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.request_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "30s")

	v.SetDefault("evaluation.concurrency", 8)
	v.SetDefault("evaluation.cache_ttl", "0s")
	v.SetDefault("evaluation.slow_threshold", "250ms")

	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.error_sample_rate", 1)
}

// Load reads configuration from configPath (optional) and the environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CARTRULES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names kept for existing deployments
	_ = v.BindEnv("database_url", "CARTRULES_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", "CARTRULES_PORT", "PORT")
	_ = v.BindEnv("log.level", "CARTRULES_LOG_LEVEL", "LOG_LEVEL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:    v.GetString("database_url"),
		MigrateOnStart: v.GetBool("migrate_on_start"),

		Port:            v.GetInt("port"),
		ReadTimeout:     v.GetDuration("http.read_timeout"),
		WriteTimeout:    v.GetDuration("http.write_timeout"),
		IdleTimeout:     v.GetDuration("http.idle_timeout"),
		RequestTimeout:  v.GetDuration("http.request_timeout"),
		ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),

		EvaluationConcurrency:   v.GetInt("evaluation.concurrency"),
		DiscountCacheTTL:        v.GetDuration("evaluation.cache_ttl"),
		SlowEvaluationThreshold: v.GetDuration("evaluation.slow_threshold"),

		LogLevel:        v.GetString("log.level"),
		ErrorSampleRate: v.GetInt("log.error_sample_rate"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required values
func Validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	for name, d := range map[string]time.Duration{
		"http.read_timeout":     cfg.ReadTimeout,
		"http.write_timeout":    cfg.WriteTimeout,
		"http.idle_timeout":     cfg.IdleTimeout,
		"http.request_timeout":  cfg.RequestTimeout,
		"http.shutdown_timeout": cfg.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if cfg.EvaluationConcurrency <= 0 {
		return fmt.Errorf("evaluation.concurrency must be positive, got %d", cfg.EvaluationConcurrency)
	}
	if cfg.DiscountCacheTTL < 0 {
		return fmt.Errorf("evaluation.cache_ttl must not be negative, got %v", cfg.DiscountCacheTTL)
	}
	if cfg.ErrorSampleRate <= 0 {
		return fmt.Errorf("log.error_sample_rate must be positive, got %d", cfg.ErrorSampleRate)
	}
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// validateNoSecretsInConfig keeps credentials out of config files: a database
// URL carrying a password must come from the environment
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		return nil
	}
	fileOnly := viper.New()
	fileOnly.SetConfigFile(v.ConfigFileUsed())
	if err := fileOnly.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if hasPassword(fileOnly.GetString("database_url")) {
		return fmt.Errorf("database credentials not allowed in config files (use CARTRULES_DATABASE_URL)")
	}
	return nil
}

func hasPassword(databaseURL string) bool {
	rest, ok := strings.CutPrefix(databaseURL, "postgres://")
	if !ok {
		rest, ok = strings.CutPrefix(databaseURL, "postgresql://")
	}
	if !ok {
		return false
	}
	userinfo, _, found := strings.Cut(rest, "@")
	return found && strings.Contains(userinfo, ":")
}
