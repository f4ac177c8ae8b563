// Package config loads job configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"defillama-etl/internal/feed"
	"defillama-etl/internal/ingestion"
)

// Config represents the complete job configuration.
type Config struct {
	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `mapstructure:"database_url"`

	// SourceURL is the pool-list feed endpoint.
	SourceURL string `mapstructure:"source_url"`

	// ProtocolsURL is the protocol-metadata feed endpoint.
	ProtocolsURL string `mapstructure:"protocols_url"`

	// FetchTimeout bounds each feed HTTP request.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// FailureThreshold bounds tolerated per-record write failures per feed.
	FailureThreshold int `mapstructure:"failure_threshold"`

	// Schedule is a cron expression for daemon mode. Empty means run once.
	Schedule string `mapstructure:"schedule"`

	// MetricsAddr is the Prometheus listen address for daemon mode.
	// Empty disables the metrics server.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// DBConnectRetries and DBConnectDelay control the startup wait for the
	// database to accept connections.
	DBConnectRetries int           `mapstructure:"db_connect_retries"`
	DBConnectDelay   time.Duration `mapstructure:"db_connect_delay"`

	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.AutomaticEnv()

	// Bind the recognized environment keys explicitly so they resolve
	// without a prefix (DATABASE_URL, SOURCE_URL, ...).
	for _, key := range []string{
		"database_url",
		"source_url",
		"protocols_url",
		"fetch_timeout",
		"failure_threshold",
		"schedule",
		"metrics_addr",
		"db_connect_retries",
		"db_connect_delay",
		"log_level",
		"log_encoding",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source_url", feed.DefaultPoolsURL)
	v.SetDefault("protocols_url", feed.DefaultProtocolsURL)
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("failure_threshold", ingestion.DefaultFailureThreshold)
	v.SetDefault("schedule", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("db_connect_retries", 10)
	v.SetDefault("db_connect_delay", "3s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SourceURL == "" {
		return fmt.Errorf("SOURCE_URL must not be empty")
	}
	if c.ProtocolsURL == "" {
		return fmt.Errorf("PROTOCOLS_URL must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.FailureThreshold < 0 {
		return fmt.Errorf("FAILURE_THRESHOLD must not be negative")
	}
	if c.DBConnectRetries < 1 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be at least 1")
	}
	if c.DBConnectDelay <= 0 {
		return fmt.Errorf("DB_CONNECT_DELAY must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validEncodings := map[string]bool{"json": true, "console": true}
	if !validEncodings[c.LogEncoding] {
		return fmt.Errorf("LOG_ENCODING must be one of: json, console")
	}

	return nil
}
