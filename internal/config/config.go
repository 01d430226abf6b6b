// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

// Package config defines Statline's configuration surface and its koanf-based
// loading: struct defaults, then an optional YAML file, then STATLINE_*
// environment variables, validated before use.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Cache    CacheConfig    `koanf:"cache"`
	Coalesce CoalesceConfig `koanf:"coalesce"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests is the allowed request count per client IP within
	// RateLimitWindow. Zero disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CacheConfig holds TTL cache settings.
type CacheConfig struct {
	// TTL is the default lifetime for cached responses.
	TTL time.Duration `koanf:"ttl" validate:"min=0"`

	// JanitorInterval is how often expired entries are swept.
	// Zero or negative disables the janitor (lazy expiry only).
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// CoalesceConfig holds request-coalescing settings.
type CoalesceConfig struct {
	// Timeout is the staleness threshold for in-flight operations.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	// CleanupInterval is how often the stale-flight sweep runs.
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"min=0"`

	// AutoCleanup runs the sweep on a background timer.
	AutoCleanup bool `koanf:"auto_cleanup"`
}

// SnapshotConfig holds snapshot backend settings.
type SnapshotConfig struct {
	// Backend selects the snapshot store implementation.
	Backend string `koanf:"backend" validate:"oneof=badger fs"`

	// Path is the BadgerDB directory or the snapshot file directory,
	// depending on Backend.
	Path string `koanf:"path" validate:"required"`

	// WarmKeys are snapshot keys pre-loaded into the cache at startup.
	WarmKeys []string `koanf:"warm_keys"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the snapshot backend.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=0"`
	Timeout          time.Duration `koanf:"timeout"`
}

// defaultConfig returns a Config with production defaults. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8480,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
			CORSAllowedOrigins: []string{
				"*",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			TTL:             5 * time.Minute,
			JanitorInterval: time.Minute,
		},
		Coalesce: CoalesceConfig{
			Timeout:         30 * time.Second,
			CleanupInterval: 10 * time.Second,
			AutoCleanup:     true,
		},
		Snapshot: SnapshotConfig{
			Backend: "badger",
			Path:    "/data/statline",
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
