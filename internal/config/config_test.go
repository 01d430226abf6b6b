// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExplicitMissingFile(t *testing.T) {
	// An explicit STATLINE_CONFIG path is authoritative: if the file is
	// missing, Load fails instead of silently falling back to defaults.
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with a missing explicit config file")
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Coalesce.Timeout != 30*time.Second {
		t.Errorf("Coalesce.Timeout = %v, want 30s", cfg.Coalesce.Timeout)
	}
	if !cfg.Coalesce.AutoCleanup {
		t.Error("Coalesce.AutoCleanup = false, want true")
	}
	if cfg.Snapshot.Backend != "badger" {
		t.Errorf("Snapshot.Backend = %q, want badger", cfg.Snapshot.Backend)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
cache:
  ttl: 90s
snapshot:
  backend: fs
  path: /tmp/snapshots
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Cache.TTL)
	}
	if cfg.Snapshot.Backend != "fs" {
		t.Errorf("Snapshot.Backend = %q, want fs", cfg.Snapshot.Backend)
	}
	// Untouched sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("STATLINE_SERVER_PORT", "8700")
	t.Setenv("STATLINE_LOGGING_LEVEL", "debug")
	t.Setenv("STATLINE_SNAPSHOT_BACKEND", "fs")
	t.Setenv("STATLINE_SNAPSHOT_BREAKER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("Port = %d, want 8700", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Snapshot.Backend != "fs" {
		t.Errorf("Snapshot.Backend = %q, want fs", cfg.Snapshot.Backend)
	}
	if cfg.Snapshot.Breaker.Enabled {
		t.Error("Breaker.Enabled = true, want false via env override")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted port 0")
	}

	cfg = defaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted unknown log level")
	}

	cfg = defaultConfig()
	cfg.Snapshot.Backend = "dynamo"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted unknown snapshot backend")
	}

	cfg = defaultConfig()
	cfg.Snapshot.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty snapshot path")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"STATLINE_SERVER_PORT", "server.port"},
		{"STATLINE_SERVER_RATE_LIMIT_REQUESTS", "server.rate_limit_requests"},
		{"STATLINE_SNAPSHOT_BACKEND", "snapshot.backend"},
		{"STATLINE_SNAPSHOT_BREAKER_ENABLED", "snapshot.breaker.enabled"},
		{"STATLINE_CACHE_TTL", "cache.ttl"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.name); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8480}
	if got := s.Addr(); got != "127.0.0.1:8480" {
		t.Fatalf("Addr = %q", got)
	}
}
