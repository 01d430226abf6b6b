// Statline - Pre-computed District Analytics over HTTP
// Copyright 2026 Statline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/statlinehq/statline

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/statline/config.yaml",
	"/etc/statline/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "STATLINE_CONFIG"

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "STATLINE_"

// Load builds the configuration in three layers: struct defaults, an
// optional YAML file, then STATLINE_* environment variables. The result is
// validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the config file path to use, or empty when none
// exists. STATLINE_CONFIG takes priority over the default search paths.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envSections maps environment name prefixes to koanf path prefixes.
// Longer prefixes come first so nested sections win over their parents.
var envSections = []string{
	"snapshot_breaker",
	"server",
	"logging",
	"cache",
	"coalesce",
	"snapshot",
}

// envTransform converts STATLINE_SERVER_PORT to "server.port" and
// STATLINE_SNAPSHOT_BREAKER_ENABLED to "snapshot.breaker.enabled".
// Underscores inside field names (rate_limit_requests) are preserved.
func envTransform(name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	for _, section := range envSections {
		if strings.HasPrefix(s, section+"_") {
			return strings.ReplaceAll(section, "_", ".") + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}
