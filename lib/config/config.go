// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ConfigEnvironmentVariable names the config file when --config is not
// given.
const ConfigEnvironmentVariable = "HEARTH_CONFIG"

// Config is the file-based configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Timeouts  Timeouts        `yaml:"timeouts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BackendConfig locates the backend when the environment does not.
type BackendConfig struct {
	// SocketPath overrides the metadata file's address. The
	// HEARTH_BACKEND_ADDRESS environment variable still wins.
	SocketPath string `yaml:"socket_path"`

	// MetadataFile is the JSONC fallback describing the backend.
	MetadataFile string `yaml:"metadata_file"`
}

// SessionConfig locates the sign-in session.
type SessionConfig struct {
	File string `yaml:"file"`

	// KeyFile is an age identity file. When set, the session file is
	// encrypted to it.
	KeyFile string `yaml:"key_file"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	// MetricsListen is a host:port for /metrics. Empty disables the
	// listener; metrics are still recorded.
	MetricsListen string `yaml:"metrics_listen"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	directory := Directory()
	return &Config{
		Backend: BackendConfig{
			MetadataFile: filepath.Join(directory, "backend.jsonc"),
		},
		Session: SessionConfig{
			File: filepath.Join(directory, "session.json"),
		},
		Timeouts: DefaultTimeouts(),
	}
}

// Directory returns hearth's per-user configuration directory,
// honoring XDG_CONFIG_HOME.
func Directory() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hearth")
	}
	return filepath.Join(base, "hearth")
}

// Load reads the file at path, or at $HEARTH_CONFIG when path is
// empty. With neither, it returns Default with variables expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads a YAML file over Default. Keys absent from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Backend.SocketPath = expandVars(c.Backend.SocketPath)
	c.Backend.MetadataFile = expandVars(c.Backend.MetadataFile)
	c.Session.File = expandVars(c.Session.File)
	c.Session.KeyFile = expandVars(c.Session.KeyFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} with values from the
// environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.File == "" {
		errs = append(errs, errors.New("session.file is required"))
	}
	if err := c.Timeouts.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
