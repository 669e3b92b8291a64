// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/home/carer/.config")
	cfg := Default()

	if cfg.Session.File != "/home/carer/.config/hearth/session.json" {
		t.Errorf("session.file = %q", cfg.Session.File)
	}
	if cfg.Backend.MetadataFile != "/home/carer/.config/hearth/backend.jsonc" {
		t.Errorf("backend.metadata_file = %q", cfg.Backend.MetadataFile)
	}
	if cfg.Timeouts != DefaultTimeouts() {
		t.Errorf("timeouts = %+v, want defaults", cfg.Timeouts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}

func TestDefaultTimeouts(t *testing.T) {
	timeouts := DefaultTimeouts()
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"actor_creation", timeouts.ActorCreation, 30 * time.Second},
		{"secondary_init", timeouts.SecondaryInit, 10 * time.Second},
		{"profile", timeouts.Profile, 15 * time.Second},
		{"health_probe", timeouts.HealthProbe, 10 * time.Second},
		{"early_health_check", timeouts.EarlyHealthCheck, 5 * time.Second},
		{"fail_fast", timeouts.FailFast, 15 * time.Second},
		{"watchdog", timeouts.Watchdog, 45 * time.Second},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s = %s, want %s", test.name, test.got, test.want)
		}
	}
}

func TestLoadFileOverridesOnlyNamedKeys(t *testing.T) {
	directory := t.TempDir()
	t.Setenv("HEARTH_TEST_ROOT", directory)
	path := filepath.Join(directory, "hearth.yaml")
	writeFile(t, path, `
session:
  file: ${HEARTH_TEST_ROOT}/session.json
  key_file: ${HEARTH_TEST_UNSET:-/etc/hearth/session.key}
timeouts:
  profile: 12s
  secondary_init: 15s
telemetry:
  metrics_listen: 127.0.0.1:9464
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Session.File != filepath.Join(directory, "session.json") {
		t.Errorf("session.file = %q", cfg.Session.File)
	}
	if cfg.Session.KeyFile != "/etc/hearth/session.key" {
		t.Errorf("session.key_file = %q", cfg.Session.KeyFile)
	}
	if cfg.Timeouts.Profile != 12*time.Second || cfg.Timeouts.SecondaryInit != 15*time.Second {
		t.Errorf("overridden timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Timeouts.Watchdog != 45*time.Second {
		t.Errorf("watchdog = %s, want default 45s", cfg.Timeouts.Watchdog)
	}
	if cfg.Telemetry.MetricsListen != "127.0.0.1:9464" {
		t.Errorf("telemetry.metrics_listen = %q", cfg.Telemetry.MetricsListen)
	}
}

func TestLoadUsesEnvironmentVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearth.yaml")
	writeFile(t, path, "timeouts:\n  watchdog: 1m\n")
	t.Setenv(ConfigEnvironmentVariable, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeouts.Watchdog != time.Minute {
		t.Errorf("watchdog = %s, want 1m", cfg.Timeouts.Watchdog)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(ConfigEnvironmentVariable, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeouts != DefaultTimeouts() {
		t.Errorf("timeouts = %+v, want defaults", cfg.Timeouts)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile on a missing file succeeded")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "timeouts:\n  watchdog: soon\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted a non-duration timeout")
	}
}

func TestTimeoutsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Timeouts)
		wantErr string
	}{
		{"defaults", func(*Timeouts) {}, ""},
		{"zero profile", func(timeouts *Timeouts) { timeouts.Profile = 0 }, "timeouts.profile must be positive"},
		{"negative watchdog", func(timeouts *Timeouts) { timeouts.Watchdog = -time.Second }, "timeouts.watchdog must be positive"},
		{"early after fail-fast", func(timeouts *Timeouts) { timeouts.EarlyHealthCheck = 20 * time.Second }, "early_health_check"},
		{"fail-fast after watchdog", func(timeouts *Timeouts) { timeouts.FailFast = time.Minute }, "must be less than timeouts.watchdog"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			timeouts := DefaultTimeouts()
			test.mutate(&timeouts)
			err := timeouts.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestConfigValidateRequiresSessionFile(t *testing.T) {
	cfg := Default()
	cfg.Session.File = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "session.file") {
		t.Fatalf("Validate() = %v", err)
	}
}
