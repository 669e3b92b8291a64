// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

// Timeouts are the named startup durations. In YAML each is a Go
// duration string ("15s", "1m30s").
type Timeouts struct {
	// ActorCreation bounds building the backend connection.
	ActorCreation time.Duration `yaml:"actor_creation"`

	// SecondaryInit bounds the best-effort access-control bootstrap.
	SecondaryInit time.Duration `yaml:"secondary_init"`

	// Profile bounds the caller-profile fetch.
	Profile time.Duration `yaml:"profile"`

	// HealthProbe is the prober's own deadline.
	HealthProbe time.Duration `yaml:"health_probe"`

	// EarlyHealthCheck is when a still-waiting startup first probes.
	EarlyHealthCheck time.Duration `yaml:"early_health_check"`

	// FailFast is when a waiting startup with a passing probe becomes
	// SlowBackend.
	FailFast time.Duration `yaml:"fail_fast"`

	// Watchdog is the hard limit on any startup attempt.
	Watchdog time.Duration `yaml:"watchdog"`
}

// DefaultTimeouts returns the reference configuration.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ActorCreation:    30 * time.Second,
		SecondaryInit:    10 * time.Second,
		Profile:          15 * time.Second,
		HealthProbe:      10 * time.Second,
		EarlyHealthCheck: 5 * time.Second,
		FailFast:         15 * time.Second,
		Watchdog:         45 * time.Second,
	}
}

// Validate rejects non-positive durations and a timer ladder that is
// out of order.
func (t Timeouts) Validate() error {
	var errs []error
	for _, entry := range []struct {
		name  string
		value time.Duration
	}{
		{"actor_creation", t.ActorCreation},
		{"secondary_init", t.SecondaryInit},
		{"profile", t.Profile},
		{"health_probe", t.HealthProbe},
		{"early_health_check", t.EarlyHealthCheck},
		{"fail_fast", t.FailFast},
		{"watchdog", t.Watchdog},
	} {
		if entry.value <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive, got %s", entry.name, entry.value))
		}
	}
	if t.EarlyHealthCheck >= t.FailFast {
		errs = append(errs, fmt.Errorf("timeouts.early_health_check (%s) must be less than timeouts.fail_fast (%s)",
			t.EarlyHealthCheck, t.FailFast))
	}
	if t.FailFast >= t.Watchdog {
		errs = append(errs, fmt.Errorf("timeouts.fail_fast (%s) must be less than timeouts.watchdog (%s)",
			t.FailFast, t.Watchdog))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
