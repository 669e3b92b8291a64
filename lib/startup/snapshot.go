// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	"time"

	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/failure"
	"github.com/bureau-foundation/hearth/lib/health"
)

// Snapshot is everything a presentation layer needs to render the
// current phase. Snapshots are comparable; the orchestrator publishes
// one only when it differs from the last.
type Snapshot struct {
	Phase      Phase  `json:"phase"`
	Generation uint64 `json:"generation"`

	// Principal is the fingerprint of the signed-in principal, never
	// the principal itself.
	Principal string `json:"principal,omitempty"`

	Title   string `json:"title"`
	Message string `json:"message"`

	// Failure is set in ActorError and ProfileError.
	Failure failure.Classification `json:"failure,omitzero"`

	// Health is the latest probe result of this attempt.
	Health health.Result `json:"health,omitzero"`

	// Profile is set in Ready.
	Profile backend.Profile `json:"profile,omitzero"`

	Diagnostics Diagnostics `json:"diagnostics"`

	AttemptStartedAt time.Time `json:"attempt_started_at,omitzero"`

	CanRetry        bool `json:"can_retry"`
	CanLogout       bool `json:"can_logout"`
	ShowDiagnostics bool `json:"show_diagnostics"`

	// Hint explains a timeout in terms of the latest health probe.
	Hint string `json:"hint,omitempty"`
}

// Elapsed returns how long the current attempt has been running at
// now, or zero when there is no attempt.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.AttemptStartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.AttemptStartedAt)
}

// Diagnostics is the connection detail shown while a slow connection
// is being investigated.
type Diagnostics struct {
	Network       string `json:"network"`
	Address       string `json:"address"`
	AddressSource string `json:"address_source"`
	Endpoint      string `json:"endpoint"`

	SecondaryInitConfigured bool `json:"secondary_init_configured"`

	Actor   actor.Status  `json:"actor,omitempty"`
	Profile ProfileStatus `json:"profile,omitempty"`

	// Probe is pending while a probe runs, the latest result's status
	// after one finishes, and empty before the first.
	Probe health.Status `json:"probe,omitempty"`
}

type phaseText struct {
	title   string
	message string
}

var phaseTexts = map[Phase]phaseText{
	Bootstrapping:        {"Starting up", "Checking who is signed in."},
	Unauthenticated:      {"Sign in required", "Sign in to continue."},
	SlowBackend:          {"Backend is slow", "The care-home backend is reachable but is responding slowly. You can keep waiting or retry."},
	StalledConnection:    {"Connection stalled", "The connection to the care-home backend stopped making progress."},
	StartupTimedOut:      {"Startup timed out", "The care-home backend did not finish starting up in time."},
	ConnectingToBackend:  {"Connecting", "Connecting to the care-home backend."},
	LoadingProfile:       {"Loading profile", "Loading your profile."},
	ProfileSetupRequired: {"Profile setup required", "Your account has no care-home profile yet. Ask an administrator to set one up."},
	Ready:                {"Ready", "Connected."},
}

// timeoutHint explains a stalled or timed-out attempt using the latest
// probe result.
func timeoutHint(result health.Result, probing bool) string {
	switch result.Status {
	case health.StatusPassed:
		return "The backend answered a health check, so it is reachable but not completing startup for this account."
	case health.StatusFailed:
		return "The backend did not answer a health check: " + result.Message
	case health.StatusTimedOut:
		return "The backend health check timed out. The backend may be down or overloaded."
	}
	if probing {
		return "Checking whether the backend is reachable."
	}
	return ""
}
