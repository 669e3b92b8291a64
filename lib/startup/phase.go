// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startup

// Phase is the observable startup state.
type Phase string

// Phases in precedence order.
const (
	Bootstrapping        Phase = "bootstrapping"
	Unauthenticated      Phase = "unauthenticated"
	SlowBackend          Phase = "slow_backend"
	StalledConnection    Phase = "stalled_connection"
	StartupTimedOut      Phase = "startup_timed_out"
	ActorError           Phase = "actor_error"
	ProfileError         Phase = "profile_error"
	ConnectingToBackend  Phase = "connecting_to_backend"
	LoadingProfile       Phase = "loading_profile"
	ProfileSetupRequired Phase = "profile_setup_required"
	Ready                Phase = "ready"
)

// Phases lists every phase in precedence order.
var Phases = []Phase{
	Bootstrapping,
	Unauthenticated,
	SlowBackend,
	StalledConnection,
	StartupTimedOut,
	ActorError,
	ProfileError,
	ConnectingToBackend,
	LoadingProfile,
	ProfileSetupRequired,
	Ready,
}

// Waiting reports whether the phase is one in which startup timers
// run.
func (p Phase) Waiting() bool {
	switch p {
	case Bootstrapping, SlowBackend, StalledConnection, StartupTimedOut, ConnectingToBackend, LoadingProfile:
		return true
	}
	return false
}

// Failed reports whether the phase is an error or timeout phase, the
// phases that offer a retry.
func (p Phase) Failed() bool {
	switch p {
	case SlowBackend, StalledConnection, StartupTimedOut, ActorError, ProfileError:
		return true
	}
	return false
}

// Settled reports whether the phase calls for a user decision or is
// final. Headless callers stop watching at a settled phase.
func (p Phase) Settled() bool {
	switch p {
	case Bootstrapping, ConnectingToBackend, LoadingProfile:
		return false
	}
	return true
}
