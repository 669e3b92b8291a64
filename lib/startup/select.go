// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/health"
)

// ProfileStatus is the state of the caller-profile fetch.
type ProfileStatus string

const (
	ProfileLoading ProfileStatus = "loading"
	ProfileFetched ProfileStatus = "fetched"
	ProfileFailed  ProfileStatus = "error"
)

// Inputs is everything Select looks at.
type Inputs struct {
	Initializing  bool
	Authenticated bool

	Actor   actor.Status
	Profile ProfileStatus

	// ProfileEmpty is true when the fetch succeeded with no profile.
	ProfileEmpty bool

	FailFastFired bool
	WatchdogFired bool

	// Health is the latest probe result's status, or "" when there is
	// none.
	Health health.Status
}

// Select returns the phase for in. The first matching rule wins.
//
// Timer escalations only apply while the attempt is unfinished: once
// the actor is ready and the profile fetched, a fired timer no longer
// matters and a late success reaches Ready or ProfileSetupRequired.
func Select(in Inputs) Phase {
	if in.Initializing {
		return Bootstrapping
	}
	if !in.Authenticated {
		return Unauthenticated
	}

	finished := in.Actor == actor.StatusReady && in.Profile == ProfileFetched
	if !finished {
		if in.FailFastFired && in.Health == health.StatusPassed &&
			in.Actor != actor.StatusError && in.Profile != ProfileFailed {
			return SlowBackend
		}
		if in.WatchdogFired {
			if in.Actor == actor.StatusIdle {
				return StalledConnection
			}
			return StartupTimedOut
		}
	}

	switch {
	case in.Actor == actor.StatusError:
		return ActorError
	case in.Profile == ProfileFailed:
		return ProfileError
	case in.Actor == actor.StatusFetching || in.Actor == actor.StatusIdle:
		return ConnectingToBackend
	case in.Profile == ProfileLoading:
		return LoadingProfile
	case in.ProfileEmpty:
		return ProfileSetupRequired
	}
	return Ready
}
