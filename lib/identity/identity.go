// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import "context"

// State is a point-in-time view of the provider.
type State struct {
	// Initializing is true until the provider has loaded for the first
	// time.
	Initializing bool

	// Principal is the signed-in user. Empty means signed out.
	Principal string
}

// Authenticated reports whether a principal is present after
// bootstrap.
func (s State) Authenticated() bool {
	return !s.Initializing && s.Principal != ""
}

// Identity is what a backend connection needs to act as the user.
type Identity struct {
	Principal string
	Token     string
}

// Provider is the identity collaborator.
type Provider interface {
	State() State

	// Identity returns the credentials for the current principal, or
	// false when signed out or still initializing.
	Identity() (Identity, bool)

	// Clear signs the user out.
	Clear(ctx context.Context) error

	// Changes delivers a value after any change to State. Sends are
	// coalesced; receivers re-read State rather than counting signals.
	Changes() <-chan struct{}
}

// notify performs a coalescing send on a buffered(1) channel.
func notify(changes chan struct{}) {
	select {
	case changes <- struct{}{}:
	default:
	}
}
