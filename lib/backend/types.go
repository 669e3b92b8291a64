// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "context"

// Profile is the signed-in caller's profile. A backend that knows the
// caller but has no profile for them returns no profile and no error.
type Profile struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	CareHome string `json:"care_home"`
}

// HealthStatus is the liveness reply. Both fields are optional.
// Timestamp is backend time in Unix nanoseconds.
type HealthStatus struct {
	Message   string `cbor:"message,omitempty"`
	Timestamp int64  `cbor:"timestamp,omitempty"`
}

// Credentials identify the caller. A nil *Credentials, or one with an
// empty Token, connects anonymously.
type Credentials struct {
	Principal string
	Token     string
}

// Anonymous reports whether c carries no usable token.
func (c *Credentials) Anonymous() bool {
	return c == nil || c.Token == ""
}

// Connector builds connections. Implementations may block on the
// network and must honor ctx.
type Connector interface {
	Connect(ctx context.Context, credentials *Credentials) (Connection, error)
}

// Connection is a live client handle. Methods are safe for concurrent
// use.
type Connection interface {
	// HealthCheck is safe to call anonymously.
	HealthCheck(ctx context.Context) (HealthStatus, error)

	// CallerProfile returns nil, nil when the caller has no profile.
	CallerProfile(ctx context.Context) (*Profile, error)

	// SecondaryInit runs the best-effort access-control bootstrap.
	// Backends that already ran it answer "already initialized".
	SecondaryInit(ctx context.Context, token string) error
}
