// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backendtest provides in-memory backend doubles for tests.
package backendtest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/hearth/lib/backend"
)

// Connector is a backend.Connector whose behavior is a function. A nil
// ConnectFunc connects successfully to a zero Connection.
type Connector struct {
	ConnectFunc func(ctx context.Context, credentials *backend.Credentials) (backend.Connection, error)

	calls atomic.Int64

	mu          sync.Mutex
	credentials []*backend.Credentials
}

func (c *Connector) Connect(ctx context.Context, credentials *backend.Credentials) (backend.Connection, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.credentials = append(c.credentials, credentials)
	c.mu.Unlock()
	if c.ConnectFunc == nil {
		return &Connection{}, nil
	}
	return c.ConnectFunc(ctx, credentials)
}

// Calls returns how many times Connect was called.
func (c *Connector) Calls() int {
	return int(c.calls.Load())
}

// Credentials returns the credentials passed to each Connect call.
func (c *Connector) Credentials() []*backend.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*backend.Credentials(nil), c.credentials...)
}

// Connection is a backend.Connection whose methods are functions. Nil
// functions succeed with zero values; a nil ProfileFunc returns no
// profile.
type Connection struct {
	HealthCheckFunc   func(ctx context.Context) (backend.HealthStatus, error)
	ProfileFunc       func(ctx context.Context) (*backend.Profile, error)
	SecondaryInitFunc func(ctx context.Context, token string) error

	healthChecks   atomic.Int64
	profileCalls   atomic.Int64
	secondaryInits atomic.Int64
}

func (c *Connection) HealthCheck(ctx context.Context) (backend.HealthStatus, error) {
	c.healthChecks.Add(1)
	if c.HealthCheckFunc == nil {
		return backend.HealthStatus{}, nil
	}
	return c.HealthCheckFunc(ctx)
}

func (c *Connection) CallerProfile(ctx context.Context) (*backend.Profile, error) {
	c.profileCalls.Add(1)
	if c.ProfileFunc == nil {
		return nil, nil
	}
	return c.ProfileFunc(ctx)
}

func (c *Connection) SecondaryInit(ctx context.Context, token string) error {
	c.secondaryInits.Add(1)
	if c.SecondaryInitFunc == nil {
		return nil
	}
	return c.SecondaryInitFunc(ctx, token)
}

// HealthChecks returns how many times HealthCheck was called.
func (c *Connection) HealthChecks() int { return int(c.healthChecks.Load()) }

// ProfileCalls returns how many times CallerProfile was called.
func (c *Connection) ProfileCalls() int { return int(c.profileCalls.Load()) }

// SecondaryInits returns how many times SecondaryInit was called.
func (c *Connection) SecondaryInits() int { return int(c.secondaryInits.Load()) }

// Hang blocks until ctx ends and returns its error. Use it as the body
// of a function field to model a backend that never answers.
func Hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
