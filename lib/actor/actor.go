// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package actor builds the backend connection for a startup attempt.
//
// Only a failure to build the connection is terminal. The secondary
// access-control bootstrap that follows is best effort: its failures
// are classified and logged, and the connection is returned either
// way, since the backend enforces its own permissions.
//
// The manager remembers one result, keyed by the principal's
// fingerprint. A different principal never sees it.
package actor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/deadline"
	"github.com/bureau-foundation/hearth/lib/failure"
	"github.com/bureau-foundation/hearth/lib/identity"
)

// Status is the connection state exposed to the orchestrator.
type Status string

const (
	// StatusIdle means no connection and no attempt in progress. A
	// connector that returns neither a connection nor an error leaves
	// the manager idle.
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// Result is the outcome of one Connect. Results are never mutated
// after Connect returns them.
type Result struct {
	Status     Status
	Connection backend.Connection

	// Err and Category are set iff Status is StatusError.
	Err      error
	Category failure.Category
}

// Config wires a Manager.
type Config struct {
	Connector backend.Connector
	Clock     clock.Clock
	Logger    *slog.Logger

	// ActorCreation bounds Connector.Connect.
	ActorCreation time.Duration

	// SecondaryInit bounds the bootstrap call.
	SecondaryInit time.Duration

	// SecondaryInitToken enables the bootstrap call when non-empty.
	SecondaryInitToken string
}

// Manager connects to the backend and tracks the current connection.
type Manager struct {
	config Config

	mu          sync.Mutex
	epoch       uint64
	fingerprint string
	current     *Result
}

// NewManager returns a Manager. A nil Clock means the real clock.
func NewManager(config Config) *Manager {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{config: config}
}

// Connect builds a connection for id, authenticated when id carries a
// token and anonymous otherwise. It never returns StatusFetching.
func (m *Manager) Connect(ctx context.Context, id identity.Identity) Result {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	fingerprint := identity.Fingerprint(id.Principal)
	logger := m.config.Logger.With("principal", fingerprint)

	var credentials *backend.Credentials
	if id.Token != "" {
		credentials = &backend.Credentials{Principal: id.Principal, Token: id.Token}
	}

	connection, err := deadline.Run(ctx, m.config.Clock, m.config.ActorCreation, "creating backend connection",
		func(ctx context.Context) (backend.Connection, error) {
			return m.config.Connector.Connect(ctx, credentials)
		})

	var result Result
	switch {
	case err != nil:
		category := failure.Classify(err)
		logger.Warn("backend connection failed", "category", category, "error", err)
		result = Result{Status: StatusError, Err: err, Category: category}
	case connection == nil:
		logger.Warn("backend connector returned no connection")
		result = Result{Status: StatusIdle}
	default:
		m.secondaryInit(ctx, connection, logger)
		result = Result{Status: StatusReady, Connection: connection}
	}

	m.mu.Lock()
	if m.epoch == epoch {
		m.fingerprint = fingerprint
		m.current = &result
	}
	m.mu.Unlock()
	return result
}

func (m *Manager) secondaryInit(ctx context.Context, connection backend.Connection, logger *slog.Logger) {
	token := m.config.SecondaryInitToken
	if token == "" {
		return
	}
	_, err := deadline.Run(ctx, m.config.Clock, m.config.SecondaryInit, "initializing access control",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, connection.SecondaryInit(ctx, token)
		})
	if err == nil {
		logger.Info("access control initialized")
		return
	}
	if category := failure.Classify(err); category == failure.NonFatal {
		logger.Debug("access control already set up", "error", err)
	} else {
		logger.Warn("access control bootstrap failed, continuing", "category", category, "error", err)
	}
}

// Current returns the stored result for principal. It reports false
// when nothing is stored or the stored result belongs to someone else.
func (m *Manager) Current(principal string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.fingerprint != identity.Fingerprint(principal) {
		return Result{}, false
	}
	return *m.current, true
}

// Invalidate drops the stored result. A Connect already in flight will
// not store its result.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.fingerprint = ""
	m.current = nil
}
