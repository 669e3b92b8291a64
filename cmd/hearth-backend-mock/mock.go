// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/version"
)

// mode selects how the mock misbehaves.
type mode string

const (
	modeNormal mode = "normal"

	// modeStopped answers anonymous calls but rejects authenticated
	// sessions the way the backend manager rejects calls to a stopped
	// backend.
	modeStopped mode = "stopped"

	// modeUnauthorized accepts sessions but refuses profile reads.
	modeUnauthorized mode = "unauthorized"
)

func parseMode(name string) (mode, error) {
	switch m := mode(name); m {
	case modeNormal, modeStopped, modeUnauthorized:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want normal, stopped, or unauthorized)", name)
}

// options configure a backendMock.
type options struct {
	Endpoint string
	Mode     mode

	// ConnectDelay holds every authenticated hello this long.
	ConnectDelay time.Duration

	// ProbeDelay holds every health check this long.
	ProbeDelay time.Duration

	// Token, when set, is the only token accepted.
	Token string

	EmptyProfile  bool
	LegacyActions bool
	Profile       backend.Profile
}

// backendMock serves the hearth socket protocol from memory.
type backendMock struct {
	options options
	clock   clock.Clock
	logger  *slog.Logger

	hellos         atomic.Int64
	healthChecks   atomic.Int64
	profileReads   atomic.Int64
	secondaryInits atomic.Int64

	initOnce sync.Once
}

func newBackendMock(opts options, clk clock.Clock, logger *slog.Logger) *backendMock {
	if clk == nil {
		clk = clock.Real()
	}
	return &backendMock{options: opts, clock: clk, logger: logger}
}

// register installs the mock's handlers on server.
func (m *backendMock) register(server *backend.Server) {
	server.Handle(backend.ActionHello, m.handleHello)
	server.Handle(backend.ActionHealthCheck, m.handleHealthCheck)

	profile, secondaryInit := 0, 0
	if m.options.LegacyActions {
		profile, secondaryInit = 1, 1
	}
	server.Handle(backend.CallerProfileMethod.Actions[profile], m.handleProfile)
	server.Handle(backend.SecondaryInitMethod.Actions[secondaryInit], m.handleSecondaryInit)
}

func (m *backendMock) handleHello(ctx context.Context, raw []byte) (any, error) {
	m.hellos.Add(1)
	var request backend.HelloRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, err
	}
	if request.Endpoint != "" && request.Endpoint != m.options.Endpoint {
		return nil, fmt.Errorf("endpoint %s not found", request.Endpoint)
	}

	if request.Token != "" {
		if err := m.wait(ctx, m.options.ConnectDelay); err != nil {
			return nil, err
		}
		if m.options.Mode == modeStopped {
			return nil, fmt.Errorf("IC0508: backend %s is stopped", m.options.Endpoint)
		}
		if err := m.checkToken(request.Token); err != nil {
			return nil, err
		}
	}
	return backend.HelloReply{Endpoint: m.options.Endpoint, Version: version.Short()}, nil
}

func (m *backendMock) handleHealthCheck(ctx context.Context, _ []byte) (any, error) {
	m.healthChecks.Add(1)
	if err := m.wait(ctx, m.options.ProbeDelay); err != nil {
		return nil, err
	}
	return backend.HealthStatus{
		Message:   "Backend " + m.options.Endpoint + " is reachable",
		Timestamp: m.clock.Now().UnixNano(),
	}, nil
}

func (m *backendMock) handleProfile(_ context.Context, raw []byte) (any, error) {
	m.profileReads.Add(1)
	var request backend.Request
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, err
	}
	if request.Token == "" {
		return nil, errors.New("anonymous callers may not read profiles")
	}
	if err := m.checkToken(request.Token); err != nil {
		return nil, err
	}
	if m.options.Mode == modeUnauthorized {
		return nil, errors.New("caller is not authorized to read profiles")
	}
	if m.options.EmptyProfile {
		return backend.ProfileReply{}, nil
	}
	profile := m.options.Profile
	return backend.ProfileReply{Profile: &profile}, nil
}

func (m *backendMock) handleSecondaryInit(_ context.Context, raw []byte) (any, error) {
	m.secondaryInits.Add(1)
	var request backend.SecondaryInitRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, err
	}
	if request.SecondaryToken == "" {
		return nil, errors.New("missing required field: secondary_token")
	}
	first := false
	m.initOnce.Do(func() { first = true })
	if !first {
		return nil, errors.New("access control already initialized")
	}
	m.logger.Info("access control initialized")
	return nil, nil
}

func (m *backendMock) checkToken(token string) error {
	if m.options.Token != "" && token != m.options.Token {
		return errors.New("caller is not authorized: unknown token")
	}
	return nil
}

// wait sleeps for delay or until ctx ends.
func (m *backendMock) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-m.clock.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
