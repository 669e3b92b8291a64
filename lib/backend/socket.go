// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoAddress is returned by Connect when no backend address is
// configured. Its text classifies as not-found.
var ErrNoAddress = errors.New("backend address not found in environment or metadata")

// ErrNoCompatibleAction is returned when a backend rejects every action
// name of a method.
var ErrNoCompatibleAction = errors.New("backend does not implement any known action name")

// SocketConnector connects to a backend over its Unix socket.
type SocketConnector struct {
	// Address is the socket path. Empty means not configured.
	Address string

	// Endpoint names the backend instance. Sent in the hello
	// handshake; a backend serving a different endpoint refuses it.
	Endpoint string

	Logger *slog.Logger
}

// Connect performs the hello handshake and returns a connection bound
// to credentials.
func (c *SocketConnector) Connect(ctx context.Context, credentials *Credentials) (Connection, error) {
	if c.Address == "" {
		return nil, ErrNoAddress
	}

	var token, principal string
	if !credentials.Anonymous() {
		token = credentials.Token
		principal = credentials.Principal
	}
	client := NewClient(c.Address, token)

	fields := map[string]any{}
	if c.Endpoint != "" {
		fields["endpoint"] = c.Endpoint
	}
	if principal != "" {
		fields["principal"] = principal
	}

	var reply HelloReply
	if err := client.Call(ctx, ActionHello, fields, &reply); err != nil {
		return nil, fmt.Errorf("connecting to backend: %w", err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("backend hello",
		"endpoint", reply.Endpoint,
		"version", reply.Version,
		"anonymous", token == "",
	)

	return &socketConnection{
		client: client,
		logger: logger,
		chosen: make(map[string]string),
	}, nil
}

type socketConnection struct {
	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	chosen map[string]string // method name → action that worked
}

func (c *socketConnection) HealthCheck(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := c.client.Call(ctx, ActionHealthCheck, nil, &status); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}

func (c *socketConnection) CallerProfile(ctx context.Context) (*Profile, error) {
	var reply ProfileReply
	if err := c.invoke(ctx, CallerProfileMethod, nil, &reply); err != nil {
		return nil, err
	}
	return reply.Profile, nil
}

func (c *socketConnection) SecondaryInit(ctx context.Context, token string) error {
	return c.invoke(ctx, SecondaryInitMethod, map[string]any{"secondary_token": token}, nil)
}

// invoke calls method using the remembered action name, or walks the
// action list until the backend accepts one.
func (c *socketConnection) invoke(ctx context.Context, method Method, fields map[string]any, result any) error {
	c.mu.Lock()
	action, known := c.chosen[method.Name]
	c.mu.Unlock()
	if known {
		return c.client.Call(ctx, action, fields, result)
	}

	for _, candidate := range method.Actions {
		err := c.client.Call(ctx, candidate, fields, result)
		if IsUnknownAction(err) {
			c.logger.Debug("backend lacks action, trying next",
				"method", method.Name,
				"action", candidate,
			)
			continue
		}
		// Any reply other than "unknown action" proves the backend
		// implements this name, including an error reply.
		var serviceError *ServiceError
		if err == nil || errors.As(err, &serviceError) {
			c.mu.Lock()
			c.chosen[method.Name] = candidate
			c.mu.Unlock()
		}
		return err
	}
	return fmt.Errorf("%s: tried %v: %w", method.Name, method.Actions, ErrNoCompatibleAction)
}

// ChosenAction returns the action name a connection settled on for
// method, if any. Connections not built by SocketConnector report
// false.
func ChosenAction(connection Connection, method Method) (string, bool) {
	socket, ok := connection.(*socketConnection)
	if !ok {
		return "", false
	}
	socket.mu.Lock()
	defer socket.mu.Unlock()
	action, found := socket.chosen[method.Name]
	return action, found
}
