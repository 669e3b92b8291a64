// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package health probes backend liveness without credentials.
package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/deadline"
	"github.com/bureau-foundation/hearth/lib/failure"
)

// Status is a probe outcome.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// ReachableMessage is reported for a passing probe when the backend
// sent no message of its own.
const ReachableMessage = "Backend is reachable"

var errNoConnection = errors.New("backend connector returned no connection")

// Result is one probe outcome.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`

	// Timestamp is the backend's clock at the time of the reply, when
	// it reported one.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Category classifies a failed or timed-out probe.
	Category failure.Category `json:"category,omitempty"`
}

// Prober runs liveness probes. Probe is safe to call concurrently.
type Prober struct {
	connector backend.Connector
	clock     clock.Clock
	timeout   time.Duration
	logger    *slog.Logger
}

// NewProber returns a prober whose every probe finishes within
// timeout.
func NewProber(connector backend.Connector, clk clock.Clock, timeout time.Duration, logger *slog.Logger) *Prober {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{connector: connector, clock: clk, timeout: timeout, logger: logger}
}

// Probe connects anonymously and asks the backend for its health. It
// never fails; problems are reported in the Result.
func (p *Prober) Probe(ctx context.Context) Result {
	status, err := deadline.Run(ctx, p.clock, p.timeout, "probing backend health",
		func(ctx context.Context) (backend.HealthStatus, error) {
			connection, err := p.connector.Connect(ctx, nil)
			if err != nil {
				return backend.HealthStatus{}, err
			}
			if connection == nil {
				return backend.HealthStatus{}, errNoConnection
			}
			return connection.HealthCheck(ctx)
		})

	if err != nil {
		classification := failure.Describe(err)
		result := Result{
			Status:   StatusFailed,
			Message:  classification.Message,
			Category: classification.Category,
		}
		if classification.Category == failure.Timeout {
			result.Status = StatusTimedOut
		}
		p.logger.Info("health probe failed",
			"status", result.Status,
			"category", result.Category,
			"error", err,
		)
		return result
	}

	result := Result{Status: StatusPassed, Message: status.Message}
	if result.Message == "" {
		result.Message = ReachableMessage
	}
	if status.Timestamp != 0 {
		result.Timestamp = time.Unix(0, status.Timestamp).UTC()
	}
	p.logger.Info("health probe passed")
	return result
}
