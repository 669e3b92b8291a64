// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/backend/backendtest"
	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/failure"
	"github.com/bureau-foundation/hearth/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func connectorFor(connection *backendtest.Connection) *backendtest.Connector {
	return &backendtest.Connector{
		ConnectFunc: func(_ context.Context, credentials *backend.Credentials) (backend.Connection, error) {
			if credentials != nil {
				return nil, errors.New("probe must connect anonymously")
			}
			return connection, nil
		},
	}
}

func TestProbePassed(t *testing.T) {
	connection := &backendtest.Connection{
		HealthCheckFunc: func(context.Context) (backend.HealthStatus, error) {
			return backend.HealthStatus{Message: "all canisters running", Timestamp: 1772352006000000000}, nil
		},
	}
	prober := NewProber(connectorFor(connection), clock.Fake(epoch), 10*time.Second, nil)

	result := prober.Probe(context.Background())
	if result.Status != StatusPassed || result.Message != "all canisters running" {
		t.Fatalf("Probe = %+v", result)
	}
	if want := time.Unix(0, 1772352006000000000).UTC(); !result.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", result.Timestamp, want)
	}
}

func TestProbePassedDefaultMessage(t *testing.T) {
	prober := NewProber(connectorFor(&backendtest.Connection{}), clock.Fake(epoch), 10*time.Second, nil)
	result := prober.Probe(context.Background())
	if result.Status != StatusPassed || result.Message != ReachableMessage {
		t.Fatalf("Probe = %+v", result)
	}
	if !result.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", result.Timestamp)
	}
}

func TestProbeFailed(t *testing.T) {
	tests := []struct {
		name     string
		connect  error
		health   error
		category failure.Category
	}{
		{"connect refused", errors.New("dial unix: connection refused"), nil, failure.Network},
		{"health stopped", nil, errors.New("Canister x is stopped"), failure.StoppedBackend},
		{"health timeout reply", nil, errors.New("upstream timed out"), failure.Timeout},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			connector := &backendtest.Connector{
				ConnectFunc: func(context.Context, *backend.Credentials) (backend.Connection, error) {
					if test.connect != nil {
						return nil, test.connect
					}
					return &backendtest.Connection{
						HealthCheckFunc: func(context.Context) (backend.HealthStatus, error) {
							return backend.HealthStatus{}, test.health
						},
					}, nil
				},
			}
			result := NewProber(connector, clock.Fake(epoch), 10*time.Second, nil).Probe(context.Background())

			wantStatus := StatusFailed
			if test.category == failure.Timeout {
				wantStatus = StatusTimedOut
			}
			if result.Status != wantStatus || result.Category != test.category {
				t.Fatalf("Probe = %+v, want %s/%s", result, wantStatus, test.category)
			}
			if result.Message == "" {
				t.Error("failed probe has no message")
			}
		})
	}
}

func TestProbeNilConnectionFails(t *testing.T) {
	connector := &backendtest.Connector{
		ConnectFunc: func(context.Context, *backend.Credentials) (backend.Connection, error) {
			return nil, nil
		},
	}
	result := NewProber(connector, clock.Fake(epoch), 10*time.Second, nil).Probe(context.Background())
	if result.Status != StatusFailed {
		t.Fatalf("Probe = %+v, want failed", result)
	}
}

func TestProbeDeadline(t *testing.T) {
	fake := clock.Fake(epoch)
	connector := &backendtest.Connector{
		ConnectFunc: func(ctx context.Context, _ *backend.Credentials) (backend.Connection, error) {
			return nil, backendtest.Hang(ctx)
		},
	}
	prober := NewProber(connector, fake, 10*time.Second, nil)

	done := make(chan Result, 1)
	go func() { done <- prober.Probe(context.Background()) }()
	fake.WaitForTimers(1)
	fake.Advance(10 * time.Second)

	result := testutil.RequireReceive(t, done, 5*time.Second, "probe to time out")
	if result.Status != StatusTimedOut || result.Category != failure.Timeout {
		t.Fatalf("Probe = %+v, want timed out", result)
	}
}

func TestProbeConcurrent(t *testing.T) {
	connection := &backendtest.Connection{}
	prober := NewProber(connectorFor(connection), clock.Fake(epoch), 10*time.Second, nil)

	var group sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		group.Add(1)
		go func() {
			defer group.Done()
			results[i] = prober.Probe(context.Background())
		}()
	}
	group.Wait()

	for i, result := range results {
		if result.Status != StatusPassed {
			t.Errorf("probe %d = %+v", i, result)
		}
	}
	if connection.HealthChecks() != len(results) {
		t.Errorf("HealthChecks = %d, want %d", connection.HealthChecks(), len(results))
	}
}
