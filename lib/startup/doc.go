// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package startup decides, moment to moment, what the client is doing
// while it comes up: bootstrapping identity, connecting, loading the
// profile, degraded, failed, or ready.
//
// [Select] is the pure precedence function from inputs to [Phase].
// [Orchestrator] owns the inputs. It is an event-driven state machine
// run by a single goroutine: identity changes, operation results,
// timer fires, and user actions arrive as events, each event mutates
// the state bundle, and after every batch of events the orchestrator
// recomputes the phase, launches whatever work the new state calls
// for, and publishes a [Snapshot] if anything visible changed.
//
// Every startup attempt has a generation. Operation results carry the
// generation they were launched for; results from a superseded
// generation are discarded, and the superseded operations' contexts
// are cancelled. Retries that arrive in one batch launch one set of
// operations.
//
// Three timers run while an attempt is waiting: an early health-check
// trigger, a fail-fast escalation to [SlowBackend] when the backend is
// known to be reachable, and a watchdog that guarantees a terminal
// phase. All three are stopped and forgotten when the phase leaves the
// waiting set.
package startup
