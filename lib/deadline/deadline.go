// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deadline races an operation against a clock-driven deadline.
//
// The race does not cancel the operation. The context handed to op is
// cancelled when Run returns, which well-behaved operations treat as a
// hint to stop early, but a result that arrives after the deadline is
// dropped on the floor regardless of whether op noticed.
package deadline

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/hearth/lib/clock"
)

// Error is returned by Run when the deadline wins the race.
type Error struct {
	// Message is the caller-supplied description of what timed out.
	Message string

	// After is the deadline that elapsed.
	After time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (timed out after %s)", e.Message, e.After)
}

// Timeout reports true, matching the net.Error convention so callers
// can test for timeouts without importing this package.
func (e *Error) Timeout() bool { return true }

// Is makes errors.Is(err, context.DeadlineExceeded) hold for a lost
// race.
func (e *Error) Is(target error) bool {
	return target == context.DeadlineExceeded
}

type outcome[T any] struct {
	value T
	err   error
}

// Run calls op and returns whatever it returns if it finishes within
// d. Otherwise Run returns a *Error carrying message. If ctx ends
// first, Run returns ctx.Err().
//
// The deadline timer is stopped before Run returns on every path.
func Run[T any](ctx context.Context, clk clock.Clock, d time.Duration, message string, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so a late op can always deliver and exit.
	results := make(chan outcome[T], 1)
	go func() {
		value, err := op(opCtx)
		results <- outcome[T]{value: value, err: err}
	}()

	expired := make(chan struct{})
	timer := clk.AfterFunc(d, func() { close(expired) })
	defer timer.Stop()

	var zero T
	select {
	case result := <-results:
		return result.value, result.err
	case <-expired:
		// A result may have landed in the same instant; prefer it.
		select {
		case result := <-results:
			return result.value, result.err
		default:
		}
		return zero, &Error{Message: message, After: d}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
