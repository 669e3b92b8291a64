// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deadline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type runResult struct {
	value string
	err   error
}

func startRun(ctx context.Context, clk clock.Clock, d time.Duration, op func(context.Context) (string, error)) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		value, err := Run(ctx, clk, d, "loading profile", op)
		done <- runResult{value: value, err: err}
	}()
	return done
}

func TestRunOperationWins(t *testing.T) {
	fake := clock.Fake(epoch)
	value, err := Run(context.Background(), fake, 15*time.Second, "loading profile",
		func(context.Context) (string, error) { return "profile", nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if value != "profile" {
		t.Errorf("value = %q, want %q", value, "profile")
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("PendingCount() = %d after op won, want 0", pending)
	}
}

func TestRunOperationErrorPassesThrough(t *testing.T) {
	fake := clock.Fake(epoch)
	sentinel := errors.New("Canister is stopped")
	_, err := Run(context.Background(), fake, time.Second, "connecting",
		func(context.Context) (string, error) { return "", sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
	var timeout *Error
	if errors.As(err, &timeout) {
		t.Fatal("op error was reported as a timeout")
	}
}

func TestRunDeadlineWins(t *testing.T) {
	fake := clock.Fake(epoch)
	release := make(chan struct{})
	var opCtx context.Context
	captured := make(chan struct{})

	done := startRun(context.Background(), fake, 15*time.Second, func(ctx context.Context) (string, error) {
		opCtx = ctx
		close(captured)
		<-release
		return "late", nil
	})

	fake.WaitForTimers(1)
	fake.Advance(15 * time.Second)
	result := testutil.RequireReceive(t, done, time.Second, "waiting for Run to time out")

	var timeout *Error
	if !errors.As(result.err, &timeout) {
		t.Fatalf("err = %v, want *deadline.Error", result.err)
	}
	if timeout.Message != "loading profile" || timeout.After != 15*time.Second {
		t.Errorf("Error = %+v", timeout)
	}
	if result.value != "" {
		t.Errorf("value = %q on timeout, want zero", result.value)
	}

	<-captured
	select {
	case <-opCtx.Done():
	default:
		t.Error("op context not cancelled after losing the race")
	}

	// The late result goes nowhere observable.
	close(release)
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("PendingCount() = %d, want 0", pending)
	}
}

func TestRunNotTimedOutBeforeDeadline(t *testing.T) {
	fake := clock.Fake(epoch)
	release := make(chan struct{})
	done := startRun(context.Background(), fake, 10*time.Second, func(context.Context) (string, error) {
		<-release
		return "reachable", nil
	})

	fake.WaitForTimers(1)
	fake.Advance(9 * time.Second)
	close(release)

	result := testutil.RequireReceive(t, done, time.Second, "waiting for Run")
	if result.err != nil || result.value != "reachable" {
		t.Fatalf("Run = (%q, %v), want (reachable, nil)", result.value, result.err)
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("PendingCount() = %d, want 0", pending)
	}
}

func TestRunContextCancelled(t *testing.T) {
	fake := clock.Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	done := startRun(ctx, fake, time.Minute, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	fake.WaitForTimers(1)
	cancel()
	result := testutil.RequireReceive(t, done, time.Second, "waiting for Run after cancel")
	if !errors.Is(result.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", result.err)
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("PendingCount() = %d, want 0", pending)
	}
}

func TestErrorIsDeadlineExceeded(t *testing.T) {
	err := error(&Error{Message: "probing backend", After: 10 * time.Second})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false")
	}
	var timeout interface{ Timeout() bool }
	if !errors.As(err, &timeout) || !timeout.Timeout() {
		t.Error("Error does not report Timeout()")
	}
	if got, want := err.Error(), "probing backend (timed out after 10s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
