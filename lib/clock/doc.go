// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every timed decision the
// client makes during startup: operation deadlines, the early health
// check, the fail-fast escalation, and the overall watchdog.
//
// Library code never calls time.Now, time.After, or time.AfterFunc
// directly. It holds a [Clock] and production wiring passes [Real].
// Tests pass [Fake] and move time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
//	orchestrator := startup.New(startup.Config{Clock: fake, ...})
//	go orchestrator.Run(ctx)
//	fake.WaitForTimers(3)          // early check, fail-fast, watchdog
//	fake.Advance(15 * time.Second) // fires early check and fail-fast
//
// WaitForTimers closes the gap between a goroutine registering a
// timer and the test advancing past it, so tests never sleep.
package clock
