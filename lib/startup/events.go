// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package startup

import (
	"github.com/bureau-foundation/hearth/lib/actor"
	"github.com/bureau-foundation/hearth/lib/backend"
	"github.com/bureau-foundation/hearth/lib/health"
)

// event is anything the run loop reacts to. Identity changes arrive on
// the provider's own channel rather than as events.
type event interface{ isEvent() }

type actorSettled struct {
	generation uint64
	result     actor.Result
}

type profileSettled struct {
	generation uint64
	profile    *backend.Profile
	err        error
}

type probeSettled struct {
	id     uint64
	result health.Result
}

type timerKind int

const (
	timerEarly timerKind = iota
	timerFailFast
	timerWatchdog
)

func (k timerKind) String() string {
	switch k {
	case timerEarly:
		return "early_health_check"
	case timerFailFast:
		return "fail_fast"
	case timerWatchdog:
		return "watchdog"
	}
	return "unknown"
}

type timerFired struct {
	epoch uint64
	kind  timerKind
}

type retryRequested struct{}

type logoutRequested struct{}

type logoutFailed struct{ err error }

type profileRefreshRequested struct{}

func (actorSettled) isEvent()            {}
func (profileSettled) isEvent()          {}
func (probeSettled) isEvent()            {}
func (timerFired) isEvent()              {}
func (retryRequested) isEvent()          {}
func (logoutRequested) isEvent()         {}
func (logoutFailed) isEvent()            {}
func (profileRefreshRequested) isEvent() {}
