// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package startupui is the terminal status screen shown while the
// client starts. It renders orchestrator snapshots and turns key
// presses into Retry, Logout, and RefreshProfile calls.
//
// The model is a plain bubbletea model: snapshots arrive as messages
// from a subscription channel, log records arrive through
// [TUILogHandler], and nothing in View reads state that Update did
// not store.
package startupui
