// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the hearth binaries.
//
// The variables are injected at build time with -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/hearth/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without injection they read "unknown" and "0.1.0-dev". Every binary
// prints [Info] for --version, and diagnostics bundles record [Short]
// plus the commit.
package version
