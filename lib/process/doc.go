// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the hearth
// binaries: reporting the error from run() before a structured logger
// exists, and choosing the exit code.
package process
