// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] bound channel waits with a real
// wall-clock timeout so a broken orchestrator fails the test instead of
// hanging it. They are the only place tests touch the real clock;
// everything under test runs on clock.Fake.
//
// [SocketPath] returns a short socket path under /tmp. Unix socket
// paths are limited to 108 bytes, which t.TempDir() can exceed.
package testutil
