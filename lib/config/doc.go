// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads hearth's configuration.
//
// Three sources feed a running client:
//
//   - A YAML file named by --config or HEARTH_CONFIG. It holds the
//     startup timeouts, the session file location, and the telemetry
//     listener. Without one, [Default] applies.
//   - The process environment, read once at startup, which identifies
//     the backend (network, address, endpoint) and optionally carries
//     a secondary-init token. See [ResolveBackend].
//   - An optional JSONC metadata file consulted only when the
//     environment does not name a backend address. [MetadataSource]
//     owns that file and its cache.
//
// Missing backend settings resolve to [Unknown] rather than a default,
// so diagnostics can tell "not configured" apart from "configured but
// unreachable".
package config
