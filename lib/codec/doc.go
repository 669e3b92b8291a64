// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the backend
// socket protocol and the diagnostics bundle format.
//
// Encoding is Core Deterministic (RFC 8949 §4.2), so a snapshot history
// encodes to the same bytes on every run. Timestamps are written as
// RFC 3339 strings with nanoseconds; the default integer form would
// drop the sub-second part of attempt start times.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Socket code streams instead:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire types use `cbor` struct tags. Types that also appear in
// `hearth status` JSON output use `json` tags only; fxamacker/cbor
// falls back to them when no `cbor` tag is present.
package codec
