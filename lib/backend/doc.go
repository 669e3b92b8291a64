// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the call surface of the care-home backend.
//
// The startup core consumes the backend only through [Connector] and
// [Connection]. The production implementation speaks a CBOR
// request/response protocol over a Unix socket: each call opens a
// connection, writes one request map carrying an "action" field, reads
// one {ok, error, data} envelope, and closes. [Server] is the matching
// listener used by the mock backend and by tests.
//
// Backends from different releases name some actions differently.
// Each logical method carries an ordered list of action names; the
// connection tries them in order, skips any the backend rejects as an
// unknown action, and remembers the first one that worked.
package backend
