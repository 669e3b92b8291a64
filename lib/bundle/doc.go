// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle records a startup run and writes it as a diagnostics
// bundle that a support engineer can read back.
//
// A bundle file is a short binary header followed by a CBOR document:
//
//	magic       8 bytes   "HEARTHDX"
//	version     1 byte    formatVersion
//	compression 1 byte    Compression tag
//	size        uvarint   length of the uncompressed CBOR document
//	payload     ...       the CBOR document, compressed per the tag
//
// The CBOR document is a [Bundle]: a uuid run ID, the build version,
// the timeouts in effect, the standalone health probe result, and every
// snapshot the orchestrator published, each with the time it arrived.
package bundle
