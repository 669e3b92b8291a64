// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintKey is the BLAKE3 domain key for principal fingerprints:
// ASCII "hearth.principal" zero-padded to 32 bytes.
var fingerprintKey = [32]byte{
	'h', 'e', 'a', 'r', 't', 'h', '.', 'p', 'r', 'i', 'n', 'c', 'i', 'p', 'a', 'l',
}

// fingerprintBytes is how much of the digest a fingerprint keeps.
const fingerprintBytes = 8

// Fingerprint returns a short stable identifier for principal that is
// safe to log. The empty principal fingerprints to "".
func Fingerprint(principal string) string {
	if principal == "" {
		return ""
	}
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("identity: BLAKE3 keyed hasher: " + err.Error())
	}
	hasher.Write([]byte(principal))
	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:fingerprintBytes])
}
