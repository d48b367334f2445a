// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte keyed BLAKE3 digest. All Oxbow content
// identifiers (member IDs, ban IDs, message IDs) are this size.
type Hash [32]byte

// Domain selects the keyed-hash domain for Sum. Domain separation
// ensures the same input bytes produce different identifiers in
// different contexts, preventing cross-domain collisions.
type Domain [32]byte

// Domain keys. These are protocol constants — changing them
// invalidates every identifier already derived in that domain. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes, which keeps the keys inspectable in hex dumps without
// sacrificing any cryptographic property (BLAKE3 keyed mode treats
// the key as an opaque 32-byte value).
var (
	// DomainMember derives member identifiers from Ed25519 verifying
	// key bytes.
	DomainMember = Domain{
		'o', 'x', 'b', 'o', 'w', '.', 'r', 'o', 'o', 'm', '.',
		'm', 'e', 'm', 'b', 'e', 'r', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	// DomainRecord derives record identifiers (ban IDs, message IDs)
	// from signature bytes.
	DomainRecord = Domain{
		'o', 'x', 'b', 'o', 'w', '.', 'r', 'o', 'o', 'm', '.',
		'r', 'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Sum computes the keyed BLAKE3 digest of data in the given domain.
func Sum(domain Domain, data []byte) Hash {
	// NewKeyed requires exactly 32 bytes, which Domain guarantees.
	// The error is only returned for wrong key length, so this cannot
	// fail with our fixed-size type.
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("signing: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// FormatHash returns the hex-encoded string representation of a hash.
// This is the canonical format used in error messages, logs, and CLI
// output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}
