// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"crypto/ed25519"
	"fmt"
)

// Parameters are the immutable per-room inputs fixed at room creation.
// They are distributed alongside the state but never travel through
// the delta mechanism and are never mutated; every verification reads
// them as context.
type Parameters struct {
	// Owner is the Ed25519 verifying key of the room owner. The owner
	// anchors every invite chain and signs configuration and upgrade
	// records.
	Owner ed25519.PublicKey `cbor:"1,keyasint"`
}

// Validate checks that the parameters are well-formed.
func (p *Parameters) Validate() error {
	if len(p.Owner) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: owner key is %d bytes, want %d",
			ErrIntegrity, len(p.Owner), ed25519.PublicKeySize)
	}
	return nil
}

// OwnerID returns the member identifier derived from the owner's
// verifying key.
func (p *Parameters) OwnerID() MemberID {
	return NewMemberID(p.Owner)
}
