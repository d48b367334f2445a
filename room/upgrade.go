// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"crypto/ed25519"
	"fmt"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// Upgrade is the owner's pointer to a successor room. Publishing one
// signals that this room is superseded and peers should migrate to
// the address given.
type Upgrade struct {
	// Owner is the member ID of the room owner; binds the record to
	// one room.
	Owner MemberID `cbor:"1,keyasint"`

	// Version orders upgrade records. Must be at least 1; the highest
	// version observed wins.
	Version uint32 `cbor:"2,keyasint"`

	// Address identifies the successor room. Opaque to the state
	// core — typically the content address of the new room's
	// parameters.
	Address []byte `cbor:"3,keyasint"`
}

// AuthorizedUpgrade is an Upgrade signed by the room owner.
type AuthorizedUpgrade struct {
	Upgrade   Upgrade           `cbor:"1,keyasint"`
	Signature signing.Signature `cbor:"2,keyasint"`
}

// NewAuthorizedUpgrade signs upgrade with the owner's private key.
func NewAuthorizedUpgrade(upgrade Upgrade, ownerKey ed25519.PrivateKey) (AuthorizedUpgrade, error) {
	signature, err := signing.Sign(upgrade, ownerKey)
	if err != nil {
		return AuthorizedUpgrade{}, fmt.Errorf("signing upgrade: %w", err)
	}
	return AuthorizedUpgrade{Upgrade: upgrade, Signature: signature}, nil
}

// OptionalUpgrade holds the room's upgrade pointer, if any. Most
// rooms never publish one; absence is valid state.
type OptionalUpgrade struct {
	Record *AuthorizedUpgrade `cbor:"1,keyasint,omitempty"`
}

// UpgradeSummary is the upgrade version a peer holds; 0 means none.
type UpgradeSummary uint32

var _ Composable[State, Parameters, UpgradeSummary, *AuthorizedUpgrade] = (*OptionalUpgrade)(nil)

// Verify checks the owner signature, room binding, and version of the
// upgrade record, if one is present.
func (u *OptionalUpgrade) Verify(parent *State, params *Parameters) error {
	if u.Record == nil {
		return nil
	}
	if u.Record.Upgrade.Version == 0 {
		return fmt.Errorf("%w: upgrade version 0", ErrIntegrity)
	}
	if u.Record.Upgrade.Owner != params.OwnerID() {
		return fmt.Errorf("%w: upgrade bound to different room owner %s",
			ErrIntegrity, u.Record.Upgrade.Owner)
	}
	if err := signing.Verify(u.Record.Upgrade, u.Record.Signature, params.Owner); err != nil {
		return fmt.Errorf("%w: upgrade signature: %v", ErrAuthorization, err)
	}
	return nil
}

// Summarize returns the upgrade version held; 0 when none.
func (u *OptionalUpgrade) Summarize(parent *State, params *Parameters) UpgradeSummary {
	if u.Record == nil {
		return 0
	}
	return UpgradeSummary(u.Record.Upgrade.Version)
}

// Delta returns the local upgrade record when it is newer than the
// peer's version, and false otherwise.
func (u *OptionalUpgrade) Delta(parent *State, params *Parameters, old UpgradeSummary) (*AuthorizedUpgrade, bool) {
	if u.Record == nil || u.Record.Upgrade.Version <= uint32(old) {
		return nil, false
	}
	record := *u.Record
	return &record, true
}

// ApplyDelta installs the incoming upgrade record when it is strictly
// newer than the one held (or when none is held) and verifies. A
// stale or equal-version record is an error.
func (u *OptionalUpgrade) ApplyDelta(parent *State, params *Parameters, delta *AuthorizedUpgrade) error {
	if delta == nil {
		return nil
	}
	if u.Record != nil && delta.Upgrade.Version <= u.Record.Upgrade.Version {
		return fmt.Errorf("%w: stale upgrade delta: version %d, have %d",
			ErrIntegrity, delta.Upgrade.Version, u.Record.Upgrade.Version)
	}

	record := *delta
	candidate := OptionalUpgrade{Record: &record}
	candidateParent := *parent
	candidateParent.Upgrade = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying upgrade delta: %w", err)
	}

	u.Record = &record
	return nil
}

// Clone returns a deep copy of the upgrade slot.
func (u *OptionalUpgrade) Clone() OptionalUpgrade {
	if u.Record == nil {
		return OptionalUpgrade{}
	}
	record := *u.Record
	return OptionalUpgrade{Record: &record}
}
