// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"crypto/ed25519"
	"fmt"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// Configuration holds the owner-adjustable room settings. Replicated
// as a whole: a new version replaces the previous one entirely, with
// the highest version winning on merge.
type Configuration struct {
	// Owner is the member ID of the room owner; binds the record to
	// one room.
	Owner MemberID `cbor:"1,keyasint"`

	// Version orders configuration records. Must be at least 1; the
	// highest version observed wins.
	Version uint32 `cbor:"2,keyasint"`

	// Name is the display name of the room.
	Name string `cbor:"3,keyasint"`

	// MaxMembers bounds the member directory (0 = unbounded).
	MaxMembers uint32 `cbor:"4,keyasint"`

	// MaxUserBans bounds the ban log. When exceeded, the oldest bans
	// beyond the limit are invalid.
	MaxUserBans uint32 `cbor:"5,keyasint"`

	// MaxRecentMessages bounds the message window. Older messages are
	// evicted on merge, newest kept.
	MaxRecentMessages uint32 `cbor:"6,keyasint"`

	// MaxMessageSize caps message content length in bytes.
	MaxMessageSize uint32 `cbor:"7,keyasint"`

	// MaxNicknameSize caps preferred nickname length in bytes.
	MaxNicknameSize uint32 `cbor:"8,keyasint"`
}

// DefaultConfiguration returns the version-1 configuration a freshly
// created room starts from.
func DefaultConfiguration(owner MemberID) Configuration {
	return Configuration{
		Owner:             owner,
		Version:           1,
		MaxMembers:        200,
		MaxUserBans:       10,
		MaxRecentMessages: 100,
		MaxMessageSize:    1000,
		MaxNicknameSize:   50,
	}
}

// AuthorizedConfiguration is a Configuration signed by the room owner.
type AuthorizedConfiguration struct {
	Configuration Configuration     `cbor:"1,keyasint"`
	Signature     signing.Signature `cbor:"2,keyasint"`
}

// NewAuthorizedConfiguration signs configuration with the owner's
// private key.
func NewAuthorizedConfiguration(configuration Configuration, ownerKey ed25519.PrivateKey) (AuthorizedConfiguration, error) {
	signature, err := signing.Sign(configuration, ownerKey)
	if err != nil {
		return AuthorizedConfiguration{}, fmt.Errorf("signing configuration: %w", err)
	}
	return AuthorizedConfiguration{Configuration: configuration, Signature: signature}, nil
}

// ConfigurationSummary is the configuration version a peer holds.
type ConfigurationSummary uint32

var _ Composable[State, Parameters, ConfigurationSummary, *AuthorizedConfiguration] = (*AuthorizedConfiguration)(nil)

// Verify checks the owner signature, the room binding, and that the
// version is at least 1.
func (c *AuthorizedConfiguration) Verify(parent *State, params *Parameters) error {
	if c.Configuration.Version == 0 {
		return fmt.Errorf("%w: configuration version 0", ErrIntegrity)
	}
	if c.Configuration.Owner != params.OwnerID() {
		return fmt.Errorf("%w: configuration bound to different room owner %s",
			ErrIntegrity, c.Configuration.Owner)
	}
	if err := signing.Verify(c.Configuration, c.Signature, params.Owner); err != nil {
		return fmt.Errorf("%w: configuration signature: %v", ErrAuthorization, err)
	}
	return nil
}

// Summarize returns the local configuration version.
func (c *AuthorizedConfiguration) Summarize(parent *State, params *Parameters) ConfigurationSummary {
	return ConfigurationSummary(c.Configuration.Version)
}

// Delta returns the local configuration record when it is newer than
// the peer's version, and false otherwise.
func (c *AuthorizedConfiguration) Delta(parent *State, params *Parameters, old ConfigurationSummary) (*AuthorizedConfiguration, bool) {
	if c.Configuration.Version <= uint32(old) {
		return nil, false
	}
	record := *c
	return &record, true
}

// ApplyDelta replaces the configuration when the incoming record is
// strictly newer and verifies. A stale or equal-version record is an
// error and leaves the current configuration in place.
func (c *AuthorizedConfiguration) ApplyDelta(parent *State, params *Parameters, delta *AuthorizedConfiguration) error {
	if delta == nil {
		return nil
	}
	if delta.Configuration.Version <= c.Configuration.Version {
		return fmt.Errorf("%w: stale configuration delta: version %d, have %d",
			ErrIntegrity, delta.Configuration.Version, c.Configuration.Version)
	}

	candidate := *delta
	candidateParent := *parent
	candidateParent.Configuration = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying configuration delta: %w", err)
	}

	*c = candidate
	return nil
}
