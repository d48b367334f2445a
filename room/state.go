// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import "fmt"

// State is the full replicated room state: six sub-states, each
// implementing the composable contract against this aggregate as the
// parent. The composition below is written out field by field on
// purpose — it is simple enough to read directly, and a reviewer can
// see exactly which sub-state participates in each operation.
type State struct {
	Configuration  AuthorizedConfiguration `cbor:"1,keyasint"`
	Members        Members                 `cbor:"2,keyasint"`
	MemberInfo     MemberInfos             `cbor:"3,keyasint"`
	RecentMessages Messages                `cbor:"4,keyasint"`
	Upgrade        OptionalUpgrade         `cbor:"5,keyasint"`
	Bans           Bans                    `cbor:"6,keyasint"`
}

// Summary mirrors State field by field with each sub-state's compact
// summary form. Small enough to ship on every sync exchange.
type Summary struct {
	Configuration  ConfigurationSummary `cbor:"1,keyasint"`
	Members        MembersSummary       `cbor:"2,keyasint,omitempty"`
	MemberInfo     MemberInfosSummary   `cbor:"3,keyasint,omitempty"`
	RecentMessages MessagesSummary      `cbor:"4,keyasint,omitempty"`
	Upgrade        UpgradeSummary       `cbor:"5,keyasint,omitempty"`
	Bans           BansSummary          `cbor:"6,keyasint,omitempty"`
}

// Delta mirrors State field by field with each sub-state's delta
// form. Absent fields mean the peer already holds that sub-state in
// full.
type Delta struct {
	Configuration  *AuthorizedConfiguration `cbor:"1,keyasint,omitempty"`
	Members        MembersDelta             `cbor:"2,keyasint,omitempty"`
	MemberInfo     MemberInfosDelta         `cbor:"3,keyasint,omitempty"`
	RecentMessages MessagesDelta            `cbor:"4,keyasint,omitempty"`
	Upgrade        *AuthorizedUpgrade       `cbor:"5,keyasint,omitempty"`
	Bans           BansDelta                `cbor:"6,keyasint,omitempty"`
}

// IsEmpty reports whether the delta carries nothing.
func (d *Delta) IsEmpty() bool {
	return d.Configuration == nil &&
		len(d.Members) == 0 &&
		len(d.MemberInfo) == 0 &&
		len(d.RecentMessages) == 0 &&
		d.Upgrade == nil &&
		len(d.Bans) == 0
}

// NewState returns a room state seeded with the given configuration
// and otherwise empty.
func NewState(configuration AuthorizedConfiguration) State {
	return State{Configuration: configuration}
}

// Verify checks every sub-state invariant against this aggregate and
// the room parameters. The first failing sub-state is surfaced,
// wrapped with its field name; errors.Is classifies the failure
// against the taxonomy sentinels.
func (s *State) Verify(params *Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := s.Configuration.Verify(s, params); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if err := s.Members.Verify(s, params); err != nil {
		return fmt.Errorf("members: %w", err)
	}
	if err := s.MemberInfo.Verify(s, params); err != nil {
		return fmt.Errorf("member info: %w", err)
	}
	if err := s.RecentMessages.Verify(s, params); err != nil {
		return fmt.Errorf("recent messages: %w", err)
	}
	if err := s.Upgrade.Verify(s, params); err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	if err := s.Bans.Verify(s, params); err != nil {
		return fmt.Errorf("bans: %w", err)
	}
	return nil
}

// Summarize produces the compact representation a peer needs to
// compute what this replica is missing.
func (s *State) Summarize(params *Parameters) Summary {
	return Summary{
		Configuration:  s.Configuration.Summarize(s, params),
		Members:        s.Members.Summarize(s, params),
		MemberInfo:     s.MemberInfo.Summarize(s, params),
		RecentMessages: s.RecentMessages.Summarize(s, params),
		Upgrade:        s.Upgrade.Summarize(s, params),
		Bans:           s.Bans.Summarize(s, params),
	}
}

// Delta computes the minimal set of records present locally but
// absent from the peer summary old. Returns nil when the peer already
// holds everything — delta against one's own summary is always nil.
func (s *State) Delta(params *Parameters, old Summary) *Delta {
	var delta Delta
	if record, changed := s.Configuration.Delta(s, params, old.Configuration); changed {
		delta.Configuration = record
	}
	if records, changed := s.Members.Delta(s, params, old.Members); changed {
		delta.Members = records
	}
	if records, changed := s.MemberInfo.Delta(s, params, old.MemberInfo); changed {
		delta.MemberInfo = records
	}
	if records, changed := s.RecentMessages.Delta(s, params, old.RecentMessages); changed {
		delta.RecentMessages = records
	}
	if record, changed := s.Upgrade.Delta(s, params, old.Upgrade); changed {
		delta.Upgrade = record
	}
	if records, changed := s.Bans.Delta(s, params, old.Bans); changed {
		delta.Bans = records
	}
	if delta.IsEmpty() {
		return nil
	}
	return &delta
}

// ApplyDelta merges an incoming delta, validated as-if-applied: the
// merge happens on a deep-cloned candidate, field by field in
// dependency order (configuration before members, members before the
// records that reference them, bans last), the whole candidate is
// verified, and only then does the replica advance. Any failure
// leaves the replica entirely unchanged.
func (s *State) ApplyDelta(params *Parameters, delta *Delta) error {
	if delta == nil || delta.IsEmpty() {
		return nil
	}

	candidate := s.Clone()
	if err := candidate.Configuration.ApplyDelta(&candidate, params, delta.Configuration); err != nil {
		return err
	}
	if err := candidate.Members.ApplyDelta(&candidate, params, delta.Members); err != nil {
		return err
	}
	if err := candidate.MemberInfo.ApplyDelta(&candidate, params, delta.MemberInfo); err != nil {
		return err
	}
	if err := candidate.RecentMessages.ApplyDelta(&candidate, params, delta.RecentMessages); err != nil {
		return err
	}
	if err := candidate.Upgrade.ApplyDelta(&candidate, params, delta.Upgrade); err != nil {
		return err
	}
	if err := candidate.Bans.ApplyDelta(&candidate, params, delta.Bans); err != nil {
		return err
	}

	if err := candidate.Verify(params); err != nil {
		return fmt.Errorf("merged state failed verification: %w", err)
	}

	*s = candidate
	return nil
}

// Clone returns a deep copy of the state. The copy shares no mutable
// structure with the receiver.
func (s *State) Clone() State {
	return State{
		Configuration:  s.Configuration,
		Members:        s.Members.Clone(),
		MemberInfo:     s.MemberInfo.Clone(),
		RecentMessages: s.RecentMessages.Clone(),
		Upgrade:        s.Upgrade.Clone(),
		Bans:           s.Bans.Clone(),
	}
}
