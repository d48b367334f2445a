// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"crypto/ed25519"
	"fmt"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// MemberInfo is the mutable self-describing profile of a member:
// currently the preferred nickname. Members update it by publishing a
// record with a higher version; the highest version wins on merge.
type MemberInfo struct {
	// MemberID identifies whose profile this is.
	MemberID MemberID `cbor:"1,keyasint"`

	// Version orders records for one member. Must be at least 1.
	Version uint32 `cbor:"2,keyasint"`

	// PreferredNickname is the display name the member chose. Length
	// is capped by the room configuration.
	PreferredNickname string `cbor:"3,keyasint"`
}

// AuthorizedMemberInfo is a MemberInfo signed by the member it
// describes. Only the member themselves can change their profile.
type AuthorizedMemberInfo struct {
	MemberInfo MemberInfo        `cbor:"1,keyasint"`
	Signature  signing.Signature `cbor:"2,keyasint"`
}

// NewAuthorizedMemberInfo signs info with the member's own private
// key.
func NewAuthorizedMemberInfo(info MemberInfo, memberKey ed25519.PrivateKey) (AuthorizedMemberInfo, error) {
	signature, err := signing.Sign(info, memberKey)
	if err != nil {
		return AuthorizedMemberInfo{}, fmt.Errorf("signing member info: %w", err)
	}
	return AuthorizedMemberInfo{MemberInfo: info, Signature: signature}, nil
}

// MemberInfos holds one profile record per member.
type MemberInfos struct {
	Records []AuthorizedMemberInfo `cbor:"1,keyasint"`
}

// MemberInfoVersion is one entry of a MemberInfos summary: which
// member, at which profile version.
type MemberInfoVersion struct {
	MemberID MemberID `cbor:"1,keyasint"`
	Version  uint32   `cbor:"2,keyasint"`
}

// MemberInfosSummary lists the profile version a peer holds for each
// member.
type MemberInfosSummary []MemberInfoVersion

// MemberInfosDelta carries the profile records a peer lacks or holds
// at a lower version.
type MemberInfosDelta []AuthorizedMemberInfo

var _ Composable[State, Parameters, MemberInfosSummary, MemberInfosDelta] = (*MemberInfos)(nil)

// Get returns the profile record for a member, if present.
func (m *MemberInfos) Get(id MemberID) (*AuthorizedMemberInfo, bool) {
	for i := range m.Records {
		if m.Records[i].MemberInfo.MemberID == id {
			return &m.Records[i], true
		}
	}
	return nil, false
}

// Verify checks that every profile belongs to a current member, is
// signed by that member's own key, has a version of at least 1, no
// member holds two records, and nicknames respect the configured cap.
func (m *MemberInfos) Verify(parent *State, params *Parameters) error {
	memberMap := parent.Members.ByID()
	maxNickname := parent.Configuration.Configuration.MaxNicknameSize

	seen := make(map[MemberID]bool, len(m.Records))
	for i := range m.Records {
		record := &m.Records[i]
		id := record.MemberInfo.MemberID

		if record.MemberInfo.Version == 0 {
			return fmt.Errorf("%w: member info for %s has version 0", ErrIntegrity, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate member info record for %s", ErrIntegrity, id)
		}
		seen[id] = true

		member, found := memberMap[id]
		if !found {
			return fmt.Errorf("%w: member info for unknown member %s", ErrAuthorization, id)
		}
		if err := signing.Verify(record.MemberInfo, record.Signature, member.Member.VerifyingKey); err != nil {
			return fmt.Errorf("%w: member info signature for %s: %v", ErrAuthorization, id, err)
		}

		if maxNickname > 0 && len(record.MemberInfo.PreferredNickname) > int(maxNickname) {
			return fmt.Errorf("%w: nickname for %s is %d bytes, maximum %d",
				ErrQuota, id, len(record.MemberInfo.PreferredNickname), maxNickname)
		}
	}

	return nil
}

// Summarize returns (member, version) pairs for every profile held.
func (m *MemberInfos) Summarize(parent *State, params *Parameters) MemberInfosSummary {
	summary := make(MemberInfosSummary, len(m.Records))
	for i := range m.Records {
		summary[i] = MemberInfoVersion{
			MemberID: m.Records[i].MemberInfo.MemberID,
			Version:  m.Records[i].MemberInfo.Version,
		}
	}
	return summary
}

// Delta returns the profiles the peer lacks entirely or holds at a
// lower version, and false when the peer is current.
func (m *MemberInfos) Delta(parent *State, params *Parameters, old MemberInfosSummary) (MemberInfosDelta, bool) {
	known := make(map[MemberID]uint32, len(old))
	for _, entry := range old {
		known[entry.MemberID] = entry.Version
	}

	var delta MemberInfosDelta
	for i := range m.Records {
		version, held := known[m.Records[i].MemberInfo.MemberID]
		if !held || m.Records[i].MemberInfo.Version > version {
			delta = append(delta, m.Records[i])
		}
	}
	if len(delta) == 0 {
		return nil, false
	}
	return delta, true
}

// ApplyDelta merges incoming profiles, replacing any existing record
// for the same member when the incoming version is strictly higher. A
// stale or equal-version record is an error; the merged candidate is
// verified in full before commit.
func (m *MemberInfos) ApplyDelta(parent *State, params *Parameters, delta MemberInfosDelta) error {
	if len(delta) == 0 {
		return nil
	}

	candidate := m.Clone()
	for _, incoming := range delta {
		existing, found := candidate.Get(incoming.MemberInfo.MemberID)
		if !found {
			candidate.Records = append(candidate.Records, incoming)
			continue
		}
		if incoming.MemberInfo.Version <= existing.MemberInfo.Version {
			return fmt.Errorf("%w: stale member info delta for %s: version %d, have %d",
				ErrIntegrity, incoming.MemberInfo.MemberID,
				incoming.MemberInfo.Version, existing.MemberInfo.Version)
		}
		*existing = incoming
	}

	candidateParent := *parent
	candidateParent.MemberInfo = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying member info delta: %w", err)
	}

	m.Records = candidate.Records
	return nil
}

// Clone returns a deep copy of the profile collection.
func (m *MemberInfos) Clone() MemberInfos {
	records := make([]AuthorizedMemberInfo, len(m.Records))
	copy(records, m.Records)
	return MemberInfos{Records: records}
}
