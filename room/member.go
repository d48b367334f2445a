// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"crypto/ed25519"
	"fmt"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// MemberID is the stable identifier of a room member, derived from
// the member's Ed25519 verifying key. It is never stored in records —
// always re-derived from the key — so an identifier can never disagree
// with the key it names.
type MemberID signing.Hash

// NewMemberID derives the member identifier for a verifying key.
func NewMemberID(publicKey ed25519.PublicKey) MemberID {
	return MemberID(signing.MemberID(publicKey))
}

// String returns the hex representation of the member ID.
func (id MemberID) String() string {
	return signing.FormatHash(signing.Hash(id))
}

// IsZero reports whether the ID is the zero value. The zero ID is the
// invited-by value of the owner's own record, which has no inviter.
func (id MemberID) IsZero() bool {
	return id == MemberID{}
}

// Member is the identity data of one room member: which room it
// belongs to (by owner ID), who invited it, and its verifying key.
// Immutable once signed.
type Member struct {
	// Owner is the member ID of the room owner. Binds the record to
	// one room so a membership signed for one room cannot be replayed
	// into another room with the same inviter.
	Owner MemberID `cbor:"1,keyasint"`

	// InvitedBy is the member ID of the inviter. Zero only on the
	// owner's own record.
	InvitedBy MemberID `cbor:"2,keyasint"`

	// VerifyingKey is the member's Ed25519 public key.
	VerifyingKey []byte `cbor:"3,keyasint"`
}

// ID returns the member's identifier, derived from its verifying key.
func (m *Member) ID() MemberID {
	return NewMemberID(m.VerifyingKey)
}

// AuthorizedMember pairs a Member with the inviter's signature over
// it. The signature is the proof of authorization: only someone
// holding the inviter's private key can admit a new member.
type AuthorizedMember struct {
	Member    Member            `cbor:"1,keyasint"`
	Signature signing.Signature `cbor:"2,keyasint"`
}

// NewAuthorizedMember signs member with the inviter's private key.
// For the owner's own record the owner signs itself.
func NewAuthorizedMember(member Member, inviterKey ed25519.PrivateKey) (AuthorizedMember, error) {
	signature, err := signing.Sign(member, inviterKey)
	if err != nil {
		return AuthorizedMember{}, fmt.Errorf("signing member record: %w", err)
	}
	return AuthorizedMember{Member: member, Signature: signature}, nil
}

// VerifySignature checks the record's signature against the inviter's
// verifying key.
func (m *AuthorizedMember) VerifySignature(inviterKey ed25519.PublicKey) error {
	return signing.Verify(m.Member, m.Signature, inviterKey)
}

// Members is the room's member directory.
type Members struct {
	Records []AuthorizedMember `cbor:"1,keyasint"`
}

// MembersSummary is the set of member IDs a peer holds. Identifiers
// only — full records travel in deltas.
type MembersSummary []MemberID

// MembersDelta carries the member records absent from a peer's
// summary.
type MembersDelta []AuthorizedMember

var _ Composable[State, Parameters, MembersSummary, MembersDelta] = (*Members)(nil)

// ByID returns a lookup map over the directory. Later duplicates do
// not displace earlier records; duplicates are a verification failure
// anyway.
func (m *Members) ByID() map[MemberID]*AuthorizedMember {
	byID := make(map[MemberID]*AuthorizedMember, len(m.Records))
	for i := range m.Records {
		id := m.Records[i].Member.ID()
		if _, exists := byID[id]; !exists {
			byID[id] = &m.Records[i]
		}
	}
	return byID
}

// InviteChain walks the invited-by links from member back to the room
// owner and returns the inviter records traversed, nearest first. The
// member itself and the owner are not included. A cycle or a missing
// intermediate record is an ErrIntegrity error; the walk never loops.
func (m *Members) InviteChain(member *AuthorizedMember, params *Parameters) ([]*AuthorizedMember, error) {
	ownerID := params.OwnerID()
	byID := m.ByID()

	var chain []*AuthorizedMember
	visited := map[MemberID]bool{member.Member.ID(): true}

	current := member
	for {
		if current.Member.ID() == ownerID {
			return chain, nil
		}
		inviterID := current.Member.InvitedBy
		if inviterID == ownerID {
			return chain, nil
		}
		if visited[inviterID] {
			return nil, fmt.Errorf("%w: invite chain cycle at member %s", ErrIntegrity, inviterID)
		}
		visited[inviterID] = true

		inviter, found := byID[inviterID]
		if !found {
			return nil, fmt.Errorf("%w: invite chain missing link: inviter %s of member %s not found",
				ErrIntegrity, inviterID, current.Member.ID())
		}
		chain = append(chain, inviter)
		current = inviter
	}
}

// IsInviteChainAncestor reports whether ancestor appears in member's
// invite chain (the owner is an implicit ancestor of everyone and is
// not reported here). Used by the ban component to decide whether a
// banner is upstream of the banned user.
func (m *Members) IsInviteChainAncestor(ancestor MemberID, member *AuthorizedMember, params *Parameters) (bool, error) {
	chain, err := m.InviteChain(member, params)
	if err != nil {
		return false, err
	}
	for _, link := range chain {
		if link.Member.ID() == ancestor {
			return true, nil
		}
	}
	return false, nil
}

// Verify checks the full membership invariant: well-formed keys,
// records bound to this room, no duplicate identities, every record
// signed by its inviter's key, every invite chain terminating at the
// owner, and the directory within the configured member quota.
func (m *Members) Verify(parent *State, params *Parameters) error {
	ownerID := params.OwnerID()
	byID := m.ByID()

	seen := make(map[MemberID]bool, len(m.Records))
	for i := range m.Records {
		record := &m.Records[i]

		if len(record.Member.VerifyingKey) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: member verifying key is %d bytes, want %d",
				ErrIntegrity, len(record.Member.VerifyingKey), ed25519.PublicKeySize)
		}

		id := record.Member.ID()
		if seen[id] {
			return fmt.Errorf("%w: duplicate member record for %s", ErrIntegrity, id)
		}
		seen[id] = true

		if record.Member.Owner != ownerID {
			return fmt.Errorf("%w: member %s bound to different room owner %s",
				ErrIntegrity, id, record.Member.Owner)
		}

		if id == ownerID {
			// The owner's own record is self-signed and has no inviter.
			if !record.Member.InvitedBy.IsZero() {
				return fmt.Errorf("%w: owner record carries inviter %s",
					ErrIntegrity, record.Member.InvitedBy)
			}
			if err := record.VerifySignature(params.Owner); err != nil {
				return fmt.Errorf("%w: owner record signature: %v", ErrAuthorization, err)
			}
			continue
		}

		inviterKey := params.Owner
		if record.Member.InvitedBy != ownerID {
			inviter, found := byID[record.Member.InvitedBy]
			if !found {
				return fmt.Errorf("%w: invite chain missing link: inviter %s of member %s not found",
					ErrIntegrity, record.Member.InvitedBy, id)
			}
			inviterKey = inviter.Member.VerifyingKey
		}
		if err := record.VerifySignature(inviterKey); err != nil {
			return fmt.Errorf("%w: member %s signature by inviter %s: %v",
				ErrAuthorization, id, record.Member.InvitedBy, err)
		}

		if _, err := m.InviteChain(record, params); err != nil {
			return err
		}
	}

	maxMembers := parent.Configuration.Configuration.MaxMembers
	if maxMembers > 0 && len(m.Records) > int(maxMembers) {
		return fmt.Errorf("%w: %d members exceeds maximum of %d",
			ErrQuota, len(m.Records), maxMembers)
	}

	return nil
}

// Summarize returns the IDs of all member records, in directory order.
func (m *Members) Summarize(parent *State, params *Parameters) MembersSummary {
	summary := make(MembersSummary, len(m.Records))
	for i := range m.Records {
		summary[i] = m.Records[i].Member.ID()
	}
	return summary
}

// Delta returns the member records whose IDs are absent from old, and
// false when the peer already holds everything.
func (m *Members) Delta(parent *State, params *Parameters, old MembersSummary) (MembersDelta, bool) {
	known := make(map[MemberID]bool, len(old))
	for _, id := range old {
		known[id] = true
	}

	var delta MembersDelta
	for i := range m.Records {
		if !known[m.Records[i].Member.ID()] {
			delta = append(delta, m.Records[i])
		}
	}
	if len(delta) == 0 {
		return nil, false
	}
	return delta, true
}

// ApplyDelta merges incoming member records. The merged candidate is
// verified in full (signatures, chains, duplicates, quota) before
// commit; on error the directory is unchanged.
func (m *Members) ApplyDelta(parent *State, params *Parameters, delta MembersDelta) error {
	if len(delta) == 0 {
		return nil
	}

	candidate := m.Clone()
	candidate.Records = append(candidate.Records, delta...)

	candidateParent := *parent
	candidateParent.Members = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying member delta: %w", err)
	}

	m.Records = candidate.Records
	return nil
}

// Clone returns a deep copy of the directory.
func (m *Members) Clone() Members {
	records := make([]AuthorizedMember, len(m.Records))
	copy(records, m.Records)
	return Members{Records: records}
}
