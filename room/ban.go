// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"sort"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// BanID is the stable identity of a ban record, derived from its
// signature bytes. Signatures are unique per (record, key) pair, so
// the ID identifies the exact authorized ban.
type BanID signing.Hash

// String returns the hex representation of the ban ID.
func (id BanID) String() string {
	return signing.FormatHash(signing.Hash(id))
}

// UserBan is the unsigned payload of a ban: which room, when, and who.
type UserBan struct {
	// Owner is the member ID of the room owner; binds the ban to one
	// room.
	Owner MemberID `cbor:"1,keyasint"`

	// BannedAt is the Unix timestamp (seconds) of the ban. Age drives
	// the eviction policy: when the log exceeds its quota, the oldest
	// bans are the invalid ones.
	BannedAt int64 `cbor:"2,keyasint"`

	// BannedUser is the member being banned.
	BannedUser MemberID `cbor:"3,keyasint"`
}

// AuthorizedUserBan pairs a UserBan with the banning member's identity
// and signature over the payload.
type AuthorizedUserBan struct {
	Ban       UserBan           `cbor:"1,keyasint"`
	BannedBy  MemberID          `cbor:"2,keyasint"`
	Signature signing.Signature `cbor:"3,keyasint"`
}

// NewAuthorizedUserBan signs ban with the banner's private key. The
// bannedBy identity must match the signing key; this is re-checked by
// every verifying peer, so a mismatch here only produces a record the
// network rejects.
func NewAuthorizedUserBan(ban UserBan, bannedBy MemberID, bannerKey ed25519.PrivateKey) (AuthorizedUserBan, error) {
	if NewMemberID(bannerKey.Public().(ed25519.PublicKey)) != bannedBy {
		return AuthorizedUserBan{}, fmt.Errorf("%w: banner key does not match banner identity %s",
			ErrIntegrity, bannedBy)
	}
	signature, err := signing.Sign(ban, bannerKey)
	if err != nil {
		return AuthorizedUserBan{}, fmt.Errorf("signing ban record: %w", err)
	}
	return AuthorizedUserBan{Ban: ban, BannedBy: bannedBy, Signature: signature}, nil
}

// VerifySignature checks the ban's signature against the banner's
// verifying key.
func (b *AuthorizedUserBan) VerifySignature(bannerKey ed25519.PublicKey) error {
	return signing.Verify(b.Ban, b.Signature, bannerKey)
}

// ID returns the ban's content-derived identifier.
func (b *AuthorizedUserBan) ID() BanID {
	return BanID(signing.RecordID(b.Signature))
}

// Bans is the room's ban log: bounded, signed, append-mostly.
type Bans struct {
	Records []AuthorizedUserBan `cbor:"1,keyasint"`
}

// BansSummary is the set of ban IDs a peer holds.
type BansSummary []BanID

// BansDelta carries the ban records absent from a peer's summary.
type BansDelta []AuthorizedUserBan

var _ Composable[State, Parameters, BansSummary, BansDelta] = (*Bans)(nil)

// InvalidBans validates every ban against the member directory and the
// quota and returns the invalid ones keyed by ID, each with its
// failure class and a human-readable reason. Validation order per
// record: duplicate ID, banner present, target present, signature,
// then (unless the banner is the owner) the banner must appear in the
// banned user's invite chain. Finally, if the log exceeds
// MaxUserBans, the oldest bans beyond the limit are invalid — age
// decides survival, not insertion order.
func (b *Bans) InvalidBans(parent *State, params *Parameters) map[BanID]Fault {
	memberMap := parent.Members.ByID()
	ownerID := params.OwnerID()
	invalid := make(map[BanID]Fault)

	seen := make(map[BanID]bool, len(b.Records))
	for i := range b.Records {
		ban := &b.Records[i]
		id := ban.ID()

		if seen[id] {
			invalid[id] = Fault{Class: ErrIntegrity, Reason: "duplicate ban record"}
			continue
		}
		seen[id] = true

		if ban.Ban.Owner != ownerID {
			invalid[id] = Fault{Class: ErrIntegrity, Reason: "ban bound to different room"}
			continue
		}

		banner, found := memberMap[ban.BannedBy]
		if !found {
			invalid[id] = Fault{Class: ErrAuthorization, Reason: "banning member not found in member directory"}
			continue
		}

		banned, found := memberMap[ban.Ban.BannedUser]
		if !found {
			invalid[id] = Fault{Class: ErrAuthorization, Reason: "banned member not found in member directory"}
			continue
		}

		if err := ban.VerifySignature(banner.Member.VerifyingKey); err != nil {
			invalid[id] = Fault{Class: ErrAuthorization, Reason: "invalid ban signature"}
			continue
		}

		if ban.BannedBy == ownerID {
			// The owner may ban anyone; no chain check.
			continue
		}

		isAncestor, err := parent.Members.IsInviteChainAncestor(ban.BannedBy, banned, params)
		if err != nil {
			invalid[id] = Fault{Class: ErrIntegrity, Reason: fmt.Sprintf("resolving invite chain: %v", err)}
			continue
		}
		if !isAncestor {
			invalid[id] = Fault{Class: ErrAuthorization, Reason: "banner is not in the invite chain of the banned member"}
		}
	}

	maxUserBans := parent.Configuration.Configuration.MaxUserBans
	extra := len(b.Records) - int(maxUserBans)
	if maxUserBans > 0 && extra > 0 {
		// Eviction: sort oldest first, ties broken by ID bytes so
		// every peer invalidates the same records regardless of
		// slice order.
		ordered := make([]AuthorizedUserBan, len(b.Records))
		copy(ordered, b.Records)
		sort.Slice(ordered, func(i, j int) bool {
			if ordered[i].Ban.BannedAt != ordered[j].Ban.BannedAt {
				return ordered[i].Ban.BannedAt < ordered[j].Ban.BannedAt
			}
			left, right := ordered[i].ID(), ordered[j].ID()
			return bytes.Compare(left[:], right[:]) < 0
		})
		for i := 0; i < extra; i++ {
			invalid[ordered[i].ID()] = Fault{Class: ErrQuota, Reason: "exceeded maximum number of user bans"}
		}
	}

	return invalid
}

// Verify succeeds only when the invalid set is empty. The error
// reports one offending ban (chosen deterministically) and wraps its
// failure class.
func (b *Bans) Verify(parent *State, params *Parameters) error {
	invalid := b.InvalidBans(parent, params)
	if len(invalid) == 0 {
		return nil
	}

	ids := make([]BanID, 0, len(invalid))
	for id := range invalid {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	first := invalid[ids[0]]
	return fmt.Errorf("%d invalid bans; ban %s: %w", len(invalid), ids[0], first)
}

// Summarize returns the IDs of all ban records, in log order.
func (b *Bans) Summarize(parent *State, params *Parameters) BansSummary {
	summary := make(BansSummary, len(b.Records))
	for i := range b.Records {
		summary[i] = b.Records[i].ID()
	}
	return summary
}

// Delta returns the ban records whose IDs are absent from old, and
// false when the peer already holds everything.
func (b *Bans) Delta(parent *State, params *Parameters, old BansSummary) (BansDelta, bool) {
	known := make(map[BanID]bool, len(old))
	for _, id := range old {
		known[id] = true
	}

	var delta BansDelta
	for i := range b.Records {
		if !known[b.Records[i].ID()] {
			delta = append(delta, b.Records[i])
		}
	}
	if len(delta) == 0 {
		return nil, false
	}
	return delta, true
}

// ApplyDelta merges incoming ban records. The merged candidate is
// re-validated in full, so a delta containing an unauthorized ban, a
// duplicate, or one that would push the log over quota is rejected
// wholesale — on error the log is byte-for-byte unchanged.
func (b *Bans) ApplyDelta(parent *State, params *Parameters, delta BansDelta) error {
	if len(delta) == 0 {
		return nil
	}

	candidate := b.Clone()
	candidate.Records = append(candidate.Records, delta...)

	candidateParent := *parent
	candidateParent.Bans = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying ban delta: %w", err)
	}

	b.Records = candidate.Records
	return nil
}

// Clone returns a deep copy of the ban log.
func (b *Bans) Clone() Bans {
	records := make([]AuthorizedUserBan, len(b.Records))
	copy(records, b.Records)
	return Bans{Records: records}
}
