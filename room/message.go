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

// MessageID is the stable identity of a message, derived from its
// signature bytes.
type MessageID signing.Hash

// String returns the hex representation of the message ID.
func (id MessageID) String() string {
	return signing.FormatHash(signing.Hash(id))
}

// Message is the unsigned payload of a chat message.
type Message struct {
	// Owner is the member ID of the room owner; binds the message to
	// one room.
	Owner MemberID `cbor:"1,keyasint"`

	// Author is the member who wrote the message.
	Author MemberID `cbor:"2,keyasint"`

	// Time is the author-reported Unix timestamp (seconds). Drives
	// the recency window: when the window is full, the oldest
	// messages are evicted on merge.
	Time int64 `cbor:"3,keyasint"`

	// Content is the message text.
	Content string `cbor:"4,keyasint"`
}

// AuthorizedMessage pairs a Message with the author's signature.
type AuthorizedMessage struct {
	Message   Message           `cbor:"1,keyasint"`
	Signature signing.Signature `cbor:"2,keyasint"`
}

// NewAuthorizedMessage signs message with the author's private key.
func NewAuthorizedMessage(message Message, authorKey ed25519.PrivateKey) (AuthorizedMessage, error) {
	signature, err := signing.Sign(message, authorKey)
	if err != nil {
		return AuthorizedMessage{}, fmt.Errorf("signing message: %w", err)
	}
	return AuthorizedMessage{Message: message, Signature: signature}, nil
}

// VerifySignature checks the message signature against the author's
// verifying key.
func (m *AuthorizedMessage) VerifySignature(authorKey ed25519.PublicKey) error {
	return signing.Verify(m.Message, m.Signature, authorKey)
}

// ID returns the message's content-derived identifier.
func (m *AuthorizedMessage) ID() MessageID {
	return MessageID(signing.RecordID(m.Signature))
}

// Messages is the room's recent-message window. Unlike the ban log,
// exceeding the window on merge is not a failure: the oldest messages
// are evicted and the newest kept, so the window slides forward as
// conversation continues.
type Messages struct {
	Records []AuthorizedMessage `cbor:"1,keyasint"`
}

// MessagesSummary is the set of message IDs a peer holds.
type MessagesSummary []MessageID

// MessagesDelta carries the messages absent from a peer's summary.
type MessagesDelta []AuthorizedMessage

var _ Composable[State, Parameters, MessagesSummary, MessagesDelta] = (*Messages)(nil)

// Verify checks that every message is bound to this room, authored by
// a current member, signed by that member's key, within the size cap,
// carries no duplicate IDs, and that the window is within the
// configured maximum.
func (m *Messages) Verify(parent *State, params *Parameters) error {
	memberMap := parent.Members.ByID()
	ownerID := params.OwnerID()
	configuration := &parent.Configuration.Configuration

	seen := make(map[MessageID]bool, len(m.Records))
	for i := range m.Records {
		record := &m.Records[i]
		id := record.ID()

		if seen[id] {
			return fmt.Errorf("%w: duplicate message record %s", ErrIntegrity, id)
		}
		seen[id] = true

		if record.Message.Owner != ownerID {
			return fmt.Errorf("%w: message %s bound to different room", ErrIntegrity, id)
		}

		author, found := memberMap[record.Message.Author]
		if !found {
			return fmt.Errorf("%w: message %s from unknown member %s",
				ErrAuthorization, id, record.Message.Author)
		}
		if err := record.VerifySignature(author.Member.VerifyingKey); err != nil {
			return fmt.Errorf("%w: message %s signature: %v", ErrAuthorization, id, err)
		}

		if configuration.MaxMessageSize > 0 && len(record.Message.Content) > int(configuration.MaxMessageSize) {
			return fmt.Errorf("%w: message %s content is %d bytes, maximum %d",
				ErrQuota, id, len(record.Message.Content), configuration.MaxMessageSize)
		}
	}

	if configuration.MaxRecentMessages > 0 && len(m.Records) > int(configuration.MaxRecentMessages) {
		return fmt.Errorf("%w: %d messages exceeds window of %d",
			ErrQuota, len(m.Records), configuration.MaxRecentMessages)
	}

	return nil
}

// Summarize returns the IDs of all messages in the window.
func (m *Messages) Summarize(parent *State, params *Parameters) MessagesSummary {
	summary := make(MessagesSummary, len(m.Records))
	for i := range m.Records {
		summary[i] = m.Records[i].ID()
	}
	return summary
}

// Delta returns the messages whose IDs are absent from old, and false
// when the peer already holds everything.
func (m *Messages) Delta(parent *State, params *Parameters, old MessagesSummary) (MessagesDelta, bool) {
	known := make(map[MessageID]bool, len(old))
	for _, id := range old {
		known[id] = true
	}

	var delta MessagesDelta
	for i := range m.Records {
		if !known[m.Records[i].ID()] {
			delta = append(delta, m.Records[i])
		}
	}
	if len(delta) == 0 {
		return nil, false
	}
	return delta, true
}

// ApplyDelta merges incoming messages into the window. After the
// merge the window is trimmed to the newest MaxRecentMessages
// (oldest-by-timestamp evicted, ties broken by ID bytes so every peer
// keeps the same set), then verified in full before commit.
func (m *Messages) ApplyDelta(parent *State, params *Parameters, delta MessagesDelta) error {
	if len(delta) == 0 {
		return nil
	}

	candidate := m.Clone()
	candidate.Records = append(candidate.Records, delta...)

	maxRecent := parent.Configuration.Configuration.MaxRecentMessages
	if maxRecent > 0 && len(candidate.Records) > int(maxRecent) {
		sort.Slice(candidate.Records, func(i, j int) bool {
			left, right := &candidate.Records[i], &candidate.Records[j]
			if left.Message.Time != right.Message.Time {
				return left.Message.Time < right.Message.Time
			}
			leftID, rightID := left.ID(), right.ID()
			return bytes.Compare(leftID[:], rightID[:]) < 0
		})
		candidate.Records = candidate.Records[len(candidate.Records)-int(maxRecent):]
	}

	candidateParent := *parent
	candidateParent.RecentMessages = candidate
	if err := candidate.Verify(&candidateParent, params); err != nil {
		return fmt.Errorf("applying message delta: %w", err)
	}

	m.Records = candidate.Records
	return nil
}

// Clone returns a deep copy of the message window.
func (m *Messages) Clone() Messages {
	records := make([]AuthorizedMessage, len(m.Records))
	copy(records, m.Records)
	return Messages{Records: records}
}
