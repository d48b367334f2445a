// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/oxbow-foundation/oxbow/lib/codec"
	"github.com/oxbow-foundation/oxbow/lib/signing"
)

// testRoom is a room with its owner key, for building fixtures. The
// owner holds a directory record of their own so they can issue bans.
type testRoom struct {
	params   Parameters
	state    State
	ownerKey ed25519.PrivateKey
	ownerID  MemberID
}

func newTestRoom(t *testing.T) *testRoom {
	t.Helper()

	ownerPublic, ownerPrivate, err := signing.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	params := Parameters{Owner: ownerPublic}
	ownerID := params.OwnerID()

	configuration, err := NewAuthorizedConfiguration(DefaultConfiguration(ownerID), ownerPrivate)
	if err != nil {
		t.Fatalf("NewAuthorizedConfiguration: %v", err)
	}

	state := NewState(configuration)
	ownerRecord, err := NewAuthorizedMember(Member{
		Owner:        ownerID,
		VerifyingKey: ownerPublic,
	}, ownerPrivate)
	if err != nil {
		t.Fatalf("NewAuthorizedMember (owner): %v", err)
	}
	state.Members.Records = append(state.Members.Records, ownerRecord)

	return &testRoom{
		params:   params,
		state:    state,
		ownerKey: ownerPrivate,
		ownerID:  ownerID,
	}
}

// invite adds a new member invited (and signed) by the holder of
// inviterKey, returning the new member's private key and ID.
func (r *testRoom) invite(t *testing.T, inviterKey ed25519.PrivateKey) (ed25519.PrivateKey, MemberID) {
	t.Helper()

	public, private, err := signing.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	member := Member{
		Owner:        r.ownerID,
		InvitedBy:    NewMemberID(inviterKey.Public().(ed25519.PublicKey)),
		VerifyingKey: public,
	}
	record, err := NewAuthorizedMember(member, inviterKey)
	if err != nil {
		t.Fatalf("NewAuthorizedMember: %v", err)
	}
	r.state.Members.Records = append(r.state.Members.Records, record)

	return private, member.ID()
}

// reconfigure publishes a new configuration version with the given
// mutation applied, signed by the owner.
func (r *testRoom) reconfigure(t *testing.T, mutate func(*Configuration)) {
	t.Helper()

	configuration := r.state.Configuration.Configuration
	configuration.Version++
	mutate(&configuration)

	record, err := NewAuthorizedConfiguration(configuration, r.ownerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedConfiguration: %v", err)
	}
	r.state.Configuration = record
}

// ban issues a ban of target signed by bannerKey.
func (r *testRoom) ban(t *testing.T, bannerKey ed25519.PrivateKey, target MemberID, bannedAt int64) AuthorizedUserBan {
	t.Helper()

	bannerID := NewMemberID(bannerKey.Public().(ed25519.PublicKey))
	record, err := NewAuthorizedUserBan(UserBan{
		Owner:      r.ownerID,
		BannedAt:   bannedAt,
		BannedUser: target,
	}, bannerID, bannerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedUserBan: %v", err)
	}
	return record
}

// message creates an authored message record.
func (r *testRoom) message(t *testing.T, authorKey ed25519.PrivateKey, at int64, content string) AuthorizedMessage {
	t.Helper()

	record, err := NewAuthorizedMessage(Message{
		Owner:   r.ownerID,
		Author:  NewMemberID(authorKey.Public().(ed25519.PublicKey)),
		Time:    at,
		Content: content,
	}, authorKey)
	if err != nil {
		t.Fatalf("NewAuthorizedMessage: %v", err)
	}
	return record
}

// marshalState returns the canonical bytes of a state, for
// byte-for-byte unchanged assertions.
func marshalState(t *testing.T, state *State) []byte {
	t.Helper()
	data, err := codec.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal state: %v", err)
	}
	return data
}

func requireStateUnchanged(t *testing.T, before []byte, state *State) {
	t.Helper()
	after := marshalState(t, state)
	if !bytes.Equal(before, after) {
		t.Fatal("state changed despite rejected delta")
	}
}
