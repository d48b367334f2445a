// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

func TestStateVerifyFreshRoom(t *testing.T) {
	r := newTestRoom(t)
	if err := r.state.Verify(&r.params); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestStateVerifyRejectsBadParameters(t *testing.T) {
	r := newTestRoom(t)
	bad := Parameters{Owner: []byte("short")}
	if err := r.state.Verify(&bad); err == nil {
		t.Error("Verify accepted malformed owner key")
	}
}

func TestStateDeltaAgainstOwnSummaryIsNil(t *testing.T) {
	r := newTestRoom(t)
	aKey, aID := r.invite(t, r.ownerKey)
	r.state.RecentMessages.Records = append(r.state.RecentMessages.Records,
		r.message(t, aKey, 1000, "hello"))
	r.state.Bans.Records = append(r.state.Bans.Records,
		r.ban(t, r.ownerKey, aID, 2000))

	summary := r.state.Summarize(&r.params)
	if delta := r.state.Delta(&r.params, summary); delta != nil {
		t.Errorf("delta against own summary = %+v, want nil", delta)
	}
}

func TestStateApplyDeltaNilIsNoop(t *testing.T) {
	r := newTestRoom(t)
	before := marshalState(t, &r.state)

	if err := r.state.ApplyDelta(&r.params, nil); err != nil {
		t.Fatalf("ApplyDelta(nil): %v", err)
	}
	if err := r.state.ApplyDelta(&r.params, &Delta{}); err != nil {
		t.Fatalf("ApplyDelta(empty): %v", err)
	}
	requireStateUnchanged(t, before, &r.state)
}

// TestStateSyncRoundTrip drives a full summarize/delta/apply cycle
// between a current replica and a stale peer that holds a prefix of
// the same history. After the merge the peer must be byte-for-byte
// identical to the source.
func TestStateSyncRoundTrip(t *testing.T) {
	r := newTestRoom(t)
	peer := r.state.Clone()

	// The source moves ahead: new members, a profile, messages, a
	// reconfiguration, an upgrade notice, and a ban.
	aKey, _ := r.invite(t, r.ownerKey)
	_, bID := r.invite(t, aKey)
	r.reconfigure(t, func(c *Configuration) { c.Name = "harbor" })
	r.state.MemberInfo.Records = append(r.state.MemberInfo.Records,
		r.profile(t, aKey, 1, "heron"))
	r.state.RecentMessages.Records = append(r.state.RecentMessages.Records,
		r.message(t, aKey, 1000, "hello"),
		r.message(t, r.ownerKey, 1001, "welcome"))
	upgrade := r.upgrade(t, 1, "successor-room")
	r.state.Upgrade.Record = &upgrade
	r.state.Bans.Records = append(r.state.Bans.Records,
		r.ban(t, aKey, bID, 2000))

	if err := r.state.Verify(&r.params); err != nil {
		t.Fatalf("source state invalid: %v", err)
	}

	delta := r.state.Delta(&r.params, peer.Summarize(&r.params))
	if delta == nil {
		t.Fatal("delta for stale peer is nil")
	}
	if err := peer.ApplyDelta(&r.params, delta); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	if !bytes.Equal(marshalState(t, &r.state), marshalState(t, &peer)) {
		t.Error("peer state differs from source after sync")
	}
	if next := r.state.Delta(&r.params, peer.Summarize(&r.params)); next != nil {
		t.Errorf("residual delta after sync = %+v, want nil", next)
	}
}

// TestStateApplyDeltaIsAtomic mixes a valid member record with an
// unauthorized ban in one delta: nothing from the delta may land.
func TestStateApplyDeltaIsAtomic(t *testing.T) {
	r := newTestRoom(t)
	aKey, _ := r.invite(t, r.ownerKey)
	_, bID := r.invite(t, aKey)
	cKey, _ := r.invite(t, r.ownerKey)

	source := r.state.Clone()
	_, dID := r.invite(t, r.ownerKey)
	memberDelta, changed := r.state.Members.Delta(&r.state, &r.params, source.Members.Summarize(&source, &r.params))
	if !changed || len(memberDelta) != 1 {
		t.Fatalf("member delta: changed=%v len=%d, want 1", changed, len(memberDelta))
	}

	// C is not in B's invite chain, so this ban never verifies.
	delta := &Delta{
		Members: memberDelta,
		Bans:    BansDelta{r.ban(t, cKey, bID, 1000)},
	}

	before := marshalState(t, &source)
	err := source.ApplyDelta(&r.params, delta)
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("ApplyDelta: got %v, want ErrAuthorization", err)
	}
	requireStateUnchanged(t, before, &source)
	if _, found := source.Members.ByID()[dID]; found {
		t.Error("member from rejected delta was admitted")
	}
}

// TestStateBanAuthorization exercises the invite-chain rule through
// the aggregate: the inviter of an inviter may ban, an unrelated
// member may not.
func TestStateBanAuthorization(t *testing.T) {
	r := newTestRoom(t)
	aKey, _ := r.invite(t, r.ownerKey)
	_, bID := r.invite(t, aKey)
	cKey, _ := r.invite(t, r.ownerKey)

	// A banning B: A invited B.
	if err := r.state.ApplyDelta(&r.params, &Delta{
		Bans: BansDelta{r.ban(t, aKey, bID, 1000)},
	}); err != nil {
		t.Fatalf("ApplyDelta (inviter ban): %v", err)
	}

	// C banning B: C has no standing over B.
	err := r.state.ApplyDelta(&r.params, &Delta{
		Bans: BansDelta{r.ban(t, cKey, bID, 2000)},
	})
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("ApplyDelta (unrelated ban): got %v, want ErrAuthorization", err)
	}
}

// TestStateConvergence applies the same two deltas to two replicas in
// opposite orders. Record order may differ, so convergence is judged
// on sorted summaries, not raw bytes.
func TestStateConvergence(t *testing.T) {
	r := newTestRoom(t)

	aPublic, _, err := signing.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	bPublic, _, err := signing.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	recordA, err := NewAuthorizedMember(Member{
		Owner:        r.ownerID,
		InvitedBy:    r.ownerID,
		VerifyingKey: aPublic,
	}, r.ownerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedMember: %v", err)
	}
	recordB, err := NewAuthorizedMember(Member{
		Owner:        r.ownerID,
		InvitedBy:    r.ownerID,
		VerifyingKey: bPublic,
	}, r.ownerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedMember: %v", err)
	}

	deltaA := &Delta{Members: MembersDelta{recordA}}
	deltaB := &Delta{Members: MembersDelta{recordB}}

	first := r.state.Clone()
	second := r.state.Clone()
	for _, delta := range []*Delta{deltaA, deltaB} {
		if err := first.ApplyDelta(&r.params, delta); err != nil {
			t.Fatalf("ApplyDelta (first replica): %v", err)
		}
	}
	for _, delta := range []*Delta{deltaB, deltaA} {
		if err := second.ApplyDelta(&r.params, delta); err != nil {
			t.Fatalf("ApplyDelta (second replica): %v", err)
		}
	}

	if err := first.Verify(&r.params); err != nil {
		t.Errorf("first replica invalid: %v", err)
	}
	if err := second.Verify(&r.params); err != nil {
		t.Errorf("second replica invalid: %v", err)
	}
	if !sameMemberSet(first.Members.Summarize(&first, &r.params), second.Members.Summarize(&second, &r.params)) {
		t.Error("replicas diverged after applying deltas in different orders")
	}

	// Either replica can now bring the other fully current.
	if delta := first.Delta(&r.params, second.Summarize(&r.params)); delta != nil {
		if err := second.ApplyDelta(&r.params, delta); err != nil {
			t.Fatalf("ApplyDelta (reconcile): %v", err)
		}
	}
	if delta := second.Delta(&r.params, first.Summarize(&r.params)); delta != nil {
		t.Errorf("replicas still exchanging after reconcile: %+v", delta)
	}
}

func sameMemberSet(a, b MembersSummary) bool {
	if len(a) != len(b) {
		return false
	}
	as := append(MembersSummary(nil), a...)
	bs := append(MembersSummary(nil), b...)
	sort.Slice(as, func(i, j int) bool { return bytes.Compare(as[i][:], as[j][:]) < 0 })
	sort.Slice(bs, func(i, j int) bool { return bytes.Compare(bs[i][:], bs[j][:]) < 0 })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func TestStateCloneIsIndependent(t *testing.T) {
	r := newTestRoom(t)
	aKey, _ := r.invite(t, r.ownerKey)
	r.state.RecentMessages.Records = append(r.state.RecentMessages.Records,
		r.message(t, aKey, 1000, "hello"))

	before := marshalState(t, &r.state)
	clone := r.state.Clone()
	clone.Members.Records = clone.Members.Records[:1]
	clone.RecentMessages.Records[0].Message.Content = "edited"
	upgrade := r.upgrade(t, 1, "elsewhere")
	clone.Upgrade.Record = &upgrade

	requireStateUnchanged(t, before, &r.state)
}
