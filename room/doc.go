// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

// Package room implements the replicated state of a decentralized
// chat room.
//
// Every peer holds a full copy of the room [State]: configuration,
// member directory, member profiles, recent messages, bans, and an
// optional upgrade pointer. Peers never ship full state to each other.
// A peer sends a compact [Summary]; the remote side computes a [Delta]
// containing only the records the summary lacks; the receiver merges
// the delta through [State.ApplyDelta], which verifies the merged
// candidate in full before committing. A delta that would introduce an
// unauthorized member, an unauthorized ban, or a quota violation is
// rejected wholesale and the local state is untouched.
//
// Authorization is structural, not server-mediated. Every record is
// signed: a member record by its inviter, a ban by its issuer, a
// message by its author, configuration and upgrade records by the room
// owner. Membership is valid only if the chain of invited-by links
// terminates at the owner identified in the immutable room
// [Parameters]. The same chain answers the ban authorization question:
// a member may only ban users downstream of them in the invite tree.
//
// All operations are pure computations over the local replica; there
// is no internal concurrency and no I/O. Two peers that have observed
// the same set of authorized records converge to the same state
// regardless of delivery order, because validation is a deterministic
// function of the merged record set, never of arrival order.
package room
