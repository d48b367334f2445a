// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import "errors"

// Failure classes surfaced by Verify and ApplyDelta. Callers classify
// with errors.Is; the wrapped message carries the specifics.
var (
	// ErrAuthorization indicates a record whose signer is not entitled
	// to make the change: a bad signature, an unknown member or ban
	// target, or a banner outside the banned user's invite chain.
	ErrAuthorization = errors.New("room: authorization failure")

	// ErrQuota indicates a bounded collection that exceeds its
	// configured maximum after a merge.
	ErrQuota = errors.New("room: quota exceeded")

	// ErrIntegrity indicates structurally broken state: an invite
	// chain cycle or missing link, a duplicate or malformed
	// identifier, or a record bound to a different room.
	ErrIntegrity = errors.New("room: integrity failure")
)

// Composable is the contract every sub-state of the room implements.
// Parent is the aggregate the sub-state lives in (read-only context
// for cross-referencing sibling sub-states), Params the immutable
// per-room parameters.
//
// Verify checks every invariant of the sub-state and must be free of
// side effects; it is callable on any state, including candidates not
// yet merged.
//
// Summarize produces a compact value from which a remote peer can
// compute a minimal delta — typically a list of stable record
// identifiers, never full records.
//
// Delta returns the records present locally but absent from old, and
// false when old already covers the full local state. It must be
// monotone: delta against one's own summary is always absent.
//
// ApplyDelta merges incoming records. The merge is validated
// as-if-applied: the implementation constructs the candidate next
// state, verifies it in full, and only then commits. On error the
// receiver is left entirely unchanged.
//
// Summarize and Delta assume a locally valid state; invoked on state
// that would fail Verify they operate mechanically on whatever records
// are present and never fail.
type Composable[Parent, Params, Summary, Delta any] interface {
	Verify(parent *Parent, params *Params) error
	Summarize(parent *Parent, params *Params) Summary
	Delta(parent *Parent, params *Params, old Summary) (Delta, bool)
	ApplyDelta(parent *Parent, params *Params, delta Delta) error
}

// Fault describes one invalid record found during validation: the
// failure class (one of the sentinels above) plus a human-readable
// reason. Fault is an error; errors.Is matches the class.
type Fault struct {
	Class  error
	Reason string
}

func (f Fault) Error() string { return f.Reason }

func (f Fault) Unwrap() error { return f.Class }
