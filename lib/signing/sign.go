// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/oxbow-foundation/oxbow/lib/codec"
)

// Signature is a fixed-size Ed25519 signature over the canonical CBOR
// serialization of a record.
type Signature [ed25519.SignatureSize]byte

// Errors returned by Verify.
var (
	ErrInvalidSignature = errors.New("signing: invalid Ed25519 signature")
)

// GenerateKeypair creates a fresh Ed25519 keypair from crypto/rand.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// Sign serializes record through lib/codec and signs the resulting
// bytes with the given private key. The record must be a type the
// canonical encoder can marshal deterministically (plain structs with
// cbor tags — no maps with non-string keys, no floats unless
// intentional).
func Sign(record any, privateKey ed25519.PrivateKey) (Signature, error) {
	payload, err := codec.Marshal(record)
	if err != nil {
		return Signature{}, fmt.Errorf("signing: encoding record payload: %w", err)
	}

	var signature Signature
	copy(signature[:], ed25519.Sign(privateKey, payload))
	return signature, nil
}

// Verify re-serializes record through lib/codec and checks the
// signature against the given public key. Returns ErrInvalidSignature
// (wrapped) when the signature does not match.
func Verify(record any, signature Signature, publicKey ed25519.PublicKey) error {
	payload, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("signing: encoding record payload: %w", err)
	}

	if !ed25519.Verify(publicKey, payload, signature[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// RecordID derives the record-domain content identifier of a
// signature. Signatures are unique per (record, key) pair, so the
// digest of the signature bytes is a stable identity for the signed
// record as a whole — this is what summaries and deltas key on.
func RecordID(signature Signature) Hash {
	return Sum(DomainRecord, signature[:])
}

// MemberID derives the member-domain content identifier of an Ed25519
// verifying key.
func MemberID(publicKey ed25519.PublicKey) Hash {
	return Sum(DomainMember, publicKey)
}
