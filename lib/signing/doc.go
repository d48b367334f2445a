// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing implements the two cryptographic primitives every
// authorized room record is built on: Ed25519 signatures over
// canonical CBOR serializations, and fixed-width BLAKE3 content
// identifiers.
//
// Records are signed by marshaling them through lib/codec (Core
// Deterministic Encoding) and signing the resulting bytes. Because the
// encoding is deterministic, any peer can re-serialize a record it
// received and verify the signature without access to the original
// byte stream.
//
// Content identifiers are keyed BLAKE3 digests. The key is an ASCII
// domain-separation constant, so the same input bytes produce
// different identifiers in different contexts (a member ID can never
// collide with a record ID for the same underlying bytes). Collisions
// within a domain are treated as cryptographically negligible at 32
// bytes, not handled.
//
// This package depends only on lib/codec, crypto/ed25519, and BLAKE3.
// The room composition logic never touches a cryptographic library
// directly, so the primitives are swappable behind this surface.
package signing
