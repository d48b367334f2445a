// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Oxbow's canonical CBOR encoding.
//
// Every signed payload (member records, bans, messages, configuration)
// and every wire envelope (summaries, deltas) is encoded through this
// package. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2), so the same logical value produces identical bytes on every
// peer and platform. This is a correctness requirement, not an
// optimization: signatures are computed over these bytes, and a
// serialization ambiguity would let two peers disagree about whether
// a record is authentic.
package codec
