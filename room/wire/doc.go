// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire serializes room summaries and deltas for transport
// between peers.
//
// An envelope is self-contained: a 1-byte compression tag, a 4-byte
// big-endian uncompressed size, and the (possibly compressed)
// canonical CBOR body. A receiver needs nothing beyond the envelope
// bytes and the room parameters it already holds — no negotiation, no
// shared dictionaries.
//
// Compression is chosen per payload: LZ4 block compression by
// default, zstd for large payloads where the better ratio pays for
// the extra CPU, and raw bytes when the body does not compress
// (compact CBOR full of hashes and signatures often does not).
package wire
