// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/oxbow-foundation/oxbow/lib/codec"
	"github.com/oxbow-foundation/oxbow/room"
)

// CompressionTag identifies the compression algorithm of an envelope
// body. Tags are protocol constants — changing them breaks envelope
// compatibility between peers.
type CompressionTag uint8

const (
	// CompressionNone indicates an uncompressed CBOR body.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 indicates LZ4 block compression. Fast default
	// for typical summary/delta sizes.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd indicates zstd compression. Better ratio for
	// large deltas (bulk member or message transfers).
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// headerSize is the envelope header: 1-byte tag + 4-byte big-endian
// uncompressed body size.
const headerSize = 5

// zstdThreshold is the uncompressed body size at which encoding
// switches from LZ4 to zstd.
const zstdThreshold = 16 << 10

// maxUncompressedSize caps the declared body size accepted on decode.
// Room state payloads are far below this; the cap bounds memory for
// malicious envelopes.
const maxUncompressedSize = 64 << 20

// Errors returned by Decode functions.
var (
	ErrEnvelopeTooShort = errors.New("wire: envelope too short for header")
	ErrEnvelopeTooLarge = errors.New("wire: declared body size exceeds maximum")
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeSummary serializes a room summary into an envelope.
func EncodeSummary(summary *room.Summary) ([]byte, error) {
	return encode(summary)
}

// DecodeSummary deserializes a summary envelope.
func DecodeSummary(data []byte) (*room.Summary, error) {
	var summary room.Summary
	if err := decode(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// EncodeDelta serializes a room delta into an envelope.
func EncodeDelta(delta *room.Delta) ([]byte, error) {
	return encode(delta)
}

// DecodeDelta deserializes a delta envelope.
func DecodeDelta(data []byte) (*room.Delta, error) {
	var delta room.Delta
	if err := decode(data, &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func encode(v any) ([]byte, error) {
	body, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding payload: %w", err)
	}

	tag := CompressionNone
	compressed := body
	switch {
	case len(body) >= zstdThreshold:
		tag = CompressionZstd
		compressed = zstdEncoder.EncodeAll(body, nil)
	case len(body) > headerSize:
		if lz4Body, ok := compressLZ4(body); ok {
			tag = CompressionLZ4
			compressed = lz4Body
		}
	}

	envelope := make([]byte, headerSize+len(compressed))
	envelope[0] = byte(tag)
	binary.BigEndian.PutUint32(envelope[1:headerSize], uint32(len(body)))
	copy(envelope[headerSize:], compressed)
	return envelope, nil
}

func decode(data []byte, v any) error {
	if len(data) < headerSize {
		return ErrEnvelopeTooShort
	}
	tag := CompressionTag(data[0])
	uncompressedSize := int(binary.BigEndian.Uint32(data[1:headerSize]))
	if uncompressedSize > maxUncompressedSize {
		return fmt.Errorf("%w: %d bytes", ErrEnvelopeTooLarge, uncompressedSize)
	}
	compressed := data[headerSize:]

	var body []byte
	switch tag {
	case CompressionNone:
		if len(compressed) != uncompressedSize {
			return fmt.Errorf("wire: uncompressed body is %d bytes, header declares %d",
				len(compressed), uncompressedSize)
		}
		body = compressed

	case CompressionLZ4:
		body = make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(compressed, body)
		if err != nil {
			return fmt.Errorf("wire: lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return fmt.Errorf("wire: lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}

	case CompressionZstd:
		decompressed, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return fmt.Errorf("wire: zstd decompress: %w", err)
		}
		if len(decompressed) != uncompressedSize {
			return fmt.Errorf("wire: zstd decompress: got %d bytes, expected %d", len(decompressed), uncompressedSize)
		}
		body = decompressed

	default:
		return fmt.Errorf("wire: unknown compression tag %d", tag)
	}

	if err := codec.Unmarshal(body, v); err != nil {
		return fmt.Errorf("wire: decoding payload: %w", err)
	}
	return nil
}

// compressLZ4 block-compresses body, reporting false when the data is
// incompressible (the envelope then ships raw bytes).
func compressLZ4(body []byte) ([]byte, bool) {
	bound := lz4.CompressBlockBound(len(body))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(body, destination, nil)
	if err != nil || written == 0 || written >= len(body) {
		return nil, false
	}
	return destination[:written], true
}
