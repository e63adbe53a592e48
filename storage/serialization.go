// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/poiesic/seqembed/core"
)

// Compression selects the block codec applied to stored values.
type Compression uint8

const (
	// CompressionNone stores values as encoded.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD compression (better ratio).
	CompressionZSTD Compression = 2
)

// Value format: [codec uint8][uncompressed size uint32][payload...]
const valueHeaderSize = 5

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a codec name to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// MarshalEmbedding serializes an Embedding and compresses it with c.
// Falls back to storing uncompressed when compression does not help.
func MarshalEmbedding(e *core.Embedding, c Compression) ([]byte, error) {
	raw := make([]byte, core.EmbeddingMUS.Size(*e))
	core.EmbeddingMUS.Marshal(*e, raw)

	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		compressed = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(raw))*0.9 {
		c = CompressionNone
		compressed = raw
	}

	out := make([]byte, valueHeaderSize+len(compressed))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(raw)))
	copy(out[valueHeaderSize:], compressed)
	return out, nil
}

// UnmarshalEmbedding decompresses and deserializes a stored value.
// The codec is read from the value itself, so stores may mix codecs.
func UnmarshalEmbedding(data []byte) (*core.Embedding, error) {
	if len(data) < valueHeaderSize {
		return nil, ErrTruncatedData
	}

	c := Compression(data[0])
	size := binary.LittleEndian.Uint32(data[1:])
	payload := data[valueHeaderSize:]

	var raw []byte
	switch c {
	case CompressionNone:
		if uint32(len(payload)) < size {
			return nil, ErrTruncatedData
		}
		raw = payload[:size]
	case CompressionLZ4:
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		if uint32(n) != size {
			return nil, ErrTruncatedData
		}
	case CompressionZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(payload, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		if uint32(len(decoded)) != size {
			return nil, ErrTruncatedData
		}
		raw = decoded
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownCompression, data[0])
	}

	e, _, err := core.EmbeddingMUS.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &e, nil
}
