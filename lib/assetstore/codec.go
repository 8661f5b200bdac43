// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assetstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression algorithm used for an asset
// payload. Every payload independently carries evidence of its own
// codec: a file-name suffix and the format's magic-number signature.
// Reads never consult the store's configured codec — they detect the
// codec from the bytes on disk, so the configuration can change over
// the store's lifetime without migrating existing assets.
type Codec uint8

const (
	// CodecNone indicates an uncompressed payload. Used for
	// unrecognized codec names, for already-dense media ingested via
	// SaveFile, and as the fallback when compression fails or does
	// not shrink the data.
	CodecNone Codec = iota

	// CodecZstd indicates a zstd frame. Best ratios for HTML
	// snapshots and PDFs at moderate CPU cost.
	CodecZstd

	// CodecLZ4 indicates an LZ4 frame written in high-compression
	// mode. Fast decode when read latency matters more than ratio.
	CodecLZ4

	// CodecGzip indicates a gzip stream.
	CodecGzip
)

// String returns the codec's configuration name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	case CodecGzip:
		return "gzip"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCodec maps a configured codec name to a Codec. Any
// unrecognized name (including the empty string) selects CodecNone:
// the store passes payloads through unmodified rather than rejecting
// the configuration.
func ParseCodec(name string) Codec {
	switch name {
	case "zstd":
		return CodecZstd
	case "lz4":
		return CodecLZ4
	case "gzip":
		return CodecGzip
	default:
		return CodecNone
	}
}

// Suffix returns the file-name suffix appended to the payload base
// name for this codec. CodecNone has no suffix.
func (c Codec) Suffix() string {
	switch c {
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	case CodecGzip:
		return ".gz"
	default:
		return ""
	}
}

// Magic-number signatures. These are format constants fixed by the
// respective specifications; the prefixes are mutually disjoint.
// Detection checks them in a fixed order (zstd, gzip, lz4) — any
// future codec addition must either preserve disjointness or define
// explicit precedence here.
var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Detect inspects the leading bytes of a payload and reports which
// codec produced it. Data shorter than four bytes, or with no
// matching signature, is CodecNone.
func Detect(data []byte) Codec {
	if len(data) < 4 {
		return CodecNone
	}
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(data, gzipMagic):
		return CodecGzip
	case bytes.HasPrefix(data, lz4Magic):
		return CodecLZ4
	default:
		return CodecNone
	}
}

// Compression level bounds per codec. Configured levels outside the
// range are clamped, not rejected — a store must come up even with a
// sloppy level value.
const (
	minZstdLevel = 1
	maxZstdLevel = 19
	minLZ4Level  = 3
	maxLZ4Level  = 12
	minGzipLevel = 1
	maxGzipLevel = 9
)

// lz4Levels maps a clamped configuration level (3..12) to the lz4
// frame compression levels. The library exposes nine levels; the top
// two configuration values share Level9.
var lz4Levels = []lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9, lz4.Level9,
}

// Compressor applies the store's configured codec on the write path.
// It is constructed once at store creation (the codec choice is
// injected configuration, read-only thereafter) and is safe for
// concurrent use.
type Compressor struct {
	codec       Codec
	gzipLevel   int
	lz4Level    lz4.CompressionLevel
	zstdEncoder *zstd.Encoder
}

// NewCompressor builds a Compressor for the given codec and level.
// The level is interpreted per codec and clamped to that codec's
// valid range; it is ignored for CodecNone.
func NewCompressor(c Codec, level int) (*Compressor, error) {
	compressor := &Compressor{codec: c}

	switch c {
	case CodecZstd:
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(clamp(level, minZstdLevel, maxZstdLevel))),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing zstd encoder: %w", err)
		}
		compressor.zstdEncoder = encoder

	case CodecLZ4:
		compressor.lz4Level = lz4Levels[clamp(level, minLZ4Level, maxLZ4Level)-minLZ4Level]

	case CodecGzip:
		compressor.gzipLevel = clamp(level, minGzipLevel, maxGzipLevel)
	}

	return compressor, nil
}

// Codec returns the codec this compressor was configured with.
func (c *Compressor) Codec() Codec {
	return c.codec
}

// Compress encodes data with the configured codec. For CodecNone the
// input is returned unchanged (no copy). Returns errIncompressible
// when the encoded output is not smaller than the input — the caller
// should store the original bytes with CodecNone instead.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.codec {
	case CodecNone:
		return data, nil

	case CodecZstd:
		compressed := c.zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	case CodecLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if err := writer.Apply(lz4.CompressionLevelOption(c.lz4Level)); err != nil {
			return nil, fmt.Errorf("configuring lz4 writer: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if buffer.Len() >= len(data) {
			return nil, errIncompressible
		}
		return buffer.Bytes(), nil

	case CodecGzip:
		var buffer bytes.Buffer
		writer, err := gzip.NewWriterLevel(&buffer, c.gzipLevel)
		if err != nil {
			return nil, fmt.Errorf("configuring gzip writer: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if buffer.Len() >= len(data) {
			return nil, errIncompressible
		}
		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported codec: %d", c.codec)
	}
}

// zstdDecoder is shared across all decompression calls. The decoder
// is stateless in DecodeAll mode and safe for concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("assetstore: zstd decoder initialization failed: " + err.Error())
	}
}

// Decompress decodes a payload that was written under the given
// codec. For CodecNone the input is returned unchanged. Decoding
// failures wrap ErrDecompress — the original bytes are never
// returned in place of an error, since silently-wrong bytes would
// mask corruption.
func Decompress(data []byte, c Codec) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil

	case CodecZstd:
		result, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w: %w", ErrDecompress, err)
		}
		return result, nil

	case CodecLZ4:
		result, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w: %w", ErrDecompress, err)
		}
		return result, nil

	case CodecGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w: %w", ErrDecompress, err)
		}
		result, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w: %w", ErrDecompress, err)
		}
		if err := reader.Close(); err != nil {
			return nil, fmt.Errorf("gzip decompress: %w: %w", ErrDecompress, err)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported codec: %d", c)
	}
}

// errIncompressible is returned by Compress when the encoded output
// is not smaller than the input. The write path falls back to
// CodecNone.
var errIncompressible = fmt.Errorf("data is incompressible")

// IsIncompressible reports whether the error indicates that data
// could not be compressed smaller than its original size.
func IsIncompressible(err error) bool {
	return err == errIncompressible
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
