package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the section compression algorithm.
type Compression uint8

const (
	// CompressionNone stores sections as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses Zstandard (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

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

// Block format: [RawSize uint32][StoredSize uint32][Data...].
// StoredSize == 0 means the data is stored uncompressed.
const blockHeaderSize = 8

// compressBlock frames data as one block. Sections that do not shrink by at
// least 10% are stored raw.
func compressBlock(dst, data []byte, c Compression) []byte {
	var packed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		if n, err := lz4.CompressBlock(data, buf, nil); err == nil && n > 0 {
			packed = buf[:n]
		}
	case CompressionZstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data))) //nolint:gosec // sections are bounded by the batch
		dst = binary.LittleEndian.AppendUint32(dst, 0)
		return append(dst, data...)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))   //nolint:gosec // sections are bounded by the batch
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(packed))) //nolint:gosec // sections are bounded by the batch
	return append(dst, packed...)
}

// decompressBlock reads one block from the start of data and returns the raw
// bytes and the number of bytes consumed.
func decompressBlock(data []byte, c Compression) ([]byte, int, error) {
	if len(data) < blockHeaderSize {
		return nil, 0, errors.New("block too small for header")
	}
	rawSize := int(binary.LittleEndian.Uint32(data[0:]))
	storedSize := int(binary.LittleEndian.Uint32(data[4:]))

	if storedSize == 0 {
		if len(data) < blockHeaderSize+rawSize {
			return nil, 0, errors.New("block data too small")
		}
		return data[blockHeaderSize : blockHeaderSize+rawSize], blockHeaderSize + rawSize, nil
	}
	if len(data) < blockHeaderSize+storedSize {
		return nil, 0, errors.New("compressed block data too small")
	}
	packed := data[blockHeaderSize : blockHeaderSize+storedSize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, 0, err
		}
		if n != rawSize {
			return nil, 0, errors.New("decompressed size mismatch")
		}
		return out, blockHeaderSize + storedSize, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(packed, make([]byte, 0, rawSize))
		if err != nil {
			return nil, 0, err
		}
		if len(out) != rawSize {
			return nil, 0, errors.New("decompressed size mismatch")
		}
		return out, blockHeaderSize + storedSize, nil
	default:
		return nil, 0, fmt.Errorf("compressed block with compression %s", c)
	}
}
