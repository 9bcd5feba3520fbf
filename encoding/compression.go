package encoding

import (
	"bytes"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression names accepted by NewCodec
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// MaxDecodedSize caps a decompressed frame; larger frames fail with zstd.ErrDecoderSizeExceeded
const MaxDecodedSize = 64 << 20

// zstdMagic prefixes every zstd frame
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrNotCompressed is returned by Decompress for data without a zstd frame header
var ErrNotCompressed = errors.New("data is not a zstd frame")

var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

// Compress encodes data as a single zstd frame
func Compress(data []byte) ([]byte, error) {
	enc, ok := encoderPool.Get().(*zstd.Encoder)
	if !ok {
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, err
		}
	}
	defer encoderPool.Put(enc)

	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decompress decodes a single zstd frame
func Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return nil, ErrNotCompressed
	}

	dec, ok := decoderPool.Get().(*zstd.Decoder)
	if !ok {
		var err error
		dec, err = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
		)
		if err != nil {
			return nil, err
		}
	}
	defer decoderPool.Put(dec)

	return dec.DecodeAll(data, nil)
}

// IsCompressed reports whether data starts with a zstd frame header
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Codec frames msgpack payloads with optional compression
type Codec struct {
	compress bool
}

// NewCodec returns a codec for a compression name ("", "none" or "zstd")
func NewCodec(compression string) (*Codec, error) {
	switch compression {
	case "", CompressionNone:
		return &Codec{}, nil
	case CompressionZstd:
		return &Codec{compress: true}, nil
	default:
		return nil, errors.New("unknown compression: " + compression)
	}
}

// Encode marshals v and compresses it when the codec is configured to
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	if !c.compress {
		return data, nil
	}
	return Compress(data)
}

// Decode accepts compressed and uncompressed frames regardless of the codec
// setting so producers can switch compression without a coordinated restart.
func (c *Codec) Decode(data []byte, v interface{}) error {
	if IsCompressed(data) {
		raw, err := Decompress(data)
		if err != nil {
			return err
		}
		data = raw
	}
	return Unmarshal(data, v)
}
