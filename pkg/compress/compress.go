// Package compress provides the payload codec used by the store for
// large text columns, primarily serialized security-issue lists.
//
// Small payloads are stored as-is; payloads at or above the threshold
// are Zstandard-compressed. Decoding is self-describing: zstd frames
// always begin with the 4-byte zstd magic number, which cannot occur at
// the start of JSON or plain text, so Decode needs no out-of-band flag.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultThreshold is the payload size in bytes at which Encode starts
// compressing. Below it compression overhead outweighs the savings for
// the short issue lists the store typically writes.
const DefaultThreshold = 512

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec compresses and decompresses store payloads. The zero value is
// not usable; construct with NewCodec. A Codec is safe for concurrent
// use.
type Codec struct {
	threshold int

	encoders sync.Pool
	decoders sync.Pool
}

// NewCodec creates a codec with the given compression threshold. A
// non-positive threshold means every payload is compressed.
func NewCodec(threshold int) *Codec {
	c := &Codec{threshold: threshold}
	c.encoders = sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	c.decoders = sync.Pool{
		New: func() any {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
	return c
}

// Encode returns the stored representation of data: verbatim below the
// threshold, a zstd frame at or above it.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if len(data) < c.threshold {
		return data, nil
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode. Data without the zstd magic prefix is
// returned unchanged.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}

	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd reset: %w", err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// IsCompressed reports whether data is a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Default is the codec used by the store when none is configured.
var Default = NewCodec(DefaultThreshold)
