package blob

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() {
	encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if codecErr != nil {
		return
	}
	decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
}

// Codec converts between raw payloads and their stored form. The zero value
// stores payloads uncompressed.
type Codec struct {
	Compress bool
}

// Encode returns the stored form of data.
func (c Codec) Encode(data []byte) ([]byte, error) {
	if !c.Compress {
		return data, nil
	}
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return nil, fmt.Errorf("init zstd: %w", codecErr)
	}
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decode returns the raw payload. Uncompressed input passes through, so
// toggling compression never strands existing payloads.
func (c Codec) Decode(stored []byte) ([]byte, error) {
	if !bytes.HasPrefix(stored, zstdMagic) {
		return stored, nil
	}
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return nil, fmt.Errorf("init zstd: %w", codecErr)
	}
	raw, err := decoder.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return raw, nil
}
