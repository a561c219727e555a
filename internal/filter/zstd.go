package filter

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Encoders are cached per level; EncodeAll and DecodeAll are safe for
// concurrent use, so one instance serves every chunk.
var (
	zstdEncoders   sync.Map // int -> *zstd.Encoder
	zstdDecoder    *zstd.Decoder
	zstdDecoderErr error
	zstdDecoderMu  sync.Once
)

func zstdEncoderFor(level int) (*zstd.Encoder, error) {
	if v, ok := zstdEncoders.Load(level); ok {
		return v.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	v, loaded := zstdEncoders.LoadOrStore(level, enc)
	if loaded {
		enc.Close()
	}
	return v.(*zstd.Encoder), nil
}

func sharedZstdDecoder() (*zstd.Decoder, error) {
	zstdDecoderMu.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil)
	})
	return zstdDecoder, zstdDecoderErr
}

// Zstd implements Zstandard compression.
type Zstd struct {
	level int
}

// NewZstd creates a Zstandard filter.
// Client data: [0] = compression level (1-22, default 3)
func NewZstd(clientData []uint32) *Zstd {
	level := 3
	if len(clientData) > 0 && clientData[0] > 0 {
		level = int(clientData[0])
	}
	return &Zstd{level: level}
}

func (f *Zstd) ID() uint16 {
	return IDZstd
}

func (f *Zstd) Encode(input []byte) ([]byte, error) {
	enc, err := zstdEncoderFor(f.level)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(input, make([]byte, 0, len(input)/2+16)), nil
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	dec, err := sharedZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
