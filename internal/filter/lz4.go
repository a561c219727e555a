package filter

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4HeaderSize is the block header: [uncompressed uint32][compressed uint32].
// A compressed size of zero means the payload is stored raw.
const lz4HeaderSize = 8

// LZ4 implements LZ4 block compression.
type LZ4 struct{}

// NewLZ4 creates an LZ4 filter. It takes no client data.
func NewLZ4(clientData []uint32) *LZ4 {
	return &LZ4{}
}

func (f *LZ4) ID() uint16 {
	return IDLZ4
}

func (f *LZ4) Encode(input []byte) ([]byte, error) {
	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(input)))
	n, err := lz4.CompressBlock(input, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	binary.LittleEndian.PutUint32(out[0:], uint32(len(input)))
	if n == 0 || n >= len(input) {
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[lz4HeaderSize:], input)
		return out[:lz4HeaderSize+len(input)], nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	return out[:lz4HeaderSize+n], nil
}

func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < lz4HeaderSize {
		return nil, errors.New("lz4: block too small for header")
	}
	rawSize := binary.LittleEndian.Uint32(input[0:])
	compSize := binary.LittleEndian.Uint32(input[4:])
	payload := input[lz4HeaderSize:]

	if compSize == 0 {
		if uint64(len(payload)) < uint64(rawSize) {
			return nil, errors.New("lz4: raw block truncated")
		}
		return payload[:rawSize], nil
	}
	if uint64(len(payload)) < uint64(compSize) {
		return nil, errors.New("lz4: compressed block truncated")
	}
	out := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(payload[:compSize], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint32(n) != rawSize {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, want %d", n, rawSize)
	}
	return out, nil
}
