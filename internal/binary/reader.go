// Package binary provides the low-level encoding used by the container file:
// positioned reads and writes against the backing file, a compact append-only
// encoder for serialised metadata, and the checksums that guard it.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned when an invalid offset size is specified.
var ErrInvalidSize = errors.New("invalid offset size: must be 4 or 8")

// UndefinedAddress marks an address that has not been allocated.
const UndefinedAddress = ^uint64(0)

// Config holds reader/writer configuration, typically derived from the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 4 or 8 bytes
}

// DefaultConfig returns little-endian byte order with 8-byte offsets.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
	}
}

// Validate checks that the configuration can be used for I/O.
func (c Config) Validate() error {
	if c.OffsetSize != 4 && c.OffsetSize != 8 {
		return ErrInvalidSize
	}
	if c.ByteOrder == nil {
		return errors.New("byte order not set")
	}
	return nil
}

// Reader reads fixed-width values from a positioned source.
type Reader struct {
	r          io.ReaderAt
	order      binary.ByteOrder
	offsetSize int
	pos        int64
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{
		r:          r,
		order:      cfg.ByteOrder,
		offsetSize: cfg.OffsetSize,
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		r:          r.r,
		order:      r.order,
		offsetSize: r.offsetSize,
		pos:        offset,
	}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := r.r.ReadAt(buf, r.pos)
	if read == n {
		err = nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadOffset reads a file address using the configured offset size.
// An all-ones address of either width is returned as UndefinedAddress.
func (r *Reader) ReadOffset() (uint64, error) {
	switch r.offsetSize {
	case 4:
		v, err := r.ReadUint32()
		if err != nil {
			return 0, err
		}
		if v == 0xFFFFFFFF {
			return UndefinedAddress, nil
		}
		return uint64(v), nil
	case 8:
		return r.ReadUint64()
	default:
		return 0, ErrInvalidSize
	}
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int {
	return r.offsetSize
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}
