package binary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	enc := NewEncoder(16)
	enc.PutUint8(7)
	enc.PutUint16(0xBEEF)
	enc.PutUint32(0xDEADBEEF)
	enc.PutUint64(math.MaxUint64 - 1)
	enc.PutUvarint(300)
	enc.PutFloat64(-1.5)
	enc.PutString("HEADER")
	enc.PutBytes([]byte{1, 2, 3})
	enc.PutString("")

	dec := NewDecoder(enc.Bytes())
	assert.Equal(t, uint8(7), dec.Uint8())
	assert.Equal(t, uint16(0xBEEF), dec.Uint16())
	assert.Equal(t, uint32(0xDEADBEEF), dec.Uint32())
	assert.Equal(t, uint64(math.MaxUint64-1), dec.Uint64())
	assert.Equal(t, uint64(300), dec.Uvarint())
	assert.Equal(t, -1.5, dec.Float64())
	assert.Equal(t, "HEADER", dec.String())
	assert.Equal(t, []byte{1, 2, 3}, dec.Bytes())
	assert.Equal(t, "", dec.String())
	require.NoError(t, dec.Err())
	assert.Zero(t, dec.Remaining())
}

func TestDecoderStickyError(t *testing.T) {
	dec := NewDecoder([]byte{1, 2})
	assert.Equal(t, uint32(0), dec.Uint32())
	require.ErrorIs(t, dec.Err(), ErrShortBuffer)

	// Enough bytes remain for a uint8, but the error is sticky.
	assert.Equal(t, uint8(0), dec.Uint8())
	assert.Equal(t, 2, dec.Remaining())
}

func TestDecoderStringLengthOverrun(t *testing.T) {
	enc := NewEncoder(0)
	enc.PutUvarint(100)
	enc.PutUint8('x')

	dec := NewDecoder(enc.Bytes())
	assert.Equal(t, "", dec.String())
	assert.ErrorIs(t, dec.Err(), ErrShortBuffer)
}
