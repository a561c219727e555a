package binary

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	data []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func TestReaderWriterRoundTrip(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, DefaultConfig()).At(4)
	require.NoError(t, w.WriteUint8(0xAB))
	require.NoError(t, w.WriteUint16(0x1234))
	require.NoError(t, w.WriteUint32(0x89ABCDEF))
	require.NoError(t, w.WriteUint64(42))
	require.NoError(t, w.WriteOffset(UndefinedAddress))
	require.NoError(t, w.WriteZeros(3))
	assert.Equal(t, int64(4+1+2+4+8+8+3), w.Pos())

	r := NewReader(f, DefaultConfig()).At(4)
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)
	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)
	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x89ABCDEF), u32)
	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u64)
	addr, err := r.ReadOffset()
	require.NoError(t, err)
	assert.Equal(t, UndefinedAddress, addr)
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader(&memFile{data: []byte{1, 2, 3}}, DefaultConfig())
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// A read ending exactly at EOF succeeds.
	b, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.OffsetSize = 6
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSize)
}
