package filter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 17)
	}
	return data
}

func TestCodecRoundTrip(t *testing.T) {
	original := sampleData(4096)
	for id, ctor := range Registry {
		f := ctor(nil)
		t.Run(Info{ID: id}.Name(), func(t *testing.T) {
			assert.Equal(t, id, f.ID())
			encoded, err := f.Encode(original)
			require.NoError(t, err)
			decoded, err := f.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func TestCompressionShrinksRepetitiveData(t *testing.T) {
	original := bytes.Repeat([]byte("kea raster "), 1000)
	for _, f := range []Filter{NewDeflate([]uint32{1}), NewZstd(nil), NewLZ4(nil), NewSnappy(nil)} {
		encoded, err := f.Encode(original)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(original)/4, "filter %d", f.ID())
	}
}

func TestLZ4IncompressibleStoredRaw(t *testing.T) {
	original := []byte{0x5a, 0x13, 0x99}
	f := NewLZ4(nil)
	encoded, err := f.Encode(original)
	require.NoError(t, err)
	assert.Len(t, encoded, lz4HeaderSize+len(original))

	decoded, err := f.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = f.Decode(encoded[:4])
	assert.Error(t, err)
}

func TestShuffleLayout(t *testing.T) {
	original := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x11, 0x12, 0x13, 0x14,
		0x21, 0x22, 0x23, 0x24,
		0xEE, 0xFF, // trailing partial element
	}
	shuffled := []byte{
		0x01, 0x11, 0x21,
		0x02, 0x12, 0x22,
		0x03, 0x13, 0x23,
		0x04, 0x14, 0x24,
		0xEE, 0xFF,
	}

	f := NewShuffle([]uint32{4})
	got, err := f.Encode(original)
	require.NoError(t, err)
	assert.Equal(t, shuffled, got)

	back, err := f.Decode(got)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestShuffleSingleByteIsIdentity(t *testing.T) {
	f := NewShuffle(nil)
	in := []byte{1, 2, 3}
	out, err := f.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFletcher32DetectsCorruption(t *testing.T) {
	f := NewFletcher32(nil)
	encoded, err := f.Encode([]byte("checksummed chunk"))
	require.NoError(t, err)

	encoded[2] ^= 0xFF
	_, err = f.Decode(encoded)
	assert.ErrorContains(t, err, "checksum mismatch")

	_, err = f.Decode([]byte{1, 2})
	assert.Error(t, err)
}

func TestPipelineRoundTrip(t *testing.T) {
	p, err := NewPipeline([]Info{
		{ID: IDShuffle},
		{ID: IDDeflate, ClientData: []uint32{1}},
		{ID: IDFletcher32},
	}, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.False(t, p.Empty())

	original := sampleData(1000)
	encoded, mask, err := p.Encode(original)
	require.NoError(t, err)
	assert.Zero(t, mask)

	decoded, err := p.Decode(encoded, mask)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestPipelineUnknownFilter(t *testing.T) {
	_, err := NewPipeline([]Info{{ID: 999}}, 1)
	assert.Error(t, err)

	p, err := NewPipeline([]Info{{ID: 999, Flags: FlagOptional}}, 1)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

type failingFilter struct{}

func (failingFilter) ID() uint16                       { return 40000 }
func (failingFilter) Encode([]byte) ([]byte, error)    { return nil, errors.New("boom") }
func (failingFilter) Decode(in []byte) ([]byte, error) { return in, nil }

func TestPipelineOptionalFailureSetsMask(t *testing.T) {
	Registry[40000] = func([]uint32) Filter { return failingFilter{} }
	defer delete(Registry, 40000)

	p, err := NewPipeline([]Info{
		{ID: IDShuffle},
		{ID: 40000, Flags: FlagOptional},
	}, 2)
	require.NoError(t, err)

	original := sampleData(64)
	encoded, mask, err := p.Encode(original)
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<1), mask)

	decoded, err := p.Decode(encoded, mask)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	mandatory, err := NewPipeline([]Info{{ID: 40000}}, 1)
	require.NoError(t, err)
	_, _, err = mandatory.Encode(original)
	assert.ErrorContains(t, err, "boom")
}
