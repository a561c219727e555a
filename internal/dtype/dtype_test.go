package dtype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatatypeString(t *testing.T) {
	assert.Equal(t, "int16", Int16.String())
	assert.Equal(t, "uint64", Uint64.String())
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "string", String.String())

	be := Int32
	be.Order = OrderBE
	assert.Equal(t, "int32be", be.String())
}

func TestDatatypeValidate(t *testing.T) {
	for _, dt := range []Datatype{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float32, Float64, String} {
		assert.NoError(t, dt.Validate(), dt.String())
	}
	assert.ErrorIs(t, Datatype{Class: ClassInteger, Size: 3}.Validate(), ErrUnsupportedType)
	assert.ErrorIs(t, Datatype{Class: ClassFloat, Size: 2}.Validate(), ErrUnsupportedType)
}

func TestBytesView(t *testing.T) {
	vals := []uint16{0x0102, 0x0304}
	raw, dt, err := Bytes(vals)
	require.NoError(t, err)
	assert.Len(t, raw, 4)
	assert.Equal(t, Uint16.Native(), dt)

	// The view aliases the slice.
	raw[0], raw[1] = 0, 0
	assert.Equal(t, uint16(0), vals[0])

	var x float64
	raw, dt, err = Bytes(&x)
	require.NoError(t, err)
	require.NoError(t, Convert(raw, dt, []byte{7}, Uint8, 1))
	assert.Equal(t, 7.0, x)

	_, _, err = Bytes([]complex64{1})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	empty, _, err := Bytes([]int32{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLenAndTypeOf(t *testing.T) {
	n, err := Len([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dt, err := TypeOf([]string{})
	require.NoError(t, err)
	assert.Equal(t, String, dt)

	dt, err = TypeOf([]int64{1})
	require.NoError(t, err)
	assert.Equal(t, Int64.Native(), dt)

	_, err = Len(42)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func convertSlice[D, S any](t *testing.T, dst []D, src []S) {
	t.Helper()
	draw, dt, err := Bytes(dst)
	require.NoError(t, err)
	sraw, st, err := Bytes(src)
	require.NoError(t, err)
	require.NoError(t, Convert(draw, dt, sraw, st, len(src)))
}

func TestConvertIdentity(t *testing.T) {
	src := []int32{-5, 0, 1 << 30}
	dst := make([]int32, 3)
	convertSlice(t, dst, src)
	assert.Equal(t, src, dst)
}

func TestConvertWidening(t *testing.T) {
	src := []uint8{0, 7, 255}
	dst := make([]float64, 3)
	convertSlice(t, dst, src)
	assert.Equal(t, []float64{0, 7, 255}, dst)

	ints := make([]int64, 3)
	convertSlice(t, ints, []int8{-128, -1, 127})
	assert.Equal(t, []int64{-128, -1, 127}, ints)
}

func TestConvertSaturation(t *testing.T) {
	u8 := make([]uint8, 6)
	convertSlice(t, u8, []float32{-3.7, 2.9, 300, float32(math.NaN()), float32(math.Inf(1)), 255})
	assert.Equal(t, []uint8{0, 2, 255, 0, 255, 255}, u8)

	i16 := make([]int16, 4)
	convertSlice(t, i16, []float64{-1e9, 1e9, -2.5, math.Inf(-1)})
	assert.Equal(t, []int16{math.MinInt16, math.MaxInt16, -2, math.MinInt16}, i16)

	u32 := make([]uint32, 3)
	convertSlice(t, u32, []int64{-1, 5, 1 << 40})
	assert.Equal(t, []uint32{0, 5, math.MaxUint32}, u32)

	i8 := make([]int8, 2)
	convertSlice(t, i8, []uint64{math.MaxUint64, 100})
	assert.Equal(t, []int8{math.MaxInt8, 100}, i8)
}

func TestConvertByteSwap(t *testing.T) {
	le := Uint32
	be := Uint32
	be.Order = OrderBE

	src := []byte{0x01, 0x02, 0x03, 0x04}
	dst := make([]byte, 4)
	require.NoError(t, Convert(dst, be, src, le, 1))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, dst)

	// Big-endian float to little-endian int.
	fbe := Float32
	fbe.Order = OrderBE
	fsrc, err := EncodeScalar(fbe, float32(12.75))
	require.NoError(t, err)
	out := make([]byte, 2)
	require.NoError(t, Convert(out, Int16, fsrc, fbe, 1))
	assert.Equal(t, []byte{12, 0}, out)
}

func TestConvertErrors(t *testing.T) {
	assert.ErrorIs(t, Convert(nil, String, nil, Int8, 0), ErrUnsupportedType)
	assert.Error(t, Convert(make([]byte, 1), Int16, make([]byte, 2), Int16, 1))
	assert.Error(t, Convert(make([]byte, 2), Int16, make([]byte, 1), Int16, 1))
}

func TestScalarRoundTrip(t *testing.T) {
	b, err := EncodeScalar(Int16, -300)
	require.NoError(t, err)
	v, err := DecodeScalar(Int16, b)
	require.NoError(t, err)
	assert.Equal(t, int16(-300), v)

	b, err = EncodeScalar(Float32, 0.5)
	require.NoError(t, err)
	v, err = DecodeScalar(Float32, b)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), v)

	b, err = EncodeScalar(Uint8, 1000)
	require.NoError(t, err)
	v, err = DecodeScalar(Uint8, b)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), v)

	_, err = EncodeScalar(Int8, "x")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = DecodeScalar(String, nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestToFloatAndInt(t *testing.T) {
	f, err := ToFloat64(int32(-9))
	require.NoError(t, err)
	assert.Equal(t, -9.0, f)

	i, err := ToInt64(3.99)
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)

	i, err = ToInt64(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)
}
