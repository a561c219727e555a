package kea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-kea/internal/dtype"
)

func TestStdTypeRoundTrip(t *testing.T) {
	for dt := Int8; dt <= Float64; dt++ {
		std, err := StdType(dt)
		require.NoError(t, err, dt)
		assert.Equal(t, dtype.OrderLE, std.Order)
		assert.Equal(t, dt.Size(), std.Size)

		native, err := NativeType(dt)
		require.NoError(t, err)
		back, err := FromStoreType(native)
		require.NoError(t, err)
		assert.Equal(t, dt, back)
	}

	_, err := StdType(Undefined)
	assert.True(t, IsTypeError(err))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = FromStoreType(dtype.String)
	assert.True(t, IsTypeError(err))
}

func TestDataTypeOf(t *testing.T) {
	cases := []struct {
		buf  any
		want DataType
	}{
		{[]int8{}, Int8},
		{[]int16{}, Int16},
		{[]int32{}, Int32},
		{[]int64{}, Int64},
		{[]uint8{}, Uint8},
		{[]uint16{}, Uint16},
		{[]uint32{}, Uint32},
		{[]uint64{}, Uint64},
		{[]float32{}, Float32},
		{[]float64{}, Float64},
	}
	for _, tc := range cases {
		got, err := DataTypeOf(tc.buf)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	for _, buf := range []any{[]string{}, []bool{}, []int{}, 3, nil} {
		_, err := DataTypeOf(buf)
		assert.True(t, IsTypeError(err), "%T", buf)
	}
}

func TestFieldStdType(t *testing.T) {
	want := map[FieldType]dtype.Datatype{
		FieldBool:   dtype.Uint8,
		FieldInt:    dtype.Int64,
		FieldFloat:  dtype.Float64,
		FieldString: dtype.String,
	}
	for ft, dt := range want {
		got, err := FieldStdType(ft)
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	_, err := FieldStdType(FieldNA)
	assert.True(t, IsTypeError(err))
}

func TestParseNames(t *testing.T) {
	dt, err := ParseDataType("float32")
	require.NoError(t, err)
	assert.Equal(t, Float32, dt)
	_, err = ParseDataType("complex64")
	assert.Error(t, err)

	c, err := ParseCodec("lz4")
	require.NoError(t, err)
	assert.Equal(t, CodecLZ4, c)
	_, err = ParseCodec("gzip")
	assert.ErrorIs(t, err, ErrInvalidParam)
}
