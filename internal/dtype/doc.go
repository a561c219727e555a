// Package dtype describes element types stored in datasets and converts
// between them.
//
// # Type Model
//
// A [Datatype] is a class (integer, float, or variable-length string), an
// element size, signedness, and a byte order. File types are written
// little-endian; [Datatype.Native] gives the host-order equivalent used for
// caller buffers.
//
//	Class    | Go Type
//	---------|---------------------------------------------
//	Integer  | int8/16/32/64 or uint8/16/32/64
//	Float    | float32 or float64
//	String   | string (variable length, stored length-prefixed)
//
// # Conversion
//
// [Convert] moves n elements between any two numeric types. Identical
// types copy, types differing only in byte order swap, and everything else
// goes element by element with saturation: NaN becomes zero, floats are
// truncated toward zero and clamped, and negative values written to
// unsigned types become zero.
//
// # Buffers
//
// [Bytes] returns a zero-copy byte view of a typed Go slice so that caller
// buffers can feed the conversion routines directly:
//
//	raw, nt, err := dtype.Bytes([]float32{1, 2, 3})
//	err = dtype.Convert(fileBuf, dtype.Uint8, raw, nt, 3)
package dtype
