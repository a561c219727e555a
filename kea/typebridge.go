package kea

import (
	"fmt"

	"github.com/robert-malhotra/go-kea/internal/dtype"
)

var stdTypes = map[DataType]dtype.Datatype{
	Int8:    dtype.Int8,
	Int16:   dtype.Int16,
	Int32:   dtype.Int32,
	Int64:   dtype.Int64,
	Uint8:   dtype.Uint8,
	Uint16:  dtype.Uint16,
	Uint32:  dtype.Uint32,
	Uint64:  dtype.Uint64,
	Float32: dtype.Float32,
	Float64: dtype.Float64,
}

// StdType returns the little-endian file datatype for a pixel type.
func StdType(t DataType) (dtype.Datatype, error) {
	dt, ok := stdTypes[t]
	if !ok {
		return dtype.Datatype{}, typeErr("convert to file type", t, ErrUnsupportedType)
	}
	return dt, nil
}

// NativeType returns the host-order memory datatype for a pixel type.
func NativeType(t DataType) (dtype.Datatype, error) {
	dt, err := StdType(t)
	if err != nil {
		return dtype.Datatype{}, err
	}
	return dt.Native(), nil
}

// FromStoreType maps a stored datatype back to a pixel type.
func FromStoreType(dt dtype.Datatype) (DataType, error) {
	for t, std := range stdTypes {
		if std.Class == dt.Class && std.Size == dt.Size && std.Signed == dt.Signed {
			return t, nil
		}
	}
	return Undefined, typeErr("convert from file type", dt, ErrUnsupportedType)
}

// DataTypeOf returns the pixel type matching the element type of a Go
// numeric slice.
func DataTypeOf(buf any) (DataType, error) {
	switch buf.(type) {
	case []string, []bool:
	default:
		if dt, err := dtype.TypeOf(buf); err == nil {
			return FromStoreType(dt)
		}
	}
	return Undefined, typeErr("infer data type", fmt.Sprintf("%T", buf), ErrUnsupportedType)
}

// FieldStdType returns the file datatype an attribute table column kind is
// stored as. Booleans are stored as one byte per value.
func FieldStdType(t FieldType) (dtype.Datatype, error) {
	switch t {
	case FieldBool:
		return dtype.Uint8, nil
	case FieldInt:
		return dtype.Int64, nil
	case FieldFloat:
		return dtype.Float64, nil
	case FieldString:
		return dtype.String, nil
	}
	return dtype.Datatype{}, typeErr("convert field type", t, ErrUnsupportedType)
}
