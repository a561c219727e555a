package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned for Go values or datatypes with no mapping.
var ErrUnsupportedType = errors.New("unsupported datatype")

// Class is the datatype class. Values follow the HDF5 numbering.
type Class uint8

const (
	ClassInteger Class = 0
	ClassFloat   Class = 1
	ClassString  Class = 3
)

func (c Class) String() string {
	switch c {
	case ClassInteger:
		return "integer"
	case ClassFloat:
		return "float"
	case ClassString:
		return "string"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Order is the byte order of a numeric element.
type Order uint8

const (
	OrderLE Order = 0
	OrderBE Order = 1
)

// NativeOrder is the byte order of the host.
var NativeOrder = func() Order {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return OrderLE
	}
	return OrderBE
}()

// Datatype describes a stored element.
type Datatype struct {
	Class  Class
	Size   int // bytes per element, zero for variable-length strings
	Signed bool
	Order  Order
}

// File datatypes. Numeric types are little-endian.
var (
	Int8    = Datatype{Class: ClassInteger, Size: 1, Signed: true}
	Int16   = Datatype{Class: ClassInteger, Size: 2, Signed: true}
	Int32   = Datatype{Class: ClassInteger, Size: 4, Signed: true}
	Int64   = Datatype{Class: ClassInteger, Size: 8, Signed: true}
	Uint8   = Datatype{Class: ClassInteger, Size: 1}
	Uint16  = Datatype{Class: ClassInteger, Size: 2}
	Uint32  = Datatype{Class: ClassInteger, Size: 4}
	Uint64  = Datatype{Class: ClassInteger, Size: 8}
	Float32 = Datatype{Class: ClassFloat, Size: 4, Signed: true}
	Float64 = Datatype{Class: ClassFloat, Size: 8, Signed: true}
	String  = Datatype{Class: ClassString}
)

// IsNumeric reports whether the type is an integer or float.
func (d Datatype) IsNumeric() bool {
	return d.Class == ClassInteger || d.Class == ClassFloat
}

// Native returns d in host byte order.
func (d Datatype) Native() Datatype {
	if d.IsNumeric() {
		d.Order = NativeOrder
	}
	return d
}

// ByteOrder returns the binary.ByteOrder for the datatype.
func (d Datatype) ByteOrder() binary.ByteOrder {
	if d.Order == OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Validate checks that the datatype is one this package can convert.
func (d Datatype) Validate() error {
	switch d.Class {
	case ClassInteger:
		switch d.Size {
		case 1, 2, 4, 8:
			return nil
		}
	case ClassFloat:
		switch d.Size {
		case 4, 8:
			return nil
		}
	case ClassString:
		if d.Size == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, d)
}

func (d Datatype) String() string {
	switch d.Class {
	case ClassInteger:
		prefix := "uint"
		if d.Signed {
			prefix = "int"
		}
		return fmt.Sprintf("%s%d%s", prefix, d.Size*8, d.orderSuffix())
	case ClassFloat:
		return fmt.Sprintf("float%d%s", d.Size*8, d.orderSuffix())
	case ClassString:
		return "string"
	default:
		return d.Class.String()
	}
}

func (d Datatype) orderSuffix() string {
	if d.Order == OrderBE && d.Size > 1 {
		return "be"
	}
	return ""
}

// sameLayout reports whether two numeric types differ at most in byte order.
func (d Datatype) sameLayout(o Datatype) bool {
	return d.Class == o.Class && d.Size == o.Size && (d.Signed == o.Signed || d.Class == ClassFloat)
}
