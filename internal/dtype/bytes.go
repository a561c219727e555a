package dtype

import (
	"fmt"
	"unsafe"
)

// view reinterprets a typed slice as bytes without copying.
func view[T any](s []T) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// ptrView reinterprets a pointer to a scalar as bytes without copying.
func ptrView[T any](p *T) []byte {
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(unsafe.Sizeof(zero)))
}

// Bytes returns a byte view of a numeric Go slice, or of a pointer to a
// numeric scalar, together with its host-order datatype. Writes through the
// returned slice modify the caller's memory.
func Bytes(buf any) ([]byte, Datatype, error) {
	switch v := buf.(type) {
	case []int8:
		return view(v), Int8.Native(), nil
	case []int16:
		return view(v), Int16.Native(), nil
	case []int32:
		return view(v), Int32.Native(), nil
	case []int64:
		return view(v), Int64.Native(), nil
	case []uint8:
		return v, Uint8.Native(), nil
	case []uint16:
		return view(v), Uint16.Native(), nil
	case []uint32:
		return view(v), Uint32.Native(), nil
	case []uint64:
		return view(v), Uint64.Native(), nil
	case []float32:
		return view(v), Float32.Native(), nil
	case []float64:
		return view(v), Float64.Native(), nil
	case *int8:
		return ptrView(v), Int8.Native(), nil
	case *int16:
		return ptrView(v), Int16.Native(), nil
	case *int32:
		return ptrView(v), Int32.Native(), nil
	case *int64:
		return ptrView(v), Int64.Native(), nil
	case *uint8:
		return ptrView(v), Uint8.Native(), nil
	case *uint16:
		return ptrView(v), Uint16.Native(), nil
	case *uint32:
		return ptrView(v), Uint32.Native(), nil
	case *uint64:
		return ptrView(v), Uint64.Native(), nil
	case *float32:
		return ptrView(v), Float32.Native(), nil
	case *float64:
		return ptrView(v), Float64.Native(), nil
	default:
		return nil, Datatype{}, fmt.Errorf("%w: %T", ErrUnsupportedType, buf)
	}
}

// Len returns the element count of a supported buffer, including []string.
func Len(buf any) (int, error) {
	switch v := buf.(type) {
	case []string:
		return len(v), nil
	case []int8:
		return len(v), nil
	case []int16:
		return len(v), nil
	case []int32:
		return len(v), nil
	case []int64:
		return len(v), nil
	case []uint8:
		return len(v), nil
	case []uint16:
		return len(v), nil
	case []uint32:
		return len(v), nil
	case []uint64:
		return len(v), nil
	case []float32:
		return len(v), nil
	case []float64:
		return len(v), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, buf)
	}
}

// TypeOf returns the host-order datatype of a supported buffer.
func TypeOf(buf any) (Datatype, error) {
	if _, ok := buf.([]string); ok {
		return String, nil
	}
	_, dt, err := Bytes(buf)
	return dt, err
}
