package dtype

import (
	"fmt"
)

// EncodeScalar converts a Go numeric scalar to the encoding of dt.
func EncodeScalar(dt Datatype, v any) ([]byte, error) {
	if !dt.IsNumeric() {
		return nil, fmt.Errorf("%w: scalar of %s", ErrUnsupportedType, dt)
	}
	var n number
	switch x := v.(type) {
	case int:
		n = number{kind: kindInt, i: int64(x)}
	case int8:
		n = number{kind: kindInt, i: int64(x)}
	case int16:
		n = number{kind: kindInt, i: int64(x)}
	case int32:
		n = number{kind: kindInt, i: int64(x)}
	case int64:
		n = number{kind: kindInt, i: x}
	case uint:
		n = number{kind: kindUint, u: uint64(x)}
	case uint8:
		n = number{kind: kindUint, u: uint64(x)}
	case uint16:
		n = number{kind: kindUint, u: uint64(x)}
	case uint32:
		n = number{kind: kindUint, u: uint64(x)}
	case uint64:
		n = number{kind: kindUint, u: x}
	case float32:
		n = number{kind: kindFloat, f: float64(x)}
	case float64:
		n = number{kind: kindFloat, f: x}
	case bool:
		if x {
			n = number{kind: kindUint, u: 1}
		} else {
			n = number{kind: kindUint}
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	b := make([]byte, dt.Size)
	store(b, dt, n)
	return b, nil
}

// DecodeScalar decodes one element of dt and returns it as the matching Go
// type (int8 through float64).
func DecodeScalar(dt Datatype, b []byte) (any, error) {
	if err := dt.Validate(); err != nil || !dt.IsNumeric() {
		return nil, fmt.Errorf("%w: scalar of %s", ErrUnsupportedType, dt)
	}
	if len(b) < dt.Size {
		return nil, fmt.Errorf("scalar needs %d bytes, have %d", dt.Size, len(b))
	}
	v := load(b, dt)
	switch {
	case dt.Class == ClassFloat && dt.Size == 4:
		return float32(v.f), nil
	case dt.Class == ClassFloat:
		return v.f, nil
	case dt.Signed:
		switch dt.Size {
		case 1:
			return int8(v.i), nil
		case 2:
			return int16(v.i), nil
		case 4:
			return int32(v.i), nil
		default:
			return v.i, nil
		}
	default:
		switch dt.Size {
		case 1:
			return uint8(v.u), nil
		case 2:
			return uint16(v.u), nil
		case 4:
			return uint32(v.u), nil
		default:
			return v.u, nil
		}
	}
}

// ToFloat64 widens a Go numeric scalar to float64.
func ToFloat64(v any) (float64, error) {
	b, err := EncodeScalar(Float64, v)
	if err != nil {
		return 0, err
	}
	return load(b, Float64).f, nil
}

// ToInt64 converts a Go numeric scalar to int64 with saturation.
func ToInt64(v any) (int64, error) {
	b, err := EncodeScalar(Int64, v)
	if err != nil {
		return 0, err
	}
	return load(b, Int64).i, nil
}
