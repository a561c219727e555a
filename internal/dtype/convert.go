package dtype

import (
	"fmt"
	"math"
)

// Convert converts n elements of type st in src into type dt in dst.
// Both types must be numeric.
func Convert(dst []byte, dt Datatype, src []byte, st Datatype, n int) error {
	if !dt.IsNumeric() || !st.IsNumeric() {
		return fmt.Errorf("%w: cannot convert %s to %s", ErrUnsupportedType, st, dt)
	}
	if len(src) < n*st.Size {
		return fmt.Errorf("source buffer holds %d bytes, need %d", len(src), n*st.Size)
	}
	if len(dst) < n*dt.Size {
		return fmt.Errorf("destination buffer holds %d bytes, need %d", len(dst), n*dt.Size)
	}

	if dt == st || (dt.sameLayout(st) && dt.Size == 1) {
		copy(dst[:n*dt.Size], src[:n*st.Size])
		return nil
	}
	if dt.sameLayout(st) {
		swapCopy(dst, src, dt.Size, n)
		return nil
	}

	for i := 0; i < n; i++ {
		v := load(src[i*st.Size:], st)
		store(dst[i*dt.Size:], dt, v)
	}
	return nil
}

func swapCopy(dst, src []byte, size, n int) {
	for i := 0; i < n; i++ {
		s := src[i*size : (i+1)*size]
		d := dst[i*size : (i+1)*size]
		for j := 0; j < size; j++ {
			d[j] = s[size-1-j]
		}
	}
}

type numKind uint8

const (
	kindInt numKind = iota
	kindUint
	kindFloat
)

// number is an element widened to 64 bits.
type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func load(b []byte, dt Datatype) number {
	order := dt.ByteOrder()
	var raw uint64
	switch dt.Size {
	case 1:
		raw = uint64(b[0])
	case 2:
		raw = uint64(order.Uint16(b))
	case 4:
		raw = uint64(order.Uint32(b))
	case 8:
		raw = order.Uint64(b)
	}

	switch {
	case dt.Class == ClassFloat && dt.Size == 4:
		return number{kind: kindFloat, f: float64(math.Float32frombits(uint32(raw)))}
	case dt.Class == ClassFloat:
		return number{kind: kindFloat, f: math.Float64frombits(raw)}
	case dt.Signed:
		shift := uint(64 - 8*dt.Size)
		return number{kind: kindInt, i: int64(raw<<shift) >> shift}
	default:
		return number{kind: kindUint, u: raw}
	}
}

func (v number) float() float64 {
	switch v.kind {
	case kindInt:
		return float64(v.i)
	case kindUint:
		return float64(v.u)
	default:
		return v.f
	}
}

// int64Sat returns v as an int64, clamped to [lo, hi].
func (v number) int64Sat(lo, hi int64) int64 {
	switch v.kind {
	case kindInt:
		return min(max(v.i, lo), hi)
	case kindUint:
		if v.u > uint64(hi) {
			return hi
		}
		return int64(v.u)
	default:
		switch {
		case math.IsNaN(v.f):
			return 0
		case v.f >= float64(hi):
			return hi
		case v.f <= float64(lo):
			return lo
		}
		return int64(v.f)
	}
}

// uint64Sat returns v as a uint64, clamped to [0, hi].
func (v number) uint64Sat(hi uint64) uint64 {
	switch v.kind {
	case kindInt:
		if v.i < 0 {
			return 0
		}
		return min(uint64(v.i), hi)
	case kindUint:
		return min(v.u, hi)
	default:
		switch {
		case math.IsNaN(v.f), v.f <= 0:
			return 0
		case v.f >= float64(hi):
			return hi
		}
		return uint64(v.f)
	}
}

func store(b []byte, dt Datatype, v number) {
	order := dt.ByteOrder()
	var raw uint64
	switch {
	case dt.Class == ClassFloat && dt.Size == 4:
		raw = uint64(math.Float32bits(float32(v.float())))
	case dt.Class == ClassFloat:
		raw = math.Float64bits(v.float())
	case dt.Signed:
		bits := uint(8 * dt.Size)
		hi := int64(1)<<(bits-1) - 1
		lo := -hi - 1
		raw = uint64(v.int64Sat(lo, hi))
	default:
		bits := uint(8 * dt.Size)
		hi := uint64(math.MaxUint64)
		if bits < 64 {
			hi = uint64(1)<<bits - 1
		}
		raw = v.uint64Sat(hi)
	}

	switch dt.Size {
	case 1:
		b[0] = byte(raw)
	case 2:
		order.PutUint16(b, uint16(raw))
	case 4:
		order.PutUint32(b, uint32(raw))
	case 8:
		order.PutUint64(b, raw)
	}
}
