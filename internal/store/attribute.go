package store

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/object"
)

// Attribute is a snapshot of a stored attribute. Later changes to the
// attribute on its object are not reflected.
type Attribute struct {
	a *object.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.a.Name }

// Type returns the stored element type.
func (a *Attribute) Type() dtype.Datatype { return a.a.Type }

// Shape returns the dimensions, or nil for a scalar.
func (a *Attribute) Shape() []uint64 { return slices.Clone(a.a.Dims) }

// IsScalar reports whether the attribute holds a single value.
func (a *Attribute) IsScalar() bool { return a.a.Dims == nil }

// NumElements returns the number of stored elements.
func (a *Attribute) NumElements() uint64 { return a.a.NumElements() }

// Read copies the value into dest, which must be a []string for string
// attributes, or a numeric slice or pointer to a numeric scalar for numeric
// ones. Numeric values are converted to the element type of dest.
func (a *Attribute) Read(dest any) error {
	n := int(a.a.NumElements())
	if a.a.Type.Class == dtype.ClassString {
		ss, ok := dest.([]string)
		if !ok {
			return fmt.Errorf("%w: string attribute %s read into %T", ErrTypeMismatch, a.a.Name, dest)
		}
		if len(ss) < n {
			return fmt.Errorf("%w: have %d elements, need %d", ErrBufferSize, len(ss), n)
		}
		copy(ss, a.a.Strings)
		return nil
	}

	raw, dt, err := dtype.Bytes(dest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	have, err := dtype.Len(dest)
	if err != nil {
		have = len(raw) / dt.Size
	}
	if have < n {
		return fmt.Errorf("%w: have %d elements, need %d", ErrBufferSize, have, n)
	}
	return dtype.Convert(raw, dt, a.a.Data, a.a.Type, n)
}

// Float64s returns a numeric value converted to float64.
func (a *Attribute) Float64s() ([]float64, error) {
	out := make([]float64, a.a.NumElements())
	return out, a.Read(out)
}

// Int64s returns a numeric value converted to int64 with saturation.
func (a *Attribute) Int64s() ([]int64, error) {
	out := make([]int64, a.a.NumElements())
	return out, a.Read(out)
}

// Strings returns a string value.
func (a *Attribute) Strings() ([]string, error) {
	out := make([]string, a.a.NumElements())
	return out, a.Read(out)
}

// ScalarFloat64 returns the first element as float64.
func (a *Attribute) ScalarFloat64() (float64, error) {
	vals, err := a.Float64s()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %s is empty", a.a.Name)
	}
	return vals[0], nil
}

// ScalarInt64 returns the first element as int64.
func (a *Attribute) ScalarInt64() (int64, error) {
	vals, err := a.Int64s()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %s is empty", a.a.Name)
	}
	return vals[0], nil
}

// ScalarString returns the first element of a string attribute.
func (a *Attribute) ScalarString() (string, error) {
	vals, err := a.Strings()
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", fmt.Errorf("attribute %s is empty", a.a.Name)
	}
	return vals[0], nil
}

// Value returns the attribute as a Go value: a scalar of the matching Go
// type for scalars, otherwise a slice.
func (a *Attribute) Value() (any, error) {
	if a.a.Type.Class == dtype.ClassString {
		if a.IsScalar() {
			return a.ScalarString()
		}
		return a.Strings()
	}
	if a.IsScalar() {
		return dtype.DecodeScalar(a.a.Type, a.a.Data)
	}
	out, err := makeSlice(a.a.Type, int(a.a.NumElements()))
	if err != nil {
		return nil, err
	}
	return out, a.Read(out)
}

func makeSlice(dt dtype.Datatype, n int) (any, error) {
	switch {
	case dt.Class == dtype.ClassFloat && dt.Size == 4:
		return make([]float32, n), nil
	case dt.Class == dtype.ClassFloat && dt.Size == 8:
		return make([]float64, n), nil
	case dt.Class != dtype.ClassInteger:
	case dt.Signed:
		switch dt.Size {
		case 1:
			return make([]int8, n), nil
		case 2:
			return make([]int16, n), nil
		case 4:
			return make([]int32, n), nil
		case 8:
			return make([]int64, n), nil
		}
	default:
		switch dt.Size {
		case 1:
			return make([]uint8, n), nil
		case 2:
			return make([]uint16, n), nil
		case 4:
			return make([]uint32, n), nil
		case 8:
			return make([]uint64, n), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", dtype.ErrUnsupportedType, dt)
}

func scalarType(v any) (dtype.Datatype, bool) {
	switch v.(type) {
	case int8:
		return dtype.Int8, true
	case int16:
		return dtype.Int16, true
	case int32:
		return dtype.Int32, true
	case int64:
		return dtype.Int64, true
	case uint8:
		return dtype.Uint8, true
	case uint16:
		return dtype.Uint16, true
	case uint32:
		return dtype.Uint32, true
	case uint64:
		return dtype.Uint64, true
	case float32:
		return dtype.Float32, true
	case float64:
		return dtype.Float64, true
	}
	return dtype.Datatype{}, false
}

// newAttribute encodes a Go value. Strings and string slices become string
// attributes; int, uint and bool widen to int64, uint64 and uint8.
func newAttribute(name string, value any) (*object.Attribute, error) {
	switch v := value.(type) {
	case string:
		return &object.Attribute{Name: name, Type: dtype.String, Strings: []string{v}}, nil
	case []string:
		return &object.Attribute{Name: name, Type: dtype.String, Dims: []uint64{uint64(len(v))}, Strings: slices.Clone(v)}, nil
	case bool:
		var b uint8
		if v {
			b = 1
		}
		value = b
	case int:
		value = int64(v)
	case uint:
		value = uint64(v)
	case []int:
		wide := make([]int64, len(v))
		for i, x := range v {
			wide[i] = int64(x)
		}
		value = wide
	}

	if dt, ok := scalarType(value); ok {
		data, err := dtype.EncodeScalar(dt, value)
		if err != nil {
			return nil, err
		}
		return &object.Attribute{Name: name, Type: dt, Data: data}, nil
	}

	n, err := dtype.Len(value)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %s: %w", ErrTypeMismatch, name, err)
	}
	src, st, err := dtype.Bytes(value)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %s: %w", ErrTypeMismatch, name, err)
	}
	ft := st
	ft.Order = dtype.OrderLE
	data := make([]byte, n*ft.Size)
	if err := dtype.Convert(data, ft, src, st, n); err != nil {
		return nil, err
	}
	return &object.Attribute{Name: name, Type: ft, Dims: []uint64{uint64(n)}, Data: data}, nil
}

// SetAttr creates or replaces an attribute, inferring the stored type from
// the Go type of value.
func (h handle) SetAttr(name string, value any) error {
	if name == "" {
		return fmt.Errorf("%w: attribute name cannot be empty", ErrInvalidPath)
	}
	a, err := newAttribute(name, value)
	if err != nil {
		return err
	}
	return h.putAttr(a)
}

// SetAttrAs creates or replaces an attribute stored as dt, converting
// numeric values with saturation.
func (h handle) SetAttrAs(name string, dt dtype.Datatype, value any) error {
	if name == "" {
		return fmt.Errorf("%w: attribute name cannot be empty", ErrInvalidPath)
	}
	if err := dt.Validate(); err != nil {
		return err
	}
	a, err := newAttribute(name, value)
	if err != nil {
		return err
	}
	if (dt.Class == dtype.ClassString) != (a.Type.Class == dtype.ClassString) {
		return fmt.Errorf("%w: cannot store %T as %s", ErrTypeMismatch, value, dt)
	}
	if dt.IsNumeric() {
		dt.Order = dtype.OrderLE
		n := int(a.NumElements())
		data := make([]byte, n*dt.Size)
		if err := dtype.Convert(data, dt, a.Data, a.Type, n); err != nil {
			return err
		}
		a.Type, a.Data = dt, data
	}
	return h.putAttr(a)
}

func (h handle) putAttr(a *object.Attribute) error {
	if err := h.enter(true); err != nil {
		return err
	}
	defer h.f.mu.Unlock()
	h.node.SetAttr(a)
	h.f.metaDirty = true
	return nil
}

// Attr returns the named attribute.
func (h handle) Attr(name string) (*Attribute, error) {
	if err := h.enter(false); err != nil {
		return nil, err
	}
	defer h.f.mu.Unlock()
	a := h.node.Attr(name)
	if a == nil {
		return nil, fmt.Errorf("%w: attribute %s", ErrNotFound, JoinAttrPath(h.path, name))
	}
	return &Attribute{a: a}, nil
}

// HasAttr reports whether the named attribute exists.
func (h handle) HasAttr(name string) bool {
	if err := h.enter(false); err != nil {
		return false
	}
	defer h.f.mu.Unlock()
	return h.node.Attr(name) != nil
}

// Attrs returns the attribute names in sorted order.
func (h handle) Attrs() []string {
	if err := h.enter(false); err != nil {
		return nil
	}
	defer h.f.mu.Unlock()
	names := make([]string, len(h.node.Attrs))
	for i, a := range h.node.Attrs {
		names[i] = a.Name
	}
	return names
}

// DeleteAttr removes the named attribute.
func (h handle) DeleteAttr(name string) error {
	if err := h.enter(true); err != nil {
		return err
	}
	defer h.f.mu.Unlock()
	if !h.node.DeleteAttr(name) {
		return fmt.Errorf("%w: attribute %s", ErrNotFound, JoinAttrPath(h.path, name))
	}
	h.f.metaDirty = true
	return nil
}
