package kea

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/dtype"
)

// Field describes an attribute table column. ColNum is the global column
// index, assigned in creation order and never reused.
type Field struct {
	Name   string
	Type   FieldType
	Usage  string
	ColNum uint64

	idx int // position among the columns of the same type
}

// AttributeTable is an in-memory table of typed columns attached to a
// band. Rows are Features addressed by a 0-based row index.
type AttributeTable struct {
	fields     []*Field
	byName     map[string]*Field
	counts     [FieldString + 1]int
	nextColNum uint64
	rows       []*Feature
}

// NewAttributeTable returns an empty table.
func NewAttributeTable() *AttributeTable {
	return &AttributeTable{byName: make(map[string]*Field)}
}

// Feature is one row of an attribute table. Its values are modified in
// place through the setters.
type Feature struct {
	FID uint64

	t       *AttributeTable
	bools   []bool
	ints    []int64
	floats  []float64
	strings []string
}

// normalise converts v to the value kind of ft.
func normalise(op, name string, ft FieldType, v any) (any, error) {
	if v == nil {
		switch ft {
		case FieldBool:
			return false, nil
		case FieldInt:
			return int64(0), nil
		case FieldFloat:
			return float64(0), nil
		case FieldString:
			return "", nil
		}
	}
	switch ft {
	case FieldBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case FieldInt:
		switch v.(type) {
		case bool, float32, float64:
		default:
			if n, err := dtype.ToInt64(v); err == nil {
				return n, nil
			}
		}
	case FieldFloat:
		if _, ok := v.(bool); ok {
			break
		}
		if f, err := dtype.ToFloat64(v); err == nil {
			return f, nil
		}
	case FieldString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	default:
		return nil, typeErr(op, ft, ErrUnsupportedType)
	}
	return nil, typeErr(op, fmt.Sprintf("%T", v), fmt.Errorf("%w: column %q is %s", ErrKindMismatch, name, ft))
}

// AddColumn adds a column of kind ft. Existing rows take the value def,
// which may be nil for the zero value of the kind.
func (t *AttributeTable) AddColumn(name string, ft FieldType, def any, usage string) error {
	const op = "add column"
	if name == "" {
		return attErr(op, name, fmt.Errorf("%w: column name is empty", ErrInvalidParam))
	}
	if _, ok := t.byName[name]; ok {
		return attErr(op, name, ErrColumnExists)
	}
	if !ft.Valid() {
		return typeErr(op, ft, ErrUnsupportedType)
	}
	v, err := normalise(op, name, ft, def)
	if err != nil {
		return err
	}

	fd := &Field{Name: name, Type: ft, Usage: usage, ColNum: t.nextColNum, idx: t.counts[ft]}
	t.nextColNum++
	t.counts[ft]++
	t.fields = append(t.fields, fd)
	t.byName[name] = fd
	for _, r := range t.rows {
		r.grow(fd, v)
	}
	return nil
}

// AddBoolField adds a boolean column.
func (t *AttributeTable) AddBoolField(name string, def bool, usage string) error {
	return t.AddColumn(name, FieldBool, def, usage)
}

// AddIntField adds an integer column.
func (t *AttributeTable) AddIntField(name string, def int64, usage string) error {
	return t.AddColumn(name, FieldInt, def, usage)
}

// AddFloatField adds a floating point column.
func (t *AttributeTable) AddFloatField(name string, def float64, usage string) error {
	return t.AddColumn(name, FieldFloat, def, usage)
}

// AddStringField adds a string column.
func (t *AttributeTable) AddStringField(name string, def string, usage string) error {
	return t.AddColumn(name, FieldString, def, usage)
}

// RemoveColumn deletes a column. Its global index is not reused.
func (t *AttributeTable) RemoveColumn(name string) error {
	fd, ok := t.byName[name]
	if !ok {
		return attErr("remove column", name, ErrColumnNotFound)
	}
	delete(t.byName, name)
	t.fields = slices.DeleteFunc(t.fields, func(f *Field) bool { return f == fd })
	for _, f := range t.fields {
		if f.Type == fd.Type && f.idx > fd.idx {
			f.idx--
		}
	}
	t.counts[fd.Type]--
	for _, r := range t.rows {
		r.shrink(fd)
	}
	return nil
}

// Column returns the column with the given name.
func (t *AttributeTable) Column(name string) (Field, error) {
	fd, ok := t.byName[name]
	if !ok {
		return Field{}, attErr("get column", name, ErrColumnNotFound)
	}
	return *fd, nil
}

// ColumnByIndex returns the column with global index colNum.
func (t *AttributeTable) ColumnByIndex(colNum uint64) (Field, error) {
	for _, fd := range t.fields {
		if fd.ColNum == colNum {
			return *fd, nil
		}
	}
	return Field{}, attErr("get column", fmt.Sprintf("#%d", colNum), ErrColumnNotFound)
}

// HasColumn reports whether a column exists.
func (t *AttributeTable) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Columns returns all columns ordered by global index.
func (t *AttributeTable) Columns() []Field {
	out := make([]Field, len(t.fields))
	for i, fd := range t.fields {
		out[i] = *fd
	}
	slices.SortFunc(out, func(a, b Field) int {
		switch {
		case a.ColNum < b.ColNum:
			return -1
		case a.ColNum > b.ColNum:
			return 1
		}
		return 0
	})
	return out
}

// FieldCount returns the number of columns of kind ft.
func (t *AttributeTable) FieldCount(ft FieldType) int {
	if !ft.Valid() {
		return 0
	}
	return t.counts[ft]
}

// MaxGlobalColumnIndex returns the global index the next column will get.
func (t *AttributeTable) MaxGlobalColumnIndex() uint64 {
	return t.nextColNum
}

// Size returns the number of rows.
func (t *AttributeTable) Size() uint64 {
	return uint64(len(t.rows))
}

// AddRows appends n rows. Every field of a new row holds the zero value of
// its kind; column defaults only back-fill rows that exist when the column
// is added.
func (t *AttributeTable) AddRows(n uint64) {
	for range n {
		t.rows = append(t.rows, t.newFeature(uint64(len(t.rows))))
	}
}

// Feature returns row i.
func (t *AttributeTable) Feature(i uint64) (*Feature, error) {
	if i >= uint64(len(t.rows)) {
		return nil, attErr("get feature", "", fmt.Errorf("%w: row %d of %d", ErrRowIndex, i, len(t.rows)))
	}
	return t.rows[i], nil
}

func (t *AttributeTable) newFeature(fid uint64) *Feature {
	return &Feature{
		FID:     fid,
		t:       t,
		bools:   make([]bool, t.counts[FieldBool]),
		ints:    make([]int64, t.counts[FieldInt]),
		floats:  make([]float64, t.counts[FieldFloat]),
		strings: make([]string, t.counts[FieldString]),
	}
}

func (t *AttributeTable) field(op, name string, ft FieldType) (*Field, error) {
	fd, ok := t.byName[name]
	if !ok {
		return nil, attErr(op, name, ErrColumnNotFound)
	}
	if fd.Type != ft {
		return nil, typeErr(op, ft, fmt.Errorf("%w: column %q is %s", ErrKindMismatch, name, fd.Type))
	}
	return fd, nil
}

// grow appends the slot of a new column holding the normalised value v.
func (f *Feature) grow(fd *Field, v any) {
	switch fd.Type {
	case FieldBool:
		f.bools = append(f.bools, v.(bool))
	case FieldInt:
		f.ints = append(f.ints, v.(int64))
	case FieldFloat:
		f.floats = append(f.floats, v.(float64))
	case FieldString:
		f.strings = append(f.strings, v.(string))
	}
}

func (f *Feature) shrink(fd *Field) {
	switch fd.Type {
	case FieldBool:
		f.bools = slices.Delete(f.bools, fd.idx, fd.idx+1)
	case FieldInt:
		f.ints = slices.Delete(f.ints, fd.idx, fd.idx+1)
	case FieldFloat:
		f.floats = slices.Delete(f.floats, fd.idx, fd.idx+1)
	case FieldString:
		f.strings = slices.Delete(f.strings, fd.idx, fd.idx+1)
	}
}

// Bool returns the value of a boolean column.
func (f *Feature) Bool(name string) (bool, error) {
	fd, err := f.t.field("get bool", name, FieldBool)
	if err != nil {
		return false, err
	}
	return f.bools[fd.idx], nil
}

// SetBool sets the value of a boolean column.
func (f *Feature) SetBool(name string, v bool) error {
	fd, err := f.t.field("set bool", name, FieldBool)
	if err != nil {
		return err
	}
	f.bools[fd.idx] = v
	return nil
}

// Int returns the value of an integer column.
func (f *Feature) Int(name string) (int64, error) {
	fd, err := f.t.field("get int", name, FieldInt)
	if err != nil {
		return 0, err
	}
	return f.ints[fd.idx], nil
}

// SetInt sets the value of an integer column.
func (f *Feature) SetInt(name string, v int64) error {
	fd, err := f.t.field("set int", name, FieldInt)
	if err != nil {
		return err
	}
	f.ints[fd.idx] = v
	return nil
}

// Float returns the value of a floating point column.
func (f *Feature) Float(name string) (float64, error) {
	fd, err := f.t.field("get float", name, FieldFloat)
	if err != nil {
		return 0, err
	}
	return f.floats[fd.idx], nil
}

// SetFloat sets the value of a floating point column.
func (f *Feature) SetFloat(name string, v float64) error {
	fd, err := f.t.field("set float", name, FieldFloat)
	if err != nil {
		return err
	}
	f.floats[fd.idx] = v
	return nil
}

// String returns the value of a string column.
func (f *Feature) String(name string) (string, error) {
	fd, err := f.t.field("get string", name, FieldString)
	if err != nil {
		return "", err
	}
	return f.strings[fd.idx], nil
}

// SetString sets the value of a string column.
func (f *Feature) SetString(name string, v string) error {
	fd, err := f.t.field("set string", name, FieldString)
	if err != nil {
		return err
	}
	f.strings[fd.idx] = v
	return nil
}

// Value returns the value of any column as bool, int64, float64 or string.
func (f *Feature) Value(name string) (any, error) {
	fd, ok := f.t.byName[name]
	if !ok {
		return nil, attErr("get value", name, ErrColumnNotFound)
	}
	switch fd.Type {
	case FieldBool:
		return f.bools[fd.idx], nil
	case FieldInt:
		return f.ints[fd.idx], nil
	case FieldFloat:
		return f.floats[fd.idx], nil
	}
	return f.strings[fd.idx], nil
}

// rowRange validates the half-open row range [start, start+n).
func (t *AttributeTable) rowRange(op string, start, n uint64) error {
	if start > t.Size() || n > t.Size()-start {
		return attErr(op, "", fmt.Errorf("%w: rows %d+%d of %d", ErrRowIndex, start, n, t.Size()))
	}
	return nil
}

func getColumn[T any](t *AttributeTable, op, name string, ft FieldType, start, n uint64, slot func(*Feature) []T) ([]T, error) {
	fd, err := t.field(op, name, ft)
	if err != nil {
		return nil, err
	}
	if err := t.rowRange(op, start, n); err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		out[i] = slot(t.rows[start+uint64(i)])[fd.idx]
	}
	return out, nil
}

func setColumn[T any](t *AttributeTable, op, name string, ft FieldType, start uint64, vals []T, slot func(*Feature) []T) error {
	fd, err := t.field(op, name, ft)
	if err != nil {
		return err
	}
	if err := t.rowRange(op, start, uint64(len(vals))); err != nil {
		return err
	}
	for i, v := range vals {
		slot(t.rows[start+uint64(i)])[fd.idx] = v
	}
	return nil
}

func boolSlot(f *Feature) []bool     { return f.bools }
func intSlot(f *Feature) []int64     { return f.ints }
func floatSlot(f *Feature) []float64 { return f.floats }
func stringSlot(f *Feature) []string { return f.strings }

// BoolColumn returns n values of a boolean column starting at row start.
func (t *AttributeTable) BoolColumn(name string, start, n uint64) ([]bool, error) {
	return getColumn(t, "get bool column", name, FieldBool, start, n, boolSlot)
}

// IntColumn returns n values of an integer column starting at row start.
func (t *AttributeTable) IntColumn(name string, start, n uint64) ([]int64, error) {
	return getColumn(t, "get int column", name, FieldInt, start, n, intSlot)
}

// FloatColumn returns n values of a floating point column starting at row
// start.
func (t *AttributeTable) FloatColumn(name string, start, n uint64) ([]float64, error) {
	return getColumn(t, "get float column", name, FieldFloat, start, n, floatSlot)
}

// StringColumn returns n values of a string column starting at row start.
func (t *AttributeTable) StringColumn(name string, start, n uint64) ([]string, error) {
	return getColumn(t, "get string column", name, FieldString, start, n, stringSlot)
}

// SetBoolColumn sets consecutive values of a boolean column.
func (t *AttributeTable) SetBoolColumn(name string, start uint64, vals []bool) error {
	return setColumn(t, "set bool column", name, FieldBool, start, vals, boolSlot)
}

// SetIntColumn sets consecutive values of an integer column.
func (t *AttributeTable) SetIntColumn(name string, start uint64, vals []int64) error {
	return setColumn(t, "set int column", name, FieldInt, start, vals, intSlot)
}

// SetFloatColumn sets consecutive values of a floating point column.
func (t *AttributeTable) SetFloatColumn(name string, start uint64, vals []float64) error {
	return setColumn(t, "set float column", name, FieldFloat, start, vals, floatSlot)
}

// SetStringColumn sets consecutive values of a string column.
func (t *AttributeTable) SetStringColumn(name string, start uint64, vals []string) error {
	return setColumn(t, "set string column", name, FieldString, start, vals, stringSlot)
}
