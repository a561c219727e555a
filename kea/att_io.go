package kea

import (
	"context"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-kea/internal/store"
)

// Names in the attribute table layout.
const (
	attHeader     = "HEADER"
	attFields     = "FIELDS"
	attData       = "DATA"
	attSize       = "SIZE"
	attChunkSize  = "CHUNKSIZE"
	attNextColNum = "NEXT_COLNUM"
	attNames      = "NAMES"
	attUsages     = "USAGES"
	attIndexes    = "INDEXES"
	attColNums    = "COLNUMS"

	// attStaging holds a table while it is written, before it replaces ATT.
	attStaging = "ATT_NEW"
)

// maxColumnlessRows bounds the row count of a stored table that has no
// data to check the count against.
const maxColumnlessRows = 1 << 24

var fieldGroups = [...]struct {
	t    FieldType
	name string
}{
	{FieldBool, "BOOL"},
	{FieldInt, "INT"},
	{FieldFloat, "FLOAT"},
	{FieldString, "STRING"},
}

// AttributeTablePresent reports whether a band has a stored attribute table
// with at least one row or column. It returns false on any error.
func (img *ImageIO) AttributeTablePresent(band uint) bool {
	g, err := img.bandGroup(band)
	if err != nil || !g.Has(attName) {
		return false
	}
	hdr, err := g.OpenGroup(attName + "/" + attHeader)
	if err != nil {
		return false
	}
	size, err := readSize(hdr)
	if err != nil {
		return false
	}
	for _, n := range size {
		if n > 0 {
			return true
		}
	}
	return false
}

// SetAttributeTable stores t as the attribute table of a band, replacing
// any existing one. WithATTChunkSize, WithATTDeflate and WithCodec apply.
func (img *ImageIO) SetAttributeTable(band uint, t *AttributeTable, opts ...Option) error {
	const op = "write attribute table"
	if t == nil {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: nil table", ErrInvalidParam)}
	}
	o := *img.opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.attChunkSize == 0 {
		o.attChunkSize = DefaultATTChunkSize
	}

	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	err = writeTable(g, t, &o)
	img.log.LogAttributeTable(context.Background(), "written", band, t.Size(), len(t.fields), err)
	return ioErr(op, img.path, err)
}

// writeTable writes t under a staging name and renames it over ATT once it
// is complete, so a failed write leaves the previous table in place.
func writeTable(g *store.Group, t *AttributeTable, o *options) error {
	if g.Has(attStaging) {
		if err := g.Unlink(attStaging); err != nil {
			return err
		}
	}
	att, err := g.CreateGroup(attStaging)
	if err != nil {
		return err
	}
	if err := fillTable(att, t, o); err != nil {
		return errors.Join(err, g.Unlink(attStaging))
	}
	if g.Has(attName) {
		if err := g.Unlink(attName); err != nil {
			return err
		}
	}
	return g.Rename(attStaging, attName)
}

func fillTable(att *store.Group, t *AttributeTable, o *options) error {
	hdr, err := att.CreateGroup(attHeader)
	if err != nil {
		return err
	}
	rows := t.Size()
	size := []uint64{rows,
		uint64(t.counts[FieldBool]), uint64(t.counts[FieldInt]),
		uint64(t.counts[FieldFloat]), uint64(t.counts[FieldString])}
	if err := hdr.SetAttr(attSize, size); err != nil {
		return err
	}
	if err := hdr.SetAttr(attChunkSize, o.attChunkSize); err != nil {
		return err
	}
	if err := hdr.SetAttr(attNextColNum, t.nextColNum); err != nil {
		return err
	}
	fields, err := hdr.CreateGroup(attFields)
	if err != nil {
		return err
	}
	data, err := att.CreateGroup(attData)
	if err != nil {
		return err
	}

	for _, fg := range fieldGroups {
		cols := t.typed(fg.t)
		if len(cols) == 0 {
			continue
		}
		if err := writeFields(fields, fg.name, cols); err != nil {
			return err
		}
		if rows == 0 {
			continue
		}
		if err := writeColumns(data, fg.name, t, fg.t, len(cols), o); err != nil {
			return fmt.Errorf("%s columns: %w", fg.name, err)
		}
	}
	return nil
}

// typed returns the columns of kind ft ordered by type-local index.
func (t *AttributeTable) typed(ft FieldType) []*Field {
	cols := make([]*Field, t.counts[ft])
	for _, fd := range t.fields {
		if fd.Type == ft {
			cols[fd.idx] = fd
		}
	}
	return cols
}

func writeFields(parent *store.Group, name string, cols []*Field) error {
	g, err := parent.CreateGroup(name)
	if err != nil {
		return err
	}
	names := make([]string, len(cols))
	usages := make([]string, len(cols))
	indexes := make([]uint64, len(cols))
	colNums := make([]uint64, len(cols))
	for i, fd := range cols {
		names[i], usages[i] = fd.Name, fd.Usage
		indexes[i], colNums[i] = uint64(fd.idx), fd.ColNum
	}
	for _, kv := range []struct {
		name  string
		value any
	}{
		{attNames, names},
		{attUsages, usages},
		{attIndexes, indexes},
		{attColNums, colNums},
	} {
		if err := g.SetAttr(kv.name, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// writeColumns stores all values of kind ft as a [rows, cols] dataset,
// one chunk of rows at a time.
func writeColumns(data *store.Group, name string, t *AttributeTable, ft FieldType, cols int, o *options) error {
	std, err := FieldStdType(ft)
	if err != nil {
		return err
	}
	rows := t.Size()
	chunk := min(o.attChunkSize, rows)
	dsOpts := append(o.compression(o.deflate), store.WithChunks(chunk, uint64(cols)))
	ds, err := data.CreateDataset(name, std, []uint64{rows, uint64(cols)}, dsOpts...)
	if err != nil {
		return err
	}

	for start := uint64(0); start < rows; start += chunk {
		n := min(chunk, rows-start)
		batch := t.rows[start : start+n]
		var buf any
		switch ft {
		case FieldBool:
			b := make([]uint8, 0, int(n)*cols)
			for _, r := range batch {
				for _, v := range r.bools {
					if v {
						b = append(b, 1)
					} else {
						b = append(b, 0)
					}
				}
			}
			buf = b
		case FieldInt:
			buf = flatten(batch, intSlot, cols)
		case FieldFloat:
			buf = flatten(batch, floatSlot, cols)
		case FieldString:
			buf = flatten(batch, stringSlot, cols)
		}
		if err := ds.WriteRegion([]uint64{start, 0}, []uint64{n, uint64(cols)}, buf, nil); err != nil {
			return err
		}
	}
	return nil
}

func flatten[T any](rows []*Feature, slot func(*Feature) []T, cols int) []T {
	out := make([]T, 0, len(rows)*cols)
	for _, r := range rows {
		out = append(out, slot(r)...)
	}
	return out
}

// GetAttributeTable loads the attribute table of a band. A band without a
// stored table yields a new empty table.
func (img *ImageIO) GetAttributeTable(band uint) (*AttributeTable, error) {
	const op = "read attribute table"
	g, err := img.bandGroup(band)
	if err != nil {
		return nil, ioErr(op, img.path, err)
	}
	if !g.Has(attName) {
		return NewAttributeTable(), nil
	}
	t, err := readTable(g)
	if err != nil {
		img.log.LogAttributeTable(context.Background(), "read", band, 0, 0, err)
		return nil, ioErr(op, img.path, err)
	}
	img.log.LogAttributeTable(context.Background(), "read", band, t.Size(), len(t.fields), nil)
	return t, nil
}

func readSize(hdr *store.Group) ([]uint64, error) {
	a, err := hdr.Attr(attSize)
	if err != nil {
		return nil, err
	}
	size := make([]uint64, 5)
	if a.NumElements() != 5 {
		return nil, fmt.Errorf("%w: attribute table SIZE has %d values", store.ErrCorrupted, a.NumElements())
	}
	if err := a.Read(size); err != nil {
		return nil, err
	}
	return size, nil
}

func readTable(g *store.Group) (*AttributeTable, error) {
	hdr, err := g.OpenGroup(attName + "/" + attHeader)
	if err != nil {
		return nil, err
	}
	size, err := readSize(hdr)
	if err != nil {
		return nil, err
	}
	next, err := intAttr(hdr, attNextColNum)
	if err != nil {
		return nil, err
	}

	t := NewAttributeTable()
	for _, fg := range fieldGroups {
		want := size[fg.t]
		if want == 0 {
			continue
		}
		fields, err := hdr.OpenGroup(attFields + "/" + fg.name)
		if err != nil {
			return nil, err
		}
		if err := t.readFields(fields, fg.t, int(want)); err != nil {
			return nil, fmt.Errorf("%s fields: %w", fg.name, err)
		}
	}
	t.nextColNum = max(uint64(next), t.nextColNum)

	// Shapes are checked before any row is allocated so a bad SIZE cannot
	// force a huge allocation.
	rows := size[0]
	var data [FieldString + 1]*store.Dataset
	for _, fg := range fieldGroups {
		cols := t.counts[fg.t]
		if cols == 0 || rows == 0 {
			continue
		}
		ds, err := g.OpenDataset(attName + "/" + attData + "/" + fg.name)
		if err != nil {
			return nil, err
		}
		if dims := ds.Dims(); len(dims) != 2 || dims[0] != rows || dims[1] != uint64(cols) {
			return nil, fmt.Errorf("%w: %s data has shape %v, expected [%d %d]", store.ErrCorrupted, fg.name, dims, rows, cols)
		}
		data[fg.t] = ds
	}
	if len(t.fields) == 0 && rows > maxColumnlessRows {
		return nil, fmt.Errorf("%w: table without columns claims %d rows", store.ErrCorrupted, rows)
	}

	t.rows = make([]*Feature, rows)
	for i := range t.rows {
		t.rows[i] = t.newFeature(uint64(i))
	}
	if rows == 0 {
		return t, nil
	}
	chunk, err := intAttr(hdr, attChunkSize)
	if err != nil || chunk <= 0 {
		chunk = DefaultATTChunkSize
	}
	for _, fg := range fieldGroups {
		if data[fg.t] == nil {
			continue
		}
		if err := t.readColumns(data[fg.t], fg.t, t.counts[fg.t], uint64(chunk)); err != nil {
			return nil, fmt.Errorf("%s columns: %w", fg.name, err)
		}
	}
	return t, nil
}

func (t *AttributeTable) readFields(g *store.Group, ft FieldType, n int) error {
	names := make([]string, n)
	usages := make([]string, n)
	indexes := make([]uint64, n)
	colNums := make([]uint64, n)
	for _, kv := range []struct {
		name string
		dest any
	}{
		{attNames, names},
		{attUsages, usages},
		{attIndexes, indexes},
		{attColNums, colNums},
	} {
		a, err := g.Attr(kv.name)
		if err != nil {
			return err
		}
		if a.NumElements() != uint64(n) {
			return fmt.Errorf("%w: %s has %d values, expected %d", store.ErrCorrupted, kv.name, a.NumElements(), n)
		}
		if err := a.Read(kv.dest); err != nil {
			return err
		}
	}

	seen := make([]bool, n)
	for i := range n {
		if indexes[i] >= uint64(n) {
			return fmt.Errorf("%w: column %q has index %d of %d", store.ErrCorrupted, names[i], indexes[i], n)
		}
		if seen[indexes[i]] {
			return fmt.Errorf("%w: column %q reuses index %d", store.ErrCorrupted, names[i], indexes[i])
		}
		seen[indexes[i]] = true
		if _, ok := t.byName[names[i]]; ok {
			return fmt.Errorf("%w: duplicate column %q", store.ErrCorrupted, names[i])
		}
		fd := &Field{Name: names[i], Type: ft, Usage: usages[i], ColNum: colNums[i], idx: int(indexes[i])}
		t.fields = append(t.fields, fd)
		t.byName[fd.Name] = fd
		t.nextColNum = max(t.nextColNum, fd.ColNum+1)
	}
	t.counts[ft] = n
	return nil
}

func (t *AttributeTable) readColumns(ds *store.Dataset, ft FieldType, cols int, chunk uint64) error {
	rows := t.Size()
	for start := uint64(0); start < rows; start += chunk {
		n := min(chunk, rows-start)
		batch := t.rows[start : start+n]
		region := func(buf any) error {
			return ds.ReadRegion([]uint64{start, 0}, []uint64{n, uint64(cols)}, buf, nil)
		}
		switch ft {
		case FieldBool:
			b := make([]uint8, int(n)*cols)
			if err := region(b); err != nil {
				return err
			}
			for i, r := range batch {
				for j := range cols {
					r.bools[j] = b[i*cols+j] != 0
				}
			}
		case FieldInt:
			if err := scatter(batch, intSlot, cols, region); err != nil {
				return err
			}
		case FieldFloat:
			if err := scatter(batch, floatSlot, cols, region); err != nil {
				return err
			}
		case FieldString:
			if err := scatter(batch, stringSlot, cols, region); err != nil {
				return err
			}
		}
	}
	return nil
}

func scatter[T any](rows []*Feature, slot func(*Feature) []T, cols int, read func(any) error) error {
	buf := make([]T, len(rows)*cols)
	if err := read(buf); err != nil {
		return err
	}
	for i, r := range rows {
		copy(slot(r), buf[i*cols:(i+1)*cols])
	}
	return nil
}
