package kea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-kea/internal/store"
)

func TestAttributeTableRoundTrip(t *testing.T) {
	path := tempImage(t)
	img, err := Create(path, Uint8, 4, 4, 1)
	require.NoError(t, err)
	assert.False(t, img.AttributeTablePresent(1))

	att := NewAttributeTable()
	require.NoError(t, att.AddIntField("X", 0, ""))
	att.AddRows(3)
	f, err := att.Feature(1)
	require.NoError(t, err)
	require.NoError(t, f.SetInt("X", 42))
	require.NoError(t, img.SetAttributeTable(1, att))
	assert.True(t, img.AttributeTablePresent(1))
	require.NoError(t, img.Close())

	img, err = Open(path, ReadOnly)
	require.NoError(t, err)
	defer img.Close()

	got, err := img.GetAttributeTable(1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Size())
	for row, want := range []int64{0, 42, 0} {
		f, err := got.Feature(uint64(row))
		require.NoError(t, err)
		v, err := f.Int("X")
		require.NoError(t, err)
		assert.Equal(t, want, v, "row %d", row)
	}
}

func TestAttributeTableAllKinds(t *testing.T) {
	path := tempImage(t)
	img, err := Create(path, Uint8, 4, 4, 1)
	require.NoError(t, err)

	// Rows added first take the column defaults.
	att := NewAttributeTable()
	att.AddRows(5)
	require.NoError(t, att.AddStringField("Name", "", "Name"))
	require.NoError(t, att.AddIntField("Histogram", 0, "PixelCount"))
	require.NoError(t, att.AddFloatField("Area", 1.5, "Generic"))
	require.NoError(t, att.AddBoolField("Valid", true, ""))
	require.NoError(t, att.AddIntField("Class", -1, ""))

	require.NoError(t, att.SetStringColumn("Name", 0, []string{"water", "forest", "", "urban", "bare"}))
	require.NoError(t, att.SetIntColumn("Histogram", 1, []int64{10, 20, 30, 40}))
	require.NoError(t, att.SetBoolColumn("Valid", 2, []bool{false}))
	require.NoError(t, att.SetFloatColumn("Area", 4, []float64{-2.25}))

	// Chunks of two rows force a partial last chunk.
	require.NoError(t, img.SetAttributeTable(1, att, WithATTChunkSize(2), WithATTDeflate(3)))
	require.NoError(t, img.Close())

	img, err = Open(path, ReadOnly)
	require.NoError(t, err)
	defer img.Close()
	got, err := img.GetAttributeTable(1)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), got.Size())
	assert.Equal(t, uint64(5), got.MaxGlobalColumnIndex())
	assert.Equal(t, 2, got.FieldCount(FieldInt))
	assert.Equal(t, 1, got.FieldCount(FieldString))
	assert.Equal(t, att.Columns(), got.Columns())

	names, err := got.StringColumn("Name", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"water", "forest", "", "urban", "bare"}, names)
	hist, err := got.IntColumn("Histogram", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 10, 20, 30, 40}, hist)
	class, err := got.IntColumn("Class", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -1, -1, -1, -1}, class)
	valid, err := got.BoolColumn("Valid", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, true, true}, valid)
	area, err := got.FloatColumn("Area", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.25}, area)

	col, err := got.Column("Histogram")
	require.NoError(t, err)
	assert.Equal(t, "PixelCount", col.Usage)
	assert.Equal(t, uint64(1), col.ColNum)
	byIdx, err := got.ColumnByIndex(3)
	require.NoError(t, err)
	assert.Equal(t, "Valid", byIdx.Name)
}

func TestAttributeTableSchemaErrors(t *testing.T) {
	att := NewAttributeTable()
	require.NoError(t, att.AddIntField("X", 0, ""))
	att.AddRows(2)

	err := att.AddIntField("X", 0, "")
	assert.True(t, IsAttributeError(err))
	assert.ErrorIs(t, err, ErrColumnExists)

	_, err = att.Column("missing")
	assert.True(t, IsAttributeError(err))
	assert.ErrorIs(t, err, ErrColumnNotFound)

	// The table is unchanged by the failures.
	assert.Equal(t, uint64(2), att.Size())
	assert.Len(t, att.Columns(), 1)
	assert.Equal(t, uint64(1), att.MaxGlobalColumnIndex())

	f, err := att.Feature(1)
	require.NoError(t, err)
	_, err = f.Float("X")
	assert.True(t, IsTypeError(err))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.True(t, IsAttributeError(f.SetInt("Y", 1)))

	_, err = att.Feature(2)
	assert.True(t, IsAttributeError(err))
	assert.ErrorIs(t, err, ErrRowIndex)

	_, err = att.IntColumn("X", 1, 2)
	assert.ErrorIs(t, err, ErrRowIndex)

	assert.True(t, IsTypeError(att.AddColumn("S", FieldString, 3, "")))
	assert.True(t, IsTypeError(att.AddColumn("N", FieldNA, nil, "")))
	assert.True(t, IsTypeError(att.AddColumn("I", FieldInt, 2.5, "")))
	assert.ErrorIs(t, att.AddColumn("", FieldInt, nil, ""), ErrInvalidParam)
}

func TestAttributeTableRemoveColumn(t *testing.T) {
	att := NewAttributeTable()
	att.AddRows(2)
	require.NoError(t, att.AddIntField("A", 1, ""))
	require.NoError(t, att.AddIntField("B", 2, ""))
	require.NoError(t, att.AddIntField("C", 3, ""))

	require.NoError(t, att.RemoveColumn("B"))
	assert.ErrorIs(t, att.RemoveColumn("B"), ErrColumnNotFound)
	assert.Equal(t, 2, att.FieldCount(FieldInt))
	assert.Equal(t, uint64(3), att.MaxGlobalColumnIndex())

	f, err := att.Feature(0)
	require.NoError(t, err)
	c, err := f.Int("C")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c)

	require.NoError(t, att.AddIntField("D", 4, ""))
	d, err := att.Column("D")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), d.ColNum)

	v, err := f.Value("D")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestAttributeTableReplace(t *testing.T) {
	path := tempImage(t)
	img, err := Create(path, Uint8, 4, 4, 1)
	require.NoError(t, err)
	defer img.Close()

	first := NewAttributeTable()
	require.NoError(t, first.AddFloatField("F", 0, ""))
	first.AddRows(100)
	require.NoError(t, img.SetAttributeTable(1, first))

	second := NewAttributeTable()
	second.AddRows(1)
	require.NoError(t, second.AddStringField("S", "x", ""))
	require.NoError(t, img.SetAttributeTable(1, second))

	got, err := img.GetAttributeTable(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Size())
	assert.False(t, got.HasColumn("F"))
	f, err := got.Feature(0)
	require.NoError(t, err)
	s, err := f.String("S")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	// An empty table reads back empty.
	require.NoError(t, img.SetAttributeTable(1, NewAttributeTable()))
	assert.False(t, img.AttributeTablePresent(1))
	got, err = img.GetAttributeTable(1)
	require.NoError(t, err)
	assert.Zero(t, got.Size())
}

func TestAttributeTableAddRowsZeroValues(t *testing.T) {
	path := tempImage(t)
	img, err := Create(path, Uint8, 4, 4, 1)
	require.NoError(t, err)

	att := NewAttributeTable()
	require.NoError(t, att.AddIntField("I", 7, ""))
	require.NoError(t, att.AddFloatField("F", 2.5, ""))
	require.NoError(t, att.AddBoolField("B", true, ""))
	require.NoError(t, att.AddStringField("S", "def", ""))
	att.AddRows(2)

	check := func(tab *AttributeTable) {
		t.Helper()
		for row := range uint64(2) {
			f, err := tab.Feature(row)
			require.NoError(t, err)
			for name, want := range map[string]any{"I": int64(0), "F": 0.0, "B": false, "S": ""} {
				v, err := f.Value(name)
				require.NoError(t, err)
				assert.Equal(t, want, v, "row %d column %s", row, name)
			}
		}
	}
	check(att)
	require.NoError(t, img.SetAttributeTable(1, att))
	require.NoError(t, img.Close())

	img, err = Open(path, ReadWrite)
	require.NoError(t, err)
	defer img.Close()
	got, err := img.GetAttributeTable(1)
	require.NoError(t, err)
	check(got)

	// Rows added to a loaded table behave the same way.
	got.AddRows(1)
	f, err := got.Feature(2)
	require.NoError(t, err)
	v, err := f.Int("I")
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestAttributeTableFailedWriteKeepsPrevious(t *testing.T) {
	path := tempImage(t)
	img, err := Create(path, Uint8, 4, 4, 1)
	require.NoError(t, err)
	defer img.Close()

	first := NewAttributeTable()
	first.AddRows(3)
	require.NoError(t, first.AddIntField("Keep", 9, ""))
	require.NoError(t, img.SetAttributeTable(1, first))

	// A row missing its values cannot be flattened into a full chunk.
	broken := NewAttributeTable()
	broken.AddRows(2)
	require.NoError(t, broken.AddFloatField("F", 1, ""))
	broken.rows[1].floats = nil
	require.Error(t, img.SetAttributeTable(1, broken))

	g, err := img.bandGroup(1)
	require.NoError(t, err)
	assert.False(t, g.Has(attStaging))
	got, err := img.GetAttributeTable(1)
	require.NoError(t, err)
	vals, err := got.IntColumn("Keep", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 9, 9}, vals)

	// A staging group left by an interrupted write is replaced.
	_, err = g.CreateGroup(attStaging)
	require.NoError(t, err)
	second := NewAttributeTable()
	second.AddRows(1)
	require.NoError(t, second.AddStringField("S", "x", ""))
	require.NoError(t, img.SetAttributeTable(1, second))
	assert.False(t, g.Has(attStaging))
	assert.True(t, img.AttributeTablePresent(1))
}

func TestAttributeTableRejectsCorruptHeader(t *testing.T) {
	setup := func(t *testing.T) (*ImageIO, *store.Group) {
		t.Helper()
		img, err := Create(tempImage(t), Uint8, 4, 4, 1)
		require.NoError(t, err)
		t.Cleanup(func() { img.Close() })
		att := NewAttributeTable()
		att.AddRows(4)
		require.NoError(t, att.AddIntField("A", 1, ""))
		require.NoError(t, att.AddIntField("B", 2, ""))
		require.NoError(t, img.SetAttributeTable(1, att))
		hdr, err := img.f.OpenGroup("/BAND1/ATT/HEADER")
		require.NoError(t, err)
		return img, hdr
	}

	t.Run("duplicate index", func(t *testing.T) {
		img, hdr := setup(t)
		fields, err := hdr.OpenGroup("FIELDS/INT")
		require.NoError(t, err)
		require.NoError(t, fields.SetAttr(attIndexes, []uint64{0, 0}))
		_, err = img.GetAttributeTable(1)
		assert.ErrorIs(t, err, store.ErrCorrupted)
	})

	t.Run("row count beyond data", func(t *testing.T) {
		img, hdr := setup(t)
		require.NoError(t, hdr.SetAttr(attSize, []uint64{1 << 40, 0, 2, 0, 0}))
		_, err := img.GetAttributeTable(1)
		assert.ErrorIs(t, err, store.ErrCorrupted)
	})

	t.Run("row count without columns", func(t *testing.T) {
		img, hdr := setup(t)
		require.NoError(t, hdr.SetAttr(attSize, []uint64{1 << 40, 0, 0, 0, 0}))
		_, err := img.GetAttributeTable(1)
		assert.ErrorIs(t, err, store.ErrCorrupted)
	})
}
