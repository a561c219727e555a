package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-kea/internal/dtype"
)

func TestAttributeTypesAndReopen(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	require.NoError(t, err)
	root := f.Root()
	require.NoError(t, root.SetAttr("str", "KEA"))
	require.NoError(t, root.SetAttr("strs", []string{"a", "b"}))
	require.NoError(t, root.SetAttr("i", 42))
	require.NoError(t, root.SetAttr("u16", uint16(7)))
	require.NoError(t, root.SetAttr("f32s", []float32{1.5, -2}))
	require.NoError(t, root.SetAttr("b", true))
	require.NoError(t, root.SetAttr("ints", []int{1, 2, 3}))
	require.NoError(t, root.SetAttrAs("as8", dtype.Int8, 1000))
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	r := f2.Root()
	assert.Equal(t, []string{"as8", "b", "f32s", "i", "ints", "str", "strs", "u16"}, r.Attrs())

	get := func(name string) *Attribute {
		a, err := r.Attr(name)
		require.NoError(t, err)
		return a
	}

	v, err := get("str").Value()
	require.NoError(t, err)
	assert.Equal(t, "KEA", v)
	assert.True(t, get("str").IsScalar())

	v, err = get("strs").Value()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, []uint64{2}, get("strs").Shape())

	v, err = get("i").Value()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = get("u16").Value()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)
	assert.Equal(t, dtype.Uint16, get("u16").Type())

	v, err = get("f32s").Value()
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, v)

	n, err := get("b").ScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ints, err := get("ints").Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ints)

	n, err = get("as8").ScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(127), n)

	fl, err := get("u16").ScalarFloat64()
	require.NoError(t, err)
	assert.Equal(t, 7.0, fl)

	_, err = get("str").Float64s()
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = get("i").Strings()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = r.Attr("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttributeOverwriteAndDelete(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("d", dtype.Uint8, []uint64{1})
	require.NoError(t, err)

	require.NoError(t, ds.SetAttr("DESCRIPTION", 5))
	snap, err := ds.Attr("DESCRIPTION")
	require.NoError(t, err)

	// Overwriting may change the type.
	require.NoError(t, ds.SetAttr("DESCRIPTION", "band one"))
	a, err := ds.Attr("DESCRIPTION")
	require.NoError(t, err)
	s, err := a.ScalarString()
	require.NoError(t, err)
	assert.Equal(t, "band one", s)

	// Earlier snapshots are unaffected.
	n, err := snap.ScalarInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, ds.DeleteAttr("DESCRIPTION"))
	assert.False(t, ds.HasAttr("DESCRIPTION"))
	assert.ErrorIs(t, ds.DeleteAttr("DESCRIPTION"), ErrNotFound)

	assert.ErrorIs(t, ds.SetAttr("", 1), ErrInvalidPath)
	assert.ErrorIs(t, ds.SetAttr("bad", struct{}{}), ErrTypeMismatch)
	assert.ErrorIs(t, ds.SetAttrAs("bad", dtype.String, 3), ErrTypeMismatch)
}
