package store

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/filter"
)

func seq[T int8 | int16 | int32 | uint8 | uint16 | float32 | float64](n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i % 100)
	}
	return out
}

func TestDatasetRoundTripAcrossReopen(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("grid", dtype.Float32, []uint64{10, 7}, WithChunks(4, 3), WithDeflate(1))
	require.NoError(t, err)
	data := seq[float32](70)
	require.NoError(t, ds.Write(data))
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	ds2, err := f2.OpenDataset("grid")
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 7}, ds2.Dims())
	assert.Equal(t, []uint64{4, 3}, ds2.ChunkDims())
	assert.Equal(t, 9, ds2.StoredChunks())

	got := make([]float32, 70)
	require.NoError(t, ds2.Read(got))
	assert.Equal(t, data, got)
}

func TestRegionWithLargerBuffer(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("img", dtype.Uint16, []uint64{5, 5}, WithChunks(2, 2))
	require.NoError(t, err)
	require.NoError(t, ds.Write(seq[uint16](25)))

	// 2x2 corner read into a 3x4 buffer: the region fills the leading corner.
	buf := make([]uint16, 12)
	for i := range buf {
		buf[i] = 999
	}
	require.NoError(t, ds.ReadRegion([]uint64{3, 3}, []uint64{2, 2}, buf, []uint64{3, 4}))
	assert.Equal(t, []uint16{
		18, 19, 999, 999,
		23, 24, 999, 999,
		999, 999, 999, 999,
	}, buf)

	err = ds.ReadRegion([]uint64{3, 3}, []uint64{2, 2}, make([]uint16, 4), []uint64{1, 4})
	assert.ErrorIs(t, err, ErrBufferSize)
	err = ds.ReadRegion([]uint64{4, 4}, []uint64{2, 2}, make([]uint16, 4), nil)
	assert.Error(t, err)

	// A buffer shape whose element count wraps around uint64 is rejected.
	err = ds.WriteRegion([]uint64{0, 0}, []uint64{2, 2}, make([]uint16, 4), []uint64{1 << 32, 1 << 32})
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestUnwrittenChunksReadZero(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("sparse", dtype.Int32, []uint64{8}, WithChunks(2))
	require.NoError(t, err)
	require.NoError(t, ds.WriteRegion([]uint64{2}, []uint64{2}, []int32{5, 6}, nil))

	got := make([]int32, 8)
	require.NoError(t, ds.Read(got))
	assert.Equal(t, []int32{0, 0, 5, 6, 0, 0, 0, 0}, got)
	require.NoError(t, f.Flush())
	assert.Equal(t, 1, ds.StoredChunks())
}

func TestTypeConversionSaturates(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("u8", dtype.Uint8, []uint64{4})
	require.NoError(t, err)
	require.NoError(t, ds.Write([]float64{-5, 12.0, 300, 255}))

	got := make([]int64, 4)
	require.NoError(t, ds.Read(got))
	assert.Equal(t, []int64{0, 12, 255, 255}, got)

	assert.ErrorIs(t, ds.Write([]string{"a", "b", "c", "d"}), ErrTypeMismatch)
	assert.ErrorIs(t, ds.Write(make([]uint8, 2)), ErrBufferSize)
}

func TestStringDataset(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("names", dtype.String, []uint64{5}, WithChunks(2), WithDeflate(1))
	require.NoError(t, err)
	require.NoError(t, ds.Write([]string{"alpha", "", "gamma", "delta", "épsilon"}))
	require.NoError(t, ds.WriteRegion([]uint64{1}, []uint64{1}, []string{"beta"}, nil))
	assert.ErrorIs(t, ds.Write(make([]int32, 5)), ErrTypeMismatch)
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	ds2, err := f2.OpenDataset("/names")
	require.NoError(t, err)
	got := make([]string, 5)
	require.NoError(t, ds2.Read(got))
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "épsilon"}, got)
}

func TestChunkGrowsAndShrinks(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path)
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("d", dtype.Uint8, []uint64{4096}, WithChunks(4096), WithDeflate(6))
	require.NoError(t, err)

	// Highly compressible first, then random data that needs a larger slot.
	require.NoError(t, ds.Write(make([]uint8, 4096)))
	require.NoError(t, f.Flush())
	small := ds.StoredBytes()

	noise := make([]uint8, 4096)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range noise {
		noise[i] = uint8(rng.IntN(256))
	}
	require.NoError(t, ds.Write(noise))
	require.NoError(t, f.Flush())
	assert.Greater(t, ds.StoredBytes(), small)
	assert.NotZero(t, f.Stats().FreeBytes, "the outgrown slot is returned to the free list")

	// Shrinking again rewrites in place.
	before := f.Stats().EOF
	require.NoError(t, ds.Write(make([]uint8, 4096)))
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	assert.LessOrEqual(t, f2.Stats().EOF, before+DefaultMetaBlockSize)
	ds2, err := f2.OpenDataset("d")
	require.NoError(t, err)
	got := make([]uint8, 4096)
	require.NoError(t, ds2.Read(got))
	assert.Equal(t, make([]uint8, 4096), got)
}

func TestResizeShrinkThenGrowReadsZero(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("att", dtype.Int64, []uint64{6}, WithChunks(4), WithMaxDims(Unlimited))
	require.NoError(t, err)
	require.NoError(t, ds.Write([]int64{1, 2, 3, 4, 5, 6}))

	require.NoError(t, ds.Resize([]uint64{3}))
	assert.Equal(t, []uint64{3}, ds.Dims())
	assert.Equal(t, 1, ds.StoredChunks(), "second chunk released")

	require.NoError(t, ds.Resize([]uint64{10}))
	got := make([]int64, 10)
	require.NoError(t, ds.Read(got))
	assert.Equal(t, []int64{1, 2, 3, 0, 0, 0, 0, 0, 0, 0}, got)
}

func TestResize2DRemapsChunks(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("m", dtype.Int16, []uint64{2, 2}, WithChunks(1, 1), WithMaxDims(Unlimited, 4))
	require.NoError(t, err)
	require.NoError(t, ds.Write([]int16{1, 2, 3, 4}))

	require.NoError(t, ds.Resize([]uint64{3, 3}))
	got := make([]int16, 9)
	require.NoError(t, ds.Read(got))
	assert.Equal(t, []int16{1, 2, 0, 3, 4, 0, 0, 0, 0}, got)

	assert.ErrorIs(t, ds.Resize([]uint64{3, 5}), ErrExtent)
}

func TestFixedDatasetCannotGrow(t *testing.T) {
	f, err := Create(tempPath(t))
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Root().CreateDataset("fixed", dtype.Float64, []uint64{4})
	require.NoError(t, err)
	assert.ErrorIs(t, ds.Resize([]uint64{5}), ErrExtent)
	require.NoError(t, ds.Resize([]uint64{2}))
}

func TestFilterPipelines(t *testing.T) {
	cases := map[string][]DatasetOption{
		"none":       nil,
		"deflate":    {WithDeflate(9), WithShuffle()},
		"zstd":       {WithZstd(3), WithFletcher32()},
		"lz4":        {WithLZ4()},
		"snappy":     {WithSnappy(), WithShuffle(), WithFletcher32()},
		"custom":     {WithFilter(filter.Info{ID: filter.IDShuffle})},
		"deflateoff": {WithDeflate(0)},
	}
	path := tempPath(t)
	f, err := Create(path)
	require.NoError(t, err)
	data := seq[int32](1000)
	for name, opts := range cases {
		ds, err := f.Root().CreateDataset(name, dtype.Int32, []uint64{1000}, append(opts, WithChunks(256))...)
		require.NoError(t, err, name)
		require.NoError(t, ds.Write(data), name)
	}
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	for name := range cases {
		ds, err := f2.OpenDataset(name)
		require.NoError(t, err, name)
		got := make([]int32, 1000)
		require.NoError(t, ds.Read(got), name)
		assert.Equal(t, data, got, name)
	}

	zs, err := f2.OpenDataset("zstd")
	require.NoError(t, err)
	ids := []uint16{}
	for _, fi := range zs.Filters() {
		ids = append(ids, fi.ID)
	}
	assert.Equal(t, []uint16{filter.IDZstd, filter.IDFletcher32}, ids)
}

func TestWriteThroughWithoutCache(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChunkCache(0, 0, 0))
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("d", dtype.Uint16, []uint64{6}, WithChunks(4))
	require.NoError(t, err)
	require.NoError(t, ds.WriteRegion([]uint64{0}, []uint64{3}, []uint16{1, 2, 3}, nil))
	require.NoError(t, ds.WriteRegion([]uint64{3}, []uint64{3}, []uint16{4, 5, 6}, nil))
	assert.Equal(t, 2, ds.StoredChunks(), "chunks are written immediately")
	assert.Zero(t, f.Stats().Cache.Entries)
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly, WithSieveBufferSize(0))
	require.NoError(t, err)
	defer f2.Close()
	ds2, err := f2.OpenDataset("d")
	require.NoError(t, err)
	got := make([]uint16, 6)
	require.NoError(t, ds2.Read(got))
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6}, got)
}

func TestSmallCacheEvictsDirtyChunks(t *testing.T) {
	path := tempPath(t)
	f, err := Create(path, WithChunkCache(2, 1<<20, 1))
	require.NoError(t, err)
	ds, err := f.Root().CreateDataset("d", dtype.Uint8, []uint64{64}, WithChunks(8), WithLZ4())
	require.NoError(t, err)
	for i := uint64(0); i < 8; i++ {
		chunk := make([]uint8, 8)
		for j := range chunk {
			chunk[j] = uint8(i)
		}
		require.NoError(t, ds.WriteRegion([]uint64{i * 8}, []uint64{8}, chunk, nil))
	}
	st := f.Stats().Cache
	assert.LessOrEqual(t, st.Entries, 2)
	assert.NotZero(t, st.WriteBacks)
	require.NoError(t, f.Close())

	f2, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f2.Close()
	ds2, err := f2.OpenDataset("d")
	require.NoError(t, err)
	got := make([]uint8, 64)
	require.NoError(t, ds2.Read(got))
	for i, v := range got {
		assert.Equal(t, uint8(i/8), v)
	}
}
