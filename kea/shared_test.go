package kea

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	mu     sync.Mutex
	closed int
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func TestRefCountClosesOnce(t *testing.T) {
	for _, k := range []int{1, 2, 5} {
		c := &countingCloser{}
		r := NewRefCount(c)
		for range k {
			require.NoError(t, r.Acquire())
		}
		for range k - 1 {
			require.NoError(t, r.Release())
		}
		assert.Equal(t, 0, c.closed, "k=%d", k)
		assert.Equal(t, int64(1), r.Count())

		require.NoError(t, r.Release())
		assert.Equal(t, 1, c.closed)
		assert.True(t, r.Closed())

		assert.ErrorIs(t, r.Release(), ErrReleased)
		assert.ErrorIs(t, r.Acquire(), ErrClosed)
		assert.Equal(t, 1, c.closed)
	}
}

func TestRefCountConcurrent(t *testing.T) {
	c := &countingCloser{}
	r := NewRefCount(c)
	require.NoError(t, r.Acquire())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if r.Acquire() == nil {
					_ = r.Release()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, c.closed)
	require.NoError(t, r.Release())
	assert.Equal(t, 1, c.closed)
}

func TestImageHandles(t *testing.T) {
	path := tempImage(t)
	im, err := CreateImage(path, Uint8, 100, 100, 2, WithBlockSize(64))
	require.NoError(t, err)

	band, err := im.Band(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), im.RefCount().Count())

	_, err = im.Band(3)
	assert.ErrorIs(t, err, ErrBandIndex)

	require.NoError(t, im.Close())
	require.NoError(t, im.Close())
	assert.True(t, im.IO().IsOpen(), "band keeps the file open")
	_, err = im.Band(2)
	assert.ErrorIs(t, err, ErrClosed)

	x, y := band.Size()
	assert.Equal(t, [2]uint64{100, 100}, [2]uint64{x, y})
	assert.Equal(t, uint32(64), band.BlockSize())
	assert.Equal(t, Uint8, band.DataType())
	xb, yb := BlocksPerRow(band)
	assert.Equal(t, [2]uint64{2, 2}, [2]uint64{xb, yb})

	// Edge block (1,1) holds 36x36 pixels in the top-left of a 64x64 buffer.
	buf := fill(64*64, func(int) uint8 { return 9 })
	require.NoError(t, band.WriteBlock(1, 1, buf))
	got := make([]uint8, 36)
	require.NoError(t, band.ReadRaster(64, 99, 36, 1, got, 36, 1))
	assert.Equal(t, fill(36, func(int) uint8 { return 9 }), got)

	// Blocks past the edge are empty transfers.
	require.NoError(t, band.WriteBlock(2, 0, buf))
	require.NoError(t, band.ReadBlock(0, 5, buf))

	require.NoError(t, band.Close())
	assert.False(t, im.IO().IsOpen())
	assert.ErrorIs(t, band.ReadBlock(0, 0, buf), ErrClosed)
	require.NoError(t, band.Close())
}

func TestBandOverviews(t *testing.T) {
	path := tempImage(t)
	im, err := CreateImage(path, Float32, 101, 40, 1, WithBlockSize(16))
	require.NoError(t, err)
	band, err := im.Band(1)
	require.NoError(t, err)
	require.NoError(t, im.Close())

	require.NoError(t, band.SetNoDataValue(-9999))
	require.NoError(t, band.SetMetadataItem("LAYER", "dem"))
	require.NoError(t, band.CreateOverviews(2, 4, 8))
	n, err := band.NumOverviews()
	require.NoError(t, err)
	assert.Equal(t, uint(3), n)

	// Replacing with fewer levels removes the rest.
	require.NoError(t, band.CreateOverviews(2, 4))
	n, err = band.NumOverviews()
	require.NoError(t, err)
	assert.Equal(t, uint(2), n)
	assert.ErrorIs(t, band.CreateOverviews(0), ErrInvalidParam)

	ov, err := band.Overview(2)
	require.NoError(t, err)
	x, y := ov.Size()
	assert.Equal(t, [2]uint64{25, 10}, [2]uint64{x, y})
	assert.Equal(t, uint32(16), ov.BlockSize())
	assert.Equal(t, Float32, ov.DataType())

	block := fill(16*16, func(i int) float32 { return float32(i) })
	require.NoError(t, ov.WriteBlock(1, 0, block))
	got := make([]float32, 9)
	require.NoError(t, ov.ReadRaster(16, 0, 9, 1, got, 9, 1))
	assert.Equal(t, block[:9], got)

	var nd float32
	require.NoError(t, ov.NoDataValue(&nd))
	assert.Equal(t, float32(-9999), nd)
	md, err := ov.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []MetadataItem{{Name: "LAYER", Value: "dem"}}, md)

	_, err = band.Overview(3)
	assert.ErrorIs(t, err, ErrOverviewNotFound)

	require.NoError(t, band.Close())
	assert.True(t, ov.img.IsOpen())
	require.NoError(t, ov.Close())
	assert.False(t, ov.img.IsOpen())
}
