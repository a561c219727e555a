package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCounts(t *testing.T) {
	g, err := NewGrid([]uint64{10, 7}, []uint64{4, 3})
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 3}, g.ChunkCounts())
	assert.Equal(t, uint64(9), g.NumChunks())
	assert.Equal(t, uint64(12), g.ChunkElements())
	assert.Equal(t, uint64(70), g.Elements())
	assert.Equal(t, []uint64{2, 1}, g.Valid([]uint64{2, 2}))
	assert.Equal(t, []uint64{8, 6}, g.Origin([]uint64{2, 2}))
}

func TestNewGridErrors(t *testing.T) {
	_, err := NewGrid([]uint64{10}, []uint64{4, 4})
	assert.ErrorIs(t, err, ErrRank)
	_, err = NewGrid([]uint64{10}, []uint64{0})
	assert.ErrorIs(t, err, ErrInvalidChunks)
	_, err = NewGrid(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidChunks)
}

func TestLinearCoordRoundTrip(t *testing.T) {
	g, err := NewGrid([]uint64{10, 7, 5}, []uint64{4, 3, 2})
	require.NoError(t, err)
	for i := uint64(0); i < g.NumChunks(); i++ {
		assert.Equal(t, i, g.Linear(g.Coord(i)))
	}
	assert.Equal(t, uint64(1*3*3+2*3+1), g.Linear([]uint64{1, 2, 1}))
}

func TestRemap(t *testing.T) {
	old, _ := NewGrid([]uint64{8, 8}, []uint64{4, 4})
	grown, _ := NewGrid([]uint64{12, 12}, []uint64{4, 4})
	shrunk, _ := NewGrid([]uint64{4, 8}, []uint64{4, 4})

	// Chunk (1,1) is linear 3 in a 2x2 grid and linear 4 in a 3x3 grid.
	idx, ok := grown.Remap(old, 3)
	require.True(t, ok)
	assert.Equal(t, uint64(4), idx)

	_, ok = shrunk.Remap(old, 3)
	assert.False(t, ok)
	idx, ok = shrunk.Remap(old, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), idx)
}

func TestCheckRegion(t *testing.T) {
	g, _ := NewGrid([]uint64{10, 10}, []uint64{4, 4})
	assert.NoError(t, g.CheckRegion([]uint64{0, 0}, []uint64{10, 10}))
	assert.NoError(t, g.CheckRegion([]uint64{10, 0}, []uint64{0, 10}))
	assert.ErrorIs(t, g.CheckRegion([]uint64{5, 0}, []uint64{6, 1}), ErrOutOfBounds)
	assert.ErrorIs(t, g.CheckRegion([]uint64{0}, []uint64{1}), ErrRank)
}

type visit struct {
	coord  [2]uint64
	linear uint64
	full   bool
}

func TestOverlapping(t *testing.T) {
	g, _ := NewGrid([]uint64{10, 10}, []uint64{4, 4})

	var got []visit
	err := g.Overlapping([]uint64{2, 4}, []uint64{6, 6}, func(c []uint64, l uint64, full bool) error {
		got = append(got, visit{[2]uint64{c[0], c[1]}, l, full})
		return nil
	})
	require.NoError(t, err)

	// Rows 2..7 touch chunk rows 0 and 1; columns 4..9 touch chunk columns 1
	// and 2. Chunk row 1 is fully covered, including the clipped columns
	// 8..9 of chunk (1,2).
	want := []visit{
		{[2]uint64{0, 1}, 1, false},
		{[2]uint64{0, 2}, 2, false},
		{[2]uint64{1, 1}, 4, true},
		{[2]uint64{1, 2}, 5, true},
	}
	assert.Equal(t, want, got)
}

func TestOverlappingEmptyAndError(t *testing.T) {
	g, _ := NewGrid([]uint64{10}, []uint64{4})
	calls := 0
	require.NoError(t, g.Overlapping([]uint64{3}, []uint64{0}, func([]uint64, uint64, bool) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)

	stop := errors.New("stop")
	err := g.Overlapping([]uint64{0}, []uint64{10}, func([]uint64, uint64, bool) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestRuns(t *testing.T) {
	g, _ := NewGrid([]uint64{6, 6}, []uint64{4, 4})

	// Select rows 1..4, cols 2..5 into a 4x5 caller buffer.
	start := []uint64{1, 2}
	count := []uint64{4, 4}
	bufDims := []uint64{4, 5}

	runs := g.Runs([]uint64{0, 0}, start, count, bufDims)
	assert.Equal(t, []Run{
		{Chunk: 1*4 + 2, Buffer: 0, N: 2},
		{Chunk: 2*4 + 2, Buffer: 5, N: 2},
		{Chunk: 3*4 + 2, Buffer: 10, N: 2},
	}, runs)

	// Edge chunk (1,1): rows 4..5 clipped to 4, cols 4..5.
	runs = g.Runs([]uint64{1, 1}, start, count, bufDims)
	assert.Equal(t, []Run{{Chunk: 0, Buffer: 3*5 + 2, N: 2}}, runs)

	assert.Nil(t, g.Runs([]uint64{1, 0}, []uint64{0, 0}, []uint64{1, 1}, []uint64{1, 1}))
}

func TestRunsMergeWholeRows(t *testing.T) {
	g, _ := NewGrid([]uint64{4, 4}, []uint64{4, 4})
	runs := g.Runs([]uint64{0, 0}, []uint64{0, 0}, []uint64{4, 4}, []uint64{4, 4})
	assert.Equal(t, []Run{{Chunk: 0, Buffer: 0, N: 16}}, runs)
}

func TestRunsCopyMatchesReference(t *testing.T) {
	dims := []uint64{9, 7}
	g, _ := NewGrid(dims, []uint64{4, 3})

	// Dataset value at (r, c) is r*100 + c.
	chunks := make(map[uint64][]int, g.NumChunks())
	for l := uint64(0); l < g.NumChunks(); l++ {
		coord := g.Coord(l)
		origin := g.Origin(coord)
		buf := make([]int, g.ChunkElements())
		for r := uint64(0); r < g.Chunk[0]; r++ {
			for c := uint64(0); c < g.Chunk[1]; c++ {
				buf[r*g.Chunk[1]+c] = int((origin[0]+r)*100 + origin[1] + c)
			}
		}
		chunks[l] = buf
	}

	start := []uint64{2, 1}
	count := []uint64{6, 5}
	bufDims := []uint64{6, 8}
	out := make([]int, bufDims[0]*bufDims[1])
	require.NoError(t, g.Overlapping(start, count, func(coord []uint64, l uint64, _ bool) error {
		for _, r := range g.Runs(coord, start, count, bufDims) {
			copy(out[r.Buffer:r.Buffer+r.N], chunks[l][r.Chunk:r.Chunk+r.N])
		}
		return nil
	}))

	for r := uint64(0); r < count[0]; r++ {
		for c := uint64(0); c < count[1]; c++ {
			want := int((start[0]+r)*100 + start[1] + c)
			assert.Equal(t, want, out[r*bufDims[1]+c], "row %d col %d", r, c)
		}
		for c := count[1]; c < bufDims[1]; c++ {
			assert.Zero(t, out[r*bufDims[1]+c], "padding row %d col %d", r, c)
		}
	}
}
