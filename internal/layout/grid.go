package layout

import (
	"errors"
	"fmt"
)

var (
	ErrRank          = errors.New("rank mismatch")
	ErrOutOfBounds   = errors.New("selection out of bounds")
	ErrInvalidChunks = errors.New("invalid chunk dimensions")
)

// Grid is a dataset extent divided into equally shaped chunks.
type Grid struct {
	Dims  []uint64
	Chunk []uint64
}

// NewGrid validates the chunk shape against the extent.
func NewGrid(dims, chunk []uint64) (Grid, error) {
	if len(dims) != len(chunk) {
		return Grid{}, fmt.Errorf("%w: extent has %d dimensions, chunk has %d", ErrRank, len(dims), len(chunk))
	}
	if len(dims) == 0 {
		return Grid{}, fmt.Errorf("%w: zero rank", ErrInvalidChunks)
	}
	for d, c := range chunk {
		if c == 0 {
			return Grid{}, fmt.Errorf("%w: dimension %d is zero", ErrInvalidChunks, d)
		}
	}
	return Grid{Dims: dims, Chunk: chunk}, nil
}

// Rank returns the number of dimensions.
func (g Grid) Rank() int {
	return len(g.Dims)
}

// ChunkElements returns the number of elements in one chunk.
func (g Grid) ChunkElements() uint64 {
	n := uint64(1)
	for _, c := range g.Chunk {
		n *= c
	}
	return n
}

// Elements returns the number of elements in the extent.
func (g Grid) Elements() uint64 {
	n := uint64(1)
	for _, d := range g.Dims {
		n *= d
	}
	return n
}

// ChunkCounts returns the number of chunks along each dimension.
func (g Grid) ChunkCounts() []uint64 {
	counts := make([]uint64, len(g.Dims))
	for d := range g.Dims {
		counts[d] = (g.Dims[d] + g.Chunk[d] - 1) / g.Chunk[d]
	}
	return counts
}

// NumChunks returns the total number of chunks in the grid.
func (g Grid) NumChunks() uint64 {
	n := uint64(1)
	for _, c := range g.ChunkCounts() {
		n *= c
	}
	return n
}

// Linear returns the row-major index of a chunk coordinate.
func (g Grid) Linear(coord []uint64) uint64 {
	counts := g.ChunkCounts()
	var idx uint64
	for d := range coord {
		idx = idx*counts[d] + coord[d]
	}
	return idx
}

// Coord returns the chunk coordinate of a linear index.
func (g Grid) Coord(linear uint64) []uint64 {
	counts := g.ChunkCounts()
	coord := make([]uint64, len(counts))
	for d := len(counts) - 1; d >= 0; d-- {
		if counts[d] == 0 {
			return coord
		}
		coord[d] = linear % counts[d]
		linear /= counts[d]
	}
	return coord
}

// Contains reports whether a chunk coordinate lies inside the grid.
func (g Grid) Contains(coord []uint64) bool {
	counts := g.ChunkCounts()
	for d := range coord {
		if coord[d] >= counts[d] {
			return false
		}
	}
	return true
}

// Origin returns the element offset of a chunk's first element.
func (g Grid) Origin(coord []uint64) []uint64 {
	origin := make([]uint64, len(coord))
	for d := range coord {
		origin[d] = coord[d] * g.Chunk[d]
	}
	return origin
}

// Valid returns the number of in-extent elements of a chunk along each
// dimension. Edge chunks are clipped.
func (g Grid) Valid(coord []uint64) []uint64 {
	valid := make([]uint64, len(coord))
	for d := range coord {
		lo := coord[d] * g.Chunk[d]
		valid[d] = min(g.Chunk[d], g.Dims[d]-lo)
	}
	return valid
}

// CheckRegion validates a hyperslab against the extent.
func (g Grid) CheckRegion(start, count []uint64) error {
	if len(start) != len(g.Dims) || len(count) != len(g.Dims) {
		return fmt.Errorf("%w: start and count must have %d dimensions, got %d and %d",
			ErrRank, len(g.Dims), len(start), len(count))
	}
	for d := range g.Dims {
		if start[d] > g.Dims[d] || count[d] > g.Dims[d]-start[d] {
			return fmt.Errorf("%w: dimension %d, start=%d, count=%d, size=%d",
				ErrOutOfBounds, d, start[d], count[d], g.Dims[d])
		}
	}
	return nil
}

// Remap translates a linear chunk index of old into the index of the same
// chunk coordinate in g. It reports false when the chunk no longer exists.
func (g Grid) Remap(old Grid, linear uint64) (uint64, bool) {
	coord := old.Coord(linear)
	if !g.Contains(coord) {
		return 0, false
	}
	return g.Linear(coord), true
}

// Overlapping calls fn for every chunk intersecting the hyperslab, in
// row-major order. full is true when the hyperslab covers every in-extent
// element of the chunk. An empty hyperslab visits nothing.
func (g Grid) Overlapping(start, count []uint64, fn func(coord []uint64, linear uint64, full bool) error) error {
	if err := g.CheckRegion(start, count); err != nil {
		return err
	}
	ndims := len(g.Dims)
	first := make([]uint64, ndims)
	last := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		if count[d] == 0 {
			return nil
		}
		first[d] = start[d] / g.Chunk[d]
		last[d] = (start[d] + count[d] - 1) / g.Chunk[d]
	}

	coord := make([]uint64, ndims)
	copy(coord, first)
	for {
		if err := fn(coord, g.Linear(coord), g.covers(coord, start, count)); err != nil {
			return err
		}

		d := ndims - 1
		for ; d >= 0; d-- {
			if coord[d] < last[d] {
				coord[d]++
				break
			}
			coord[d] = first[d]
		}
		if d < 0 {
			return nil
		}
	}
}

func (g Grid) covers(coord, start, count []uint64) bool {
	for d := range coord {
		lo := coord[d] * g.Chunk[d]
		hi := min(lo+g.Chunk[d], g.Dims[d])
		if start[d] > lo || start[d]+count[d] < hi {
			return false
		}
	}
	return true
}
