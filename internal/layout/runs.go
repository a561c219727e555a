package layout

// Run is a contiguous span of N elements shared by a chunk buffer and a
// caller buffer. Offsets are in elements.
type Run struct {
	Chunk  uint64
	Buffer uint64
	N      uint64
}

// Runs returns the copy runs between the chunk at coord and a caller buffer
// holding the hyperslab (start, count). bufDims is the shape of the caller
// buffer; the hyperslab occupies its leading corner, so bufDims[d] must be
// at least count[d]. Adjacent runs that are contiguous on both sides are
// merged.
func (g Grid) Runs(coord, start, count, bufDims []uint64) []Run {
	ndims := len(g.Dims)
	origin := g.Origin(coord)

	// Overlap of the chunk and the selection, in dataset coordinates.
	lo := make([]uint64, ndims)
	hi := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		chunkEnd := min(origin[d]+g.Chunk[d], g.Dims[d])
		lo[d] = max(start[d], origin[d])
		hi[d] = min(start[d]+count[d], chunkEnd)
		if lo[d] >= hi[d] {
			return nil
		}
	}

	chunkStrides := strides(g.Chunk)
	bufStrides := strides(bufDims)

	var runs []Run
	var walk func(dim int, chunkIdx, bufIdx uint64)
	walk = func(dim int, chunkIdx, bufIdx uint64) {
		if dim == ndims-1 {
			r := Run{
				Chunk:  chunkIdx + (lo[dim] - origin[dim]),
				Buffer: bufIdx + (lo[dim] - start[dim]),
				N:      hi[dim] - lo[dim],
			}
			if n := len(runs); n > 0 {
				prev := &runs[n-1]
				if prev.Chunk+prev.N == r.Chunk && prev.Buffer+prev.N == r.Buffer {
					prev.N += r.N
					return
				}
			}
			runs = append(runs, r)
			return
		}
		for i := lo[dim]; i < hi[dim]; i++ {
			walk(dim+1,
				chunkIdx+(i-origin[dim])*chunkStrides[dim],
				bufIdx+(i-start[dim])*bufStrides[dim])
		}
	}
	walk(0, 0, 0)
	return runs
}

// strides returns row-major element strides for a shape.
func strides(shape []uint64) []uint64 {
	s := make([]uint64, len(shape))
	acc := uint64(1)
	for d := len(shape) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= shape[d]
	}
	return s
}
