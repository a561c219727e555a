// Package layout maps n-dimensional selections onto the regular chunk grid
// of a dataset.
//
// A [Grid] pairs the dataset extent with the chunk shape. Chunks are
// addressed by their grid coordinate or by the row-major linear index of
// that coordinate. Every stored chunk has the full chunk shape; parts of
// edge chunks that fall outside the extent are padding.
//
// # Selections
//
// [Grid.Overlapping] visits every chunk intersecting a hyperslab, and
// [Grid.Runs] breaks the intersection into contiguous element runs that can
// be copied between a chunk buffer and a caller buffer:
//
//	g.Overlapping(start, count, func(coord []uint64, linear uint64, full bool) error {
//	    for _, r := range g.Runs(coord, start, count, bufDims) {
//	        copy(buf[r.Buffer*es:(r.Buffer+r.N)*es], chunk[r.Chunk*es:(r.Chunk+r.N)*es])
//	    }
//	    return nil
//	})
//
// The run decomposition works one dimension at a time, recursing until the
// innermost dimension where each row is a single contiguous copy.
package layout
