package store

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/cache"
	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/filter"
	"github.com/robert-malhotra/go-kea/internal/layout"
	"github.com/robert-malhotra/go-kea/internal/object"
)

// Dataset is an n-dimensional chunked array.
type Dataset struct {
	handle
}

func (d *Dataset) info() *object.DatasetInfo {
	return d.node.Dataset
}

// Type returns the stored element type.
func (d *Dataset) Type() dtype.Datatype {
	return d.info().Type
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return len(d.info().ChunkDims)
}

// Dims returns the current extent.
func (d *Dataset) Dims() []uint64 {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return slices.Clone(d.info().Dims)
}

// MaxDims returns the maximum extent. Unlimited marks unbounded dimensions.
func (d *Dataset) MaxDims() []uint64 {
	return slices.Clone(d.info().MaxDims)
}

// ChunkDims returns the chunk shape.
func (d *Dataset) ChunkDims() []uint64 {
	return slices.Clone(d.info().ChunkDims)
}

// Filters returns the filter pipeline in application order.
func (d *Dataset) Filters() []filter.Info {
	return slices.Clone(d.info().Filters)
}

// StoredBytes returns the encoded size of all stored chunks.
func (d *Dataset) StoredBytes() uint64 {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return d.info().StoredBytes()
}

// StoredChunks returns the number of chunks that have been written.
func (d *Dataset) StoredChunks() int {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return len(d.info().Chunks)
}

func (d *Dataset) grid() layout.Grid {
	info := d.info()
	return layout.Grid{Dims: info.Dims, Chunk: info.ChunkDims}
}

// checkBuffer validates a region and its caller buffer, returning the
// effective buffer shape.
func (d *Dataset) checkBuffer(g layout.Grid, start, count []uint64, buf any, bufDims []uint64) ([]uint64, error) {
	if err := g.CheckRegion(start, count); err != nil {
		return nil, err
	}
	if bufDims == nil {
		bufDims = count
	}
	if len(bufDims) != g.Rank() {
		return nil, fmt.Errorf("%w: buffer has %d dimensions, dataset has %d", layout.ErrRank, len(bufDims), g.Rank())
	}
	need := uint64(1)
	for i := range bufDims {
		if bufDims[i] < count[i] {
			return nil, fmt.Errorf("%w: buffer dimension %d is %d, region needs %d", ErrBufferSize, i, bufDims[i], count[i])
		}
		hi, lo := bits.Mul64(need, bufDims[i])
		if hi != 0 {
			return nil, fmt.Errorf("%w: buffer shape %v overflows", ErrBufferSize, bufDims)
		}
		need = lo
	}

	n, err := dtype.Len(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	_, isStrings := buf.([]string)
	if isStrings == d.info().Type.IsNumeric() {
		return nil, fmt.Errorf("%w: %T for %s dataset", ErrTypeMismatch, buf, d.info().Type)
	}
	if uint64(n) < need {
		return nil, fmt.Errorf("%w: have %d elements, need %d", ErrBufferSize, n, need)
	}
	return bufDims, nil
}

// Read reads the whole dataset into buf.
func (d *Dataset) Read(buf any) error {
	dims := d.Dims()
	return d.ReadRegion(make([]uint64, len(dims)), dims, buf, nil)
}

// Write writes buf over the whole dataset.
func (d *Dataset) Write(buf any) error {
	dims := d.Dims()
	return d.WriteRegion(make([]uint64, len(dims)), dims, buf, nil)
}

// ReadRegion reads the hyperslab (start, count) into buf, converting from
// the stored type to the element type of buf. buf is laid out row-major
// with shape bufDims, which defaults to count; the hyperslab fills the
// buffer's leading corner. Numeric datasets accept any numeric slice;
// string datasets require []string. Never-written chunks read as zero.
func (d *Dataset) ReadRegion(start, count []uint64, buf any, bufDims []uint64) error {
	if err := d.enter(false); err != nil {
		return err
	}
	defer d.f.mu.Unlock()

	g := d.grid()
	bufDims, err := d.checkBuffer(g, start, count, buf, bufDims)
	if err != nil {
		return err
	}
	info := d.info()

	var raw []byte
	var bt dtype.Datatype
	if info.Type.IsNumeric() {
		if raw, bt, err = dtype.Bytes(buf); err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
	}

	return g.Overlapping(start, count, func(coord []uint64, idx uint64, full bool) error {
		e, cached, err := d.f.chunk(d.node, g, idx, false)
		if err != nil {
			return err
		}
		for _, r := range g.Runs(coord, start, count, bufDims) {
			if !info.Type.IsNumeric() {
				copy(buf.([]string)[r.Buffer:r.Buffer+r.N], e.Strings[r.Chunk:r.Chunk+r.N])
				continue
			}
			fs := uint64(info.Type.Size)
			bs := uint64(bt.Size)
			if err := dtype.Convert(raw[r.Buffer*bs:], bt, e.Data[r.Chunk*fs:], info.Type, int(r.N)); err != nil {
				return err
			}
		}
		e.Full = e.Full || full
		return d.f.keep(e, cached, e.Size())
	})
}

// WriteRegion writes buf into the hyperslab (start, count), converting to
// the stored type with saturation. Buffer layout follows ReadRegion.
func (d *Dataset) WriteRegion(start, count []uint64, buf any, bufDims []uint64) error {
	if err := d.enter(true); err != nil {
		return err
	}
	defer d.f.mu.Unlock()

	g := d.grid()
	bufDims, err := d.checkBuffer(g, start, count, buf, bufDims)
	if err != nil {
		return err
	}
	info := d.info()

	var raw []byte
	var bt dtype.Datatype
	if info.Type.IsNumeric() {
		if raw, bt, err = dtype.Bytes(buf); err != nil {
			return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
	}

	return g.Overlapping(start, count, func(coord []uint64, idx uint64, full bool) error {
		e, cached, err := d.f.chunk(d.node, g, idx, full)
		if err != nil {
			return err
		}
		oldSize := e.Size()
		for _, r := range g.Runs(coord, start, count, bufDims) {
			if !info.Type.IsNumeric() {
				copy(e.Strings[r.Chunk:r.Chunk+r.N], buf.([]string)[r.Buffer:r.Buffer+r.N])
				continue
			}
			fs := uint64(info.Type.Size)
			bs := uint64(bt.Size)
			if err := dtype.Convert(e.Data[r.Chunk*fs:], info.Type, raw[r.Buffer*bs:], bt, int(r.N)); err != nil {
				return err
			}
		}
		e.Dirty = true
		e.Full = e.Full || full
		return d.f.keep(e, cached, oldSize)
	})
}

// Resize changes the extent within MaxDims. Chunks that fall entirely
// outside the new extent are released. Elements cut off by a shrink read
// as zero if the extent later grows back over them.
func (d *Dataset) Resize(newDims []uint64) error {
	if err := d.enter(true); err != nil {
		return err
	}
	defer d.f.mu.Unlock()

	info := d.info()
	if len(newDims) != len(info.Dims) {
		return fmt.Errorf("%w: new extent has %d dimensions, dataset has %d", layout.ErrRank, len(newDims), len(info.Dims))
	}
	for i := range newDims {
		if newDims[i] > info.MaxDims[i] {
			return fmt.Errorf("%w: dimension %d to %d, maximum %d", ErrExtent, i, newDims[i], info.MaxDims[i])
		}
	}
	if slices.Equal(newDims, info.Dims) {
		return nil
	}

	if err := d.f.flushObject(d.node.ID); err != nil {
		return err
	}
	d.f.chunks.Invalidate(d.node.ID)

	oldGrid := d.grid()
	newGrid := layout.Grid{Dims: slices.Clone(newDims), Chunk: info.ChunkDims}

	remapped := make(map[uint64]object.ChunkEntry, len(info.Chunks))
	var cut []uint64
	for idx, ce := range info.Chunks {
		nidx, ok := newGrid.Remap(oldGrid, idx)
		if !ok {
			d.f.alloc.Free(ce.Addr, ce.Capacity)
			d.f.sieve.invalidate(ce.Addr, ce.Capacity)
			continue
		}
		remapped[nidx] = ce
		if shrinksInto(oldGrid, newGrid, oldGrid.Coord(idx)) {
			cut = append(cut, nidx)
		}
	}
	info.Chunks = remapped
	info.Dims = newGrid.Dims
	d.f.metaDirty = true

	slices.Sort(cut)
	for _, idx := range cut {
		e, _, err := d.f.chunk(d.node, newGrid, idx, false)
		if err != nil {
			return err
		}
		zeroOutside(newGrid, newGrid.Coord(idx), e, info.Type.Size)
		e.Dirty = true
		if err := d.f.chunks.Put(e); err != nil {
			return err
		}
	}
	d.f.logger.Debug("resized dataset", "path", d.path, "dims", newDims, "chunks", len(remapped))
	return nil
}

// shrinksInto reports whether a chunk held in-extent elements that the new
// extent no longer covers.
func shrinksInto(old, cur layout.Grid, coord []uint64) bool {
	for i := range coord {
		end := min((coord[i]+1)*old.Chunk[i], old.Dims[i])
		if cur.Dims[i] < end {
			return true
		}
	}
	return false
}

// zeroOutside clears every element of a chunk that lies outside the extent.
func zeroOutside(g layout.Grid, coord []uint64, e *cache.Entry, size int) {
	origin := g.Origin(coord)
	pos := make([]uint64, g.Rank())
	total := g.ChunkElements()
	for lin := uint64(0); lin < total; lin++ {
		for k := range pos {
			if origin[k]+pos[k] >= g.Dims[k] {
				if e.Strings != nil {
					e.Strings[lin] = ""
				} else {
					clear(e.Data[lin*uint64(size) : (lin+1)*uint64(size)])
				}
				break
			}
		}
		for k := len(pos) - 1; k >= 0; k-- {
			pos[k]++
			if pos[k] < g.Chunk[k] {
				break
			}
			pos[k] = 0
		}
	}
}
