package store

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
	"github.com/robert-malhotra/go-kea/internal/cache"
	"github.com/robert-malhotra/go-kea/internal/filter"
	"github.com/robert-malhotra/go-kea/internal/layout"
	"github.com/robert-malhotra/go-kea/internal/object"
)

// chunk returns the decoded chunk at linear index idx. The second result
// reports whether the entry came from the cache. When overwrite is set and
// the chunk is not cached, the stored contents are not read since every
// in-extent element is about to be replaced.
func (f *File) chunk(n *object.Node, g layout.Grid, idx uint64, overwrite bool) (*cache.Entry, bool, error) {
	key := cache.Key{Object: n.ID, Chunk: idx}
	if e, ok := f.chunks.Get(key); ok {
		return e, true, nil
	}

	info := n.Dataset
	e := &cache.Entry{Key: key}
	nelems := g.ChunkElements()
	ce, stored := info.Chunks[idx]
	if !stored || overwrite {
		if info.Type.IsNumeric() {
			e.Data = make([]byte, nelems*uint64(info.Type.Size))
		} else {
			e.Strings = make([]string, nelems)
		}
		return e, false, nil
	}

	raw, err := f.sieve.read(f.file, ce.Addr, ce.Size, f.alloc.EOFAddr())
	if err != nil {
		return nil, false, fmt.Errorf("reading chunk %d at 0x%x: %w", idx, ce.Addr, err)
	}
	p, err := f.pipeline(n)
	if err != nil {
		return nil, false, err
	}
	data, err := p.Decode(raw, ce.FilterMask)
	if err != nil {
		return nil, false, fmt.Errorf("%w: chunk %d: %w", ErrCorrupted, idx, err)
	}

	if info.Type.IsNumeric() {
		if want := nelems * uint64(info.Type.Size); uint64(len(data)) != want {
			return nil, false, fmt.Errorf("%w: chunk %d decoded to %d bytes, expected %d",
				ErrCorrupted, idx, len(data), want)
		}
		e.Data = data
	} else {
		e.Strings, err = decodeStrings(data, nelems)
		if err != nil {
			return nil, false, fmt.Errorf("%w: chunk %d: %w", ErrCorrupted, idx, err)
		}
	}
	return e, false, nil
}

// keep hands a chunk back to the cache after use. A modified chunk that
// the cache cannot hold is written through.
func (f *File) keep(e *cache.Entry, cached bool, oldSize int) error {
	if cached {
		f.chunks.Resized(e, oldSize)
		return nil
	}
	return f.chunks.Put(e)
}

// writeBack persists an evicted dirty chunk. It runs under the cache lock
// with f.mu already held by the operation that triggered the eviction.
func (f *File) writeBack(e *cache.Entry) error {
	n, ok := f.nodes[e.Object]
	if !ok || n.Dataset == nil {
		return nil
	}
	p, err := f.pipeline(n)
	if err != nil {
		return err
	}
	data, mask, err := encodeChunk(p, n, e)
	if err != nil {
		return err
	}
	return f.storeChunk(n, e.Chunk, data, mask)
}

// encodeChunk serialises and filters a chunk. It may run concurrently for
// different chunks.
func encodeChunk(p *filter.Pipeline, n *object.Node, e *cache.Entry) ([]byte, uint32, error) {
	raw := e.Data
	if !n.Dataset.Type.IsNumeric() {
		raw = encodeStrings(e.Strings)
	}
	data, mask, err := p.Encode(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding chunk %d: %w", e.Chunk, err)
	}
	return data, mask, nil
}

// storeChunk writes encoded chunk data, rewriting in place when it fits the
// existing allocation.
func (f *File) storeChunk(n *object.Node, idx uint64, data []byte, mask uint32) error {
	info := n.Dataset
	size := uint64(len(data))
	ce, exists := info.Chunks[idx]
	if !exists || size > ce.Capacity {
		if exists {
			f.alloc.Free(ce.Addr, ce.Capacity)
		}
		capacity := max(size, 1)
		ce = object.ChunkEntry{Addr: f.alloc.Alloc(capacity), Capacity: capacity}
		f.metaDirty = true
	}
	if ce.Size != size || ce.FilterMask != mask {
		f.metaDirty = true
	}
	ce.Size = size
	ce.FilterMask = mask

	f.sieve.invalidate(ce.Addr, ce.Capacity)
	if _, err := f.file.WriteAt(data, int64(ce.Addr)); err != nil {
		return fmt.Errorf("writing chunk %d: %w", idx, err)
	}
	info.Chunks[idx] = ce
	return nil
}

func encodeStrings(ss []string) []byte {
	size := 0
	for _, s := range ss {
		size += len(s) + 2
	}
	enc := binpkg.NewEncoder(size)
	for _, s := range ss {
		enc.PutString(s)
	}
	return enc.Bytes()
}

func decodeStrings(data []byte, n uint64) ([]string, error) {
	d := binpkg.NewDecoder(data)
	out := make([]string, n)
	for i := range out {
		out[i] = d.String()
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes in string chunk", d.Remaining())
	}
	return out, nil
}
