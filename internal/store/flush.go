package store

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
	"github.com/robert-malhotra/go-kea/internal/cache"
	"github.com/robert-malhotra/go-kea/internal/filter"
	"github.com/robert-malhotra/go-kea/internal/object"
)

// Flush writes every dirty chunk and, if metadata changed, commits a new
// catalog. After Flush returns the file on disk reflects all prior writes.
func (f *File) Flush() error {
	if err := f.acquire(true); err != nil {
		return err
	}
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *File) flushLocked() error {
	if err := f.flushChunks(f.chunks.Dirty()); err != nil {
		return err
	}
	if !f.metaDirty {
		return nil
	}
	return f.commit()
}

type encoded struct {
	node *object.Node
	data []byte
	mask uint32
}

// flushChunks encodes the given chunks in parallel and writes them in order.
func (f *File) flushChunks(dirty []*cache.Entry) error {
	if len(dirty) == 0 {
		return nil
	}

	out := make([]encoded, len(dirty))
	pipes := make([]*filter.Pipeline, len(dirty))
	for i, e := range dirty {
		n, ok := f.nodes[e.Object]
		if !ok || n.Dataset == nil {
			continue
		}
		p, err := f.pipeline(n)
		if err != nil {
			return err
		}
		out[i].node = n
		pipes[i] = p
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range dirty {
		if out[i].node == nil {
			continue
		}
		g.Go(func() error {
			data, mask, err := encodeChunk(pipes[i], out[i].node, e)
			if err != nil {
				return err
			}
			out[i].data, out[i].mask = data, mask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, e := range dirty {
		if out[i].node != nil {
			if err := f.storeChunk(out[i].node, e.Chunk, out[i].data, out[i].mask); err != nil {
				return err
			}
		}
		f.chunks.MarkClean(e)
	}
	f.logger.Debug("flushed chunks", "count", len(dirty))
	return nil
}

// flushObject writes back the dirty chunks of one dataset.
func (f *File) flushObject(id uint32) error {
	var mine []*cache.Entry
	for _, e := range f.chunks.Dirty() {
		if e.Object == id {
			mine = append(mine, e)
		}
	}
	return f.flushChunks(mine)
}

// commit writes the catalog to fresh space and then points the superblock
// at it. The previous catalog stays intact until the superblock is
// rewritten, so a crash leaves one of the two readable.
func (f *File) commit() error {
	block := uint64(max(f.sb.MetaBlockSize, 1))
	if f.sb.CatalogAddress != binpkg.UndefinedAddress {
		f.alloc.Free(f.sb.CatalogAddress, roundUp(f.sb.CatalogSize, block))
	}
	f.cat.Free = f.alloc.FreeBlocks()

	data := object.Encode(f.cat)
	capacity := roundUp(uint64(len(data)), block)
	addr := f.alloc.AllocAtEOF(capacity)

	buf := make([]byte, capacity)
	copy(buf, data)
	f.sieve.invalidate(addr, capacity)
	if _, err := f.file.WriteAt(buf, int64(addr)); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing catalog: %w", err)
	}

	f.sb.CatalogAddress = addr
	f.sb.CatalogSize = uint64(len(data))
	f.sb.CatalogChecksum = binpkg.Lookup3Checksum(data)
	f.sb.EOFAddress = f.alloc.EOFAddr()
	if err := f.writeSuperblock(); err != nil {
		return err
	}
	f.metaDirty = false
	f.logger.Debug("committed catalog", "addr", addr, "size", len(data), "eof", f.sb.EOFAddress)
	return nil
}

func roundUp(n, block uint64) uint64 {
	if block <= 1 {
		return n
	}
	return (n + block - 1) / block * block
}
