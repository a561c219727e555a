package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Allocator manages space within a container file. It is safe for
// concurrent use.
type Allocator struct {
	mu sync.Mutex

	// eofAddr is the next address handed out when no free block fits.
	eofAddr uint64

	// baseAddr is the first allocatable address (after the superblock).
	baseAddr uint64

	// freeBlocks is sorted by address with no two blocks adjacent.
	freeBlocks []FreeBlock

	stats Stats
}

// FreeBlock is a released region of the file.
type FreeBlock struct {
	Addr uint64
	Size uint64
}

// End returns the first address past the block.
func (b FreeBlock) End() uint64 {
	return b.Addr + b.Size
}

// Stats contains allocation statistics for the lifetime of the allocator.
type Stats struct {
	TotalAllocations uint64 // Number of allocations made
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes released
	ReusedBytes      uint64 // Bytes satisfied from the free list
	LargestAlloc     uint64 // Largest single allocation
}

// New creates an Allocator whose first allocation is at baseAddr.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
	}
}

// Alloc returns the address of a block of size bytes. The smallest free
// block that fits is used, and any remainder stays free. A zero-size
// request returns the current EOF without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		return a.eofAddr
	}

	best := -1
	for i, fb := range a.freeBlocks {
		if fb.Size < size {
			continue
		}
		if best < 0 || fb.Size < a.freeBlocks[best].Size {
			best = i
			if fb.Size == size {
				break
			}
		}
	}
	if best < 0 {
		return a.appendLocked(size)
	}

	fb := &a.freeBlocks[best]
	addr := fb.Addr
	if fb.Size == size {
		a.freeBlocks = append(a.freeBlocks[:best], a.freeBlocks[best+1:]...)
	} else {
		fb.Addr += size
		fb.Size -= size
	}
	a.stats.ReusedBytes += size
	a.record(size)
	return addr
}

// AllocAtEOF appends a block at the end of the file, ignoring the free list.
func (a *Allocator) AllocAtEOF(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendLocked(size)
}

// AllocAligned appends a block aligned to the given boundary. Padding
// skipped to reach alignment is put on the free list.
func (a *Allocator) AllocAligned(size, alignment uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if alignment > 1 {
		if rem := a.eofAddr % alignment; rem != 0 {
			pad := alignment - rem
			a.insertFreeLocked(FreeBlock{Addr: a.eofAddr, Size: pad})
			a.eofAddr += pad
		}
	}
	return a.appendLocked(size)
}

func (a *Allocator) appendLocked(size uint64) uint64 {
	addr := a.eofAddr
	a.eofAddr += size
	if size > 0 {
		a.record(size)
	}
	return addr
}

func (a *Allocator) record(size uint64) {
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
}

// Free returns a block to the free list. Adjacent free blocks are merged.
// The end-of-file address never moves backwards.
func (a *Allocator) Free(addr, size uint64) {
	if size == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.insertFreeLocked(FreeBlock{Addr: addr, Size: size})
	a.stats.TotalBytesFree += size
}

func (a *Allocator) insertFreeLocked(b FreeBlock) {
	i := sort.Search(len(a.freeBlocks), func(i int) bool {
		return a.freeBlocks[i].Addr >= b.Addr
	})
	a.freeBlocks = append(a.freeBlocks, FreeBlock{})
	copy(a.freeBlocks[i+1:], a.freeBlocks[i:])
	a.freeBlocks[i] = b

	// Merge with the successor, then the predecessor.
	if i+1 < len(a.freeBlocks) && a.freeBlocks[i].End() >= a.freeBlocks[i+1].Addr {
		next := a.freeBlocks[i+1]
		if next.End() > a.freeBlocks[i].End() {
			a.freeBlocks[i].Size = next.End() - a.freeBlocks[i].Addr
		}
		a.freeBlocks = append(a.freeBlocks[:i+1], a.freeBlocks[i+2:]...)
	}
	if i > 0 && a.freeBlocks[i-1].End() >= a.freeBlocks[i].Addr {
		cur := a.freeBlocks[i]
		if cur.End() > a.freeBlocks[i-1].End() {
			a.freeBlocks[i-1].Size = cur.End() - a.freeBlocks[i-1].Addr
		}
		a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
	}
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// SetEOFAddr sets the EOF address (used when loading existing files).
func (a *Allocator) SetEOFAddr(addr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eofAddr = addr
}

// BaseAddr returns the base address (start of allocatable space).
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// FreeBlocks returns a copy of the free list in address order.
func (a *Allocator) FreeBlocks() []FreeBlock {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]FreeBlock, len(a.freeBlocks))
	copy(result, a.freeBlocks)
	return result
}

// FreeBytes returns the total size of the free list.
func (a *Allocator) FreeBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint64
	for _, fb := range a.freeBlocks {
		n += fb.Size
	}
	return n
}

// SetFreeBlocks replaces the free list, typically with one read back from
// the catalog. Blocks are sorted and coalesced.
func (a *Allocator) SetFreeBlocks(blocks []FreeBlock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeBlocks = a.freeBlocks[:0]
	for _, b := range blocks {
		if b.Size > 0 {
			a.insertFreeLocked(b)
		}
	}
}

// Validate checks that the free list is ordered, disjoint, and lies
// between the base address and EOF.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, fb := range a.freeBlocks {
		if fb.Addr < a.baseAddr {
			return fmt.Errorf("free block at 0x%x is before base address 0x%x", fb.Addr, a.baseAddr)
		}
		if fb.End() > a.eofAddr {
			return fmt.Errorf("free block at 0x%x size %d extends past EOF 0x%x", fb.Addr, fb.Size, a.eofAddr)
		}
		if i > 0 && a.freeBlocks[i-1].End() >= fb.Addr {
			prev := a.freeBlocks[i-1]
			return fmt.Errorf("free blocks not disjoint: [0x%x, size %d] and [0x%x, size %d]",
				prev.Addr, prev.Size, fb.Addr, fb.Size)
		}
	}
	return nil
}

// Reset resets the allocator to its initial state.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eofAddr = a.baseAddr
	a.freeBlocks = nil
	a.stats = Stats{}
}
