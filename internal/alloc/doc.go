// Package alloc manages file space for the container.
//
// Chunks and the serialised catalog are placed at file offsets handed out by
// an [Allocator]. Space released by rewritten chunks, unlinked datasets, and
// superseded catalogs goes onto a free list and is reused best-fit before the
// end-of-file address is advanced.
//
// # Usage
//
//	a := alloc.New(superblock.Size)
//	addr := a.Alloc(4096)      // best fit from the free list, else at EOF
//	cat := a.AllocAtEOF(512)   // always appended
//	a.Free(addr, 4096)         // coalesced with neighbours
//
// The free list is persisted in the catalog and restored with
// [Allocator.SetFreeBlocks] when a file is reopened.
package alloc
