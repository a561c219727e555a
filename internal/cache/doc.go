// Package cache implements the raw-data chunk cache of a container file.
//
// Decoded chunks are kept in least-recently-used order, bounded by an entry
// count and a byte budget. Modified chunks are tracked per dataset in
// roaring bitmaps and written back through a callback when they are evicted
// or when the owner flushes.
//
// # Preemption
//
// The W0 policy follows the HDF5 raw-data chunk cache: when space is needed,
// chunks that have been fully read or written are preferred for eviction if
// they are among the oldest ceil(W0 * n) entries. W0 = 0 gives plain LRU and
// W0 = 1 always prefers fully accessed chunks.
//
// A chunk larger than the whole byte budget is never cached: it is written
// back immediately if dirty.
package cache
