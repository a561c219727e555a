package cache

import (
	"container/list"
	"math"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Key identifies a chunk: the owning dataset's object ID and the chunk's
// linear index.
type Key struct {
	Object uint32
	Chunk  uint64
}

// Entry is a decoded chunk. Numeric datasets use Data; string datasets use
// Strings.
type Entry struct {
	Key
	Data    []byte
	Strings []string

	// Dirty marks a chunk modified since it was last written back.
	Dirty bool

	// Full marks a chunk whose every element has been read or written.
	Full bool
}

// Size returns the approximate memory footprint used for the byte budget.
func (e *Entry) Size() int {
	n := len(e.Data)
	for _, s := range e.Strings {
		n += len(s) + 16
	}
	return n
}

// Config bounds the cache.
type Config struct {
	// Slots is the maximum number of cached chunks; zero or less means no
	// count limit.
	Slots int
	// Bytes is the byte budget; zero or less disables caching.
	Bytes int
	// W0 is the preemption weight in [0, 1].
	W0 float64
}

// WriteBackFunc persists a dirty entry. It is called with the cache lock
// held and must not call back into the cache.
type WriteBackFunc func(e *Entry) error

// Stats reports cache activity.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Entries    int
	Bytes      int
}

// Cache is a chunk cache. It is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	cfg       Config
	writeBack WriteBackFunc

	lru     *list.List // front is most recent; values are *Entry
	entries map[Key]*list.Element
	dirty   map[uint32]*roaring64.Bitmap
	bytes   int
	stats   Stats
}

// New creates a cache.
func New(cfg Config, writeBack WriteBackFunc) *Cache {
	cfg.W0 = min(max(cfg.W0, 0), 1)
	return &Cache{
		cfg:       cfg,
		writeBack: writeBack,
		lru:       list.New(),
		entries:   make(map[Key]*list.Element),
		dirty:     make(map[uint32]*roaring64.Bitmap),
	}
}

// Config returns the cache bounds.
func (c *Cache) Config() Config {
	return c.cfg
}

// Get returns a cached chunk and marks it most recently used.
func (c *Cache) Get(k Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[k]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.lru.MoveToFront(el)
	return el.Value.(*Entry), true
}

// Put inserts or replaces a chunk, evicting others as needed. A dirty
// entry that cannot be cached is written back before Put returns.
func (c *Cache) Put(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[e.Key]; ok {
		c.removeLocked(el)
	}

	size := e.Size()
	if c.cfg.Bytes <= 0 || size > c.cfg.Bytes {
		if e.Dirty {
			return c.writeBackLocked(e)
		}
		return nil
	}

	for c.lru.Len() > 0 && (c.bytes+size > c.cfg.Bytes || (c.cfg.Slots > 0 && c.lru.Len() >= c.cfg.Slots)) {
		if err := c.evictLocked(); err != nil {
			return err
		}
	}

	c.entries[e.Key] = c.lru.PushFront(e)
	c.bytes += size
	if e.Dirty {
		c.markDirtyLocked(e.Key)
	}
	return nil
}

// Resized updates the byte accounting after an entry's contents changed
// size in place, and records it as dirty if it is.
func (c *Cache) Resized(e *Entry, oldSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[e.Key]; !ok {
		return
	}
	c.bytes += e.Size() - oldSize
	if e.Dirty {
		c.markDirtyLocked(e.Key)
	}
}

// MarkDirty records a cached entry as modified.
func (c *Cache) MarkDirty(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Dirty = true
	if _, ok := c.entries[e.Key]; ok {
		c.markDirtyLocked(e.Key)
	}
}

func (c *Cache) markDirtyLocked(k Key) {
	bm, ok := c.dirty[k.Object]
	if !ok {
		bm = roaring64.New()
		c.dirty[k.Object] = bm
	}
	bm.Add(k.Chunk)
}

func (c *Cache) clearDirtyLocked(k Key) {
	if bm, ok := c.dirty[k.Object]; ok {
		bm.Remove(k.Chunk)
		if bm.IsEmpty() {
			delete(c.dirty, k.Object)
		}
	}
}

// evictLocked removes one entry chosen by the W0 policy.
func (c *Cache) evictLocked() error {
	victim := c.lru.Back()
	window := int(math.Ceil(c.cfg.W0 * float64(c.lru.Len())))
	for el, i := c.lru.Back(), 0; el != nil && i < window; el, i = el.Prev(), i+1 {
		if el.Value.(*Entry).Full {
			victim = el
			break
		}
	}

	// A failed write-back leaves the chunk cached and dirty.
	e := victim.Value.(*Entry)
	if e.Dirty {
		if err := c.writeBackLocked(e); err != nil {
			return err
		}
	}
	c.removeLocked(victim)
	c.stats.Evictions++
	return nil
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*Entry)
	c.lru.Remove(el)
	delete(c.entries, e.Key)
	c.bytes -= e.Size()
	c.clearDirtyLocked(e.Key)
}

func (c *Cache) writeBackLocked(e *Entry) error {
	if c.writeBack == nil {
		return nil
	}
	if err := c.writeBack(e); err != nil {
		return err
	}
	e.Dirty = false
	c.stats.WriteBacks++
	return nil
}

// Dirty returns the dirty cached entries, ordered by object ID and then by
// chunk index.
func (c *Cache) Dirty() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	objects := make([]uint32, 0, len(c.dirty))
	for obj := range c.dirty {
		objects = append(objects, obj)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i] < objects[j] })

	var out []*Entry
	for _, obj := range objects {
		for _, chunk := range c.dirty[obj].ToArray() {
			if el, ok := c.entries[Key{Object: obj, Chunk: chunk}]; ok {
				out = append(out, el.Value.(*Entry))
			}
		}
	}
	return out
}

// DirtyCount returns the number of dirty chunks cached for an object.
func (c *Cache) DirtyCount(object uint32) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bm, ok := c.dirty[object]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// MarkClean records that an entry has been persisted.
func (c *Cache) MarkClean(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.Dirty = false
	c.clearDirtyLocked(e.Key)
}

// Invalidate drops every cached chunk of an object without writing back.
func (c *Cache) Invalidate(object uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*Entry).Object == object {
			c.removeLocked(el)
		}
		el = next
	}
	delete(c.dirty, object)
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	s.Bytes = c.bytes
	return s
}
