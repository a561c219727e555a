package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/robert-malhotra/go-kea/internal/alloc"
	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
	"github.com/robert-malhotra/go-kea/internal/cache"
	"github.com/robert-malhotra/go-kea/internal/filter"
	"github.com/robert-malhotra/go-kea/internal/fslock"
	"github.com/robert-malhotra/go-kea/internal/object"
	"github.com/robert-malhotra/go-kea/internal/superblock"
)

// File is an open container file. All methods are safe for concurrent use;
// operations are serialised on a per-file lock.
type File struct {
	mu sync.Mutex

	path   string
	file   *os.File
	mode   Mode
	opts   *fileOptions
	logger *slog.Logger
	locked bool
	closed bool

	sb     *superblock.Superblock
	cat    *object.Catalog
	alloc  *alloc.Allocator
	chunks *cache.Cache
	sieve  *sieve

	// nodes indexes live catalog nodes by ID. Handles whose node is no
	// longer present here refer to unlinked objects.
	nodes map[uint32]*object.Node
	pipes map[uint32]*filter.Pipeline

	metaDirty bool
}

// Stats reports storage activity for an open file.
type Stats struct {
	Cache     cache.Stats
	Alloc     alloc.Stats
	EOF       uint64
	FreeBytes uint64
}

// Create creates a new file, truncating any existing file at path.
func Create(path string, opts ...FileOption) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	osf, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	f := newFile(path, osf, ReadWrite, o)
	if err := f.lockFile(); err != nil {
		osf.Close()
		return nil, err
	}
	if err := osf.Truncate(0); err != nil {
		f.release()
		return nil, fmt.Errorf("truncating file: %w", err)
	}

	f.sb = superblock.New(o.app, o.metaBlockSize)
	f.sb.Flags |= superblock.FlagWriterOpen
	f.cat = object.NewCatalog()
	f.alloc = alloc.New(superblock.Size)
	f.index()
	f.metaDirty = true

	if err := superblock.Write(osf, f.sb); err != nil {
		f.release()
		return nil, fmt.Errorf("writing superblock: %w", err)
	}
	f.logger.Debug("created file", "path", path)
	return f, nil
}

// Open opens an existing file.
func Open(path string, mode Mode, opts ...FileOption) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	osf, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f := newFile(path, osf, mode, o)
	if err := f.lockFile(); err != nil {
		osf.Close()
		return nil, err
	}

	sb, err := superblock.Read(osf)
	if err != nil {
		f.release()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	f.sb = sb

	cat, err := f.readCatalog()
	if err != nil {
		f.release()
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	f.cat = cat
	f.alloc = alloc.New(superblock.Size)
	f.alloc.SetEOFAddr(sb.EOFAddress)
	f.alloc.SetFreeBlocks(cat.Free)
	f.index()

	if mode == ReadWrite {
		if sb.Flags&superblock.FlagWriterOpen != 0 {
			f.logger.Warn("file was not closed cleanly by its last writer", "path", path)
		}
		sb.Flags |= superblock.FlagWriterOpen
		if err := f.writeSuperblock(); err != nil {
			f.release()
			return nil, err
		}
	}
	f.logger.Debug("opened file", "path", path, "mode", mode.String(), "objects", len(f.nodes))
	return f, nil
}

// Probe reports whether the file at path is a container file. Unreadable
// files are reported as false.
func Probe(path string) bool {
	osf, err := os.Open(path)
	if err != nil {
		return false
	}
	defer osf.Close()
	return superblock.Probe(osf)
}

// ApplicationTag returns the application tag of the file at path without
// opening it fully.
func ApplicationTag(path string) (string, error) {
	osf, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer osf.Close()
	sb, err := superblock.Read(osf)
	if err != nil {
		return "", err
	}
	return sb.AppName(), nil
}

func newFile(path string, osf *os.File, mode Mode, o *fileOptions) *File {
	f := &File{
		path:   path,
		file:   osf,
		mode:   mode,
		opts:   o,
		logger: o.logger.With("file", path),
		sieve:  newSieve(o.sieveSize),
		pipes:  make(map[uint32]*filter.Pipeline),
	}
	f.chunks = cache.New(o.cache, f.writeBack)
	return f
}

func (f *File) lockFile() error {
	if !f.opts.locking {
		return nil
	}
	lm := fslock.Shared
	if f.mode == ReadWrite {
		lm = fslock.Exclusive
	}
	if err := fslock.Lock(f.file, lm); err != nil {
		return fmt.Errorf("locking %s: %w", f.path, err)
	}
	f.locked = true
	return nil
}

// release unlocks and closes the underlying file after a failed open.
func (f *File) release() {
	if f.locked {
		fslock.Unlock(f.file)
	}
	f.file.Close()
}

func (f *File) readCatalog() (*object.Catalog, error) {
	if f.sb.CatalogAddress == binpkg.UndefinedAddress {
		return object.NewCatalog(), nil
	}
	buf := make([]byte, f.sb.CatalogSize)
	if _, err := f.file.ReadAt(buf, int64(f.sb.CatalogAddress)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: catalog truncated", ErrCorrupted)
		}
		return nil, err
	}
	if sum := binpkg.Lookup3Checksum(buf); sum != f.sb.CatalogChecksum {
		return nil, fmt.Errorf("%w: catalog checksum mismatch (stored=0x%08x, computed=0x%08x)",
			ErrCorrupted, f.sb.CatalogChecksum, sum)
	}
	return object.Decode(buf)
}

// index rebuilds the ID index from the catalog.
func (f *File) index() {
	f.nodes = make(map[uint32]*object.Node)
	f.cat.Root.Walk(func(_ string, n *object.Node) error {
		f.nodes[n.ID] = n
		return nil
	})
}

func (f *File) writeSuperblock() error {
	if err := superblock.Write(f.file, f.sb); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return f.file.Sync()
}

// acquire takes the file lock, failing if the file is closed or if write
// access is needed on a read-only file. The caller must unlock f.mu.
func (f *File) acquire(write bool) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if write && f.mode != ReadWrite {
		f.mu.Unlock()
		return ErrReadOnly
	}
	return nil
}

// Close flushes pending changes, clears the writer flag and closes the file.
// Closing an already closed file is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	if f.mode == ReadWrite {
		if err := f.flushLocked(); err != nil {
			errs = append(errs, err)
		} else {
			f.sb.Flags &^= superblock.FlagWriterOpen
			if err := f.writeSuperblock(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if f.locked {
		if err := fslock.Unlock(f.file); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.file.Close(); err != nil {
		errs = append(errs, err)
	}
	f.logger.Debug("closed file")
	return errors.Join(errs...)
}

// Root returns the root group.
func (f *File) Root() *Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &Group{handle{f: f, node: f.cat.Root, path: "/"}}
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	return f.Root().OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	return f.Root().OpenDataset(path)
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Mode returns the access mode the file was opened with.
func (f *File) Mode() Mode {
	return f.mode
}

// Writable reports whether the file accepts modifications.
func (f *File) Writable() bool {
	return f.mode == ReadWrite
}

// Application returns the application tag stored in the superblock.
func (f *File) Application() string {
	return f.sb.AppName()
}

// Logger returns the file's logger.
func (f *File) Logger() *slog.Logger {
	return f.logger
}

// Stats returns a snapshot of cache and allocation activity.
func (f *File) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Stats{Cache: f.chunks.Stats()}
	if f.alloc != nil {
		s.Alloc = f.alloc.Stats()
		s.EOF = f.alloc.EOFAddr()
		s.FreeBytes = f.alloc.FreeBytes()
	}
	return s
}

// pipeline returns the cached filter pipeline of a dataset node.
func (f *File) pipeline(n *object.Node) (*filter.Pipeline, error) {
	if p, ok := f.pipes[n.ID]; ok {
		return p, nil
	}
	elemSize := n.Dataset.Type.Size
	if elemSize == 0 {
		elemSize = 1
	}
	p, err := filter.NewPipeline(n.Dataset.Filters, elemSize)
	if err != nil {
		return nil, err
	}
	f.pipes[n.ID] = p
	return p, nil
}

// forget removes a detached subtree from the index, releasing the storage
// of its datasets.
func (f *File) forget(n *object.Node) {
	n.Walk(func(_ string, c *object.Node) error {
		if c.Dataset != nil {
			f.chunks.Invalidate(c.ID)
			f.releaseChunks(c.ID, c.Dataset)
			delete(f.pipes, c.ID)
		}
		delete(f.nodes, c.ID)
		return nil
	})
}

func (f *File) releaseChunks(id uint32, info *object.DatasetInfo) {
	for idx, ce := range info.Chunks {
		f.alloc.Free(ce.Addr, ce.Capacity)
		f.sieve.invalidate(ce.Addr, ce.Capacity)
		delete(info.Chunks, idx)
	}
	f.logger.Debug("released dataset storage", "object", id)
}
