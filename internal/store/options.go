package store

import (
	"log/slog"

	"github.com/robert-malhotra/go-kea/internal/cache"
	"github.com/robert-malhotra/go-kea/internal/filter"
)

// Mode selects how a file is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Defaults for file tuning.
const (
	DefaultCacheSlots     = 521
	DefaultCacheBytes     = 1 << 20
	DefaultCacheW0        = 0.75
	DefaultSieveBufSize   = 64 << 10
	DefaultMetaBlockSize  = 2048
	DefaultMetadataCache  = 0
	DefaultApplicationTag = ""
)

// FileOption configures file creation and opening.
type FileOption func(*fileOptions)

type fileOptions struct {
	cache         cache.Config
	sieveSize     int
	metaBlockSize uint32
	mdcElements   int
	locking       bool
	app           string
	logger        *slog.Logger
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		cache: cache.Config{
			Slots: DefaultCacheSlots,
			Bytes: DefaultCacheBytes,
			W0:    DefaultCacheW0,
		},
		sieveSize:     DefaultSieveBufSize,
		metaBlockSize: DefaultMetaBlockSize,
		mdcElements:   DefaultMetadataCache,
		locking:       true,
		app:           DefaultApplicationTag,
		logger:        slog.New(slog.DiscardHandler),
	}
}

// WithChunkCache sizes the raw-data chunk cache: the maximum number of
// chunks, the byte budget, and the preemption weight w0 in [0, 1].
func WithChunkCache(slots, bytes int, w0 float64) FileOption {
	return func(o *fileOptions) {
		o.cache = cache.Config{Slots: slots, Bytes: bytes, W0: w0}
	}
}

// WithSieveBufferSize sets the read-ahead window used for small chunk
// reads. Zero disables it.
func WithSieveBufferSize(n int) FileOption {
	return func(o *fileOptions) {
		if n >= 0 {
			o.sieveSize = n
		}
	}
}

// WithMetaBlockSize sets the allocation granularity of the catalog.
func WithMetaBlockSize(n uint32) FileOption {
	return func(o *fileOptions) {
		o.metaBlockSize = n
	}
}

// WithMetadataCacheElements is accepted for compatibility with HDF5 tuning
// parameters. The catalog is always fully resident, so the value is only
// recorded.
func WithMetadataCacheElements(n int) FileOption {
	return func(o *fileOptions) {
		o.mdcElements = n
	}
}

// WithFileLocking enables or disables advisory file locking.
func WithFileLocking(enabled bool) FileOption {
	return func(o *fileOptions) {
		o.locking = enabled
	}
}

// WithApplication tags a new file with a short (at most 4 byte)
// application marker stored in the superblock.
func WithApplication(tag string) FileOption {
	return func(o *fileOptions) {
		o.app = tag
	}
}

// WithLogger sets the logger for file-level events.
func WithLogger(l *slog.Logger) FileOption {
	return func(o *fileOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// DatasetOption configures dataset creation options.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks     []uint64
	maxDims    []uint64
	compressor *filter.Info
	shuffle    bool
	fletcher32 bool
	extra      []filter.Info
}

// WithChunks sets the chunk dimensions.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithMaxDims sets the maximum dimensions for a resizable dataset.
// Use Unlimited for an unbounded dimension.
func WithMaxDims(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.maxDims = dims
	}
}

// WithDeflate enables zlib compression at the given level (1-9, 0 = none).
func WithDeflate(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level <= 0 {
			o.compressor = nil
			return
		}
		o.compressor = &filter.Info{ID: filter.IDDeflate, Flags: filter.FlagOptional, ClientData: []uint32{uint32(min(level, 9))}}
	}
}

// WithZstd enables Zstandard compression at the given level.
func WithZstd(level int) DatasetOption {
	return func(o *datasetOptions) {
		o.compressor = &filter.Info{ID: filter.IDZstd, Flags: filter.FlagOptional, ClientData: []uint32{uint32(max(level, 1))}}
	}
}

// WithLZ4 enables LZ4 compression.
func WithLZ4() DatasetOption {
	return func(o *datasetOptions) {
		o.compressor = &filter.Info{ID: filter.IDLZ4, Flags: filter.FlagOptional}
	}
}

// WithSnappy enables snappy compression.
func WithSnappy() DatasetOption {
	return func(o *datasetOptions) {
		o.compressor = &filter.Info{ID: filter.IDSnappy, Flags: filter.FlagOptional}
	}
}

// WithShuffle enables the shuffle filter (improves compression).
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 enables Fletcher32 checksum validation.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithFilter appends an arbitrary registered filter after the built-in ones.
func WithFilter(info filter.Info) DatasetOption {
	return func(o *datasetOptions) {
		o.extra = append(o.extra, info)
	}
}

// pipeline returns the filters in application order.
func (o *datasetOptions) pipeline() []filter.Info {
	var infos []filter.Info
	if o.shuffle {
		infos = append(infos, filter.Info{ID: filter.IDShuffle})
	}
	if o.compressor != nil {
		infos = append(infos, *o.compressor)
	}
	if o.fletcher32 {
		infos = append(infos, filter.Info{ID: filter.IDFletcher32})
	}
	return append(infos, o.extra...)
}
