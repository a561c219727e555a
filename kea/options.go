package kea

import (
	"github.com/robert-malhotra/go-kea/internal/store"
)

// Defaults for new images and attribute tables.
const (
	DefaultBlockSize       = 256
	DefaultATTChunkSize    = 1000
	DefaultDeflate         = 1
	DefaultMDCElements     = 0
	DefaultRDCCSlots       = 512
	DefaultRDCCBytes       = 1 << 20
	DefaultRDCCW0          = 1.0
	DefaultSieveBufferSize = 65536
	DefaultMetaBlockSize   = 2048
)

// Option configures image creation, opening and attribute table
// persistence.
type Option func(*options)

type options struct {
	blockSize    uint32
	attChunkSize uint64
	deflate      int
	codec        Codec
	descriptions []string
	spatial      *SpatialInfo

	mdcElements   int
	rdccSlots     int
	rdccBytes     int
	rdccW0        float64
	sieveBuf      int
	metaBlockSize uint32
	locking       bool

	logger *Logger
}

func defaultOptions() *options {
	return &options{
		blockSize:     DefaultBlockSize,
		attChunkSize:  DefaultATTChunkSize,
		deflate:       DefaultDeflate,
		codec:         CodecDeflate,
		mdcElements:   DefaultMDCElements,
		rdccSlots:     DefaultRDCCSlots,
		rdccBytes:     DefaultRDCCBytes,
		rdccW0:        DefaultRDCCW0,
		sieveBuf:      DefaultSieveBufferSize,
		metaBlockSize: DefaultMetaBlockSize,
		locking:       true,
		logger:        NoopLogger(),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBlockSize sets the edge length of the square pixel blocks bands are
// tiled in.
func WithBlockSize(n uint32) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithATTChunkSize sets the number of attribute table rows per stored chunk.
func WithATTChunkSize(rows uint64) Option {
	return func(o *options) {
		o.attChunkSize = rows
	}
}

// WithDeflate sets the compression level (0 disables compression). For
// zstd the level is passed through; lz4 and snappy ignore it.
func WithDeflate(level int) Option {
	return func(o *options) {
		o.deflate = level
	}
}

// WithATTDeflate sets the compression level of attribute table chunks.
// It is an alias of WithDeflate for use with SetAttributeTable.
func WithATTDeflate(level int) Option {
	return WithDeflate(level)
}

// WithCodec selects the compressor.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithBandDescriptions sets the descriptions of the bands created with the
// image, in band order.
func WithBandDescriptions(descriptions ...string) Option {
	return func(o *options) {
		o.descriptions = descriptions
	}
}

// WithSpatialInfo sets the initial spatial reference of a new image. The
// size fields are ignored.
func WithSpatialInfo(info SpatialInfo) Option {
	return func(o *options) {
		o.spatial = &info
	}
}

// WithMetadataCacheElements sets the metadata cache size. The catalog is
// always fully resident so the value is only passed through.
func WithMetadataCacheElements(n int) Option {
	return func(o *options) {
		o.mdcElements = n
	}
}

// WithChunkCache sizes the raw-data chunk cache.
func WithChunkCache(slots, bytes int, w0 float64) Option {
	return func(o *options) {
		o.rdccSlots, o.rdccBytes, o.rdccW0 = slots, bytes, w0
	}
}

// WithSieveBufferSize sets the read-ahead buffer used for small reads.
func WithSieveBufferSize(n int) Option {
	return func(o *options) {
		o.sieveBuf = n
	}
}

// WithMetaBlockSize sets the allocation granularity for file metadata.
func WithMetaBlockSize(n uint32) Option {
	return func(o *options) {
		o.metaBlockSize = n
	}
}

// WithFileLocking enables or disables advisory file locking.
func WithFileLocking(enabled bool) Option {
	return func(o *options) {
		o.locking = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o *options) storeOptions() []store.FileOption {
	return []store.FileOption{
		store.WithApplication(fileType),
		store.WithMetadataCacheElements(o.mdcElements),
		store.WithChunkCache(o.rdccSlots, o.rdccBytes, o.rdccW0),
		store.WithSieveBufferSize(o.sieveBuf),
		store.WithMetaBlockSize(o.metaBlockSize),
		store.WithFileLocking(o.locking),
		store.WithLogger(o.logger.Logger),
	}
}

// compression returns the dataset options for the configured codec.
func (o *options) compression(level int) []store.DatasetOption {
	switch o.codec {
	case CodecZstd:
		return []store.DatasetOption{store.WithZstd(max(level, 1))}
	case CodecLZ4:
		return []store.DatasetOption{store.WithLZ4()}
	case CodecSnappy:
		return []store.DatasetOption{store.WithSnappy()}
	case CodecNone:
		return nil
	default:
		if level <= 0 {
			return nil
		}
		return []store.DatasetOption{store.WithDeflate(level)}
	}
}
