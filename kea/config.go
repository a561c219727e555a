package kea

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is a file-based form of the Options, for tools that read their
// tuning from YAML:
//
//	block_size: 512
//	att_chunk_size: 1000
//	compression:
//	  codec: zstd
//	  level: 3
//	cache:
//	  metadata_elements: 0
//	  chunk_slots: 512
//	  chunk_bytes: 4MiB
//	  w0: 0.75
//	  sieve_buffer: 64KiB
//	  meta_block_size: 2KiB
//	file_locking: true
//	log_level: debug
type Config struct {
	BlockSize    uint32            `yaml:"block_size,omitempty"`
	ATTChunkSize uint64            `yaml:"att_chunk_size,omitempty"`
	Compression  CompressionConfig `yaml:"compression,omitempty"`
	Cache        CacheConfig       `yaml:"cache,omitempty"`
	FileLocking  *bool             `yaml:"file_locking,omitempty"`
	LogLevel     string            `yaml:"log_level,omitempty"`
}

// CompressionConfig selects the chunk compressor.
type CompressionConfig struct {
	Codec string `yaml:"codec,omitempty"`
	Level *int   `yaml:"level,omitempty"`
}

// CacheConfig holds container cache tuning. Sizes accept human-readable
// byte counts such as "1MiB" or "64 KB".
type CacheConfig struct {
	MetadataElements *int     `yaml:"metadata_elements,omitempty"`
	ChunkSlots       *int     `yaml:"chunk_slots,omitempty"`
	ChunkBytes       string   `yaml:"chunk_bytes,omitempty"`
	W0               *float64 `yaml:"w0,omitempty"`
	SieveBuffer      string   `yaml:"sieve_buffer,omitempty"`
	MetaBlockSize    string   `yaml:"meta_block_size,omitempty"`
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Compression.Codec != "" {
		if _, err := ParseCodec(c.Compression.Codec); err != nil {
			return fmt.Errorf("config: compression.codec: %w", err)
		}
	}
	if l := c.Compression.Level; l != nil && (*l < 0 || *l > 22) {
		return fmt.Errorf("config: compression.level %d out of range", *l)
	}
	if w := c.Cache.W0; w != nil && (*w < 0 || *w > 1) {
		return fmt.Errorf("config: cache.w0 %g must be within [0, 1]", *w)
	}
	for name, s := range map[string]string{
		"cache.chunk_bytes":     c.Cache.ChunkBytes,
		"cache.sieve_buffer":    c.Cache.SieveBuffer,
		"cache.meta_block_size": c.Cache.MetaBlockSize,
	} {
		if _, err := parseSize(s, 0); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// Options converts the configuration into Options. Unset fields keep the
// library defaults.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var opts []Option
	if c.BlockSize > 0 {
		opts = append(opts, WithBlockSize(c.BlockSize))
	}
	if c.ATTChunkSize > 0 {
		opts = append(opts, WithATTChunkSize(c.ATTChunkSize))
	}
	if c.Compression.Codec != "" {
		codec, _ := ParseCodec(c.Compression.Codec)
		opts = append(opts, WithCodec(codec))
	}
	if c.Compression.Level != nil {
		opts = append(opts, WithDeflate(*c.Compression.Level))
	}

	if n := c.Cache.MetadataElements; n != nil {
		opts = append(opts, WithMetadataCacheElements(*n))
	}
	slots, w0 := DefaultRDCCSlots, DefaultRDCCW0
	if c.Cache.ChunkSlots != nil {
		slots = *c.Cache.ChunkSlots
	}
	if c.Cache.W0 != nil {
		w0 = *c.Cache.W0
	}
	bytes, _ := parseSize(c.Cache.ChunkBytes, DefaultRDCCBytes)
	opts = append(opts, WithChunkCache(slots, int(bytes), w0))
	sieve, _ := parseSize(c.Cache.SieveBuffer, DefaultSieveBufferSize)
	opts = append(opts, WithSieveBufferSize(int(sieve)))
	meta, _ := parseSize(c.Cache.MetaBlockSize, DefaultMetaBlockSize)
	opts = append(opts, WithMetaBlockSize(uint32(meta)))

	if c.FileLocking != nil {
		opts = append(opts, WithFileLocking(*c.FileLocking))
	}
	if c.LogLevel != "" {
		level, _ := parseLevel(c.LogLevel)
		opts = append(opts, WithLogger(NewTextLogger(level)))
	}
	return opts, nil
}

func parseSize(s string, def uint64) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return n, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}
