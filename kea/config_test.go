package kea

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
block_size: 128
att_chunk_size: 250
compression:
  codec: zstd
  level: 3
cache:
  chunk_slots: 97
  chunk_bytes: 4MiB
  w0: 0.5
  sieve_buffer: 64KiB
  meta_block_size: 4KiB
file_locking: false
log_level: warn
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, uint32(128), c.BlockSize)
	assert.Equal(t, "zstd", c.Compression.Codec)

	opts, err := c.Options()
	require.NoError(t, err)
	o := buildOptions(opts)
	assert.Equal(t, uint32(128), o.blockSize)
	assert.Equal(t, uint64(250), o.attChunkSize)
	assert.Equal(t, CodecZstd, o.codec)
	assert.Equal(t, 3, o.deflate)
	assert.Equal(t, 97, o.rdccSlots)
	assert.Equal(t, 4<<20, o.rdccBytes)
	assert.Equal(t, 0.5, o.rdccW0)
	assert.Equal(t, 64<<10, o.sieveBuf)
	assert.Equal(t, uint32(4096), o.metaBlockSize)
	assert.False(t, o.locking)
}

func TestConfigDefaults(t *testing.T) {
	c, err := ParseConfig([]byte("{}"))
	require.NoError(t, err)
	opts, err := c.Options()
	require.NoError(t, err)
	o := buildOptions(opts)
	d := defaultOptions()
	assert.Equal(t, d.blockSize, o.blockSize)
	assert.Equal(t, d.codec, o.codec)
	assert.Equal(t, d.rdccBytes, o.rdccBytes)
	assert.Equal(t, d.metaBlockSize, o.metaBlockSize)
	assert.True(t, o.locking)
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]string{
		"codec":   "compression: {codec: brotli}",
		"level":   "compression: {level: 40}",
		"w0":      "cache: {w0: 1.5}",
		"size":    "cache: {chunk_bytes: lots}",
		"log":     "log_level: chatty",
		"invalid": "block_size: [1, 2]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigCreatesImage(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kea.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleConfig), 0o644))

	c, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	opts, err := c.Options()
	require.NoError(t, err)

	path := filepath.Join(dir, "image.kea")
	img, err := Create(path, Uint8, 300, 200, 1, opts...)
	require.NoError(t, err)
	defer img.Close()
	bs, err := img.GetImageBlockSize(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(128), bs)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
