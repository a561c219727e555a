// Package filter implements the chunk filter pipeline.
//
// Every chunk of a dataset passes through the dataset's pipeline before it is
// written and in reverse order after it is read. Each chunk carries a filter
// mask recording which filters were skipped when it was encoded.
//
// # Supported Filters
//
//   - Deflate (ID 1): zlib compression via [Deflate], backed by
//     github.com/klauspost/compress/zlib.
//   - Shuffle (ID 2): byte shuffling via [Shuffle], grouping byte planes of
//     multi-byte elements so they compress better.
//   - Fletcher32 (ID 3): a trailing checksum via [Fletcher32Filter].
//   - Snappy (ID 32003): via [Snappy], backed by github.com/golang/snappy.
//   - LZ4 (ID 32004): block compression via [LZ4], backed by
//     github.com/pierrec/lz4/v4.
//   - Zstandard (ID 32015): via [Zstd], backed by
//     github.com/klauspost/compress/zstd.
//
// # Filter Pipeline
//
//	p, err := filter.NewPipeline(infos, elemSize)
//	encoded, mask, err := p.Encode(raw)
//	raw, err = p.Decode(encoded, mask)
//
// If an optional filter fails while encoding, its bit is set in the returned
// mask and the data passes through unchanged. A failing mandatory filter
// fails the write.
package filter
