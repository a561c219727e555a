// Package object holds the in-memory catalog of a container file and its
// serialised form.
//
// The catalog is a tree of [Node] values. Groups carry children; datasets
// carry a [DatasetInfo] describing the element type, extent, chunk shape,
// filter pipeline, and the location of every stored chunk. Both kinds
// carry attributes.
//
// # Serialised Form
//
// [Encode] writes the whole catalog as one block:
//
//	magic "KCAT" | version u8 | next ID | free list | root node
//
// Nodes are written depth first with children in name order and chunks in
// linear-index order, so identical catalogs encode to identical bytes.
// Integers are uvarints except chunk addresses (u64) and filter masks (u32).
// The block is guarded by a lookup3 checksum stored in the superblock.
//
// # Key Types
//
//   - [Catalog]: the root node, the next object ID, and the free list
//   - [Node]: a group or dataset
//   - [Attribute]: a named, typed value attached to a node
//   - [ChunkEntry]: file location of one encoded chunk
package object
