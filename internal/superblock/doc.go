// Package superblock reads and writes the fixed header at offset zero of a
// container file.
//
// # File Signature
//
// Container files start with the 8-byte signature
// 0x89 K E A \r \n 0x1a \n (hex: 89 4B 45 41 0D 0A 1A 0A), modelled on the
// PNG/HDF5 style so that text-mode transfers and truncation are detected.
//
// # Layout
//
// All fields are little-endian. The superblock is [Size] bytes long:
//
//	0   signature      [8]byte
//	8   version        uint8
//	9   offset size    uint8 (always 8)
//	10  flags          uint16
//	12  application    [4]byte
//	16  meta block     uint32
//	20  reserved       uint32
//	24  EOF address    uint64
//	32  catalog addr   uint64
//	40  catalog size   uint64
//	48  catalog sum    uint32 (lookup3 of the catalog bytes)
//	52  checksum       uint32 (lookup3 of bytes 0-51)
//
// The catalog address is the commit point: a flush writes the new catalog
// elsewhere in the file and only then rewrites the superblock.
//
// # Errors
//
//   - [ErrNotContainer]: file does not start with the signature
//   - [ErrUnsupportedVersion]: version byte is not understood
//   - [ErrInvalidSuperblock]: checksum or field validation failed
package superblock
