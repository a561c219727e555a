package superblock

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
)

// Signature identifies a container file: 0x89 K E A \r \n 0x1a \n
var Signature = []byte{0x89, 'K', 'E', 'A', '\r', '\n', 0x1a, '\n'}

const (
	// Size is the encoded length of a superblock.
	Size = 56

	// Version is the only format version written and understood.
	Version uint8 = 1

	checksumOffset = 52
)

// Flag bits.
const (
	// FlagWriterOpen is set while a writer has the file open. Finding it set
	// on open means the previous writer did not close cleanly.
	FlagWriterOpen uint16 = 0x0001
)

var (
	ErrNotContainer       = errors.New("not a container file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock holds the file-level metadata.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	Flags      uint16

	// Application tags the file with the format layered on top of the
	// container, so callers can recognise their files without opening them.
	Application [4]byte

	// MetaBlockSize is the granularity metadata allocations are rounded to.
	MetaBlockSize uint32

	// EOFAddress is the logical end of file.
	EOFAddress uint64

	CatalogAddress  uint64
	CatalogSize     uint64
	CatalogChecksum uint32
}

// New returns a superblock for an empty file tagged with app.
func New(app string, metaBlockSize uint32) *Superblock {
	sb := &Superblock{
		Version:        Version,
		OffsetSize:     8,
		MetaBlockSize:  metaBlockSize,
		EOFAddress:     Size,
		CatalogAddress: binpkg.UndefinedAddress,
	}
	copy(sb.Application[:], app)
	return sb
}

// AppName returns the application tag with trailing NULs removed.
func (sb *Superblock) AppName() string {
	return string(bytes.TrimRight(sb.Application[:], "\x00"))
}

// ReaderConfig returns a binary reader configuration for this file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	cfg := binpkg.DefaultConfig()
	cfg.OffsetSize = int(sb.OffsetSize)
	return cfg
}

// Probe reports whether r starts with the container signature. It reads
// only the signature and never returns an error for short files.
func Probe(r io.ReaderAt) bool {
	buf := make([]byte, len(Signature))
	n, _ := r.ReadAt(buf, 0)
	return n == len(buf) && bytes.Equal(buf, Signature)
}

// Read parses and validates the superblock at offset zero.
func Read(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, Size)
	n, err := r.ReadAt(buf, 0)
	if n < len(Signature) || !bytes.Equal(buf[:len(Signature)], Signature) {
		return nil, ErrNotContainer
	}
	if n < Size {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: truncated (%d bytes)", ErrInvalidSuperblock, n)
		}
		return nil, err
	}
	if buf[8] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, buf[8])
	}

	rd := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig()).At(int64(len(Signature)))
	sb := &Superblock{}
	sb.Version, _ = rd.ReadUint8()
	sb.OffsetSize, _ = rd.ReadUint8()
	sb.Flags, _ = rd.ReadUint16()
	app, _ := rd.ReadBytes(4)
	copy(sb.Application[:], app)
	sb.MetaBlockSize, _ = rd.ReadUint32()
	rd.Skip(4)
	sb.EOFAddress, _ = rd.ReadUint64()
	sb.CatalogAddress, _ = rd.ReadUint64()
	sb.CatalogSize, _ = rd.ReadUint64()
	sb.CatalogChecksum, _ = rd.ReadUint32()
	stored, err := rd.ReadUint32()
	if err != nil {
		return nil, err
	}

	if computed := binpkg.Lookup3Checksum(buf[:checksumOffset]); computed != stored {
		return nil, fmt.Errorf("%w: checksum mismatch (stored=0x%08x, computed=0x%08x)",
			ErrInvalidSuperblock, stored, computed)
	}
	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return sb, nil
}

// Validate checks field consistency.
func (sb *Superblock) Validate() error {
	if sb.OffsetSize != 8 {
		return fmt.Errorf("%w: offset size %d", ErrInvalidSuperblock, sb.OffsetSize)
	}
	if sb.EOFAddress < Size {
		return fmt.Errorf("%w: EOF 0x%x inside superblock", ErrInvalidSuperblock, sb.EOFAddress)
	}
	if sb.CatalogAddress != binpkg.UndefinedAddress &&
		(sb.CatalogAddress < Size || sb.CatalogAddress+sb.CatalogSize > sb.EOFAddress) {
		return fmt.Errorf("%w: catalog [0x%x, %d) outside file", ErrInvalidSuperblock,
			sb.CatalogAddress, sb.CatalogSize)
	}
	return nil
}

// Encode serialises the superblock including its checksum.
func (sb *Superblock) Encode() []byte {
	enc := binpkg.NewEncoder(Size)
	for _, b := range Signature {
		enc.PutUint8(b)
	}
	enc.PutUint8(sb.Version)
	enc.PutUint8(sb.OffsetSize)
	enc.PutUint16(sb.Flags)
	for _, b := range sb.Application {
		enc.PutUint8(b)
	}
	enc.PutUint32(sb.MetaBlockSize)
	enc.PutUint32(0)
	enc.PutUint64(sb.EOFAddress)
	enc.PutUint64(sb.CatalogAddress)
	enc.PutUint64(sb.CatalogSize)
	enc.PutUint32(sb.CatalogChecksum)
	enc.PutUint32(binpkg.Lookup3Checksum(enc.Bytes()))
	return enc.Bytes()
}

// Write writes the superblock at offset zero.
func Write(w io.WriterAt, sb *Superblock) error {
	return binpkg.NewWriter(w, binpkg.DefaultConfig()).WriteBytes(sb.Encode())
}
