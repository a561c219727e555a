package superblock

import (
	"bytes"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
)

// bytesFile is an in-memory io.ReaderAt and io.WriterAt.
type bytesFile struct {
	data []byte
}

func (b *bytesFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, nil
	}
	return copy(p, b.data[off:]), nil
}

func (b *bytesFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	return copy(b.data[off:], p), nil
}

func TestSignature(t *testing.T) {
	expected := []byte{0x89, 'K', 'E', 'A', '\r', '\n', 0x1a, '\n'}
	if !bytes.Equal(Signature, expected) {
		t.Errorf("Signature mismatch: got %v, expected %v", Signature, expected)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	sb := New("KEA1", 2048)
	sb.Flags = FlagWriterOpen
	sb.EOFAddress = 10000
	sb.CatalogAddress = 8000
	sb.CatalogSize = 1500
	sb.CatalogChecksum = 0xCAFEBABE

	f := &bytesFile{}
	if err := Write(f, sb); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(f.data) != Size {
		t.Fatalf("encoded size: got %d, want %d", len(f.data), Size)
	}

	got, err := Read(f)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if *got != *sb {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, sb)
	}
	if got.AppName() != "KEA1" {
		t.Errorf("AppName: got %q", got.AppName())
	}
}

func TestReadNotContainer(t *testing.T) {
	_, err := Read(&bytesFile{data: make([]byte, 4096)})
	if !errors.Is(err, ErrNotContainer) {
		t.Errorf("expected ErrNotContainer, got %v", err)
	}
	if Probe(&bytesFile{data: []byte{0x89}}) {
		t.Error("Probe accepted a short file")
	}
}

func TestReadUnsupportedVersion(t *testing.T) {
	f := &bytesFile{}
	if err := Write(f, New("", 0)); err != nil {
		t.Fatal(err)
	}
	f.data[8] = 99

	_, err := Read(f)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadChecksumMismatch(t *testing.T) {
	f := &bytesFile{}
	if err := Write(f, New("KEA1", 0)); err != nil {
		t.Fatal(err)
	}
	if !Probe(f) {
		t.Fatal("Probe rejected a valid superblock")
	}
	f.data[30] ^= 0xFF

	_, err := Read(f)
	if !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("expected ErrInvalidSuperblock, got %v", err)
	}
}

func TestReadTruncated(t *testing.T) {
	f := &bytesFile{}
	if err := Write(f, New("KEA1", 0)); err != nil {
		t.Fatal(err)
	}
	f.data = f.data[:20]

	_, err := Read(f)
	if !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("expected ErrInvalidSuperblock, got %v", err)
	}
}

func TestValidateCatalogBounds(t *testing.T) {
	sb := New("KEA1", 0)
	if err := sb.Validate(); err != nil {
		t.Fatalf("empty file should validate: %v", err)
	}
	if sb.CatalogAddress != binpkg.UndefinedAddress {
		t.Errorf("new superblock has catalog at 0x%x", sb.CatalogAddress)
	}

	sb.CatalogAddress = 100
	sb.CatalogSize = 50
	if err := sb.Validate(); !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("catalog past EOF: got %v", err)
	}
}
