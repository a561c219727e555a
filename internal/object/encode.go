package object

import (
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-kea/internal/alloc"
	binpkg "github.com/robert-malhotra/go-kea/internal/binary"
	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/filter"
)

// Magic opens every serialised catalog.
var Magic = [4]byte{'K', 'C', 'A', 'T'}

const (
	catalogVersion uint8 = 1

	// maxDepth bounds group nesting when decoding.
	maxDepth = 256

	// maxRank bounds dataset dimensionality when decoding.
	maxRank = 32
)

const (
	typeFlagSigned    = 0x01
	typeFlagBigEndian = 0x02
)

// Encode serialises the catalog.
func Encode(c *Catalog) []byte {
	e := binpkg.NewEncoder(4096)
	for _, b := range Magic {
		e.PutUint8(b)
	}
	e.PutUint8(catalogVersion)
	e.PutUvarint(uint64(c.NextID))
	e.PutUvarint(uint64(len(c.Free)))
	for _, fb := range c.Free {
		e.PutUvarint(fb.Addr)
		e.PutUvarint(fb.Size)
	}
	encodeNode(e, c.Root)
	return e.Bytes()
}

func encodeNode(e *binpkg.Encoder, n *Node) {
	e.PutUint8(uint8(n.Kind))
	e.PutUvarint(uint64(n.ID))
	e.PutString(n.Name)

	e.PutUvarint(uint64(len(n.Attrs)))
	for _, a := range n.Attrs {
		encodeAttr(e, a)
	}

	if n.Kind == KindDataset {
		encodeDataset(e, n.Dataset)
		return
	}
	e.PutUvarint(uint64(len(n.Children)))
	for _, c := range n.Children {
		encodeNode(e, c)
	}
}

func encodeType(e *binpkg.Encoder, dt dtype.Datatype) {
	var flags uint8
	if dt.Signed {
		flags |= typeFlagSigned
	}
	if dt.Order == dtype.OrderBE {
		flags |= typeFlagBigEndian
	}
	e.PutUint8(uint8(dt.Class))
	e.PutUint8(uint8(dt.Size))
	e.PutUint8(flags)
}

func encodeDims(e *binpkg.Encoder, dims []uint64) {
	e.PutUvarint(uint64(len(dims)))
	for _, d := range dims {
		e.PutUvarint(d)
	}
}

func encodeAttr(e *binpkg.Encoder, a *Attribute) {
	e.PutString(a.Name)
	encodeType(e, a.Type)
	e.PutUint8(boolByte(a.Dims != nil))
	if a.Dims != nil {
		encodeDims(e, a.Dims)
	}
	if a.Type.Class == dtype.ClassString {
		e.PutUvarint(uint64(len(a.Strings)))
		for _, s := range a.Strings {
			e.PutString(s)
		}
		return
	}
	e.PutBytes(a.Data)
}

func encodeDataset(e *binpkg.Encoder, d *DatasetInfo) {
	encodeType(e, d.Type)
	encodeDims(e, d.Dims)
	encodeDims(e, d.MaxDims)
	encodeDims(e, d.ChunkDims)

	e.PutUvarint(uint64(len(d.Filters)))
	for _, f := range d.Filters {
		e.PutUint16(f.ID)
		e.PutUint16(f.Flags)
		e.PutUvarint(uint64(len(f.ClientData)))
		for _, v := range f.ClientData {
			e.PutUint32(v)
		}
	}

	keys := make([]uint64, 0, len(d.Chunks))
	for k := range d.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	e.PutUvarint(uint64(len(keys)))
	for _, k := range keys {
		c := d.Chunks[k]
		e.PutUvarint(k)
		e.PutUint64(c.Addr)
		e.PutUvarint(c.Size)
		e.PutUvarint(c.Capacity)
		e.PutUint32(c.FilterMask)
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Decode parses a serialised catalog.
func Decode(data []byte) (*Catalog, error) {
	d := binpkg.NewDecoder(data)
	var magic [4]byte
	for i := range magic {
		magic[i] = d.Uint8()
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupted, magic[:])
	}
	if v := d.Uint8(); v != catalogVersion {
		return nil, fmt.Errorf("%w: unsupported catalog version %d", ErrCorrupted, v)
	}

	c := &Catalog{NextID: uint32(d.Uvarint())}
	nfree := d.Uvarint()
	if nfree > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: free list length %d", ErrCorrupted, nfree)
	}
	c.Free = make([]alloc.FreeBlock, 0, nfree)
	for i := uint64(0); i < nfree; i++ {
		c.Free = append(c.Free, alloc.FreeBlock{Addr: d.Uvarint(), Size: d.Uvarint()})
	}

	root, err := decodeNode(d, 0)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if root.Kind != KindGroup {
		return nil, fmt.Errorf("%w: root is a %s", ErrCorrupted, root.Kind)
	}
	c.Root = root
	return c, nil
}

func decodeNode(d *binpkg.Decoder, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrCorrupted, maxDepth)
	}
	n := &Node{
		Kind: Kind(d.Uint8()),
		ID:   uint32(d.Uvarint()),
		Name: d.String(),
	}
	if n.Kind != KindGroup && n.Kind != KindDataset {
		return nil, fmt.Errorf("%w: node kind %d", ErrCorrupted, n.Kind)
	}

	nattrs, err := count(d)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nattrs; i++ {
		a, err := decodeAttr(d)
		if err != nil {
			return nil, err
		}
		n.Attrs = append(n.Attrs, a)
	}

	if n.Kind == KindDataset {
		n.Dataset, err = decodeDataset(d)
		return n, err
	}

	nchildren, err := count(d)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nchildren; i++ {
		child, err := decodeNode(d, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// count reads an element count that cannot exceed the remaining input.
func count(d *binpkg.Decoder) (int, error) {
	n := d.Uvarint()
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if n > uint64(d.Remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrCorrupted, n, d.Remaining())
	}
	return int(n), nil
}

func decodeType(d *binpkg.Decoder) dtype.Datatype {
	dt := dtype.Datatype{
		Class: dtype.Class(d.Uint8()),
		Size:  int(d.Uint8()),
	}
	flags := d.Uint8()
	dt.Signed = flags&typeFlagSigned != 0
	if flags&typeFlagBigEndian != 0 {
		dt.Order = dtype.OrderBE
	}
	return dt
}

func decodeDims(d *binpkg.Decoder) ([]uint64, error) {
	rank := d.Uvarint()
	if rank > maxRank {
		return nil, fmt.Errorf("%w: rank %d", ErrCorrupted, rank)
	}
	dims := make([]uint64, rank)
	for i := range dims {
		dims[i] = d.Uvarint()
	}
	return dims, nil
}

func decodeAttr(d *binpkg.Decoder) (*Attribute, error) {
	a := &Attribute{Name: d.String(), Type: decodeType(d)}
	if d.Uint8() != 0 {
		dims, err := decodeDims(d)
		if err != nil {
			return nil, err
		}
		a.Dims = dims
	}
	if a.Type.Class == dtype.ClassString {
		n, err := count(d)
		if err != nil {
			return nil, err
		}
		a.Strings = make([]string, n)
		for i := range a.Strings {
			a.Strings[i] = d.String()
		}
		return a, nil
	}
	a.Data = d.Bytes()
	return a, nil
}

func decodeDataset(d *binpkg.Decoder) (*DatasetInfo, error) {
	info := &DatasetInfo{Type: decodeType(d)}
	var err error
	if info.Dims, err = decodeDims(d); err != nil {
		return nil, err
	}
	if info.MaxDims, err = decodeDims(d); err != nil {
		return nil, err
	}
	if info.ChunkDims, err = decodeDims(d); err != nil {
		return nil, err
	}

	nfilters, err := count(d)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nfilters; i++ {
		f := filter.Info{ID: d.Uint16(), Flags: d.Uint16()}
		ncd, err := count(d)
		if err != nil {
			return nil, err
		}
		for j := 0; j < ncd; j++ {
			f.ClientData = append(f.ClientData, d.Uint32())
		}
		info.Filters = append(info.Filters, f)
	}

	nchunks, err := count(d)
	if err != nil {
		return nil, err
	}
	info.Chunks = make(map[uint64]ChunkEntry, nchunks)
	for i := 0; i < nchunks; i++ {
		k := d.Uvarint()
		info.Chunks[k] = ChunkEntry{
			Addr:       d.Uint64(),
			Size:       d.Uvarint(),
			Capacity:   d.Uvarint(),
			FilterMask: d.Uint32(),
		}
	}
	return info, nil
}
