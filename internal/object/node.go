package object

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robert-malhotra/go-kea/internal/alloc"
	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/filter"
)

var (
	ErrNotFound  = errors.New("object not found")
	ErrExists    = errors.New("object already exists")
	ErrNotGroup  = errors.New("object is not a group")
	ErrBadName   = errors.New("invalid object name")
	ErrCorrupted = errors.New("corrupted catalog")
)

// Kind distinguishes groups from datasets.
type Kind uint8

const (
	KindGroup   Kind = 1
	KindDataset Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Attribute is a small named value stored in the catalog. Numeric values
// are held in the file encoding of Type; string values in Strings.
type Attribute struct {
	Name    string
	Type    dtype.Datatype
	Dims    []uint64 // nil for a scalar
	Data    []byte
	Strings []string
}

// NumElements returns the number of elements in the value.
func (a *Attribute) NumElements() uint64 {
	n := uint64(1)
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// ChunkEntry locates one encoded chunk. Capacity is the size of the
// allocated region, which may exceed Size after a chunk shrinks.
type ChunkEntry struct {
	Addr       uint64
	Size       uint64
	Capacity   uint64
	FilterMask uint32
}

// DatasetInfo describes the storage of a dataset.
type DatasetInfo struct {
	Type      dtype.Datatype
	Dims      []uint64
	MaxDims   []uint64
	ChunkDims []uint64
	Filters   []filter.Info
	Chunks    map[uint64]ChunkEntry
}

// StoredBytes returns the total encoded size of all chunks.
func (d *DatasetInfo) StoredBytes() uint64 {
	var n uint64
	for _, c := range d.Chunks {
		n += c.Size
	}
	return n
}

// Node is a group or a dataset.
type Node struct {
	ID       uint32
	Kind     Kind
	Name     string
	Attrs    []*Attribute // sorted by name
	Children []*Node      // sorted by name, groups only
	Dataset  *DatasetInfo // datasets only
}

// IsGroup reports whether the node is a group.
func (n *Node) IsGroup() bool {
	return n.Kind == KindGroup
}

// Child returns the named child or nil.
func (n *Node) Child(name string) *Node {
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].Name >= name })
	if i < len(n.Children) && n.Children[i].Name == name {
		return n.Children[i]
	}
	return nil
}

// AddChild inserts a child keeping name order.
func (n *Node) AddChild(child *Node) error {
	if !n.IsGroup() {
		return fmt.Errorf("%w: %s", ErrNotGroup, n.Name)
	}
	if err := ValidName(child.Name); err != nil {
		return err
	}
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].Name >= child.Name })
	if i < len(n.Children) && n.Children[i].Name == child.Name {
		return fmt.Errorf("%w: %s", ErrExists, child.Name)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
	return nil
}

// RemoveChild detaches and returns the named child.
func (n *Node) RemoveChild(name string) (*Node, error) {
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].Name >= name })
	if i >= len(n.Children) || n.Children[i].Name != name {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	child := n.Children[i]
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	return child, nil
}

// Attr returns the named attribute or nil.
func (n *Node) Attr(name string) *Attribute {
	i := sort.Search(len(n.Attrs), func(i int) bool { return n.Attrs[i].Name >= name })
	if i < len(n.Attrs) && n.Attrs[i].Name == name {
		return n.Attrs[i]
	}
	return nil
}

// SetAttr adds or replaces an attribute.
func (n *Node) SetAttr(a *Attribute) {
	i := sort.Search(len(n.Attrs), func(i int) bool { return n.Attrs[i].Name >= a.Name })
	if i < len(n.Attrs) && n.Attrs[i].Name == a.Name {
		n.Attrs[i] = a
		return
	}
	n.Attrs = append(n.Attrs, nil)
	copy(n.Attrs[i+1:], n.Attrs[i:])
	n.Attrs[i] = a
}

// DeleteAttr removes an attribute and reports whether it existed.
func (n *Node) DeleteAttr(name string) bool {
	i := sort.Search(len(n.Attrs), func(i int) bool { return n.Attrs[i].Name >= name })
	if i < len(n.Attrs) && n.Attrs[i].Name == name {
		n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
		return true
	}
	return false
}

// Walk visits n and its descendants depth first in name order.
func (n *Node) Walk(fn func(path string, node *Node) error) error {
	return n.walk("/", fn)
}

func (n *Node) walk(path string, fn func(string, *Node) error) error {
	if err := fn(path, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		childPath := path + c.Name
		if path != "/" {
			childPath = path + "/" + c.Name
		}
		if err := c.walk(childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// ValidName checks a single path component.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// Catalog is the complete metadata of a file.
type Catalog struct {
	Root   *Node
	NextID uint32
	Free   []alloc.FreeBlock
}

// NewCatalog returns a catalog holding an empty root group.
func NewCatalog() *Catalog {
	return &Catalog{
		Root:   &Node{ID: 0, Kind: KindGroup},
		NextID: 1,
	}
}

// NewGroup creates an unattached group with a fresh ID.
func (c *Catalog) NewGroup(name string) *Node {
	id := c.NextID
	c.NextID++
	return &Node{ID: id, Kind: KindGroup, Name: name}
}

// NewDataset creates an unattached dataset with a fresh ID.
func (c *Catalog) NewDataset(name string, info *DatasetInfo) *Node {
	id := c.NextID
	c.NextID++
	if info.Chunks == nil {
		info.Chunks = make(map[uint64]ChunkEntry)
	}
	return &Node{ID: id, Kind: KindDataset, Name: name, Dataset: info}
}

// Lookup resolves an absolute or root-relative slash-separated path.
func (c *Catalog) Lookup(path string) (*Node, error) {
	n := c.Root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		if !n.IsGroup() {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, n.Name)
		}
		child := n.Child(part)
		if child == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		n = child
	}
	return n, nil
}
