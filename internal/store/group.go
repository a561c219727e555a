package store

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/layout"
	"github.com/robert-malhotra/go-kea/internal/object"
)

// handle is the state shared by groups and datasets.
type handle struct {
	f    *File
	node *object.Node
	path string
}

// Path returns the absolute path of the object.
func (h handle) Path() string {
	return h.path
}

// Name returns the last path component, or "/" for the root group.
func (h handle) Name() string {
	if h.path == "/" {
		return "/"
	}
	return h.node.Name
}

// File returns the file the object belongs to.
func (h handle) File() *File {
	return h.f
}

// live checks that the handle still refers to an object in the catalog.
// It must be called with f.mu held.
func (h handle) live() error {
	if n, ok := h.f.nodes[h.node.ID]; !ok || n != h.node {
		return fmt.Errorf("%w: %s has been unlinked", ErrNotFound, h.path)
	}
	return nil
}

// enter acquires the file lock for an operation on h.
func (h handle) enter(write bool) error {
	if err := h.f.acquire(write); err != nil {
		return err
	}
	if err := h.live(); err != nil {
		h.f.mu.Unlock()
		return err
	}
	return nil
}

// Group is a container of named groups and datasets.
type Group struct {
	handle
}

// Members returns the names of the group's children in sorted order.
func (g *Group) Members() ([]string, error) {
	if err := g.enter(false); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()
	names := make([]string, len(g.node.Children))
	for i, c := range g.node.Children {
		names[i] = c.Name
	}
	return names, nil
}

// Has reports whether the group has a child with the given name.
func (g *Group) Has(name string) bool {
	if err := g.enter(false); err != nil {
		return false
	}
	defer g.f.mu.Unlock()
	return g.node.Child(name) != nil
}

// IsGroup reports whether the named child exists and is a group.
func (g *Group) IsGroup(name string) bool {
	if err := g.enter(false); err != nil {
		return false
	}
	defer g.f.mu.Unlock()
	c := g.node.Child(name)
	return c != nil && c.IsGroup()
}

// resolve finds a node by a path relative to g, or absolute when p starts
// with a slash. Caller holds f.mu.
func (g *Group) resolve(p string) (*object.Node, string, error) {
	base, basePath := g.node, g.path
	if len(p) > 0 && p[0] == '/' {
		base, basePath = g.f.cat.Root, "/"
	}
	n, full := base, basePath
	for _, part := range SplitPath(p) {
		if !n.IsGroup() {
			return nil, "", fmt.Errorf("%w: %s", ErrNotGroup, full)
		}
		c := n.Child(part)
		full = JoinPath(full, part)
		if c == nil {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, full)
		}
		n = c
	}
	return n, full, nil
}

// OpenGroup opens a group by path. Relative paths are resolved from g.
func (g *Group) OpenGroup(p string) (*Group, error) {
	if err := g.enter(false); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()
	n, full, err := g.resolve(p)
	if err != nil {
		return nil, err
	}
	if !n.IsGroup() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, full)
	}
	return &Group{handle{f: g.f, node: n, path: full}}, nil
}

// OpenDataset opens a dataset by path. Relative paths are resolved from g.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	if err := g.enter(false); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()
	n, full, err := g.resolve(p)
	if err != nil {
		return nil, err
	}
	if n.Dataset == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, full)
	}
	return &Dataset{handle{f: g.f, node: n, path: full}}, nil
}

// CreateGroup creates a child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := object.ValidName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if err := g.enter(true); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()

	n := g.f.cat.NewGroup(name)
	if err := g.node.AddChild(n); err != nil {
		return nil, err
	}
	g.f.nodes[n.ID] = n
	g.f.metaDirty = true
	return &Group{handle{f: g.f, node: n, path: JoinPath(g.path, name)}}, nil
}

// CreateDataset creates a chunked dataset. dt is the stored element type;
// numeric types are stored little-endian regardless of dt.Order.
func (g *Group) CreateDataset(name string, dt dtype.Datatype, dims []uint64, opts ...DatasetOption) (*Dataset, error) {
	if err := object.ValidName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	if dt.IsNumeric() {
		dt.Order = dtype.OrderLE
	}

	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}
	info, err := newDatasetInfo(dt, dims, o)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	if err := g.enter(true); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()

	n := g.f.cat.NewDataset(name, info)
	if err := g.node.AddChild(n); err != nil {
		return nil, err
	}
	if _, err := g.f.pipeline(n); err != nil {
		g.node.RemoveChild(name)
		return nil, err
	}
	g.f.nodes[n.ID] = n
	g.f.metaDirty = true
	g.f.logger.Debug("created dataset", "path", JoinPath(g.path, name), "type", dt.String(), "dims", dims)
	return &Dataset{handle{f: g.f, node: n, path: JoinPath(g.path, name)}}, nil
}

func newDatasetInfo(dt dtype.Datatype, dims []uint64, o *datasetOptions) (*object.DatasetInfo, error) {
	rank := len(dims)
	chunks := o.chunks
	if chunks == nil {
		chunks = make([]uint64, rank)
		for d, n := range dims {
			chunks[d] = max(1, min(n, 1024))
		}
	}
	if _, err := layout.NewGrid(dims, chunks); err != nil {
		return nil, err
	}

	maxDims := o.maxDims
	if maxDims == nil {
		maxDims = slices.Clone(dims)
	}
	if len(maxDims) != rank {
		return nil, fmt.Errorf("%w: max dims rank %d, dataset rank %d", ErrExtent, len(maxDims), rank)
	}
	for d := range dims {
		if dims[d] > maxDims[d] {
			return nil, fmt.Errorf("%w: dimension %d is %d, maximum %d", ErrExtent, d, dims[d], maxDims[d])
		}
	}

	return &object.DatasetInfo{
		Type:      dt,
		Dims:      slices.Clone(dims),
		MaxDims:   maxDims,
		ChunkDims: slices.Clone(chunks),
		Filters:   o.pipeline(),
	}, nil
}

// Unlink removes a child and everything below it, returning the storage of
// removed datasets to the free list. Existing handles to removed objects
// fail with ErrNotFound.
func (g *Group) Unlink(name string) error {
	if err := g.enter(true); err != nil {
		return err
	}
	defer g.f.mu.Unlock()

	n, err := g.node.RemoveChild(name)
	if err != nil {
		return err
	}
	g.f.forget(n)
	g.f.metaDirty = true
	return nil
}

// Rename moves child oldName to newName within g. Handles opened before the
// rename stay valid but report their old Path.
func (g *Group) Rename(oldName, newName string) error {
	if err := object.ValidName(newName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if err := g.enter(true); err != nil {
		return err
	}
	defer g.f.mu.Unlock()

	if g.node.Child(newName) != nil {
		return fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, newName))
	}
	n, err := g.node.RemoveChild(oldName)
	if err != nil {
		return err
	}
	n.Name = newName
	if err := g.node.AddChild(n); err != nil {
		n.Name = oldName
		g.node.AddChild(n)
		return err
	}
	g.f.metaDirty = true
	return nil
}
