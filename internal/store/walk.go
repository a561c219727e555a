package store

import (
	"errors"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/object"
)

// WalkFunc is called for each object during traversal.
// path is the full path to the object.
// obj is either *Group or *Dataset.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj any) error

// Walk traverses all groups and datasets below g, including g itself, in
// depth-first name order. The hierarchy is snapshotted before the first
// callback, so fn may freely use the handles it receives.
//
// Example:
//
//	store.Walk(f.Root(), func(path string, obj any) error {
//	    switch o := obj.(type) {
//	    case *store.Group:
//	        fmt.Println("Group:", path)
//	    case *store.Dataset:
//	        fmt.Println("Dataset:", path, "dims:", o.Dims())
//	    }
//	    return nil
//	})
func Walk(g *Group, fn WalkFunc) error {
	objs, err := g.snapshot()
	if err != nil {
		return err
	}
	for _, h := range objs {
		var obj any
		if h.node.IsGroup() {
			obj = &Group{h}
		} else {
			obj = &Dataset{h}
		}
		if err := fn(h.path, obj); err != nil {
			if IsStopWalk(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

// snapshot lists g and its descendants.
func (g *Group) snapshot() ([]handle, error) {
	if err := g.enter(false); err != nil {
		return nil, err
	}
	defer g.f.mu.Unlock()

	var objs []handle
	g.node.Walk(func(rel string, n *object.Node) error {
		p := g.path
		if rel != "/" {
			p = CleanPath(g.path + rel)
		}
		objs = append(objs, handle{f: g.f, node: n, path: p})
		return nil
	})
	return objs, nil
}

// AttrInfo contains information about an attribute during walking.
type AttrInfo struct {
	// Path is the full attribute path (e.g., "/BAND1@DESCRIPTION")
	Path string

	// ObjectPath is the path to the object containing this attribute
	ObjectPath string

	// ObjectType is "group" or "dataset"
	ObjectType string

	// Name is the attribute name
	Name string

	// Attr provides access to the full attribute for detailed reading
	Attr *Attribute

	// Value contains the auto-read attribute value (nil on read error)
	Value any

	// Err contains any error from reading the attribute value
	Err error
}

// WalkAttrsFunc is the callback function type for WalkAttrs.
// Return nil to continue walking, or an error to stop.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs visits every attribute in the file, object by object in
// Walk order.
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	objs, err := f.Root().snapshot()
	if err != nil {
		return err
	}
	for _, h := range objs {
		kind := object.KindDataset.String()
		if h.node.IsGroup() {
			kind = object.KindGroup.String()
		}
		f.mu.Lock()
		attrs := slices.Clone(h.node.Attrs)
		f.mu.Unlock()

		for _, a := range attrs {
			attr := &Attribute{a: a}
			val, verr := attr.Value()
			info := AttrInfo{
				Path:       JoinAttrPath(h.path, a.Name),
				ObjectPath: h.path,
				ObjectType: kind,
				Name:       a.Name,
				Attr:       attr,
				Value:      val,
				Err:        verr,
			}
			if err := fn(info); err != nil {
				if IsStopWalk(err) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

// ErrStopWalk can be returned from a walk callback to stop walking without
// an error.
var ErrStopWalk = errors.New("walk stopped")

// IsStopWalk returns true if the error is ErrStopWalk.
func IsStopWalk(err error) bool {
	return errors.Is(err, ErrStopWalk)
}
