package kea

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-kea/internal/store"
)

// Sentinel errors. They are wrapped by IOError, AttributeError or TypeError
// and can be matched with errors.Is.
var (
	ErrClosed           = errors.New("image is closed")
	ErrReadOnly         = store.ErrReadOnly
	ErrNotKEA           = errors.New("not a KEA image")
	ErrInvalidParam     = errors.New("invalid parameter")
	ErrBandIndex        = errors.New("band index out of range")
	ErrNoDataNotSet     = errors.New("no data value is not defined")
	ErrOverviewNotFound = errors.New("overview does not exist")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrMetadataNotFound = errors.New("metadata item not found")
	ErrColumnExists     = errors.New("column already exists")
	ErrColumnNotFound   = errors.New("column not found")
	ErrRowIndex         = errors.New("row index out of range")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrKindMismatch     = errors.New("value kind does not match column type")
	ErrReleased         = errors.New("handle released more often than acquired")
)

// IOError reports a failure at the container level: opening, creating or
// closing a file, block transfer, metadata, spatial info, no data values
// and overview management.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("kea: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kea: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// AttributeError reports a schema or lookup failure on an attribute table.
// A missing column is expected and callers may use it as a probe.
type AttributeError struct {
	Op   string
	Name string
	Err  error
}

func (e *AttributeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("kea: attribute table %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kea: attribute table %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// TypeError reports a value kind outside the supported set, or a value of
// the wrong kind. It indicates a programming error in the caller.
type TypeError struct {
	Op   string
	Type string
	Err  error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("kea: %s: type %s: %v", e.Op, e.Type, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

// ioErr wraps err as an IOError unless it already is one of the three
// error kinds.
func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ioe *IOError
		ate *AttributeError
		tpe *TypeError
	)
	if errors.As(err, &ioe) || errors.As(err, &ate) || errors.As(err, &tpe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

func attErr(op, name string, err error) error {
	return &AttributeError{Op: op, Name: name, Err: err}
}

func typeErr(op string, t any, err error) error {
	return &TypeError{Op: op, Type: fmt.Sprint(t), Err: err}
}

// IsIOError reports whether err is or wraps an IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// IsAttributeError reports whether err is or wraps an AttributeError.
func IsAttributeError(err error) bool {
	var e *AttributeError
	return errors.As(err, &e)
}

// IsTypeError reports whether err is or wraps a TypeError.
func IsTypeError(err error) bool {
	var e *TypeError
	return errors.As(err, &e)
}
