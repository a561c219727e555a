// Package store implements a hierarchical, chunked container file: groups,
// n-dimensional datasets stored as independently filtered chunks, and small
// typed attributes on both.
package store

import (
	"errors"

	"github.com/robert-malhotra/go-kea/internal/object"
	"github.com/robert-malhotra/go-kea/internal/superblock"
)

// Common errors
var (
	ErrNotContainer = superblock.ErrNotContainer
	ErrNotFound     = object.ErrNotFound
	ErrExists       = object.ErrExists
	ErrNotGroup     = object.ErrNotGroup
	ErrNotDataset   = errors.New("object is not a dataset")
	ErrInvalidPath  = errors.New("invalid path")
	ErrClosed       = errors.New("file is closed")
	ErrReadOnly     = errors.New("file is opened read-only")
	ErrTypeMismatch = errors.New("buffer type does not match dataset")
	ErrBufferSize   = errors.New("buffer too small")
	ErrExtent       = errors.New("extent exceeds maximum dimensions")
	ErrCorrupted    = errors.New("corrupted file")
)

// Unlimited marks a dimension that may grow without bound.
const Unlimited = ^uint64(0)
