package kea

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// RefCount closes a resource when the last of its holders releases it.
// It is safe for concurrent use.
type RefCount struct {
	n      atomic.Int64 // holders, or -1 once closed
	closer io.Closer
}

// NewRefCount returns a counter with no holders guarding c.
func NewRefCount(c io.Closer) *RefCount {
	return &RefCount{closer: c}
}

// Acquire adds a holder. It fails with ErrClosed once the resource has been
// closed.
func (r *RefCount) Acquire() error {
	for {
		n := r.n.Load()
		if n < 0 {
			return ErrClosed
		}
		if r.n.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops a holder and closes the resource when none remain.
// Releasing more often than acquiring returns ErrReleased.
func (r *RefCount) Release() error {
	for {
		n := r.n.Load()
		if n <= 0 {
			return ErrReleased
		}
		next := n - 1
		if next == 0 {
			next = -1
		}
		if !r.n.CompareAndSwap(n, next) {
			continue
		}
		if next < 0 {
			return r.closer.Close()
		}
		return nil
	}
}

// Count returns the number of holders.
func (r *RefCount) Count() int64 {
	return max(r.n.Load(), 0)
}

// Closed reports whether the resource has been closed.
func (r *RefCount) Closed() bool {
	return r.n.Load() < 0
}

// shared is one holder of a reference counted ImageIO.
type shared struct {
	img      *ImageIO
	ref      *RefCount
	released atomic.Bool
}

func (s *shared) init(img *ImageIO, ref *RefCount) error {
	if err := ref.Acquire(); err != nil {
		return err
	}
	s.img, s.ref = img, ref
	return nil
}

// Close releases this holder. Closing twice is a no-op.
func (s *shared) Close() error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	err := s.ref.Release()
	if err != nil {
		s.img.log.WarnContext(context.Background(), "release failed", "error", err)
	}
	return err
}

func (s *shared) live() error {
	if s.released.Load() {
		return ErrClosed
	}
	return nil
}

// Image is a reference counted handle to an open image. Bands and
// overviews taken from it keep the file open until they are closed too.
type Image struct {
	shared
}

// OpenImage opens an existing image.
func OpenImage(path string, mode Mode, opts ...Option) (*Image, error) {
	img, err := Open(path, mode, opts...)
	if err != nil {
		return nil, err
	}
	return newImage(img)
}

// CreateImage creates a new image. Arguments are as for Create.
func CreateImage(path string, dataType DataType, xSize, ySize uint64, numBands uint, opts ...Option) (*Image, error) {
	img, err := Create(path, dataType, xSize, ySize, numBands, opts...)
	if err != nil {
		return nil, err
	}
	return newImage(img)
}

func newImage(img *ImageIO) (*Image, error) {
	im := &Image{}
	if err := im.init(img, NewRefCount(img)); err != nil {
		img.Close()
		return nil, err
	}
	return im, nil
}

// IO returns the underlying ImageIO.
func (im *Image) IO() *ImageIO {
	return im.img
}

// RefCount returns the counter shared by the image and its bands.
func (im *Image) RefCount() *RefCount {
	return im.ref
}

// NumBands returns the number of bands.
func (im *Image) NumBands() uint {
	return im.img.numBands
}

// Band returns band n (1-based). The band holds a reference to the file
// and must be closed.
func (im *Image) Band(n uint) (*Band, error) {
	if err := im.live(); err != nil {
		return nil, ioErr("open band", im.img.path, err)
	}
	dt, err := im.img.GetImageBandDataType(n)
	if err != nil {
		return nil, err
	}
	bs, err := im.img.GetImageBlockSize(n)
	if err != nil {
		return nil, err
	}
	b := &Band{
		band:      n,
		xSize:     im.img.spatial.XSize,
		ySize:     im.img.spatial.YSize,
		blockSize: bs,
		dataType:  dt,
	}
	if err := b.init(im.img, im.ref); err != nil {
		return nil, ioErr("open band", im.img.path, err)
	}
	return b, nil
}

// AddBand appends a band to the image.
func (im *Image) AddBand(dataType DataType, description string) (*Band, error) {
	if err := im.live(); err != nil {
		return nil, ioErr("add band", im.img.path, err)
	}
	if err := im.img.AddImageBand(dataType, description, im.img.opts.blockSize, im.img.opts.deflate); err != nil {
		return nil, err
	}
	return im.Band(im.img.numBands)
}

// SpatialInfo returns the spatial reference of the image.
func (im *Image) SpatialInfo() (SpatialInfo, error) {
	if err := im.live(); err != nil {
		return SpatialInfo{}, ioErr("get spatial info", im.img.path, err)
	}
	return im.img.GetSpatialInfo()
}

// Metadata returns the image-level metadata sorted by name.
func (im *Image) Metadata() ([]MetadataItem, error) {
	if err := im.live(); err != nil {
		return nil, ioErr("get metadata", im.img.path, err)
	}
	return im.img.GetImageMetaDataAll()
}

// SetMetadataItem sets an image-level metadata item.
func (im *Image) SetMetadataItem(name, value string) error {
	if err := im.live(); err != nil {
		return ioErr("set metadata", im.img.path, err)
	}
	return im.img.SetImageMetaData(name, value)
}

func (im *Image) String() string {
	return fmt.Sprintf("Image(%s, %d bands, refs=%d)", im.img.path, im.img.numBands, im.ref.Count())
}
