package kea

import (
	"context"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/store"
)

// Names in the file layout.
const (
	fileType      = "KEA"
	generator     = "go-kea"
	formatVersion = "1.1"
	imageVersion  = "1.2"

	headerGroup    = "/HEADER"
	metadataGroup  = "/METADATA"
	bandGroupFmt   = "/BAND%d"
	dataName       = "DATA"
	metadataName   = "METADATA"
	overviewsName  = "OVERVIEWS"
	overviewFmt    = "OVERVIEW%d"
	attName        = "ATT"
	imageClass     = "IMAGE"
	attrFileType   = "FILETYPE"
	attrGenerator  = "GENERATOR"
	attrVersion    = "VERSION"
	attrNumBands   = "NUMBANDS"
	attrSize       = "SIZE"
	attrTL         = "TL"
	attrRes        = "RES"
	attrRot        = "ROT"
	attrWKT        = "WKT"
	attrDesc       = "DESCRIPTION"
	attrDataType   = "DATATYPE"
	attrLayerType  = "LAYER_TYPE"
	attrLayerUsage = "LAYER_USAGE"
	attrNoData     = "NO_DATA_VAL"
	attrClass      = "CLASS"
	attrImgVersion = "IMAGE_VERSION"
	attrBlockSize  = "BLOCK_SIZE"
)

// Mode selects how an image is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) storeMode() store.Mode {
	if m == ReadWrite {
		return store.ReadWrite
	}
	return store.ReadOnly
}

// ImageIO is an open KEA image. It is not safe for concurrent use; callers
// sharing one ImageIO across goroutines must serialise access.
type ImageIO struct {
	f        *store.File
	path     string
	mode     Mode
	opts     *options
	log      *Logger
	spatial  SpatialInfo
	numBands uint
	open     bool
}

// Open opens an existing KEA image.
func Open(path string, mode Mode, opts ...Option) (*ImageIO, error) {
	const op = "open"
	o := buildOptions(opts)
	log := o.logger.WithPath(path)

	if !store.Probe(path) {
		err := &IOError{Op: op, Path: path, Err: ErrNotKEA}
		log.LogOpen(context.Background(), op, 0, err)
		return nil, err
	}
	f, err := store.Open(path, mode.storeMode(), o.storeOptions()...)
	if err != nil {
		log.LogOpen(context.Background(), op, 0, err)
		return nil, &IOError{Op: op, Path: path, Err: err}
	}

	img := &ImageIO{f: f, path: path, mode: mode, opts: o, log: log, open: true}
	if err := img.readHeader(); err != nil {
		err = errors.Join(err, f.Close())
		log.LogOpen(context.Background(), op, 0, err)
		return nil, ioErr(op, path, err)
	}
	log.LogOpen(context.Background(), op, img.numBands, nil)
	return img, nil
}

// IsKEAImage reports whether path is a KEA image. It checks the file
// signature and the format marker only, and returns false on any error.
func IsKEAImage(path string) bool {
	if !store.Probe(path) {
		return false
	}
	tag, err := store.ApplicationTag(path)
	return err == nil && tag == fileType
}

func (img *ImageIO) readHeader() error {
	hdr, err := img.f.OpenGroup(headerGroup)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotKEA, err)
	}
	ft, err := stringAttr(hdr, attrFileType)
	if err != nil || ft != fileType {
		return fmt.Errorf("%w: FILETYPE is %q", ErrNotKEA, ft)
	}

	n, err := intAttr(hdr, attrNumBands)
	if err != nil {
		return err
	}
	img.numBands = uint(n)

	size, err := floatsAttr(hdr, attrSize, 2)
	if err != nil {
		return err
	}
	img.spatial.XSize, img.spatial.YSize = uint64(size[0]), uint64(size[1])
	if tl, err := floatsAttr(hdr, attrTL, 2); err == nil {
		img.spatial.TLX, img.spatial.TLY = tl[0], tl[1]
	}
	if res, err := floatsAttr(hdr, attrRes, 2); err == nil {
		img.spatial.XRes, img.spatial.YRes = res[0], res[1]
	}
	if rot, err := floatsAttr(hdr, attrRot, 2); err == nil {
		img.spatial.XRot, img.spatial.YRot = rot[0], rot[1]
	}
	if wkt, err := stringAttr(hdr, attrWKT); err == nil {
		img.spatial.WKT = wkt
	}
	return nil
}

// Path returns the file path.
func (img *ImageIO) Path() string {
	return img.path
}

// Mode returns the mode the image was opened with.
func (img *ImageIO) Mode() Mode {
	return img.mode
}

// IsOpen reports whether the image has not been closed.
func (img *ImageIO) IsOpen() bool {
	return img.open
}

// Flush writes all pending changes to the file.
func (img *ImageIO) Flush() error {
	if err := img.check(); err != nil {
		return ioErr("flush", img.path, err)
	}
	return ioErr("flush", img.path, img.f.Flush())
}

// Close flushes and closes the file. Closing a closed image is a no-op.
func (img *ImageIO) Close() error {
	if !img.open {
		return nil
	}
	img.open = false
	err := img.f.Close()
	img.log.LogClose(context.Background(), err)
	return ioErr("close", img.path, err)
}

// Stats returns storage statistics of the underlying container.
func (img *ImageIO) Stats() store.Stats {
	return img.f.Stats()
}

func (img *ImageIO) check() error {
	if !img.open {
		return ErrClosed
	}
	return nil
}

// GetNumOfImageBands returns the number of bands.
func (img *ImageIO) GetNumOfImageBands() (uint, error) {
	if err := img.check(); err != nil {
		return 0, ioErr("get band count", img.path, err)
	}
	return img.numBands, nil
}

// bandGroup opens the group of a band, validating the index.
func (img *ImageIO) bandGroup(band uint) (*store.Group, error) {
	if err := img.check(); err != nil {
		return nil, err
	}
	if band < 1 || band > img.numBands {
		return nil, fmt.Errorf("%w: band %d of %d", ErrBandIndex, band, img.numBands)
	}
	return img.f.OpenGroup(fmt.Sprintf(bandGroupFmt, band))
}

func (img *ImageIO) bandData(band uint) (*store.Dataset, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return nil, err
	}
	return g.OpenDataset(dataName)
}

// GetImageBlockSize returns the block edge length of a band.
func (img *ImageIO) GetImageBlockSize(band uint) (uint32, error) {
	ds, err := img.bandData(band)
	if err != nil {
		return 0, ioErr("get block size", img.path, err)
	}
	n, err := intAttr(ds, attrBlockSize)
	if err != nil {
		return 0, ioErr("get block size", img.path, err)
	}
	return uint32(n), nil
}

// GetImageBandDataType returns the pixel type of a band.
func (img *ImageIO) GetImageBandDataType(band uint) (DataType, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return Undefined, ioErr("get data type", img.path, err)
	}
	n, err := intAttr(g, attrDataType)
	if err != nil {
		return Undefined, ioErr("get data type", img.path, err)
	}
	dt := DataType(n)
	if !dt.Valid() {
		return Undefined, ioErr("get data type", img.path, typeErr("get data type", dt, ErrUnsupportedType))
	}
	return dt, nil
}

// GetSpatialInfo returns the spatial reference of the image.
func (img *ImageIO) GetSpatialInfo() (SpatialInfo, error) {
	if err := img.check(); err != nil {
		return SpatialInfo{}, ioErr("get spatial info", img.path, err)
	}
	return img.spatial, nil
}

// SetSpatialInfo replaces the origin, pixel size, rotation and WKT. The
// image size is fixed at creation and the size fields are ignored.
func (img *ImageIO) SetSpatialInfo(info SpatialInfo) error {
	const op = "set spatial info"
	if err := img.check(); err != nil {
		return ioErr(op, img.path, err)
	}
	hdr, err := img.f.OpenGroup(headerGroup)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	info.XSize, info.YSize = img.spatial.XSize, img.spatial.YSize
	if err := writeSpatial(hdr, info); err != nil {
		return ioErr(op, img.path, err)
	}
	img.spatial = info
	return nil
}

// GetGeoTransform returns the affine transform of the image.
func (img *ImageIO) GetGeoTransform() ([6]float64, error) {
	info, err := img.GetSpatialInfo()
	return info.GeoTransform(), err
}

// SetGeoTransform sets the affine transform of the image.
func (img *ImageIO) SetGeoTransform(gt [6]float64) error {
	info, err := img.GetSpatialInfo()
	if err != nil {
		return err
	}
	info.SetGeoTransform(gt)
	return img.SetSpatialInfo(info)
}

// SetProjection sets the WKT coordinate reference system.
func (img *ImageIO) SetProjection(wkt string) error {
	info, err := img.GetSpatialInfo()
	if err != nil {
		return err
	}
	info.WKT = wkt
	return img.SetSpatialInfo(info)
}

func writeSpatial(hdr *store.Group, info SpatialInfo) error {
	return errors.Join(
		hdr.SetAttr(attrSize, []uint64{info.XSize, info.YSize}),
		hdr.SetAttr(attrTL, []float64{info.TLX, info.TLY}),
		hdr.SetAttr(attrRes, []float64{info.XRes, info.YRes}),
		hdr.SetAttr(attrRot, []float64{info.XRot, info.YRot}),
		hdr.SetAttr(attrWKT, info.WKT),
	)
}

// attrHolder is implemented by store groups and datasets.
type attrHolder interface {
	Attr(name string) (*store.Attribute, error)
	SetAttr(name string, value any) error
	SetAttrAs(name string, dt dtype.Datatype, value any) error
	HasAttr(name string) bool
	Attrs() []string
	DeleteAttr(name string) error
}

func stringAttr(h attrHolder, name string) (string, error) {
	a, err := h.Attr(name)
	if err != nil {
		return "", err
	}
	return a.ScalarString()
}

func intAttr(h attrHolder, name string) (int64, error) {
	a, err := h.Attr(name)
	if err != nil {
		return 0, err
	}
	return a.ScalarInt64()
}

func floatsAttr(h attrHolder, name string, n int) ([]float64, error) {
	a, err := h.Attr(name)
	if err != nil {
		return nil, err
	}
	vals, err := a.Float64s()
	if err != nil {
		return nil, err
	}
	if len(vals) < n {
		return nil, fmt.Errorf("attribute %s has %d values, expected %d", name, len(vals), n)
	}
	return vals, nil
}
