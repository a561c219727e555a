package kea

import (
	"errors"
	"fmt"
)

// RasterBand is the pixel access surface shared by bands and overviews.
type RasterBand interface {
	Size() (xSize, ySize uint64)
	BlockSize() uint32
	DataType() DataType
	ReadBlock(xBlock, yBlock uint64, buf any) error
	WriteBlock(xBlock, yBlock uint64, buf any) error
	ReadRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error
	WriteRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error
	Metadata() ([]MetadataItem, error)
	SetMetadataItem(name, value string) error
	NoDataValue(dest any) error
	Close() error
}

var (
	_ RasterBand = (*Band)(nil)
	_ RasterBand = (*Overview)(nil)
)

// blockWindow returns the pixel window of block (xBlock, yBlock). Edge
// blocks are trimmed to the raster; ok is false past the last block.
func blockWindow(xBlock, yBlock uint64, bs uint32, xSize, ySize uint64) (xOff, yOff, w, h uint64, ok bool) {
	b := uint64(bs)
	xOff, yOff = xBlock*b, yBlock*b
	if b == 0 || xOff >= xSize || yOff >= ySize {
		return 0, 0, 0, 0, false
	}
	w, h = b, b
	if b*(xBlock+1) > xSize {
		w -= b*(xBlock+1) - xSize
	}
	if b*(yBlock+1) > ySize {
		h -= b*(yBlock+1) - ySize
	}
	return xOff, yOff, w, h, true
}

// BlocksPerRow returns the number of blocks across and down a raster.
func BlocksPerRow(r RasterBand) (xBlocks, yBlocks uint64) {
	x, y := r.Size()
	bs := uint64(r.BlockSize())
	if bs == 0 {
		return 0, 0
	}
	return (x + bs - 1) / bs, (y + bs - 1) / bs
}

// Band is a reference counted handle to one band of an Image.
type Band struct {
	shared
	band      uint
	xSize     uint64
	ySize     uint64
	blockSize uint32
	dataType  DataType
}

// Index returns the 1-based band number.
func (b *Band) Index() uint { return b.band }

// Size returns the raster size in pixels.
func (b *Band) Size() (xSize, ySize uint64) { return b.xSize, b.ySize }

// BlockSize returns the block edge length.
func (b *Band) BlockSize() uint32 { return b.blockSize }

// DataType returns the pixel type.
func (b *Band) DataType() DataType { return b.dataType }

// ReadBlock reads block (xBlock, yBlock) into buf, which holds
// BlockSize squared values. Edge blocks fill the top-left of buf.
func (b *Band) ReadBlock(xBlock, yBlock uint64, buf any) error {
	if err := b.live(); err != nil {
		return ioErr("read block", b.img.path, err)
	}
	xOff, yOff, w, h, ok := blockWindow(xBlock, yBlock, b.blockSize, b.xSize, b.ySize)
	if !ok {
		return nil
	}
	bs := uint64(b.blockSize)
	return b.img.ReadImageBlock2Band(b.band, buf, xOff, yOff, w, h, bs, bs)
}

// WriteBlock writes block (xBlock, yBlock) from buf.
func (b *Band) WriteBlock(xBlock, yBlock uint64, buf any) error {
	if err := b.live(); err != nil {
		return ioErr("write block", b.img.path, err)
	}
	xOff, yOff, w, h, ok := blockWindow(xBlock, yBlock, b.blockSize, b.xSize, b.ySize)
	if !ok {
		return nil
	}
	bs := uint64(b.blockSize)
	return b.img.WriteImageBlock2Band(b.band, buf, xOff, yOff, w, h, bs, bs)
}

// ReadRaster reads an arbitrary window. See ReadImageBlock2Band.
func (b *Band) ReadRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error {
	if err := b.live(); err != nil {
		return ioErr("read raster", b.img.path, err)
	}
	return b.img.ReadImageBlock2Band(b.band, buf, xOff, yOff, xSize, ySize, xBuf, yBuf)
}

// WriteRaster writes an arbitrary window. See WriteImageBlock2Band.
func (b *Band) WriteRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error {
	if err := b.live(); err != nil {
		return ioErr("write raster", b.img.path, err)
	}
	return b.img.WriteImageBlock2Band(b.band, buf, xOff, yOff, xSize, ySize, xBuf, yBuf)
}

// Metadata returns the band metadata sorted by name.
func (b *Band) Metadata() ([]MetadataItem, error) {
	if err := b.live(); err != nil {
		return nil, ioErr("get band metadata", b.img.path, err)
	}
	return b.img.GetImageBandMetaDataAll(b.band)
}

// SetMetadataItem sets a band metadata item.
func (b *Band) SetMetadataItem(name, value string) error {
	if err := b.live(); err != nil {
		return ioErr("set band metadata", b.img.path, err)
	}
	return b.img.SetImageBandMetaData(b.band, name, value)
}

// NoDataValue reads the no data value into dest.
func (b *Band) NoDataValue(dest any) error {
	if err := b.live(); err != nil {
		return ioErr("get no data value", b.img.path, err)
	}
	return b.img.GetNoDataValue(b.band, dest)
}

// SetNoDataValue sets the no data value.
func (b *Band) SetNoDataValue(value any) error {
	if err := b.live(); err != nil {
		return ioErr("set no data value", b.img.path, err)
	}
	return b.img.SetNoDataValue(b.band, value)
}

// Description returns the band description.
func (b *Band) Description() (string, error) {
	if err := b.live(); err != nil {
		return "", ioErr("get band description", b.img.path, err)
	}
	return b.img.GetImageBandDescription(b.band)
}

// AttributeTable loads the band attribute table.
func (b *Band) AttributeTable() (*AttributeTable, error) {
	if err := b.live(); err != nil {
		return nil, ioErr("read attribute table", b.img.path, err)
	}
	return b.img.GetAttributeTable(b.band)
}

// SetAttributeTable stores the band attribute table.
func (b *Band) SetAttributeTable(t *AttributeTable, opts ...Option) error {
	if err := b.live(); err != nil {
		return ioErr("write attribute table", b.img.path, err)
	}
	return b.img.SetAttributeTable(b.band, t, opts...)
}

// NumOverviews returns the number of overviews.
func (b *Band) NumOverviews() (uint, error) {
	if err := b.live(); err != nil {
		return 0, ioErr("get overview count", b.img.path, err)
	}
	return b.img.GetNumOfOverviews(b.band)
}

// CreateOverviews replaces the overviews of the band with one level per
// factor, level i+1 being the band size divided by factors[i].
func (b *Band) CreateOverviews(factors ...uint) error {
	const op = "create overviews"
	if err := b.live(); err != nil {
		return ioErr(op, b.img.path, err)
	}
	for _, f := range factors {
		if f == 0 {
			return &IOError{Op: op, Path: b.img.path, Err: fmt.Errorf("%w: overview factor 0", ErrInvalidParam)}
		}
	}
	n, err := b.img.GetNumOfOverviews(b.band)
	if err != nil {
		return err
	}
	for level := uint(1); level <= n+uint(len(factors)); level++ {
		if err := b.img.RemoveOverview(b.band, level); err != nil && !errors.Is(err, ErrOverviewNotFound) {
			return err
		}
	}
	for i, f := range factors {
		x := max(b.xSize/uint64(f), 1)
		y := max(b.ySize/uint64(f), 1)
		if err := b.img.CreateOverview(b.band, uint(i+1), x, y); err != nil {
			return err
		}
	}
	return nil
}

// Overview returns overview level (1-based). The overview holds a
// reference to the file and must be closed.
func (b *Band) Overview(level uint) (*Overview, error) {
	if err := b.live(); err != nil {
		return nil, ioErr("open overview", b.img.path, err)
	}
	x, y, err := b.img.GetOverviewSize(b.band, level)
	if err != nil {
		return nil, err
	}
	bs, err := b.img.GetOverviewBlockSize(b.band, level)
	if err != nil {
		return nil, err
	}
	ov := &Overview{band: b.band, level: level, xSize: x, ySize: y, blockSize: bs, dataType: b.dataType}
	if err := ov.init(b.img, b.ref); err != nil {
		return nil, ioErr("open overview", b.img.path, err)
	}
	return ov, nil
}

// Overview is a reference counted handle to a reduced resolution copy of a
// band. Metadata and no data values are those of the band.
type Overview struct {
	shared
	band      uint
	level     uint
	xSize     uint64
	ySize     uint64
	blockSize uint32
	dataType  DataType
}

// Level returns the 1-based overview level.
func (o *Overview) Level() uint { return o.level }

// Size returns the overview size in pixels.
func (o *Overview) Size() (xSize, ySize uint64) { return o.xSize, o.ySize }

// BlockSize returns the block edge length.
func (o *Overview) BlockSize() uint32 { return o.blockSize }

// DataType returns the pixel type.
func (o *Overview) DataType() DataType { return o.dataType }

func (o *Overview) ReadBlock(xBlock, yBlock uint64, buf any) error {
	if err := o.live(); err != nil {
		return ioErr("read overview block", o.img.path, err)
	}
	xOff, yOff, w, h, ok := blockWindow(xBlock, yBlock, o.blockSize, o.xSize, o.ySize)
	if !ok {
		return nil
	}
	bs := uint64(o.blockSize)
	return o.img.ReadFromOverview(o.band, o.level, buf, xOff, yOff, w, h, bs, bs)
}

func (o *Overview) WriteBlock(xBlock, yBlock uint64, buf any) error {
	if err := o.live(); err != nil {
		return ioErr("write overview block", o.img.path, err)
	}
	xOff, yOff, w, h, ok := blockWindow(xBlock, yBlock, o.blockSize, o.xSize, o.ySize)
	if !ok {
		return nil
	}
	bs := uint64(o.blockSize)
	return o.img.WriteToOverview(o.band, o.level, buf, xOff, yOff, w, h, bs, bs)
}

func (o *Overview) ReadRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error {
	if err := o.live(); err != nil {
		return ioErr("read overview", o.img.path, err)
	}
	return o.img.ReadFromOverview(o.band, o.level, buf, xOff, yOff, xSize, ySize, xBuf, yBuf)
}

func (o *Overview) WriteRaster(xOff, yOff, xSize, ySize uint64, buf any, xBuf, yBuf uint64) error {
	if err := o.live(); err != nil {
		return ioErr("write overview", o.img.path, err)
	}
	return o.img.WriteToOverview(o.band, o.level, buf, xOff, yOff, xSize, ySize, xBuf, yBuf)
}

func (o *Overview) Metadata() ([]MetadataItem, error) {
	if err := o.live(); err != nil {
		return nil, ioErr("get band metadata", o.img.path, err)
	}
	return o.img.GetImageBandMetaDataAll(o.band)
}

func (o *Overview) SetMetadataItem(name, value string) error {
	if err := o.live(); err != nil {
		return ioErr("set band metadata", o.img.path, err)
	}
	return o.img.SetImageBandMetaData(o.band, name, value)
}

func (o *Overview) NoDataValue(dest any) error {
	if err := o.live(); err != nil {
		return ioErr("get no data value", o.img.path, err)
	}
	return o.img.GetNoDataValue(o.band, dest)
}
