package kea

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/store"
)

// WriteImageBlock2Band writes the xSize by ySize region at (xOff, yOff) of
// a band from data. data is a typed slice holding xBuf by yBuf values with
// row stride xBuf; the region occupies its top-left corner. The region is
// clipped to the image and an offset outside the image writes nothing.
func (img *ImageIO) WriteImageBlock2Band(band uint, data any, xOff, yOff, xSize, ySize, xBuf, yBuf uint64) error {
	const op = "write block"
	ds, err := img.bandData(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, transfer(op, ds, true, data, xOff, yOff, xSize, ySize, xBuf, yBuf))
}

// ReadImageBlock2Band reads the xSize by ySize region at (xOff, yOff) of a
// band into data, laid out as for WriteImageBlock2Band. Values outside the
// clipped region are left unchanged.
func (img *ImageIO) ReadImageBlock2Band(band uint, data any, xOff, yOff, xSize, ySize, xBuf, yBuf uint64) error {
	const op = "read block"
	ds, err := img.bandData(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, transfer(op, ds, false, data, xOff, yOff, xSize, ySize, xBuf, yBuf))
}

// transfer moves a clipped window between ds and a caller buffer.
func transfer(op string, ds *store.Dataset, write bool, data any, xOff, yOff, xSize, ySize, xBuf, yBuf uint64) error {
	if _, err := DataTypeOf(data); err != nil {
		return err
	}
	dims := ds.Dims()
	height, width := dims[0], dims[1]
	if xOff >= width || yOff >= height || xSize == 0 || ySize == 0 {
		return nil
	}
	xs := min(xSize, width-xOff)
	ys := min(ySize, height-yOff)
	if xBuf < xs || yBuf < ys {
		return fmt.Errorf("%w: buffer %dx%d for region %dx%d", ErrBufferTooSmall, xBuf, yBuf, xs, ys)
	}
	if yBuf > math.MaxUint64/xBuf {
		return fmt.Errorf("%w: buffer %dx%d overflows", ErrBufferTooSmall, xBuf, yBuf)
	}
	n, err := dtype.Len(data)
	if err != nil {
		return typeErr(op, fmt.Sprintf("%T", data), ErrUnsupportedType)
	}
	if uint64(n) < xBuf*yBuf {
		return fmt.Errorf("%w: have %d values, need %d", ErrBufferTooSmall, n, xBuf*yBuf)
	}

	start := []uint64{yOff, xOff}
	count := []uint64{ys, xs}
	bufDims := []uint64{yBuf, xBuf}
	if write {
		return ds.WriteRegion(start, count, data, bufDims)
	}
	return ds.ReadRegion(start, count, data, bufDims)
}
