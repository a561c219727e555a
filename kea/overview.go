package kea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-kea/internal/store"
)

// CreateOverview creates overview level (1-based) of a band with the given
// size, replacing any existing overview at that level. Overviews use the
// band's type and block size.
func (img *ImageIO) CreateOverview(band, level uint, xSize, ySize uint64) error {
	const op = "create overview"
	if level < 1 || xSize == 0 || ySize == 0 {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: overview %d of size %dx%d", ErrInvalidParam, level, xSize, ySize)}
	}
	dt, err := img.GetImageBandDataType(band)
	if err != nil {
		return err
	}
	std, err := StdType(dt)
	if err != nil {
		return err
	}
	bs, err := img.GetImageBlockSize(band)
	if err != nil {
		return err
	}
	g, err := img.overviewsGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	name := fmt.Sprintf(overviewFmt, level)
	if g.Has(name) {
		if err := g.Unlink(name); err != nil {
			return ioErr(op, img.path, err)
		}
	}
	if _, err := img.createImageDataset(g, name, std, xSize, ySize, bs, img.opts.deflate); err != nil {
		return ioErr(op, img.path, err)
	}
	img.log.LogOverview(context.Background(), "created", band, level, xSize, ySize)
	return nil
}

// RemoveOverview deletes an overview and releases its storage.
func (img *ImageIO) RemoveOverview(band, level uint) error {
	const op = "remove overview"
	g, err := img.overviewsGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	name := fmt.Sprintf(overviewFmt, level)
	if !g.Has(name) {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: band %d level %d", ErrOverviewNotFound, band, level)}
	}
	if err := g.Unlink(name); err != nil {
		return ioErr(op, img.path, err)
	}
	img.log.LogOverview(context.Background(), "removed", band, level, 0, 0)
	return nil
}

// GetOverviewBlockSize returns the block size of an overview.
func (img *ImageIO) GetOverviewBlockSize(band, level uint) (uint32, error) {
	const op = "get overview block size"
	ds, err := img.overviewData(band, level)
	if err != nil {
		return 0, ioErr(op, img.path, err)
	}
	n, err := intAttr(ds, attrBlockSize)
	return uint32(n), ioErr(op, img.path, err)
}

// GetOverviewSize returns the stored size of an overview.
func (img *ImageIO) GetOverviewSize(band, level uint) (xSize, ySize uint64, err error) {
	ds, err := img.overviewData(band, level)
	if err != nil {
		return 0, 0, ioErr("get overview size", img.path, err)
	}
	dims := ds.Dims()
	return dims[1], dims[0], nil
}

// GetNumOfOverviews returns the number of overviews of a band.
func (img *ImageIO) GetNumOfOverviews(band uint) (uint, error) {
	g, err := img.overviewsGroup(band)
	if err != nil {
		return 0, ioErr("get overview count", img.path, err)
	}
	names, err := g.Members()
	if err != nil {
		return 0, ioErr("get overview count", img.path, err)
	}
	var n uint
	for _, name := range names {
		if strings.HasPrefix(name, "OVERVIEW") {
			n++
		}
	}
	return n, nil
}

// WriteToOverview writes a region of an overview. Arguments are as for
// WriteImageBlock2Band.
func (img *ImageIO) WriteToOverview(band, level uint, data any, xOff, yOff, xSize, ySize, xBuf, yBuf uint64) error {
	const op = "write overview"
	ds, err := img.overviewData(band, level)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, transfer(op, ds, true, data, xOff, yOff, xSize, ySize, xBuf, yBuf))
}

// ReadFromOverview reads a region of an overview. Arguments are as for
// ReadImageBlock2Band.
func (img *ImageIO) ReadFromOverview(band, level uint, data any, xOff, yOff, xSize, ySize, xBuf, yBuf uint64) error {
	const op = "read overview"
	ds, err := img.overviewData(band, level)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, transfer(op, ds, false, data, xOff, yOff, xSize, ySize, xBuf, yBuf))
}

func (img *ImageIO) overviewsGroup(band uint) (*store.Group, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return nil, err
	}
	if !g.Has(overviewsName) {
		return g.CreateGroup(overviewsName)
	}
	return g.OpenGroup(overviewsName)
}

func (img *ImageIO) overviewData(band, level uint) (*store.Dataset, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return nil, err
	}
	ds, err := g.OpenDataset(overviewsName + "/" + fmt.Sprintf(overviewFmt, level))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: band %d level %d", ErrOverviewNotFound, band, level)
	}
	return ds, err
}
