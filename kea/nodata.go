package kea

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/store"
)

// SetNoDataValue sets the no data value of a band. value is any Go numeric
// scalar and is stored converted, with saturation, to the band's type.
func (img *ImageIO) SetNoDataValue(band uint, value any) error {
	const op = "set no data value"
	if _, err := dtype.ToFloat64(value); err != nil {
		return typeErr(op, fmt.Sprintf("%T", value), ErrUnsupportedType)
	}
	dt, err := img.GetImageBandDataType(band)
	if err != nil {
		return err
	}
	std, err := StdType(dt)
	if err != nil {
		return err
	}
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, g.SetAttrAs(attrNoData, std, value))
}

// GetNoDataValue reads the no data value of a band into dest, a pointer to
// a numeric scalar or a non-empty numeric slice. The value is converted to
// the type of dest.
func (img *ImageIO) GetNoDataValue(band uint, dest any) error {
	const op = "get no data value"
	if _, _, err := dtype.Bytes(dest); err != nil {
		return typeErr(op, fmt.Sprintf("%T", dest), ErrUnsupportedType)
	}
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	a, err := g.Attr(attrNoData)
	if errors.Is(err, store.ErrNotFound) {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: band %d", ErrNoDataNotSet, band)}
	}
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, a.Read(dest))
}

// UndefineNoDataValue removes the no data value of a band. It is not an
// error if none is set.
func (img *ImageIO) UndefineNoDataValue(band uint) error {
	const op = "undefine no data value"
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	if err := g.DeleteAttr(attrNoData); err != nil && !errors.Is(err, store.ErrNotFound) {
		return ioErr(op, img.path, err)
	}
	return nil
}
