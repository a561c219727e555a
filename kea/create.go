package kea

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/robert-malhotra/go-kea/internal/dtype"
	"github.com/robert-malhotra/go-kea/internal/store"
)

// maxBands is the largest band count NUMBANDS can record.
const maxBands = math.MaxUint16

// Create creates a new KEA image with numBands bands of dataType, each
// xSize by ySize pixels. An existing file at path is truncated.
func Create(path string, dataType DataType, xSize, ySize uint64, numBands uint, opts ...Option) (*ImageIO, error) {
	const op = "create"
	o := buildOptions(opts)
	log := o.logger.WithPath(path)

	switch {
	case xSize == 0 || ySize == 0:
		return nil, &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: image size %dx%d", ErrInvalidParam, xSize, ySize)}
	case numBands == 0:
		return nil, &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: image needs at least one band", ErrInvalidParam)}
	case numBands > maxBands:
		return nil, &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: %d bands, at most %d", ErrInvalidParam, numBands, maxBands)}
	case !dataType.Valid():
		return nil, &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: data type %s", ErrInvalidParam, dataType)}
	case o.blockSize == 0:
		return nil, &IOError{Op: op, Path: path, Err: fmt.Errorf("%w: block size is zero", ErrInvalidParam)}
	}

	f, err := store.Create(path, o.storeOptions()...)
	if err != nil {
		log.LogOpen(context.Background(), op, 0, err)
		return nil, &IOError{Op: op, Path: path, Err: err}
	}
	img := &ImageIO{f: f, path: path, mode: ReadWrite, opts: o, log: log, open: true}

	if err := img.initialise(dataType, xSize, ySize, numBands); err != nil {
		err = errors.Join(err, f.Close(), os.Remove(path))
		log.LogOpen(context.Background(), op, 0, err)
		return nil, ioErr(op, path, err)
	}
	log.LogOpen(context.Background(), op, numBands, nil)
	return img, nil
}

func (img *ImageIO) initialise(dataType DataType, xSize, ySize uint64, numBands uint) error {
	root := img.f.Root()
	hdr, err := root.CreateGroup(headerGroup[1:])
	if err != nil {
		return err
	}

	info := SpatialInfo{XRes: 1, YRes: 1}
	if img.opts.spatial != nil {
		info = *img.opts.spatial
	}
	info.XSize, info.YSize = xSize, ySize
	img.spatial = info

	err = errors.Join(
		hdr.SetAttr(attrFileType, fileType),
		hdr.SetAttr(attrGenerator, generator),
		hdr.SetAttr(attrVersion, formatVersion),
		hdr.SetAttr(attrNumBands, uint16(numBands)),
		writeSpatial(hdr, info),
	)
	if err != nil {
		return err
	}
	if _, err := root.CreateGroup(metadataGroup[1:]); err != nil {
		return err
	}

	for i := uint(1); i <= numBands; i++ {
		var desc string
		if int(i) <= len(img.opts.descriptions) {
			desc = img.opts.descriptions[i-1]
		} else {
			desc = fmt.Sprintf("Band %d", i)
		}
		if err := img.addBand(i, dataType, desc, img.opts.blockSize, img.opts.deflate); err != nil {
			return fmt.Errorf("band %d: %w", i, err)
		}
	}
	img.numBands = numBands
	return img.f.Flush()
}

// addBand creates the group, pixel dataset and default attributes of band n.
func (img *ImageIO) addBand(n uint, dataType DataType, desc string, blockSize uint32, deflate int) error {
	std, err := StdType(dataType)
	if err != nil {
		return err
	}
	g, err := img.f.Root().CreateGroup(fmt.Sprintf(bandGroupFmt, n)[1:])
	if err != nil {
		return err
	}
	err = errors.Join(
		g.SetAttr(attrDesc, desc),
		g.SetAttr(attrDataType, uint16(dataType)),
		g.SetAttr(attrLayerType, uint16(Thematic)),
		g.SetAttr(attrLayerUsage, uint16(Generic)),
	)
	if err != nil {
		return err
	}
	if _, err := g.CreateGroup(metadataName); err != nil {
		return err
	}
	if _, err := g.CreateGroup(overviewsName); err != nil {
		return err
	}
	_, err = img.createImageDataset(g, dataName, std, img.spatial.XSize, img.spatial.YSize, blockSize, deflate)
	return err
}

// createImageDataset creates a [ySize, xSize] pixel dataset tiled in
// blockSize squares and tags it as an image.
func (img *ImageIO) createImageDataset(g *store.Group, name string, std dtype.Datatype, xSize, ySize uint64, blockSize uint32, deflate int) (*store.Dataset, error) {
	bs := uint64(max(blockSize, 1))
	opts := append(img.opts.compression(deflate),
		store.WithChunks(max(min(bs, ySize), 1), max(min(bs, xSize), 1)))
	ds, err := g.CreateDataset(name, std, []uint64{ySize, xSize}, opts...)
	if err != nil {
		return nil, err
	}
	err = errors.Join(
		ds.SetAttr(attrClass, imageClass),
		ds.SetAttr(attrImgVersion, imageVersion),
		ds.SetAttr(attrBlockSize, blockSize),
	)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// AddImageBand appends a new band after the existing ones.
func (img *ImageIO) AddImageBand(dataType DataType, description string, blockSize uint32, deflate int) error {
	const op = "add band"
	if err := img.check(); err != nil {
		return ioErr(op, img.path, err)
	}
	if !dataType.Valid() {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: data type %s", ErrInvalidParam, dataType)}
	}
	if blockSize == 0 {
		blockSize = img.opts.blockSize
	}
	n := img.numBands + 1
	if n > maxBands {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: image already has %d bands", ErrInvalidParam, img.numBands)}
	}
	if description == "" {
		description = fmt.Sprintf("Band %d", n)
	}
	if err := img.addBand(n, dataType, description, blockSize, deflate); err != nil {
		return ioErr(op, img.path, err)
	}
	hdr, err := img.f.OpenGroup(headerGroup)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	if err := hdr.SetAttr(attrNumBands, uint16(n)); err != nil {
		return ioErr(op, img.path, err)
	}
	img.numBands = n
	return nil
}

// SetImageBandDescription sets the description of a band.
func (img *ImageIO) SetImageBandDescription(band uint, desc string) error {
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr("set band description", img.path, err)
	}
	return ioErr("set band description", img.path, g.SetAttr(attrDesc, desc))
}

// GetImageBandDescription returns the description of a band.
func (img *ImageIO) GetImageBandDescription(band uint) (string, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return "", ioErr("get band description", img.path, err)
	}
	s, err := stringAttr(g, attrDesc)
	return s, ioErr("get band description", img.path, err)
}

// SetImageBandLayerType sets whether a band is thematic or continuous.
func (img *ImageIO) SetImageBandLayerType(band uint, t LayerType) error {
	const op = "set layer type"
	if t != Thematic && t != Continuous {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: layer type %d", ErrInvalidParam, t)}
	}
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, g.SetAttr(attrLayerType, uint16(t)))
}

// GetImageBandLayerType returns the layer type of a band.
func (img *ImageIO) GetImageBandLayerType(band uint) (LayerType, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return Thematic, ioErr("get layer type", img.path, err)
	}
	if !g.HasAttr(attrLayerType) {
		return Thematic, nil
	}
	n, err := intAttr(g, attrLayerType)
	return LayerType(n), ioErr("get layer type", img.path, err)
}

// SetImageBandClrInterp sets the colour interpretation of a band.
func (img *ImageIO) SetImageBandClrInterp(band uint, c ClrInterp) error {
	const op = "set colour interpretation"
	if c < Generic || c > YCbCrCrBand {
		return &IOError{Op: op, Path: img.path, Err: fmt.Errorf("%w: colour interpretation %d", ErrInvalidParam, c)}
	}
	g, err := img.bandGroup(band)
	if err != nil {
		return ioErr(op, img.path, err)
	}
	return ioErr(op, img.path, g.SetAttr(attrLayerUsage, uint16(c)))
}

// GetImageBandClrInterp returns the colour interpretation of a band.
func (img *ImageIO) GetImageBandClrInterp(band uint) (ClrInterp, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return Generic, ioErr("get colour interpretation", img.path, err)
	}
	if !g.HasAttr(attrLayerUsage) {
		return Generic, nil
	}
	n, err := intAttr(g, attrLayerUsage)
	return ClrInterp(n), ioErr("get colour interpretation", img.path, err)
}
