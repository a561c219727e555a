package kea

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/robert-malhotra/go-kea/internal/store"
)

// SetImageMetaData sets an image-level metadata item.
func (img *ImageIO) SetImageMetaData(name, value string) error {
	g, err := img.imageMetadata()
	if err != nil {
		return ioErr("set metadata", img.path, err)
	}
	return ioErr("set metadata", img.path, setMeta(g, name, value))
}

// GetImageMetaData returns an image-level metadata item.
func (img *ImageIO) GetImageMetaData(name string) (string, error) {
	g, err := img.imageMetadata()
	if err != nil {
		return "", ioErr("get metadata", img.path, err)
	}
	v, err := getMeta(g, name)
	return v, ioErr("get metadata", img.path, err)
}

// GetImageMetaDataNames returns the image-level metadata names in sorted
// order.
func (img *ImageIO) GetImageMetaDataNames() ([]string, error) {
	g, err := img.imageMetadata()
	if err != nil {
		return nil, ioErr("get metadata names", img.path, err)
	}
	return g.Attrs(), nil
}

// GetImageMetaDataAll returns all image-level metadata items sorted by
// name.
func (img *ImageIO) GetImageMetaDataAll() ([]MetadataItem, error) {
	g, err := img.imageMetadata()
	if err != nil {
		return nil, ioErr("get metadata", img.path, err)
	}
	items, err := allMeta(g)
	return items, ioErr("get metadata", img.path, err)
}

// SetImageMetaDataAll sets every item in md. Existing items not in md are
// kept.
func (img *ImageIO) SetImageMetaDataAll(md map[string]string) error {
	g, err := img.imageMetadata()
	if err != nil {
		return ioErr("set metadata", img.path, err)
	}
	return ioErr("set metadata", img.path, setAllMeta(g, md))
}

// SetImageBandMetaData sets a band metadata item.
func (img *ImageIO) SetImageBandMetaData(band uint, name, value string) error {
	g, err := img.bandMetadata(band)
	if err != nil {
		return ioErr("set band metadata", img.path, err)
	}
	return ioErr("set band metadata", img.path, setMeta(g, name, value))
}

// GetImageBandMetaData returns a band metadata item.
func (img *ImageIO) GetImageBandMetaData(band uint, name string) (string, error) {
	g, err := img.bandMetadata(band)
	if err != nil {
		return "", ioErr("get band metadata", img.path, err)
	}
	v, err := getMeta(g, name)
	return v, ioErr("get band metadata", img.path, err)
}

// GetImageBandMetaDataNames returns the metadata names of a band in sorted
// order.
func (img *ImageIO) GetImageBandMetaDataNames(band uint) ([]string, error) {
	g, err := img.bandMetadata(band)
	if err != nil {
		return nil, ioErr("get band metadata names", img.path, err)
	}
	return g.Attrs(), nil
}

// GetImageBandMetaDataAll returns all metadata items of a band sorted by
// name.
func (img *ImageIO) GetImageBandMetaDataAll(band uint) ([]MetadataItem, error) {
	g, err := img.bandMetadata(band)
	if err != nil {
		return nil, ioErr("get band metadata", img.path, err)
	}
	items, err := allMeta(g)
	return items, ioErr("get band metadata", img.path, err)
}

// SetImageBandMetaDataAll sets every item in md on a band, keeping items
// not in md.
func (img *ImageIO) SetImageBandMetaDataAll(band uint, md map[string]string) error {
	g, err := img.bandMetadata(band)
	if err != nil {
		return ioErr("set band metadata", img.path, err)
	}
	return ioErr("set band metadata", img.path, setAllMeta(g, md))
}

func (img *ImageIO) imageMetadata() (*store.Group, error) {
	if err := img.check(); err != nil {
		return nil, err
	}
	return img.f.OpenGroup(metadataGroup)
}

func (img *ImageIO) bandMetadata(band uint) (*store.Group, error) {
	g, err := img.bandGroup(band)
	if err != nil {
		return nil, err
	}
	return g.OpenGroup(metadataName)
}

func setMeta(g *store.Group, name, value string) error {
	if name == "" {
		return fmt.Errorf("%w: metadata name is empty", ErrInvalidParam)
	}
	return g.SetAttr(name, value)
}

func getMeta(g *store.Group, name string) (string, error) {
	a, err := g.Attr(name)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrMetadataNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return a.ScalarString()
}

func allMeta(g *store.Group) ([]MetadataItem, error) {
	names := g.Attrs()
	items := make([]MetadataItem, 0, len(names))
	for _, name := range names {
		v, err := getMeta(g, name)
		if err != nil {
			return nil, err
		}
		items = append(items, MetadataItem{Name: name, Value: v})
	}
	return items, nil
}

func setAllMeta(g *store.Group, md map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(md)) {
		if err := setMeta(g, name, md[name]); err != nil {
			return err
		}
	}
	return nil
}
