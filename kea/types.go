package kea

import "fmt"

// DataType is the pixel type of a band. The numbering is part of the file
// format.
type DataType int

const (
	Undefined DataType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var dataTypeNames = [...]string{
	Undefined: "undefined",
	Int8:      "int8",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Uint8:     "uint8",
	Uint16:    "uint16",
	Uint32:    "uint32",
	Uint64:    "uint64",
	Float32:   "float32",
	Float64:   "float64",
}

func (t DataType) String() string {
	if t >= 0 && int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Valid reports whether t is a defined pixel type.
func (t DataType) Valid() bool {
	return t > Undefined && t <= Float64
}

// Size returns the size of one pixel in bytes, or 0 for invalid types.
func (t DataType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// ParseDataType returns the DataType with the given name.
func ParseDataType(name string) (DataType, error) {
	for i, n := range dataTypeNames {
		if n == name && DataType(i) != Undefined {
			return DataType(i), nil
		}
	}
	return Undefined, typeErr("parse data type", name, ErrUnsupportedType)
}

// LayerType classifies a band's values.
type LayerType int

const (
	Thematic LayerType = iota
	Continuous
)

func (t LayerType) String() string {
	switch t {
	case Thematic:
		return "thematic"
	case Continuous:
		return "continuous"
	}
	return fmt.Sprintf("LayerType(%d)", int(t))
}

// ClrInterp is the colour or semantic role of a band.
type ClrInterp int

const (
	Generic ClrInterp = iota
	GreyIndex
	PaletteIndex
	RedBand
	GreenBand
	BlueBand
	AlphaBand
	HueBand
	SaturationBand
	LightnessBand
	CyanBand
	MagentaBand
	YellowBand
	BlackBand
	YCbCrYBand
	YCbCrCbBand
	YCbCrCrBand
)

var clrInterpNames = [...]string{
	"generic", "greyindex", "paletteindex", "red", "green", "blue", "alpha",
	"hue", "saturation", "lightness", "cyan", "magenta", "yellow", "black",
	"ycbcr_y", "ycbcr_cb", "ycbcr_cr",
}

func (c ClrInterp) String() string {
	if c >= 0 && int(c) < len(clrInterpNames) {
		return clrInterpNames[c]
	}
	return fmt.Sprintf("ClrInterp(%d)", int(c))
}

// FieldType is the kind of an attribute table column.
type FieldType int

const (
	FieldNA FieldType = iota
	FieldBool
	FieldInt
	FieldFloat
	FieldString
)

func (t FieldType) String() string {
	switch t {
	case FieldNA:
		return "na"
	case FieldBool:
		return "bool"
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	case FieldString:
		return "string"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is a storable column kind.
func (t FieldType) Valid() bool {
	return t >= FieldBool && t <= FieldString
}

// Codec selects the compressor used for pixel and attribute table chunks.
type Codec int

const (
	CodecDeflate Codec = iota
	CodecZstd
	CodecLZ4
	CodecSnappy
	CodecNone
)

var codecNames = map[Codec]string{
	CodecDeflate: "deflate",
	CodecZstd:    "zstd",
	CodecLZ4:     "lz4",
	CodecSnappy:  "snappy",
	CodecNone:    "none",
}

func (c Codec) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Codec(%d)", int(c))
}

// ParseCodec returns the codec with the given name.
func ParseCodec(name string) (Codec, error) {
	for c, n := range codecNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: codec %q", ErrInvalidParam, name)
}

// SpatialInfo locates the image on the ground.
type SpatialInfo struct {
	TLX, TLY   float64 // top left corner
	XRes, YRes float64 // pixel size
	XRot, YRot float64 // rotation terms
	XSize      uint64  // width in pixels
	YSize      uint64  // height in pixels
	WKT        string  // coordinate reference system
}

// GeoTransform returns the affine transform in the conventional order
// {TLX, XRes, XRot, TLY, YRot, YRes}.
func (s SpatialInfo) GeoTransform() [6]float64 {
	return [6]float64{s.TLX, s.XRes, s.XRot, s.TLY, s.YRot, s.YRes}
}

// SetGeoTransform sets the origin, pixel size and rotation from an affine
// transform in GeoTransform order.
func (s *SpatialInfo) SetGeoTransform(gt [6]float64) {
	s.TLX, s.XRes, s.XRot = gt[0], gt[1], gt[2]
	s.TLY, s.YRot, s.YRes = gt[3], gt[4], gt[5]
}

// MetadataItem is one name/value metadata pair.
type MetadataItem struct {
	Name  string
	Value string
}
