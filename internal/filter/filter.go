package filter

import "fmt"

// Filter identifiers. The third-party identifiers follow the registered
// values so pipelines stay recognisable to other tools.
const (
	IDDeflate    uint16 = 1
	IDShuffle    uint16 = 2
	IDFletcher32 uint16 = 3
	IDSnappy     uint16 = 32003
	IDLZ4        uint16 = 32004
	IDZstd       uint16 = 32015
)

// FlagOptional marks a filter that may be skipped when it cannot be applied.
const FlagOptional uint16 = 0x0001

// Info describes one filter in a dataset's pipeline.
type Info struct {
	ID         uint16
	Flags      uint16
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped.
func (i Info) IsOptional() bool {
	return i.Flags&FlagOptional != 0
}

// Name returns a human-readable name for the filter.
func (i Info) Name() string {
	if name, ok := filterNames[i.ID]; ok {
		return name
	}
	return fmt.Sprintf("filter-%d", i.ID)
}

// Filter is implemented by every chunk filter.
type Filter interface {
	// ID returns the filter identifier.
	ID() uint16

	// Encode transforms raw data into its stored form.
	Encode(input []byte) ([]byte, error)

	// Decode reverses Encode.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to filter constructors.
var Registry = map[uint16]func([]uint32) Filter{
	IDDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	IDShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	IDFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
	IDSnappy:     func(cd []uint32) Filter { return NewSnappy(cd) },
	IDLZ4:        func(cd []uint32) Filter { return NewLZ4(cd) },
	IDZstd:       func(cd []uint32) Filter { return NewZstd(cd) },
}

var filterNames = map[uint16]string{
	IDDeflate:    "deflate",
	IDShuffle:    "shuffle",
	IDFletcher32: "fletcher32",
	IDSnappy:     "snappy",
	IDLZ4:        "lz4",
	IDZstd:       "zstd",
}

// New creates a filter from an Info. An unknown optional filter yields a nil
// filter and no error.
func New(info Info) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported filter ID: %d", info.ID)
	}
	return constructor(info.ClientData), nil
}
