package filter

import (
	"fmt"

	"github.com/golang/snappy"
)

// Snappy implements the snappy block compression filter.
type Snappy struct{}

// NewSnappy creates a snappy filter. It takes no client data.
func NewSnappy(clientData []uint32) *Snappy {
	return &Snappy{}
}

func (f *Snappy) ID() uint16 {
	return IDSnappy
}

func (f *Snappy) Encode(input []byte) ([]byte, error) {
	return snappy.Encode(nil, input), nil
}

func (f *Snappy) Decode(input []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, input)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	return out, nil
}
