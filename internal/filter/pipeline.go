package filter

import (
	"fmt"
)

// Pipeline is an ordered sequence of filters applied to chunk data.
type Pipeline struct {
	filters  []Filter
	optional []bool
}

// NewPipeline builds a pipeline from filter descriptions. elemSize is the
// dataset element size, used by filters such as shuffle whose behaviour
// depends on it.
func NewPipeline(infos []Info, elemSize int) (*Pipeline, error) {
	p := &Pipeline{}
	for _, info := range infos {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		if f == nil {
			continue
		}
		if s, ok := f.(*Shuffle); ok && len(info.ClientData) == 0 {
			s.SetElementSize(elemSize)
		}
		p.filters = append(p.filters, f)
		p.optional = append(p.optional, info.IsOptional())
	}
	return p, nil
}

// Encode applies the filters in order. The returned mask has bit i set when
// optional filter i was skipped.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32
	for i, f := range p.filters {
		out, err := f.Encode(data)
		if err != nil {
			if p.optional[i] {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
		data = out
	}
	return data, mask, nil
}

// Decode applies the filter pipeline to encoded data.
// The filterMask specifies which filters to skip (bit i = skip filter i).
// Filters are applied in reverse order (last filter first).
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
