package filter

// Shuffle implements the byte shuffle filter. Byte k of every element is
// stored together, followed by byte k+1, and so on. Bytes left over when
// the input is not a whole number of elements are kept at the end.
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a new shuffle filter.
// Client data: [0] = element size in bytes
func NewShuffle(clientData []uint32) *Shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 {
	return IDShuffle
}

// SetElementSize sets the element size once the datatype is known.
func (f *Shuffle) SetElementSize(size int) {
	if size > 0 {
		f.elemSize = size
	}
}

// Encode groups byte planes: [elem0][elem1]... becomes [all byte 0s][all byte 1s]...
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	numElems := f.numElems(input)
	if numElems == 0 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[j*numElems+i] = input[i*f.elemSize+j]
		}
	}
	tail := numElems * f.elemSize
	copy(output[tail:], input[tail:])
	return output, nil
}

// Decode reverses the shuffle transformation.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	numElems := f.numElems(input)
	if numElems == 0 {
		return input, nil
	}
	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			output[i*f.elemSize+j] = input[j*numElems+i]
		}
	}
	tail := numElems * f.elemSize
	copy(output[tail:], input[tail:])
	return output, nil
}

func (f *Shuffle) numElems(input []byte) int {
	if f.elemSize <= 1 {
		return 0
	}
	return len(input) / f.elemSize
}
