package tensor

import (
	"encoding/binary"
	"fmt"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16LookupTable[i] = float16.Frombits(uint16(i)).Float32()
	}
}

// FromFloat16 builds a float32 Tensor from half precision values, as
// produced by models exported with fp16 outputs
func FromFloat16(shape []int, raw []uint16) (*Tensor, error) {

	data := make([]float32, len(raw))

	for i, bits := range raw {
		data[i] = f16LookupTable[bits]
	}

	return New(shape, data)
}

// FromFloat16Bytes decodes a little endian byte buffer of half precision
// values into a float32 Tensor
func FromFloat16Bytes(shape []int, buf []byte) (*Tensor, error) {

	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("%w: odd fp16 buffer length %d", ErrShape, len(buf))
	}

	raw := make([]uint16, len(buf)/2)

	for i := range raw {
		raw[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}

	return FromFloat16(shape, raw)
}

// ToFloat16 converts the tensor values to half precision bits
func (t *Tensor) ToFloat16() []uint16 {

	out := make([]uint16, len(t.Data))

	for i, v := range t.Data {
		out[i] = float16.Fromfloat32(v).Bits()
	}

	return out
}
