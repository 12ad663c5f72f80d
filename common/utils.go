package common

import (
	"encoding/binary"
	"math"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Float32sToBytes packs floats little-endian for GPU upload.
//
// Parameters:
//   - data: the floats to pack
//
// Returns:
//   - []byte: a new buffer of len(data)*4 bytes
func Float32sToBytes(data []float32) []byte {
	buf := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToFloat32s unpacks little-endian floats. Trailing bytes that do not form
// a whole float are ignored.
func BytesToFloat32s(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// BoolToFloat maps true to 1 and false to 0 for uniform upload.
func BoolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
