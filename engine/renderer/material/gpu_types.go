package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the per-draw material uniform written to group 1 binding 0.
// Size: 48 bytes (three vec4<f32>).
//
//	struct MaterialParams {
//	    base_color: vec4<f32>,
//	    emissive: vec4<f32>,          // rgb emissive, a = alpha cutoff
//	    surface: vec4<f32>,           // x metallic, y roughness, z alpha test flag, w shading model
//	}
type GPUMaterialParams struct {
	BaseColor    [4]float32 // offset 0
	Emissive     [3]float32 // offset 16
	AlphaCutoff  float32    // offset 28
	Metallic     float32    // offset 32
	Roughness    float32    // offset 36
	AlphaTest    float32    // offset 40: 1 when alpha testing is on
	ShadingModel float32    // offset 44
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	values := [12]float32{
		g.BaseColor[0], g.BaseColor[1], g.BaseColor[2], g.BaseColor[3],
		g.Emissive[0], g.Emissive[1], g.Emissive[2], g.AlphaCutoff,
		g.Metallic, g.Roughness, g.AlphaTest, g.ShadingModel,
	}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
