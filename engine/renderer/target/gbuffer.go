package target

import "github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"

// GBuffer attachment indices.
const (
	GBufferBaseColor = iota
	GBufferNormal
	GBufferMetallicRoughness
	GBufferEmissive
)

// GBufferSlots are the texture slot names lighting passes receive the g-buffer under, in
// attachment order.
var GBufferSlots = [...]string{
	GBufferBaseColor:         "gBaseColor",
	GBufferNormal:            "gNormal",
	GBufferMetallicRoughness: "gMetallicRoughness",
	GBufferEmissive:          "gEmissive",
}

// GBuffer is the four-attachment geometry buffer. It owns no depth; the depth pre-pass
// depth is aliased onto it.
//
//	0: base color (RGBA8)
//	1: normal + shading model (RGBA16F)
//	2: metallic / roughness (RGBA8)
//	3: emissive (RGBA16F)
type GBuffer struct {
	*RenderTarget
}

// NewGBuffer creates the g-buffer.
//
// Parameters:
//   - backend: the GPU backend
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - *GBuffer: the g-buffer
//   - error: an error if allocation fails
func NewGBuffer(backend gpu.Backend, width, height int) (*GBuffer, error) {
	rt, err := NewRenderTarget(backend, "gbuffer",
		WithFormats(
			gpu.TextureFormatRGBA8Unorm,
			gpu.TextureFormatRGBA16Float,
			gpu.TextureFormatRGBA8Unorm,
			gpu.TextureFormatRGBA16Float,
		),
		WithSize(width, height),
	)
	if err != nil {
		return nil, err
	}
	return &GBuffer{RenderTarget: rt}, nil
}

// Bindings returns the g-buffer attachments as texture bindings under GBufferSlots.
func (g *GBuffer) Bindings() []gpu.TextureBinding {
	out := make([]gpu.TextureBinding, 0, len(GBufferSlots))
	for i, slot := range GBufferSlots {
		out = append(out, gpu.TextureBinding{Name: slot, Texture: g.Color(i), Sampler: gpu.SamplerNearest})
	}
	return out
}
