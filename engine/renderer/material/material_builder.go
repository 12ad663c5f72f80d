package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithProgram sets the shader program and the uniform blocks it declares, in binding order.
//
// Parameters:
//   - p: the compiled program
//   - blocks: the names of the global uniform blocks the program reads
//
// Returns:
//   - MaterialBuilderOption: a function that applies the program option to a material
func WithProgram(p gpu.Program, blocks ...string) MaterialBuilderOption {
	return func(m *material) {
		m.program = p
		m.blockNames = blocks
	}
}

// WithDepthProgram sets the program used by the material's depth-only variant.
// Without one the variant cannot render and is skipped by depth-only passes.
//
// Parameters:
//   - p: the depth-only program
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithDepthProgram(p gpu.Program) MaterialBuilderOption {
	return func(m *material) {
		m.depthProgram = p
	}
}

// WithState applies pipeline state options on top of the opaque defaults.
//
// Parameters:
//   - opts: pipeline.StateBuilderOption functions
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithState(opts ...pipeline.StateBuilderOption) MaterialBuilderOption {
	return func(m *material) {
		for _, opt := range opts {
			opt(&m.state)
		}
	}
}

// WithBaseColor is an option builder that sets the albedo/diffuse RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithEmissive sets the emissive color written to the emissive g-buffer attachment.
//
// Parameters:
//   - color: linear RGB emissive color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithEmissive(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithShadingModel sets the shading model id written alongside the normal.
//
// Parameters:
//   - model: the shading model id
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithShadingModel(model int) MaterialBuilderOption {
	return func(m *material) {
		m.shadingModel = float32(model)
	}
}

// WithAlphaTest enables alpha testing with the given cutoff.
//
// Parameters:
//   - cutoff: fragments with alpha below this value are discarded
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithAlphaTest(cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaTest = true
		m.alphaCutoff = cutoff
	}
}

// WithSkipDepthPrePass excludes the material from the depth pre-pass.
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithSkipDepthPrePass() MaterialBuilderOption {
	return func(m *material) {
		m.skipPrePass = true
	}
}

// WithRenderQueueIndex overrides the ordering key within the material's queue.
//
// Parameters:
//   - index: the queue index
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithRenderQueueIndex(index int) MaterialBuilderOption {
	return func(m *material) {
		m.queueIndex = index
	}
}

// WithCastShadows sets whether meshes using the material are drawn into shadow maps. Defaults to true.
//
// Parameters:
//   - cast: whether to cast shadows
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithCastShadows(cast bool) MaterialBuilderOption {
	return func(m *material) {
		m.castShadows = cast
	}
}

// WithTexture assigns a texture slot at construction.
//
// Parameters:
//   - slot: the slot name
//   - tex: the texture
//   - sampler: the sampler kind
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithTexture(slot string, tex gpu.Texture, sampler gpu.SamplerKind) MaterialBuilderOption {
	return func(m *material) {
		if _, ok := m.slots[slot]; !ok {
			m.slotOrder = append(m.slotOrder, slot)
		}
		m.slots[slot] = textureSlot{texture: tex, sampler: sampler}
	}
}
