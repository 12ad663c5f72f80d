package material

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// Default render queue indices. Within a queue, materials are ordered by ascending index.
const (
	QueueIndexSkybox      = 1000
	QueueIndexOpaque      = 2000
	QueueIndexAlphaTest   = 2450
	QueueIndexTransparent = 3000
)

// DepthSlot is the texture slot that receives a depth snapshot for materials that test depth manually.
const DepthSlot = "depth"

// ErrNoProgram is returned by EnsureBound when the material has no program to bind.
var ErrNoProgram = errors.New("material has no program")

// BindFunc binds a material's declared uniform block names to the global registry.
type BindFunc func(program gpu.Program, names []string) error

// BoundState records that a material's uniform blocks were bound to the registry.
type BoundState struct {
	Blocks []string
}

type textureSlot struct {
	texture gpu.Texture
	sampler gpu.SamplerKind
}

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name         string
	program      gpu.Program
	depthProgram gpu.Program
	blockNames   []string
	state        pipeline.State

	baseColor    [4]float32
	emissive     [3]float32
	metallic     float32
	roughness    float32
	shadingModel float32
	alphaTest    bool
	alphaCutoff  float32
	skipPrePass  bool
	queueIndex   int
	castShadows  bool

	slotOrder []string
	slots     map[string]textureSlot

	bound         *BoundState
	depthMaterial *material
}

// Material describes how a mesh part is shaded: its program, fixed-function state, surface
// parameters, textures, and which uniform blocks its program reads.
//
// A Material binds its uniform blocks to the global registry at most once over its lifetime.
// The first successful EnsureBound call stores a private BoundState; later calls do nothing.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Program retrieves the compiled shader program, or nil if none was supplied.
	//
	// Returns:
	//   - gpu.Program: the program
	Program() gpu.Program

	// UniformBlockNames retrieves the global uniform blocks the program declares, in binding order.
	//
	// Returns:
	//   - []string: the block names
	UniformBlockNames() []string

	// CanRender reports whether the material has a program and can be drawn.
	//
	// Returns:
	//   - bool: true if drawable
	CanRender() bool

	// PipelineState retrieves the fixed-function state draws of this material use.
	//
	// Returns:
	//   - pipeline.State: the state
	PipelineState() pipeline.State

	DepthWrite() bool
	DepthTest() bool
	DepthFunc() pipeline.CompareFunc
	Blend() pipeline.BlendMode
	Side() pipeline.FaceSide

	// AlphaTest reports whether fragments below the alpha cutoff are discarded.
	// Alpha-tested materials render in the AlphaTest queue.
	//
	// Returns:
	//   - bool: true if alpha testing is on
	AlphaTest() bool

	// SkipDepthPrePass reports whether the material is excluded from the depth pre-pass and
	// tests depth manually against a snapshot bound at DepthSlot.
	//
	// Returns:
	//   - bool: true if the material skips the pre-pass
	SkipDepthPrePass() bool

	// RenderQueueIndex retrieves the ordering key within the material's render queue.
	// Unless set explicitly, it is the default index of the queue the material routes to.
	//
	// Returns:
	//   - int: the queue index
	RenderQueueIndex() int

	// CastShadows reports whether meshes using this material are drawn into shadow maps.
	CastShadows() bool

	// Uniforms returns the serialized per-draw material parameters.
	//
	// Returns:
	//   - []byte: the material uniform bytes
	Uniforms() []byte

	// Textures returns the material's texture bindings in slot order.
	//
	// Returns:
	//   - []gpu.TextureBinding: the bindings
	Textures() []gpu.TextureBinding

	// SetTexture assigns a texture to a named slot. New slots are appended to the slot order.
	//
	// Parameters:
	//   - slot: the slot name
	//   - tex: the texture
	//   - sampler: the sampler kind to pair it with
	SetTexture(slot string, tex gpu.Texture, sampler gpu.SamplerKind)

	// DepthMaterial returns the depth-only variant used by the depth pre-pass and shadow passes.
	// The variant is created on first use and cached.
	//
	// Returns:
	//   - Material: the depth-only variant
	DepthMaterial() Material

	// EnsureBound binds the material's uniform blocks through bind on the first call that
	// succeeds. Once bound, bind is never called again.
	//
	// Parameters:
	//   - bind: the binding callback
	//
	// Returns:
	//   - error: the binding error, or nil when bound
	EnsureBound(bind BindFunc) error

	// Bound reports whether EnsureBound has succeeded.
	Bound() bool
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:          &sync.Mutex{},
		state:       pipeline.NewState(),
		baseColor:   [4]float32{1, 1, 1, 1},
		roughness:   1.0,
		alphaCutoff: 0.5,
		queueIndex:  -1,
		castShadows: true,
		slots:       make(map[string]textureSlot),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Program() gpu.Program {
	return m.program
}

func (m *material) UniformBlockNames() []string {
	return m.blockNames
}

func (m *material) CanRender() bool {
	return m.program != nil
}

func (m *material) PipelineState() pipeline.State {
	return m.state
}

func (m *material) DepthWrite() bool {
	return m.state.DepthWrite
}

func (m *material) DepthTest() bool {
	return m.state.DepthTest
}

func (m *material) DepthFunc() pipeline.CompareFunc {
	return m.state.DepthCompare
}

func (m *material) Blend() pipeline.BlendMode {
	return m.state.Blend
}

func (m *material) Side() pipeline.FaceSide {
	return m.state.Side
}

func (m *material) AlphaTest() bool {
	return m.alphaTest
}

func (m *material) SkipDepthPrePass() bool {
	return m.skipPrePass
}

func (m *material) RenderQueueIndex() int {
	if m.queueIndex >= 0 {
		return m.queueIndex
	}
	switch {
	case m.alphaTest:
		return QueueIndexAlphaTest
	case m.state.Blend == pipeline.BlendTransparent || m.state.Blend == pipeline.BlendAdditive:
		return QueueIndexTransparent
	default:
		return QueueIndexOpaque
	}
}

func (m *material) CastShadows() bool {
	return m.castShadows
}

func (m *material) Uniforms() []byte {
	params := GPUMaterialParams{
		BaseColor:    m.baseColor,
		Emissive:     m.emissive,
		AlphaCutoff:  m.alphaCutoff,
		Metallic:     m.metallic,
		Roughness:    m.roughness,
		AlphaTest:    common.BoolToFloat(m.alphaTest),
		ShadingModel: m.shadingModel,
	}
	return params.Marshal()
}

func (m *material) Textures() []gpu.TextureBinding {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]gpu.TextureBinding, 0, len(m.slotOrder))
	for _, name := range m.slotOrder {
		s := m.slots[name]
		if s.texture == nil {
			continue
		}
		out = append(out, gpu.TextureBinding{Name: name, Texture: s.texture, Sampler: s.sampler})
	}
	return out
}

func (m *material) SetTexture(slot string, tex gpu.Texture, sampler gpu.SamplerKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[slot]; !ok {
		m.slotOrder = append(m.slotOrder, slot)
	}
	m.slots[slot] = textureSlot{texture: tex, sampler: sampler}
}

func (m *material) DepthMaterial() Material {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.depthMaterial != nil {
		return m.depthMaterial
	}

	d := &material{
		mu:          &sync.Mutex{},
		name:        m.name + " (depth)",
		program:     m.depthProgram,
		blockNames:  m.blockNames,
		state:       m.state.DepthOnly(),
		baseColor:   m.baseColor,
		alphaTest:   m.alphaTest,
		alphaCutoff: m.alphaCutoff,
		queueIndex:  m.queueIndex,
		castShadows: m.castShadows,
		slots:       make(map[string]textureSlot),
	}
	d.depthMaterial = d
	// Alpha-tested depth draws need the base color texture for their discard.
	if m.alphaTest {
		for _, name := range m.slotOrder {
			d.slotOrder = append(d.slotOrder, name)
			d.slots[name] = m.slots[name]
		}
	}
	m.depthMaterial = d
	return d
}

func (m *material) EnsureBound(bind BindFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bound != nil {
		return nil
	}
	if m.program == nil {
		return fmt.Errorf("material %q: %w", m.name, ErrNoProgram)
	}
	if err := bind(m.program, m.blockNames); err != nil {
		return fmt.Errorf("material %q: %w", m.name, err)
	}
	m.bound = &BoundState{Blocks: append([]string(nil), m.blockNames...)}
	return nil
}

func (m *material) Bound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bound != nil
}
