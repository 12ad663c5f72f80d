// Package gpu defines the GPU command surface the deferred pipeline drives, with a WebGPU
// implementation for real frames and a recording implementation that captures frames as
// typed commands for inspection.
package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// TextureFormat identifies the texel format of a texture.
type TextureFormat int

const (
	TextureFormatRGBA8Unorm TextureFormat = iota
	TextureFormatRGBA16Float
	TextureFormatR16Float
	TextureFormatR32Float
	TextureFormatDepth32Float
)

var textureFormatNames = [...]string{
	TextureFormatRGBA8Unorm:   "RGBA8Unorm",
	TextureFormatRGBA16Float:  "RGBA16Float",
	TextureFormatR16Float:     "R16Float",
	TextureFormatR32Float:     "R32Float",
	TextureFormatDepth32Float: "Depth32Float",
}

func (f TextureFormat) String() string {
	if f < 0 || int(f) >= len(textureFormatNames) {
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
	return textureFormatNames[f]
}

// IsDepth reports whether the format is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32Float
}

// TextureUsage is a bit set of the ways a texture may be used.
type TextureUsage uint32

const (
	TextureUsageRenderAttachment TextureUsage = 1 << iota
	TextureUsageSampled
	TextureUsageCopySrc
	TextureUsageCopyDst
)

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	Usage  TextureUsage
}

// Texture is a GPU texture handle.
type Texture interface {
	Label() string
	Width() int
	Height() int
	Format() TextureFormat
	// Release frees the GPU resource. Releasing twice is a no-op.
	Release()
}

// Buffer is a GPU uniform buffer handle.
type Buffer interface {
	Label() string
	Size() int
	Release()
}

// Program is an opaque compiled shader program. The pipeline never inspects its contents.
type Program interface {
	Key() string
}

// ProgramDescriptor describes a program built from a single WGSL module holding both entry points.
type ProgramDescriptor struct {
	Key                string
	Source             string
	VertexEntryPoint   string
	FragmentEntryPoint string
}

// Geometry is an indexed vertex buffer pair. Vertices are interleaved
// position (vec3), normal (vec3), uv (vec2).
type Geometry interface {
	Label() string
	IndexCount() int
	Release()
}

// SamplerKind selects the sampler paired with a bound texture.
type SamplerKind int

const (
	SamplerLinear SamplerKind = iota
	SamplerNearest
	SamplerComparison
)

// TextureBinding binds a texture to a named material slot for one draw.
// Slots are assigned bindings in slice order.
type TextureBinding struct {
	Name    string
	Texture Texture
	Sampler SamplerKind
}

// BlockBinding associates a global uniform block with the binding index a program sees it at.
type BlockBinding struct {
	Name   string
	Index  int
	Buffer Buffer
}

// LoadOp controls what happens to an attachment's contents at the start of a pass.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
)

// ColorAttachment is one color output of a render pass.
type ColorAttachment struct {
	Texture    Texture
	Load       LoadOp
	ClearColor [4]float64
}

// DepthAttachment is the depth output of a render pass.
type DepthAttachment struct {
	Texture    Texture
	Load       LoadOp
	ClearDepth float32
}

// RenderPassDescriptor describes the attachments of a render pass. When Framebuffer is set
// the pass renders to the default framebuffer and Colors is ignored.
type RenderPassDescriptor struct {
	Label           string
	Framebuffer     bool
	FramebufferLoad LoadOp
	ClearColor      [4]float64
	Colors          []ColorAttachment
	Depth           *DepthAttachment
}

// DrawCommand is a single draw inside a render pass. The uniform blocks bound to Program
// through BindUniformBlocks are snapshotted at the moment of the draw.
type DrawCommand struct {
	Label   string
	Program Program
	// Geometry is drawn indexed; nil draws a fullscreen triangle.
	Geometry  Geometry
	State     pipeline.State
	Uniforms  []byte
	Textures  []TextureBinding
	Instances int
}

// Backend is the GPU command surface used by the renderer. All methods are called from the
// render goroutine; implementations serialize internally for resize events.
type Backend interface {
	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if the size is invalid or allocation fails
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads RGBA8 pixels to a texture of matching size.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - data: the pixels
	//
	// Returns:
	//   - error: an error if the sizes differ
	WriteTexture(tex Texture, data common.TextureData) error

	// CreateUniformBuffer allocates a uniform buffer of size bytes.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation fails
	CreateUniformBuffer(label string, size int) (Buffer, error)

	// WriteBuffer writes data into buf at offset. Writes become visible to draws issued after the call.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write exceeds the buffer
	WriteBuffer(buf Buffer, offset int, data []byte) error

	// CreateProgram compiles a shader program.
	//
	// Parameters:
	//   - desc: the program descriptor
	//
	// Returns:
	//   - Program: the compiled program
	//   - error: an error if compilation fails
	CreateProgram(desc ProgramDescriptor) (Program, error)

	// CreateGeometry uploads indexed geometry.
	//
	// Parameters:
	//   - label: debug label
	//   - vertices: interleaved vertex bytes
	//   - indices: uint32 index bytes
	//   - indexCount: number of indices
	//
	// Returns:
	//   - Geometry: the uploaded geometry
	//   - error: an error if upload fails
	CreateGeometry(label string, vertices, indices []byte, indexCount int) (Geometry, error)

	// BindUniformBlocks associates global uniform blocks with a program. Called once per material.
	//
	// Parameters:
	//   - p: the program
	//   - blocks: the blocks in the order the program declares them
	//
	// Returns:
	//   - error: an error if the binding layout cannot be created
	BindUniformBlocks(p Program, blocks []BlockBinding) error

	// ConfigureSurface resizes the default framebuffer.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	ConfigureSurface(width, height int)

	// BeginFrame starts recording a frame.
	//
	// Returns:
	//   - error: an error if the frame cannot begin (e.g. surface not acquired)
	BeginFrame() error

	// BeginRenderPass binds a set of attachments. Passes do not nest.
	//
	// Parameters:
	//   - desc: the attachments to bind
	//
	// Returns:
	//   - error: an error if a pass is already open or an attachment is invalid
	BeginRenderPass(desc RenderPassDescriptor) error

	// Draw encodes a draw into the open pass.
	//
	// Parameters:
	//   - cmd: the draw
	//
	// Returns:
	//   - error: an error if no pass is open or the command is invalid
	Draw(cmd DrawCommand) error

	// EndRenderPass closes the open pass.
	//
	// Returns:
	//   - error: an error if no pass is open
	EndRenderPass() error

	// CopyTexture copies src into dst. Only legal outside a render pass; sizes and formats must match.
	//
	// Parameters:
	//   - src: the source texture
	//   - dst: the destination texture
	//
	// Returns:
	//   - error: an error if called inside a pass or the textures are incompatible
	CopyTexture(src, dst Texture) error

	// EndFrame submits the recorded frame.
	//
	// Returns:
	//   - error: an error if a pass is still open or submission fails
	EndFrame() error

	// Present displays the default framebuffer.
	Present()
}
