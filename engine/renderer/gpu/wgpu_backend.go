package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformAlignment is the minimum dynamic uniform buffer offset alignment guaranteed by WebGPU.
const uniformAlignment = 256

// vertexStride is the byte stride of the interleaved position, normal, uv vertex layout.
const vertexStride = 32

// wgpuBackend implements Backend on cogentcore/webgpu.
//
// Binding convention shared by every program:
//   - group 0: the global uniform blocks passed to BindUniformBlocks, binding i = block i
//   - group 1: binding 0 = per-draw material uniforms, then a texture and sampler pair per slot
//
// Uniform blocks are staged on the CPU and copied into a per-frame arena at every draw, so a
// block rewritten between two draws is seen correctly by each. The arena is uploaded right
// before the frame's command buffer is submitted.
type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceSize   common.Size

	presentMode          PresentMode
	forceFallbackAdapter bool
	arenaSize            int

	samplers        map[SamplerKind]*wgpu.Sampler
	pipelines       map[string]*wgpu.RenderPipeline
	materialLayouts map[string]*wgpu.BindGroupLayout

	arena     *wgpu.Buffer
	arenaData *uniformArena

	frameEncoder    *wgpu.CommandEncoder
	framePass       *wgpu.RenderPassEncoder
	frameSurface    *wgpu.Texture
	frameView       *wgpu.TextureView
	frameBindGroups []*wgpu.BindGroup
	passFormats     string
	passColors      []wgpu.TextureFormat
	passHasDepth    bool
}

var _ Backend = &wgpuBackend{}

type wgpuTexture struct {
	desc     TextureDescriptor
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

func (t *wgpuTexture) Label() string         { return t.desc.Label }
func (t *wgpuTexture) Width() int            { return t.desc.Width }
func (t *wgpuTexture) Height() int           { return t.desc.Height }
func (t *wgpuTexture) Format() TextureFormat { return t.desc.Format }

func (t *wgpuTexture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.view.Release()
	t.texture.Release()
}

type wgpuBuffer struct {
	label string
	data  []byte
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() int     { return len(b.data) }
func (b *wgpuBuffer) Release()      { b.data = nil }

type wgpuProgram struct {
	key           string
	module        *wgpu.ShaderModule
	vertexEntry   string
	fragmentEntry string
	blocks        []BlockBinding
	globalLayout  *wgpu.BindGroupLayout
	globalGroup   *wgpu.BindGroup
}

func (p *wgpuProgram) Key() string { return p.key }

type wgpuGeometry struct {
	label      string
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount int
}

func (g *wgpuGeometry) Label() string   { return g.label }
func (g *wgpuGeometry) IndexCount() int { return g.indexCount }

func (g *wgpuGeometry) Release() {
	if g.vertex != nil {
		g.vertex.Release()
		g.vertex = nil
	}
	if g.index != nil {
		g.index.Release()
		g.index = nil
	}
}

// NewWGPUBackend creates the WebGPU backend. A nil surface descriptor creates a headless
// backend that can render into textures but not into a framebuffer.
//
// Parameters:
//   - surfaceDescriptor: the window surface descriptor, or nil for headless rendering
//   - opts: variadic list of WGPUBackendOption functions
//
// Returns:
//   - Backend: the backend
//   - error: an error if no adapter or device could be acquired
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...WGPUBackendOption) (Backend, error) {
	runtime.LockOSThread()
	b := &wgpuBackend{
		instance:        wgpu.CreateInstance(nil),
		presentMode:     PresentModeVSync,
		arenaSize:       defaultArenaSize,
		samplers:        make(map[SamplerKind]*wgpu.Sampler),
		pipelines:       make(map[string]*wgpu.RenderPipeline),
		materialLayouts: make(map[string]*wgpu.BindGroupLayout),
	}
	for _, opt := range opts {
		opt(b)
	}

	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.createSamplers(); err != nil {
		return nil, err
	}

	b.arena, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Arena",
		Size:  uint64(b.arenaSize),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform arena: %w", err)
	}
	b.arenaData = newUniformArena(b.arenaSize)

	return b, nil
}

func (b *wgpuBackend) createSamplers() error {
	descs := map[SamplerKind]*wgpu.SamplerDescriptor{
		SamplerLinear: {
			Label:         "Linear Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeLinear,
			LodMaxClamp:   32.0,
			MaxAnisotropy: 1,
		},
		SamplerNearest: {
			Label:         "Nearest Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeNearest,
			MinFilter:     wgpu.FilterModeNearest,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32.0,
			MaxAnisotropy: 1,
		},
		SamplerComparison: {
			Label:         "Shadow Comparison Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			Compare:       wgpu.CompareFunctionLess,
			MaxAnisotropy: 1,
		},
	}
	for kind, desc := range descs {
		s, err := b.device.CreateSampler(desc)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", desc.Label, err)
		}
		b.samplers[kind] = s
	}
	return nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.surfaceSize = common.Size{Width: width, Height: height}
	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	presentMode := wgpu.PresentModeFifo
	if b.presentMode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func toWGPUFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case TextureFormatR16Float:
		return wgpu.TextureFormatR16Float
	case TextureFormatR32Float:
		return wgpu.TextureFormatR32Float
	case TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func toWGPUUsage(u TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&TextureUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func toWGPUCompare(c pipeline.CompareFunc) wgpu.CompareFunction {
	switch c {
	case pipeline.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case pipeline.CompareEqual:
		return wgpu.CompareFunctionEqual
	case pipeline.CompareGreater:
		return wgpu.CompareFunctionGreater
	case pipeline.CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case pipeline.CompareNotEqual:
		return wgpu.CompareFunctionNotEqual
	case pipeline.CompareAlways:
		return wgpu.CompareFunctionAlways
	case pipeline.CompareNever:
		return wgpu.CompareFunctionNever
	default:
		return wgpu.CompareFunctionLess
	}
}

func toWGPUCull(s pipeline.FaceSide) wgpu.CullMode {
	switch s {
	case pipeline.FaceBack:
		return wgpu.CullModeFront
	case pipeline.FaceDouble:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func toWGPUBlend(m pipeline.BlendMode) *wgpu.BlendState {
	switch m {
	case pipeline.BlendTransparent:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case pipeline.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	default:
		return nil
	}
}

// sampleTypeFor returns the texture sample type and sampler binding type a format is bound with.
func sampleTypeFor(f TextureFormat, kind SamplerKind) (wgpu.TextureSampleType, wgpu.SamplerBindingType) {
	switch {
	case f.IsDepth() && kind == SamplerComparison:
		return wgpu.TextureSampleTypeDepth, wgpu.SamplerBindingTypeComparison
	case f.IsDepth():
		return wgpu.TextureSampleTypeDepth, wgpu.SamplerBindingTypeNonFiltering
	case f == TextureFormatR32Float:
		return wgpu.TextureSampleTypeUnfilterableFloat, wgpu.SamplerBindingTypeNonFiltering
	default:
		return wgpu.TextureSampleTypeFloat, wgpu.SamplerBindingTypeFiltering
	}
}

func (b *wgpuBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toWGPUFormat(desc.Format),
		Usage:         toWGPUUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create texture view %q: %w", desc.Label, err)
	}
	return &wgpuTexture{desc: desc, texture: tex, view: view}, nil
}

func (b *wgpuBackend) WriteTexture(tex Texture, data common.TextureData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := tex.(*wgpuTexture)
	if !ok || t.released {
		return errForeignType
	}
	if data.Width != t.desc.Width || data.Height != t.desc.Height {
		return fmt.Errorf("texture %q: data is %dx%d, texture is %dx%d",
			t.desc.Label, data.Width, data.Height, t.desc.Width, t.desc.Height)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(data.Width * 4),
			RowsPerImage: uint32(data.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(data.Width),
			Height:             uint32(data.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackend) CreateUniformBuffer(label string, size int) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("buffer %q: invalid size %d", label, size)
	}
	return &wgpuBuffer{label: label, data: make([]byte, size)}, nil
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return errForeignType
	}
	if offset < 0 || offset+len(data) > len(wb.data) {
		return fmt.Errorf("buffer %q: write of %d bytes at %d exceeds size %d", wb.label, len(data), offset, len(wb.data))
	}
	copy(wb.data[offset:], data)
	return nil
}

func (b *wgpuBackend) CreateProgram(desc ProgramDescriptor) (Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile program %q: %w", desc.Key, err)
	}
	p := &wgpuProgram{
		key:           desc.Key,
		module:        module,
		vertexEntry:   common.Coalesce(desc.VertexEntryPoint, "vs_main"),
		fragmentEntry: common.Coalesce(desc.FragmentEntryPoint, "fs_main"),
	}
	if err := b.buildGlobalGroup(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *wgpuBackend) CreateGeometry(label string, vertices, indices []byte, indexCount int) (Geometry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := &wgpuGeometry{label: label, indexCount: indexCount}
	if len(vertices) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Vertex Buffer",
			Size:  uint64(len(vertices)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		b.queue.WriteBuffer(buf, 0, vertices)
		g.vertex = buf
	}
	if len(indices) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Index Buffer",
			Size:  uint64(len(indices)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			g.Release()
			return nil, err
		}
		b.queue.WriteBuffer(buf, 0, indices)
		g.index = buf
	}
	if g.vertex == nil || g.index == nil {
		g.Release()
		return nil, fmt.Errorf("geometry %q: vertex and index data are required", label)
	}
	return g, nil
}

func (b *wgpuBackend) BindUniformBlocks(p Program, blocks []BlockBinding) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wp, ok := p.(*wgpuProgram)
	if !ok {
		return errForeignType
	}
	wp.blocks = append([]BlockBinding(nil), blocks...)
	return b.buildGlobalGroup(wp)
}

// buildGlobalGroup creates the group 0 layout and bind group of a program. Each block is a
// dynamic-offset view into the frame arena.
func (b *wgpuBackend) buildGlobalGroup(p *wgpuProgram) error {
	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(p.blocks))
	groupEntries := make([]wgpu.BindGroupEntry, len(p.blocks))
	for i, block := range p.blocks {
		size := uint64(block.Buffer.Size())
		layoutEntries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		layoutEntries[i].Buffer.Type = wgpu.BufferBindingTypeUniform
		layoutEntries[i].Buffer.HasDynamicOffset = true
		layoutEntries[i].Buffer.MinBindingSize = size
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  b.arena,
			Offset:  0,
			Size:    size,
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   p.key + " Global Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return fmt.Errorf("program %q: failed to create global layout: %w", p.key, err)
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.key + " Global Bind Group",
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		return fmt.Errorf("program %q: failed to create global bind group: %w", p.key, err)
	}
	if p.globalGroup != nil {
		p.globalGroup.Release()
	}
	p.globalLayout = layout
	p.globalGroup = group
	return nil
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return errors.New("previous frame not ended")
	}
	if b.surface != nil && b.frameSurface == nil {
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			return err
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return err
		}
		b.frameSurface = surfaceTexture
		b.frameView = view
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	b.arenaData.reset()
	return nil
}

func (b *wgpuBackend) BeginRenderPass(desc RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoFrame
	}
	if b.framePass != nil {
		return fmt.Errorf("pass %q: %w", desc.Label, errPassOpen)
	}

	var colors []wgpu.RenderPassColorAttachment
	var formats []wgpu.TextureFormat
	if desc.Framebuffer {
		if b.frameView == nil {
			return fmt.Errorf("pass %q: no surface to render to", desc.Label)
		}
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:    b.frameView,
			LoadOp:  toWGPULoad(desc.FramebufferLoad),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: desc.ClearColor[0], G: desc.ClearColor[1], B: desc.ClearColor[2], A: desc.ClearColor[3],
			},
		})
		formats = append(formats, b.surfaceFormat)
	} else {
		for i, c := range desc.Colors {
			t, ok := c.Texture.(*wgpuTexture)
			if !ok || t.released {
				return fmt.Errorf("pass %q color %d: %w", desc.Label, i, errReleased)
			}
			colors = append(colors, wgpu.RenderPassColorAttachment{
				View:    t.view,
				LoadOp:  toWGPULoad(c.Load),
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3],
				},
			})
			formats = append(formats, toWGPUFormat(t.desc.Format))
		}
	}

	pass := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if desc.Depth != nil {
		t, ok := desc.Depth.Texture.(*wgpuTexture)
		if !ok || t.released {
			return fmt.Errorf("pass %q depth: %w", desc.Label, errReleased)
		}
		pass.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     toWGPULoad(desc.Depth.Load),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.Depth.ClearDepth,
		}
	}

	b.framePass = b.frameEncoder.BeginRenderPass(pass)
	b.passColors = formats
	b.passHasDepth = desc.Depth != nil
	parts := make([]string, 0, len(formats)+1)
	for _, f := range formats {
		parts = append(parts, fmt.Sprintf("%v", f))
	}
	if b.passHasDepth {
		parts = append(parts, "depth")
	}
	b.passFormats = strings.Join(parts, ",")
	return nil
}

func toWGPULoad(op LoadOp) wgpu.LoadOp {
	if op == LoadOpClear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

func materialSignature(uniformSize int, textures []TextureBinding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "u%d", uniformSize)
	for _, tb := range textures {
		fmt.Fprintf(&sb, "|%s:%d", tb.Texture.Format(), tb.Sampler)
	}
	return sb.String()
}

func (b *wgpuBackend) materialLayout(signature string, uniformSize int, textures []TextureBinding) (*wgpu.BindGroupLayout, error) {
	if layout, ok := b.materialLayouts[signature]; ok {
		return layout, nil
	}

	var entries []wgpu.BindGroupLayoutEntry
	if uniformSize > 0 {
		e := wgpu.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
		e.Buffer.HasDynamicOffset = true
		e.Buffer.MinBindingSize = uint64(uniformSize)
		entries = append(entries, e)
	}
	for i, tb := range textures {
		sampleType, samplerType := sampleTypeFor(tb.Texture.Format(), tb.Sampler)
		tex := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(1 + 2*i),
			Visibility: wgpu.ShaderStageFragment,
		}
		tex.Texture.SampleType = sampleType
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
		samp := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(2 + 2*i),
			Visibility: wgpu.ShaderStageFragment,
		}
		samp.Sampler.Type = samplerType
		entries = append(entries, tex, samp)
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Layout " + signature,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	b.materialLayouts[signature] = layout
	return layout, nil
}

func (b *wgpuBackend) samplerFor(tb TextureBinding) *wgpu.Sampler {
	if tb.Sampler == SamplerComparison {
		return b.samplers[SamplerComparison]
	}
	_, samplerType := sampleTypeFor(tb.Texture.Format(), tb.Sampler)
	if samplerType == wgpu.SamplerBindingTypeNonFiltering {
		return b.samplers[SamplerNearest]
	}
	return b.samplers[tb.Sampler]
}

func (b *wgpuBackend) renderPipeline(p *wgpuProgram, cmd DrawCommand, matSignature string, matLayout *wgpu.BindGroupLayout) (*wgpu.RenderPipeline, error) {
	fullscreen := cmd.Geometry == nil
	key := fmt.Sprintf("%s|%s|%s|fs%t|%s", p.key, cmd.State.Key(), b.passFormats, fullscreen, matSignature)
	if rp, ok := b.pipelines[key]; ok {
		return rp, nil
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            key,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.globalLayout, matLayout},
	})
	if err != nil {
		return nil, err
	}

	var buffers []wgpu.VertexBufferLayout
	if !fullscreen {
		buffers = []wgpu.VertexBufferLayout{{
			ArrayStride: vertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			},
		}}
	}

	writeMask := wgpu.ColorWriteMaskAll
	if !cmd.State.ColorWrite {
		writeMask = wgpu.ColorWriteMask(0)
	}
	targets := make([]wgpu.ColorTargetState, len(b.passColors))
	for i, f := range b.passColors {
		targets[i] = wgpu.ColorTargetState{
			Format:    f,
			WriteMask: writeMask,
			Blend:     toWGPUBlend(cmd.State.Blend),
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if b.passHasDepth {
		compare := toWGPUCompare(cmd.State.DepthCompare)
		if !cmd.State.DepthTest {
			compare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:              wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled:   cmd.State.DepthWrite,
			DepthCompare:        compare,
			DepthBias:           cmd.State.DepthBias,
			DepthBiasSlopeScale: cmd.State.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.vertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: p.fragmentEntry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  toWGPUCull(cmd.State.Side),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return nil, err
	}
	b.pipelines[key] = created
	return created, nil
}

func (b *wgpuBackend) Draw(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return fmt.Errorf("draw %q: %w", cmd.Label, errNoPass)
	}
	p, ok := cmd.Program.(*wgpuProgram)
	if !ok {
		return fmt.Errorf("draw %q: %w", cmd.Label, errForeignType)
	}
	if err := cmd.State.Validate(); err != nil {
		return fmt.Errorf("draw %q: %w", cmd.Label, err)
	}
	for _, tb := range cmd.Textures {
		if t, ok := tb.Texture.(*wgpuTexture); !ok || t.released {
			return fmt.Errorf("draw %q slot %q: %w", cmd.Label, tb.Name, errReleased)
		}
	}

	globalOffsets := make([]uint32, len(p.blocks))
	for i, block := range p.blocks {
		wb, ok := block.Buffer.(*wgpuBuffer)
		if !ok {
			return fmt.Errorf("draw %q block %q: %w", cmd.Label, block.Name, errForeignType)
		}
		offset, err := b.arenaData.alloc(wb.data)
		if err != nil {
			return fmt.Errorf("draw %q block %q: %w", cmd.Label, block.Name, err)
		}
		globalOffsets[i] = offset
	}

	signature := materialSignature(len(cmd.Uniforms), cmd.Textures)
	matLayout, err := b.materialLayout(signature, len(cmd.Uniforms), cmd.Textures)
	if err != nil {
		return fmt.Errorf("draw %q: failed to create material layout: %w", cmd.Label, err)
	}

	var matOffsets []uint32
	var matEntries []wgpu.BindGroupEntry
	if len(cmd.Uniforms) > 0 {
		offset, err := b.arenaData.alloc(cmd.Uniforms)
		if err != nil {
			return fmt.Errorf("draw %q material uniforms: %w", cmd.Label, err)
		}
		matOffsets = append(matOffsets, offset)
		matEntries = append(matEntries, wgpu.BindGroupEntry{
			Binding: 0,
			Buffer:  b.arena,
			Offset:  0,
			Size:    uint64(len(cmd.Uniforms)),
		})
	}
	for i, tb := range cmd.Textures {
		t := tb.Texture.(*wgpuTexture)
		matEntries = append(matEntries,
			wgpu.BindGroupEntry{Binding: uint32(1 + 2*i), TextureView: t.view},
			wgpu.BindGroupEntry{Binding: uint32(2 + 2*i), Sampler: b.samplerFor(tb)},
		)
	}
	matGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   cmd.Label + " Material Bind Group",
		Layout:  matLayout,
		Entries: matEntries,
	})
	if err != nil {
		return fmt.Errorf("draw %q: failed to create material bind group: %w", cmd.Label, err)
	}
	b.frameBindGroups = append(b.frameBindGroups, matGroup)

	rp, err := b.renderPipeline(p, cmd, signature, matLayout)
	if err != nil {
		return fmt.Errorf("draw %q: failed to create render pipeline: %w", cmd.Label, err)
	}

	instances := uint32(max(cmd.Instances, 1))
	b.framePass.SetPipeline(rp)
	b.framePass.SetBindGroup(0, p.globalGroup, globalOffsets)
	b.framePass.SetBindGroup(1, matGroup, matOffsets)
	if cmd.Geometry == nil {
		b.framePass.Draw(3, instances, 0, 0)
		return nil
	}
	g, ok := cmd.Geometry.(*wgpuGeometry)
	if !ok || g.vertex == nil {
		return fmt.Errorf("draw %q: %w", cmd.Label, errReleased)
	}
	b.framePass.SetVertexBuffer(0, g.vertex, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(g.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(g.indexCount), instances, 0, 0, 0)
	return nil
}

func (b *wgpuBackend) EndRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errNoPass
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil
	return nil
}

func (b *wgpuBackend) CopyTexture(src, dst Texture) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoFrame
	}
	if b.framePass != nil {
		return fmt.Errorf("copy inside render pass: %w", errPassOpen)
	}
	s, ok := src.(*wgpuTexture)
	if !ok || s.released {
		return fmt.Errorf("copy source: %w", errReleased)
	}
	d, ok := dst.(*wgpuTexture)
	if !ok || d.released {
		return fmt.Errorf("copy destination: %w", errReleased)
	}
	if s.desc.Width != d.desc.Width || s.desc.Height != d.desc.Height || s.desc.Format != d.desc.Format {
		return fmt.Errorf("copy %q -> %q: incompatible textures", s.desc.Label, d.desc.Label)
	}

	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.texture, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: d.texture, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: uint32(s.desc.Width), Height: uint32(s.desc.Height), DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoFrame
	}
	if b.framePass != nil {
		return fmt.Errorf("end frame: %w", errPassOpen)
	}
	defer b.releaseFrameBindGroups()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		return fmt.Errorf("failed to finish frame: %w", err)
	}

	if used := b.arenaData.used(); len(used) > 0 {
		b.queue.WriteBuffer(b.arena, 0, used)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuBackend) releaseFrameBindGroups() {
	for _, g := range b.frameBindGroups {
		g.Release()
	}
	b.frameBindGroups = b.frameBindGroups[:0]
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}
