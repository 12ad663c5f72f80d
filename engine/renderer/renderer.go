package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// Labels of the renderer's own targets.
const (
	labelDepthPrePass  = "depth prepass"
	labelAfterDeferred = "after deferred"
)

// defaultPrepThreshold is the draw count from which per-frame preparation uses the worker pool.
const defaultPrepThreshold = 64

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend gpu.Backend
	size    common.Size

	// Builder configuration.
	maxSpots          int
	maxPoints         int
	programs          map[string]string
	settings          postprocess.Settings
	prepWorkers       int
	prepThreshold     int
	retainStaleLights bool
	profiler          *profiler.Profiler

	registry      *uniform.Registry
	library       *shader.Library
	fallback      gpu.Texture
	fallbackDepth gpu.Texture
	depthMaterial material.Material

	prePass       *target.RenderTarget
	gbuffer       *target.GBuffer
	afterDeferred *target.RenderTarget
	passes        *postprocess.Set
	graph         *PassGraph
	depth         *DepthState
	prep          *prepPool

	boundPrograms  map[string]bool
	shadowReported map[light.Light]bool
	slotReported   map[light.Light]bool

	lastTime float64
	frame    uint64
}

// SharedTextures are scene-wide textures the passes sample. Nil entries are replaced by the
// renderer's fallback texture.
type SharedTextures struct {
	Noise  gpu.Texture
	Skybox gpu.Texture
}

// RenderOptions are the per-frame inputs of Render.
type RenderOptions struct {
	// Time is the frame time in seconds.
	Time float64

	// OnBeforePostProcess runs after the transparent pass and before the scene post-process
	// chain. An error aborts the frame.
	OnBeforePostProcess func(ctx *PipelineContext) error
}

// Renderer is the deferred pipeline. One Render call draws one frame of a scene through a
// camera: depth pre-pass, shadow maps, g-buffer, the screen-space pass graph, the transparent
// pass and the post-process chains.
//
// Render and SetSize may be called from different goroutines; they are serialized.
type Renderer interface {
	// Render draws one frame.
	//
	// Configuration errors found in the scene (unknown blend modes, missing programs, missing
	// shadow maps or cameras, a scene chain with no enabled pass) do not stop the frame where a
	// safe fallback exists. They are logged and returned joined.
	//
	// Parameters:
	//   - s: the scene
	//   - cam: the camera to render through
	//   - shared: the shared textures
	//   - opts: the frame time and hooks
	//
	// Returns:
	//   - error: the frame's configuration errors joined, or a backend error
	Render(s scene.Scene, cam camera.Camera, shared SharedTextures, opts RenderOptions) error

	// SetSize resizes the surface and every owned target and pass. The last call before a
	// Render wins.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//
	// Returns:
	//   - error: ErrInvalidSize for non-positive dimensions, or a reallocation error
	SetSize(width, height int) error

	// Size returns the current viewport size.
	Size() common.Size

	// Context returns the pipeline resources.
	Context() *PipelineContext

	// Program compiles a library shader, binding its uniform blocks so materials can use it.
	//
	// Parameters:
	//   - key: the shader key, built-in or registered through WithPrograms
	//
	// Returns:
	//   - gpu.Program: the program
	//   - []string: the uniform blocks the program declares, for material.WithProgram
	//   - error: a library or compile error
	Program(key string) (gpu.Program, []string, error)

	// ApplyConfig applies the runtime-adjustable parts of cfg: post-process parameters and the
	// stale light policy. Light limits and worker counts only take effect at construction.
	//
	// Parameters:
	//   - cfg: the configuration
	ApplyConfig(cfg config.Config)

	// Release frees every owned GPU resource and stops the draw preparation workers.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer builds the pipeline in dependency order: uniform registry, fallback textures,
// shader library, depth pre-pass target, g-buffer, after-deferred target, pass set, pass graph
// and depth state.
//
// Parameters:
//   - backend: the GPU backend
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: a construction error; partially created resources are released
func NewRenderer(backend gpu.Backend, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:             &sync.Mutex{},
		backend:        backend,
		size:           common.Size{Width: 1280, Height: 720},
		maxSpots:       uniform.DefaultMaxSpotLights,
		maxPoints:      uniform.DefaultMaxPointLights,
		programs:       make(map[string]string),
		settings:       postprocess.DefaultSettings(),
		prepWorkers:    max(runtime.NumCPU()-1, 1),
		prepThreshold:  defaultPrepThreshold,
		boundPrograms:  make(map[string]bool),
		shadowReported: make(map[light.Light]bool),
		slotReported:   make(map[light.Light]bool),
	}
	for _, opt := range options {
		opt(r)
	}
	if !r.size.Valid() {
		return nil, fmt.Errorf("renderer size %dx%d: %w", r.size.Width, r.size.Height, ErrInvalidSize)
	}
	if err := r.build(); err != nil {
		r.Release()
		return nil, err
	}
	logger.L().Info("renderer ready", "width", r.size.Width, "height", r.size.Height,
		"maxSpotLights", r.maxSpots, "maxPointLights", r.maxPoints)
	return r, nil
}

func (r *renderer) build() error {
	w, h := r.size.Width, r.size.Height
	catalog := uniform.DefaultCatalog(r.maxSpots, r.maxPoints)

	var err error
	if r.registry, err = uniform.NewRegistry(r.backend, catalog); err != nil {
		return fmt.Errorf("uniform registry: %w", err)
	}

	if r.fallback, err = r.backend.CreateTexture(gpu.TextureDescriptor{
		Label: "fallback", Width: 1, Height: 1,
		Format: gpu.TextureFormatRGBA8Unorm,
		Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
	}); err != nil {
		return fmt.Errorf("fallback texture: %w", err)
	}
	if err = r.backend.WriteTexture(r.fallback, common.SolidTexture(1, 1, [4]uint8{255, 255, 255, 255})); err != nil {
		return fmt.Errorf("fallback texture: %w", err)
	}
	if r.fallbackDepth, err = r.backend.CreateTexture(gpu.TextureDescriptor{
		Label: "fallback depth", Width: 1, Height: 1,
		Format: gpu.TextureFormatDepth32Float,
		Usage:  gpu.TextureUsageSampled | gpu.TextureUsageRenderAttachment,
	}); err != nil {
		return fmt.Errorf("fallback depth texture: %w", err)
	}

	r.library = shader.NewLibrary(shader.NewPreProcessor(catalog))
	for key, src := range r.programs {
		r.library.Register(key, src)
	}
	depthProgram, blocks, err := r.program(shader.KeyDepth)
	if err != nil {
		return fmt.Errorf("depth program: %w", err)
	}
	r.depthMaterial = material.NewMaterial(
		material.WithName("depth"),
		material.WithProgram(depthProgram, blocks...),
		material.WithState(pipeline.WithColorWrite(false)),
	)
	if err = r.depthMaterial.EnsureBound(r.bindProgram); err != nil {
		return err
	}

	if r.prePass, err = target.NewRenderTarget(r.backend, labelDepthPrePass, target.WithFormats(), target.WithDepth(), target.WithSize(w, h)); err != nil {
		return fmt.Errorf("depth prepass target: %w", err)
	}
	if r.gbuffer, err = target.NewGBuffer(r.backend, w, h); err != nil {
		return fmt.Errorf("gbuffer: %w", err)
	}
	if r.afterDeferred, err = target.NewRenderTarget(r.backend, labelAfterDeferred,
		target.WithFormats(gpu.TextureFormatRGBA16Float), target.WithSize(w, h)); err != nil {
		return fmt.Errorf("after deferred target: %w", err)
	}

	if r.passes, err = postprocess.NewSet(r.backend, r.library, r.settings, w, h); err != nil {
		return fmt.Errorf("post-process passes: %w", err)
	}
	for _, p := range r.passes.All() {
		if err = r.bindPass(p); err != nil {
			return err
		}
	}

	if r.graph, err = NewPassGraph(screenSpaceNodes(r.passes), graphTargetRefs, graphTextureRefs); err != nil {
		return err
	}
	r.depth = NewDepthState(r.backend)
	r.prep = newPrepPool(r.prepWorkers, r.prepThreshold)
	return nil
}

// Refs the pipeline provides to the pass graph each frame.
var (
	graphTargetRefs  = []Ref{RefGBuffer}
	graphTextureRefs = append([]Ref{
		RefGBufferNormal, RefGBufferMetallicRoughness, RefGBufferEmissive,
		RefDepth, RefShadowMap, RefNoise, RefSkybox,
	}, spotShadowRefs()...)
)

func spotShadowRefs() []Ref {
	refs := make([]Ref, postprocess.MaxSpotShadows)
	for i := range refs {
		refs[i] = RefSpotShadow(i)
	}
	return refs
}

// deferredSlots routes the deferred shading inputs.
func deferredSlots() map[string]Ref {
	slots := map[string]Ref{
		target.GBufferSlots[target.GBufferNormal]:            RefGBufferNormal,
		target.GBufferSlots[target.GBufferMetallicRoughness]: RefGBufferMetallicRoughness,
		target.GBufferSlots[target.GBufferEmissive]:          RefGBufferEmissive,
		postprocess.SlotDepth:                                RefDepth,
		postprocess.SlotAO:                                   "ao",
		postprocess.SlotSSS:                                  "sss",
		postprocess.SlotShadowMap:                            RefShadowMap,
		postprocess.SlotSkybox:                               RefSkybox,
	}
	for i := range postprocess.MaxSpotShadows {
		slots[postprocess.SpotShadowSlot(i)] = RefSpotShadow(i)
	}
	return slots
}

// screenSpaceNodes wires the screen-space passes: contact shadows and ambient occlusion read
// the g-buffer, deferred shading combines them with the lights, reflections refine the lit
// image, and fog composites the light shafts and volumetric light over it.
func screenSpaceNodes(set *postprocess.Set) []PassNode {
	gNormal := target.GBufferSlots[target.GBufferNormal]
	gMR := target.GBufferSlots[target.GBufferMetallicRoughness]
	return []PassNode{
		{
			Pass:   set.ScreenSpaceShadow,
			Input:  RefGBuffer,
			Slots:  map[string]Ref{postprocess.SlotDepth: RefDepth},
			Output: "sss",
		},
		{
			Pass:   set.AmbientOcclusion,
			Input:  RefGBuffer,
			Slots:  map[string]Ref{gNormal: RefGBufferNormal, postprocess.SlotDepth: RefDepth},
			Output: "ao",
		},
		{
			Pass:   set.DeferredShading,
			Input:  RefGBuffer,
			Slots:  deferredSlots(),
			Output: "deferred",
		},
		{
			Pass:  set.ScreenSpaceReflection,
			Input: "deferred",
			Slots: map[string]Ref{
				gNormal:               RefGBufferNormal,
				gMR:                   RefGBufferMetallicRoughness,
				postprocess.SlotDepth: RefDepth,
			},
			Output: "ssr",
			Bypass: BypassPassThrough,
		},
		{
			Pass:   set.LightShaft,
			Input:  "ssr",
			Slots:  map[string]Ref{postprocess.SlotDepth: RefDepth},
			Output: "lightShaft",
		},
		{
			Pass:   set.VolumetricLight,
			Input:  "ssr",
			Slots:  map[string]Ref{postprocess.SlotDepth: RefDepth},
			Output: "volumetric",
		},
		{
			Pass:  set.HeightFog,
			Input: "ssr",
			Slots: map[string]Ref{
				postprocess.SlotLightShaft: "lightShaft",
				postprocess.SlotVolumetric: "volumetric",
				postprocess.SlotSSS:        "sss",
				postprocess.SlotNoise:      RefNoise,
				postprocess.SlotDepth:      RefDepth,
			},
			Output: "fog",
			Bypass: BypassPassThrough,
		},
	}
}

// program compiles a library shader and binds its blocks once per program key.
func (r *renderer) program(key string) (gpu.Program, []string, error) {
	s, err := r.library.Get(key)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Compile(r.backend)
	if err != nil {
		return nil, nil, err
	}
	if err := r.bindProgram(p, s.Blocks()); err != nil {
		return nil, nil, err
	}
	return p, s.Blocks(), nil
}

func (r *renderer) bindProgram(p gpu.Program, blocks []string) error {
	if r.boundPrograms[p.Key()] {
		return nil
	}
	if err := r.bindBlocks(p, blocks); err != nil {
		return fmt.Errorf("program %q: %w", p.Key(), err)
	}
	r.boundPrograms[p.Key()] = true
	return nil
}

// bindPass binds the uniform blocks of every shader a pass draws with.
func (r *renderer) bindPass(p postprocess.Pass) error {
	for _, s := range p.Shaders() {
		prog := s.Program()
		if prog == nil {
			var err error
			if prog, err = s.Compile(r.backend); err != nil {
				return fmt.Errorf("pass %q: %w", p.Name(), err)
			}
		}
		if err := r.bindProgram(prog, s.Blocks()); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

func (r *renderer) Program(key string) (gpu.Program, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.program(key)
}

func (r *renderer) Size() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}

func (r *renderer) Context() *PipelineContext {
	return &PipelineContext{
		Backend:       r.backend,
		Library:       r.library,
		Registry:      r.registry,
		Fallback:      r.fallback,
		FallbackDepth: r.fallbackDepth,
		DepthPrePass:  r.prePass,
		GBuffer:       r.gbuffer,
		AfterDeferred: r.afterDeferred,
		Passes:        r.passes,
		Graph:         r.graph,
		Depth:         r.depth,
	}
}

func (r *renderer) SetSize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := common.Size{Width: width, Height: height}
	if !size.Valid() {
		return fmt.Errorf("renderer size %dx%d: %w", width, height, ErrInvalidSize)
	}

	r.backend.ConfigureSurface(width, height)
	if err := r.prePass.SetSize(width, height); err != nil {
		return fmt.Errorf("depth prepass: %w", err)
	}
	if err := r.gbuffer.SetSize(width, height); err != nil {
		return fmt.Errorf("gbuffer: %w", err)
	}
	if err := r.afterDeferred.SetSize(width, height); err != nil {
		return fmt.Errorf("after deferred: %w", err)
	}
	if err := r.passes.SetSize(width, height); err != nil {
		return err
	}
	r.depth.Release()
	r.size = size
	logger.L().Debug("renderer resized", "width", width, "height", height)
	return nil
}

func (r *renderer) ApplyConfig(cfg config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = cfg.PostProcess
	r.passes.Apply(cfg.PostProcess)
	r.retainStaleLights = cfg.Renderer.RetainStaleLights
	if cfg.Renderer.MaxSpotLights != r.maxSpots || cfg.Renderer.MaxPointLights != r.maxPoints {
		logger.L().Warn("light limits change on renderer restart",
			"maxSpotLights", cfg.Renderer.MaxSpotLights, "maxPointLights", cfg.Renderer.MaxPointLights)
	}
}

func (r *renderer) Release() {
	if r.prep != nil {
		r.prep.release()
	}
	if r.passes != nil {
		r.passes.Release()
	}
	for _, t := range []*target.RenderTarget{r.prePass, r.afterDeferred} {
		if t != nil {
			t.Release()
		}
	}
	if r.gbuffer != nil {
		r.gbuffer.Release()
	}
	if r.depth != nil {
		r.depth.Release()
	}
	for _, t := range []gpu.Texture{r.fallback, r.fallbackDepth} {
		if t != nil {
			t.Release()
		}
	}
}

func (r *renderer) Render(s scene.Scene, cam camera.Camera, shared SharedTextures, opts RenderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.profiler.Begin("frame")()

	log := logger.L()
	var cfgErrs []error
	report := func(err error) {
		if err != nil {
			log.Error("render configuration error", "err", err)
			cfgErrs = append(cfgErrs, err)
		}
	}

	s.UpdateTransforms()
	viewport := r.size
	if rt := cam.RenderTarget(); rt != nil {
		viewport = rt.Size()
	}
	if viewport.Valid() {
		cam.SetAspect(float32(viewport.Width) / float32(viewport.Height))
	}
	cam.Update()

	lists := classify(s, cam.Position(), r.maxSpots, r.maxPoints, r.prep)
	cfgErrs = append(cfgErrs, lists.errs...)

	var overrides *postprocess.Overrides
	if lists.volume != nil {
		overrides = lists.volume.Overrides
	}
	report(r.passes.ApplyOverrides(overrides))

	shadows, shadowErrs := r.resolveShadows(lists.lights, cam.Target())
	cfgErrs = append(cfgErrs, shadowErrs...)
	casters := shadowCasters(lists)
	if len(casters) == 0 {
		shadows = noShadows(len(lists.lights.Spots))
	}

	if err := errors.Join(
		r.updateLightUniforms(lists.lights, shadows),
		r.updateTimelineUniforms(opts.Time),
		r.updateCommonUniforms(r.size, lists.lights, shadows),
		r.updateCameraUniforms(cam),
	); err != nil {
		return err
	}

	shared.Noise = common.Coalesce(shared.Noise, r.fallback)
	shared.Skybox = common.Coalesce(shared.Skybox, r.fallback)

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	presented, err := r.renderFrame(cam, lists, casters, shadows, shared, opts, report)
	if endErr := r.backend.EndFrame(); err == nil && endErr != nil {
		err = fmt.Errorf("end frame: %w", endErr)
	}
	if err != nil {
		return err
	}
	if presented {
		r.backend.Present()
	}
	if r.profiler != nil {
		r.profiler.Tick()
	}
	return errors.Join(cfgErrs...)
}

// renderFrame records every pass of the frame. It reports whether the default framebuffer was
// drawn to.
func (r *renderer) renderFrame(
	cam camera.Camera,
	lists *renderLists,
	casters []RenderMeshInfo,
	shadows frameShadows,
	shared SharedTextures,
	opts RenderOptions,
	report func(error),
) (bool, error) {
	if err := r.renderDepthPrePass(lists); err != nil {
		return false, err
	}
	if err := r.renderGBuffer(lists, shared.Skybox); err != nil {
		return false, err
	}
	if err := r.renderShadows(casters, shadows, cam); err != nil {
		return false, err
	}

	snapshot, err := r.depth.SnapshotDepth(r.prePass)
	if err != nil {
		return false, err
	}
	output, err := r.renderScreenSpace(lists, shadows, shared, snapshot)
	if err != nil {
		return false, err
	}
	if err := r.backend.CopyTexture(output.Texture(), r.afterDeferred.Color(0)); err != nil {
		return false, fmt.Errorf("after deferred: %w", err)
	}

	if err := r.renderTransparent(lists, snapshot); err != nil {
		return false, err
	}
	if opts.OnBeforePostProcess != nil {
		if err := opts.OnBeforePostProcess(r.Context()); err != nil {
			return false, fmt.Errorf("before post-process: %w", err)
		}
	}

	return r.renderPostProcess(cam, report)
}

// renderScreenSpace runs the pass graph over the g-buffer and returns the target holding the
// lit image.
func (r *renderer) renderScreenSpace(lists *renderLists, shadows frameShadows, shared SharedTextures, snapshot gpu.Texture) (*target.RenderTarget, error) {
	frame := newGraphFrame()
	frame.setTarget(RefGBuffer, r.gbuffer.RenderTarget)
	frame.textures[RefGBufferNormal] = r.gbuffer.Color(target.GBufferNormal)
	frame.textures[RefGBufferMetallicRoughness] = r.gbuffer.Color(target.GBufferMetallicRoughness)
	frame.textures[RefGBufferEmissive] = r.gbuffer.Color(target.GBufferEmissive)
	frame.textures[RefDepth] = snapshot
	frame.textures[RefNoise] = shared.Noise
	frame.textures[RefSkybox] = shared.Skybox
	if s := shadows.directional; s != nil {
		frame.textures[RefShadowMap] = s.Map.Depth()
	}
	for i, s := range shadows.spots {
		if s != nil {
			frame.textures[RefSpotShadow(shadows.slots[i])] = s.Map.Depth()
		}
	}

	var available postprocess.Requirement
	if lists.lights.Directional != nil {
		available |= postprocess.RequiresDirectionalLight
	}
	if len(lists.lights.Spots) > 0 {
		available |= postprocess.RequiresSpotLights
	}

	base := postprocess.Context{Backend: r.backend, Fallback: r.fallback, FallbackDepth: r.fallbackDepth}
	runs, err := r.graph.run(frame, base, available, r.registry.Flush, r.profiler.Begin)
	if err != nil {
		return nil, err
	}
	logger.L().Debug("screen-space passes", "runs", len(runs))
	return frame.targets[r.graph.Output()], nil
}

// renderPostProcess runs the scene chain and the camera's own chain. Without a camera chain the
// scene chain ends in the camera's target, or the framebuffer when the camera has none.
func (r *renderer) renderPostProcess(cam camera.Camera, report func(error)) (bool, error) {
	defer r.profiler.Begin("post-process")()

	sceneChain := r.passes.SceneChain()
	if !sceneChain.HasEnabled() {
		report(ErrNoEnabledPass)
		return false, nil
	}

	camRT := cam.RenderTarget()
	camChain := cam.PostProcess()
	hasCamChain := camChain != nil && camChain.HasEnabled()
	final := postprocess.Destination{Framebuffer: camRT == nil, Target: camRT}

	snapshot, err := r.depth.SnapshotDepth(r.prePass)
	if err != nil {
		return false, err
	}
	if err := r.registry.Flush(); err != nil {
		return false, err
	}
	ctx := &postprocess.Context{
		Backend:       r.backend,
		Textures:      map[string]gpu.Texture{postprocess.SlotDepth: snapshot},
		Fallback:      r.fallback,
		FallbackDepth: r.fallbackDepth,
	}

	dst := final
	if hasCamChain {
		dst = postprocess.Destination{}
	}
	out, err := sceneChain.Render(ctx, r.afterDeferred, dst)
	if err != nil {
		return false, fmt.Errorf("scene post-process: %w", err)
	}
	if !hasCamChain {
		return final.Framebuffer, nil
	}

	for _, p := range camChain.Passes() {
		if err := r.bindPass(p); err != nil {
			return false, err
		}
	}
	if _, err := camChain.Render(ctx, out, final); err != nil {
		return false, fmt.Errorf("camera post-process: %w", err)
	}
	return final.Framebuffer, nil
}
