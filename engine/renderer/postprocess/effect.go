package postprocess

import (
	"fmt"

	"github.com/jinzhu/copier"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// fullscreenState is the pipeline state of every fullscreen draw.
var fullscreenState = pipeline.NewState(
	pipeline.WithDepthTest(false),
	pipeline.WithDepthWrite(false),
	pipeline.WithSide(pipeline.FaceDouble),
)

var neutralBlack = [4]float64{0, 0, 0, 1}

// Effect is a pass that draws one fullscreen program into its own target. P is the
// parameter struct serialized as the program's params uniform.
type Effect[P Params[P]] struct {
	name    string
	shader  shader.Shader
	program gpu.Program
	target  *target.RenderTarget

	params   P
	override any

	requirements Requirement
	neutral      [4]float64
	history      bool
}

var _ Pass = &Effect[FXAAParams]{}

// NewEffect creates a fullscreen effect.
//
// Parameters:
//   - backend: the GPU backend that compiles the program and allocates the target
//   - name: the pass name
//   - s: the fullscreen shader
//   - params: the initial parameters
//   - opts: variadic list of EffectBuilderOption functions
//
// Returns:
//   - *Effect[P]: the effect
//   - error: a compile or allocation error
func NewEffect[P Params[P]](backend gpu.Backend, name string, s shader.Shader, params P, opts ...EffectBuilderOption) (*Effect[P], error) {
	cfg := effectConfig{
		format:  gpu.TextureFormatRGBA16Float,
		scale:   1,
		neutral: neutralBlack,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	program, err := s.Compile(backend)
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", name, err)
	}

	targetOpts := []target.RenderTargetBuilderOption{target.WithFormats(cfg.format), target.WithScale(cfg.scale)}
	if cfg.history {
		targetOpts = append(targetOpts, target.WithDoubleBuffer())
	}
	if cfg.size.Valid() {
		targetOpts = append(targetOpts, target.WithSize(cfg.size.Width, cfg.size.Height))
	}
	rt, err := target.NewRenderTarget(backend, name, targetOpts...)
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", name, err)
	}

	return &Effect[P]{
		name:         name,
		shader:       s,
		program:      program,
		target:       rt,
		params:       params,
		requirements: cfg.requirements,
		neutral:      cfg.neutral,
		history:      cfg.history,
	}, nil
}

func (e *Effect[P]) Name() string {
	return e.name
}

func (e *Effect[P]) Enabled() bool {
	return e.Effective().IsEnabled()
}

func (e *Effect[P]) SetEnabled(enabled bool) {
	e.params = e.params.WithEnabled(enabled)
}

// Params returns the base parameters.
func (e *Effect[P]) Params() P {
	return e.params
}

// SetParams replaces the base parameters.
//
// Parameters:
//   - params: the new parameters
func (e *Effect[P]) SetParams(params P) {
	e.params = params
}

// ApplyOverride layers an override on top of the base parameters for subsequent renders. Only
// the non-nil fields of override take effect, and base parameter changes made afterwards stay
// visible through the fields it leaves nil. Calling it again replaces the previous override.
//
// Parameters:
//   - override: a pointer-field override struct whose field names match P
//
// Returns:
//   - error: an error if the override cannot be copied onto P
func (e *Effect[P]) ApplyOverride(override any) error {
	if override == nil {
		e.override = nil
		return nil
	}
	if _, err := overlay(e.params, override); err != nil {
		return fmt.Errorf("pass %q override: %w", e.name, err)
	}
	e.override = override
	return nil
}

// ClearOverride drops the active override.
func (e *Effect[P]) ClearOverride() {
	e.override = nil
}

// Effective returns the parameters the next render uses.
func (e *Effect[P]) Effective() P {
	if e.override == nil {
		return e.params
	}
	eff, err := overlay(e.params, e.override)
	if err != nil {
		logger.L().Error("post-process override ignored", "pass", e.name, "err", err)
		return e.params
	}
	return eff
}

func overlay[P any](base P, override any) (P, error) {
	eff := base
	if err := copier.CopyWithOption(&eff, override, copier.Option{IgnoreEmpty: true}); err != nil {
		return base, err
	}
	return eff, nil
}

func (e *Effect[P]) SetSize(width, height int) error {
	return e.target.SetSize(width, height)
}

func (e *Effect[P]) RenderTarget() *target.RenderTarget {
	return e.target
}

func (e *Effect[P]) Requirements() Requirement {
	return e.requirements
}

func (e *Effect[P]) Shaders() []shader.Shader {
	return []shader.Shader{e.shader}
}

func (e *Effect[P]) Release() {
	e.target.Release()
}

func (e *Effect[P]) Render(ctx *Context) error {
	if ctx.Input == nil {
		return fmt.Errorf("pass %q: %w", e.name, ErrNoInput)
	}
	return e.draw(ctx, e.Effective().Uniforms())
}

// draw renders the program with the given uniforms into the destination chosen by ctx.
func (e *Effect[P]) draw(ctx *Context, uniforms []byte) error {
	textures := e.bindings(ctx)
	desc := e.destination(ctx, gpu.LoadOpClear, e.neutral)
	if err := ctx.Backend.BeginRenderPass(desc); err != nil {
		return fmt.Errorf("pass %q: %w", e.name, err)
	}
	drawErr := ctx.Backend.Draw(gpu.DrawCommand{
		Label:     e.name,
		Program:   e.program,
		State:     fullscreenState,
		Uniforms:  uniforms,
		Textures:  textures,
		Instances: 1,
	})
	if err := ctx.Backend.EndRenderPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("pass %q: %w", e.name, drawErr)
	}
	if e.history && !ctx.ToFramebuffer && ctx.Output == nil {
		e.target.Swap()
	}
	return nil
}

func (e *Effect[P]) RenderNeutral(ctx *Context) error {
	desc := e.destination(ctx, gpu.LoadOpClear, e.neutral)
	if err := ctx.Backend.BeginRenderPass(desc); err != nil {
		return fmt.Errorf("pass %q neutral: %w", e.name, err)
	}
	if err := ctx.Backend.EndRenderPass(); err != nil {
		return fmt.Errorf("pass %q neutral: %w", e.name, err)
	}
	if e.history && !ctx.ToFramebuffer && ctx.Output == nil {
		e.target.Swap()
	}
	logger.L().Debug("post-process pass rendered neutral", "pass", e.name)
	return nil
}

// destination builds the pass descriptor for the framebuffer, an explicit output, or the
// pass's own write set. The color of a fullscreen pass is always fully overwritten; no depth
// is attached.
func (e *Effect[P]) destination(ctx *Context, load gpu.LoadOp, clear [4]float64) gpu.RenderPassDescriptor {
	if ctx.ToFramebuffer {
		return gpu.RenderPassDescriptor{Label: e.name, Framebuffer: true, FramebufferLoad: load, ClearColor: clear}
	}
	out := e.target
	if ctx.Output != nil {
		out = ctx.Output
	}
	desc := gpu.RenderPassDescriptor{Label: e.name}
	for _, tex := range out.Write() {
		desc.Colors = append(desc.Colors, gpu.ColorAttachment{Texture: tex, Load: load, ClearColor: clear})
	}
	return desc
}

// bindings resolves the shader's texture slots in binding order.
func (e *Effect[P]) bindings(ctx *Context) []gpu.TextureBinding {
	return resolveSlots(e.shader.Textures(), ctx, e.historyTexture())
}

func (e *Effect[P]) historyTexture() gpu.Texture {
	if !e.history {
		return nil
	}
	return e.target.Texture()
}

func resolveSlots(slots []shader.TextureSlot, ctx *Context, history gpu.Texture) []gpu.TextureBinding {
	out := make([]gpu.TextureBinding, 0, len(slots))
	for _, slot := range slots {
		var tex gpu.Texture
		switch slot.Name {
		case SlotInput:
			if ctx.Input != nil {
				tex = ctx.Input.Texture()
			}
		case SlotHistory:
			tex = history
		default:
			tex = ctx.Textures[slot.Name]
		}
		sampler := gpu.SamplerLinear
		if slot.Depth {
			sampler = gpu.SamplerNearest
		}
		if tex == nil {
			tex = ctx.Fallback
			if slot.Depth {
				tex = ctx.FallbackDepth
			}
		}
		out = append(out, gpu.TextureBinding{Name: slot.Name, Texture: tex, Sampler: sampler})
	}
	return out
}
