package postprocess

import (
	"fmt"
	"maps"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// Texture slots the pipeline passes read each other's results under.
const (
	SlotDepth      = "depth"
	SlotAO         = "ao"
	SlotSSS        = "sss"
	SlotShadowMap  = "shadowMap"
	SlotSkybox     = "skybox"
	SlotLightShaft = "lightShaft"
	SlotVolumetric = "volumetric"
	SlotNoise      = "noise"
	SlotBloom      = "bloom"
)

// MaxSpotShadows is the number of spot shadow map slots deferred shading samples.
const MaxSpotShadows = 4

// SpotShadowSlot returns the texture slot of spot shadow map i.
func SpotShadowSlot(i int) string {
	return fmt.Sprintf("spotShadowMap%d", i)
}

type (
	ScreenSpaceShadow     = Effect[ScreenSpaceShadowParams]
	AmbientOcclusion      = Effect[AmbientOcclusionParams]
	DeferredShading       = Effect[DeferredShadingParams]
	ScreenSpaceReflection = Effect[ScreenSpaceReflectionParams]
	LightShaft            = Effect[LightShaftParams]
	VolumetricLight       = Effect[VolumetricLightParams]
	HeightFog             = Effect[HeightFogParams]
	FXAA                  = Effect[FXAAParams]
	DepthOfField          = Effect[DepthOfFieldParams]
	Streak                = Effect[StreakParams]
	ToneMapping           = Effect[ToneMappingParams]
	Vignette              = Effect[VignetteParams]
	ChromaticAberration   = Effect[ChromaticAberrationParams]
	Glitch                = Effect[GlitchParams]
)

var neutralWhite = [4]float64{1, 1, 1, 1}

func newLibraryEffect[P Params[P]](backend gpu.Backend, lib *shader.Library, key string, params P, opts ...EffectBuilderOption) (*Effect[P], error) {
	s, err := lib.Get(key)
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", key, err)
	}
	return NewEffect(backend, key, s, params, opts...)
}

// NewScreenSpaceShadow creates the contact shadow pass. Its neutral result is white, meaning
// unshadowed.
func NewScreenSpaceShadow(backend gpu.Backend, lib *shader.Library, params ScreenSpaceShadowParams, opts ...EffectBuilderOption) (*ScreenSpaceShadow, error) {
	opts = append([]EffectBuilderOption{
		WithFormat(gpu.TextureFormatRGBA8Unorm),
		WithRequirements(RequiresDirectionalLight),
		WithNeutralColor(neutralWhite),
	}, opts...)
	return newLibraryEffect(backend, lib, shader.KeyScreenSpaceShadow, params, opts...)
}

// NewAmbientOcclusion creates the ambient occlusion pass. It accumulates over frames through
// a double-buffered target; its neutral result is white, meaning unoccluded.
func NewAmbientOcclusion(backend gpu.Backend, lib *shader.Library, params AmbientOcclusionParams, opts ...EffectBuilderOption) (*AmbientOcclusion, error) {
	opts = append([]EffectBuilderOption{
		WithFormat(gpu.TextureFormatRGBA8Unorm),
		WithNeutralColor(neutralWhite),
		WithHistory(),
	}, opts...)
	return newLibraryEffect(backend, lib, shader.KeyAmbientOcclusion, params, opts...)
}

// NewDeferredShading creates the lighting composite.
func NewDeferredShading(backend gpu.Backend, lib *shader.Library, params DeferredShadingParams, opts ...EffectBuilderOption) (*DeferredShading, error) {
	return newLibraryEffect(backend, lib, shader.KeyDeferredShading, params, opts...)
}

// NewScreenSpaceReflection creates the reflection composite.
func NewScreenSpaceReflection(backend gpu.Backend, lib *shader.Library, params ScreenSpaceReflectionParams, opts ...EffectBuilderOption) (*ScreenSpaceReflection, error) {
	return newLibraryEffect(backend, lib, shader.KeyScreenSpaceReflection, params, opts...)
}

// NewLightShaft creates the directional light shaft pass.
func NewLightShaft(backend gpu.Backend, lib *shader.Library, params LightShaftParams, opts ...EffectBuilderOption) (*LightShaft, error) {
	opts = append([]EffectBuilderOption{WithRequirements(RequiresDirectionalLight)}, opts...)
	return newLibraryEffect(backend, lib, shader.KeyLightShaft, params, opts...)
}

// NewVolumetricLight creates the spot light scattering pass.
func NewVolumetricLight(backend gpu.Backend, lib *shader.Library, params VolumetricLightParams, opts ...EffectBuilderOption) (*VolumetricLight, error) {
	opts = append([]EffectBuilderOption{WithRequirements(RequiresSpotLights)}, opts...)
	return newLibraryEffect(backend, lib, shader.KeyVolumetricLight, params, opts...)
}

// NewHeightFog creates the fog composite.
func NewHeightFog(backend gpu.Backend, lib *shader.Library, params HeightFogParams, opts ...EffectBuilderOption) (*HeightFog, error) {
	return newLibraryEffect(backend, lib, shader.KeyHeightFog, params, opts...)
}

func NewFXAA(backend gpu.Backend, lib *shader.Library, params FXAAParams, opts ...EffectBuilderOption) (*FXAA, error) {
	return newLibraryEffect(backend, lib, shader.KeyFXAA, params, opts...)
}

func NewDepthOfField(backend gpu.Backend, lib *shader.Library, params DepthOfFieldParams, opts ...EffectBuilderOption) (*DepthOfField, error) {
	return newLibraryEffect(backend, lib, shader.KeyDepthOfField, params, opts...)
}

func NewStreak(backend gpu.Backend, lib *shader.Library, params StreakParams, opts ...EffectBuilderOption) (*Streak, error) {
	return newLibraryEffect(backend, lib, shader.KeyStreak, params, opts...)
}

func NewToneMapping(backend gpu.Backend, lib *shader.Library, params ToneMappingParams, opts ...EffectBuilderOption) (*ToneMapping, error) {
	return newLibraryEffect(backend, lib, shader.KeyToneMapping, params, opts...)
}

func NewVignette(backend gpu.Backend, lib *shader.Library, params VignetteParams, opts ...EffectBuilderOption) (*Vignette, error) {
	return newLibraryEffect(backend, lib, shader.KeyVignette, params, opts...)
}

func NewChromaticAberration(backend gpu.Backend, lib *shader.Library, params ChromaticAberrationParams, opts ...EffectBuilderOption) (*ChromaticAberration, error) {
	return newLibraryEffect(backend, lib, shader.KeyChromaticAberration, params, opts...)
}

func NewGlitch(backend gpu.Backend, lib *shader.Library, params GlitchParams, opts ...EffectBuilderOption) (*Glitch, error) {
	return newLibraryEffect(backend, lib, shader.KeyGlitch, params, opts...)
}

// Bloom extracts bright texels into a half-resolution target, then composites them over its
// input.
type Bloom struct {
	*Effect[BloomParams]
	extract *Effect[BloomParams]
}

var _ Pass = &Bloom{}

// NewBloom creates the two-stage bloom pass.
func NewBloom(backend gpu.Backend, lib *shader.Library, params BloomParams, opts ...EffectBuilderOption) (*Bloom, error) {
	composite, err := newLibraryEffect(backend, lib, shader.KeyBloom, params, opts...)
	if err != nil {
		return nil, err
	}
	extractOpts := append(append([]EffectBuilderOption{}, opts...), WithTargetScale(2))
	extract, err := newLibraryEffect(backend, lib, shader.KeyBloomExtract, params, extractOpts...)
	if err != nil {
		composite.Release()
		return nil, err
	}
	return &Bloom{Effect: composite, extract: extract}, nil
}

// Bright returns the half-resolution target of the extract stage.
func (b *Bloom) Bright() *target.RenderTarget {
	return b.extract.RenderTarget()
}

func (b *Bloom) SetSize(width, height int) error {
	if err := b.Effect.SetSize(width, height); err != nil {
		return err
	}
	return b.extract.SetSize(width, height)
}

func (b *Bloom) Shaders() []shader.Shader {
	return append(b.Effect.Shaders(), b.extract.Shaders()...)
}

func (b *Bloom) Release() {
	b.Effect.Release()
	b.extract.Release()
}

func (b *Bloom) Render(ctx *Context) error {
	if ctx.Input == nil {
		return fmt.Errorf("pass %q: %w", b.Name(), ErrNoInput)
	}
	uniforms := b.Effective().Uniforms()

	stage := *ctx
	stage.ToFramebuffer = false
	stage.Output = nil
	if err := b.extract.draw(&stage, uniforms); err != nil {
		return err
	}

	composite := *ctx
	composite.Textures = maps.Clone(ctx.Textures)
	if composite.Textures == nil {
		composite.Textures = make(map[string]gpu.Texture, 1)
	}
	composite.Textures[SlotBloom] = b.extract.RenderTarget().Texture()
	return b.draw(&composite, uniforms)
}
