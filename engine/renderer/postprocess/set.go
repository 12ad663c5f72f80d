package postprocess

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// Settings holds the parameters of every built-in pass.
type Settings struct {
	ScreenSpaceShadow     ScreenSpaceShadowParams     `toml:"screen_space_shadow" yaml:"screen_space_shadow"`
	AmbientOcclusion      AmbientOcclusionParams      `toml:"ambient_occlusion" yaml:"ambient_occlusion"`
	DeferredShading       DeferredShadingParams       `toml:"deferred_shading" yaml:"deferred_shading"`
	ScreenSpaceReflection ScreenSpaceReflectionParams `toml:"screen_space_reflection" yaml:"screen_space_reflection"`
	LightShaft            LightShaftParams            `toml:"light_shaft" yaml:"light_shaft"`
	VolumetricLight       VolumetricLightParams       `toml:"volumetric_light" yaml:"volumetric_light"`
	HeightFog             HeightFogParams             `toml:"height_fog" yaml:"height_fog"`
	FXAA                  FXAAParams                  `toml:"fxaa" yaml:"fxaa"`
	DepthOfField          DepthOfFieldParams          `toml:"depth_of_field" yaml:"depth_of_field"`
	Bloom                 BloomParams                 `toml:"bloom" yaml:"bloom"`
	Streak                StreakParams                `toml:"streak" yaml:"streak"`
	ToneMapping           ToneMappingParams           `toml:"tone_mapping" yaml:"tone_mapping"`
	Vignette              VignetteParams              `toml:"vignette" yaml:"vignette"`
	ChromaticAberration   ChromaticAberrationParams   `toml:"chromatic_aberration" yaml:"chromatic_aberration"`
	Glitch                GlitchParams                `toml:"glitch" yaml:"glitch"`
}

// DefaultSettings returns the default parameters of every built-in pass.
func DefaultSettings() Settings {
	return Settings{
		ScreenSpaceShadow:     DefaultScreenSpaceShadowParams(),
		AmbientOcclusion:      DefaultAmbientOcclusionParams(),
		DeferredShading:       DefaultDeferredShadingParams(),
		ScreenSpaceReflection: DefaultScreenSpaceReflectionParams(),
		LightShaft:            DefaultLightShaftParams(),
		VolumetricLight:       DefaultVolumetricLightParams(),
		HeightFog:             DefaultHeightFogParams(),
		FXAA:                  DefaultFXAAParams(),
		DepthOfField:          DefaultDepthOfFieldParams(),
		Bloom:                 DefaultBloomParams(),
		Streak:                DefaultStreakParams(),
		ToneMapping:           DefaultToneMappingParams(),
		Vignette:              DefaultVignetteParams(),
		ChromaticAberration:   DefaultChromaticAberrationParams(),
		Glitch:                DefaultGlitchParams(),
	}
}

// Set is the full set of built-in passes: the screen-space passes the pipeline graph runs and
// the scene chain that follows the transparent pass.
type Set struct {
	ScreenSpaceShadow     *ScreenSpaceShadow
	AmbientOcclusion      *AmbientOcclusion
	DeferredShading       *DeferredShading
	ScreenSpaceReflection *ScreenSpaceReflection
	LightShaft            *LightShaft
	VolumetricLight       *VolumetricLight
	HeightFog             *HeightFog

	FXAA                *FXAA
	DepthOfField        *DepthOfField
	Bloom               *Bloom
	Streak              *Streak
	ToneMapping         *ToneMapping
	Vignette            *Vignette
	ChromaticAberration *ChromaticAberration
	Glitch              *Glitch

	chain *Chain
}

// NewSet creates every built-in pass.
//
// Parameters:
//   - backend: the GPU backend
//   - lib: the shader library holding the pass programs
//   - settings: the initial parameters
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - *Set: the passes
//   - error: the first construction error; passes created before it are released
func NewSet(backend gpu.Backend, lib *shader.Library, settings Settings, width, height int) (*Set, error) {
	s := &Set{}
	size := WithInitialSize(width, height)
	fail := func(err error) (*Set, error) {
		s.Release()
		return nil, err
	}

	var err error
	if s.ScreenSpaceShadow, err = NewScreenSpaceShadow(backend, lib, settings.ScreenSpaceShadow, size); err != nil {
		return fail(err)
	}
	if s.AmbientOcclusion, err = NewAmbientOcclusion(backend, lib, settings.AmbientOcclusion, size); err != nil {
		return fail(err)
	}
	if s.DeferredShading, err = NewDeferredShading(backend, lib, settings.DeferredShading, size); err != nil {
		return fail(err)
	}
	if s.ScreenSpaceReflection, err = NewScreenSpaceReflection(backend, lib, settings.ScreenSpaceReflection, size); err != nil {
		return fail(err)
	}
	if s.LightShaft, err = NewLightShaft(backend, lib, settings.LightShaft, size); err != nil {
		return fail(err)
	}
	if s.VolumetricLight, err = NewVolumetricLight(backend, lib, settings.VolumetricLight, size); err != nil {
		return fail(err)
	}
	if s.HeightFog, err = NewHeightFog(backend, lib, settings.HeightFog, size); err != nil {
		return fail(err)
	}
	if s.FXAA, err = NewFXAA(backend, lib, settings.FXAA, size); err != nil {
		return fail(err)
	}
	if s.DepthOfField, err = NewDepthOfField(backend, lib, settings.DepthOfField, size); err != nil {
		return fail(err)
	}
	if s.Bloom, err = NewBloom(backend, lib, settings.Bloom, size); err != nil {
		return fail(err)
	}
	if s.Streak, err = NewStreak(backend, lib, settings.Streak, size); err != nil {
		return fail(err)
	}
	if s.ToneMapping, err = NewToneMapping(backend, lib, settings.ToneMapping, size); err != nil {
		return fail(err)
	}
	if s.Vignette, err = NewVignette(backend, lib, settings.Vignette, size); err != nil {
		return fail(err)
	}
	if s.ChromaticAberration, err = NewChromaticAberration(backend, lib, settings.ChromaticAberration, size); err != nil {
		return fail(err)
	}
	if s.Glitch, err = NewGlitch(backend, lib, settings.Glitch, size); err != nil {
		return fail(err)
	}
	s.chain = NewChain(s.FXAA, s.DepthOfField, s.Bloom, s.Streak, s.ToneMapping, s.Vignette, s.ChromaticAberration, s.Glitch)
	return s, nil
}

// ScreenSpace returns the pipeline passes in execution order.
func (s *Set) ScreenSpace() []Pass {
	return []Pass{
		s.ScreenSpaceShadow,
		s.AmbientOcclusion,
		s.DeferredShading,
		s.ScreenSpaceReflection,
		s.LightShaft,
		s.VolumetricLight,
		s.HeightFog,
	}
}

// SceneChain returns the scene post-process chain: FXAA, depth of field, bloom, streak, tone
// mapping, vignette, chromatic aberration, glitch.
func (s *Set) SceneChain() *Chain {
	return s.chain
}

// All returns every pass of the set.
func (s *Set) All() []Pass {
	return append(s.ScreenSpace(), s.chain.Passes()...)
}

// SetSize resizes every pass.
func (s *Set) SetSize(width, height int) error {
	for _, p := range s.All() {
		if err := p.SetSize(width, height); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Apply replaces the base parameters of every pass.
//
// Parameters:
//   - settings: the new parameters
func (s *Set) Apply(settings Settings) {
	s.ScreenSpaceShadow.SetParams(settings.ScreenSpaceShadow)
	s.AmbientOcclusion.SetParams(settings.AmbientOcclusion)
	s.DeferredShading.SetParams(settings.DeferredShading)
	s.ScreenSpaceReflection.SetParams(settings.ScreenSpaceReflection)
	s.LightShaft.SetParams(settings.LightShaft)
	s.VolumetricLight.SetParams(settings.VolumetricLight)
	s.HeightFog.SetParams(settings.HeightFog)
	s.FXAA.SetParams(settings.FXAA)
	s.DepthOfField.SetParams(settings.DepthOfField)
	s.Bloom.SetParams(settings.Bloom)
	s.Streak.SetParams(settings.Streak)
	s.ToneMapping.SetParams(settings.ToneMapping)
	s.Vignette.SetParams(settings.Vignette)
	s.ChromaticAberration.SetParams(settings.ChromaticAberration)
	s.Glitch.SetParams(settings.Glitch)
}

// ApplyOverrides layers a volume's overrides on the matching passes. A nil o, or a nil member,
// clears the override of the corresponding passes.
//
// Parameters:
//   - o: the overrides, or nil
//
// Returns:
//   - error: every override that could not be applied, joined
func (s *Set) ApplyOverrides(o *Overrides) error {
	if o == nil {
		o = &Overrides{}
	}
	return errors.Join(
		apply(s.ScreenSpaceShadow, o.ScreenSpaceShadow),
		apply(s.AmbientOcclusion, o.AmbientOcclusion),
		apply(s.ScreenSpaceReflection, o.ScreenSpaceReflection),
		apply(s.HeightFog, o.HeightFog),
		apply(s.FXAA, o.FXAA),
		apply(s.DepthOfField, o.DepthOfField),
		apply(s.Bloom.Effect, o.Bloom),
		apply(s.Streak, o.Streak),
		apply(s.ToneMapping, o.ToneMapping),
		apply(s.Vignette, o.Vignette),
		apply(s.ChromaticAberration, o.ChromaticAberration),
		apply(s.Glitch, o.Glitch),
	)
}

// apply forwards a typed override pointer, treating a nil pointer as no override.
func apply[P Params[P], O any](e *Effect[P], override *O) error {
	if override == nil {
		e.ClearOverride()
		return nil
	}
	return e.ApplyOverride(override)
}

// Release frees every created pass.
func (s *Set) Release() {
	release(s.ScreenSpaceShadow)
	release(s.AmbientOcclusion)
	release(s.DeferredShading)
	release(s.ScreenSpaceReflection)
	release(s.LightShaft)
	release(s.VolumetricLight)
	release(s.HeightFog)
	release(s.FXAA)
	release(s.DepthOfField)
	release(s.Streak)
	release(s.ToneMapping)
	release(s.Vignette)
	release(s.ChromaticAberration)
	release(s.Glitch)
	if s.Bloom != nil {
		s.Bloom.Release()
	}
}

func release[P Params[P]](e *Effect[P]) {
	if e != nil {
		e.Release()
	}
}
