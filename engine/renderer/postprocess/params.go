package postprocess

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Params is the parameter set of one pass. Implementations are plain value structs; the
// methods have value receivers so a pass can hold its params by value.
type Params[P any] interface {
	// Uniforms serializes the params as the pass's group 1 binding 0 uniform.
	Uniforms() []byte

	// IsEnabled reports the params' enabled flag.
	IsEnabled() bool

	// WithEnabled returns a copy with the enabled flag set to enabled.
	WithEnabled(enabled bool) P
}

func vec4s(values ...float32) []byte {
	n := (len(values) + 3) / 4 * 4
	padded := make([]float32, n)
	copy(padded, values)
	return common.Float32sToBytes(padded)
}

// ScreenSpaceShadowParams configure contact shadows from the directional light.
type ScreenSpaceShadowParams struct {
	Enabled     bool    `toml:"enabled" yaml:"enabled"`
	Intensity   float32 `toml:"intensity" yaml:"intensity"`
	Thickness   float32 `toml:"thickness" yaml:"thickness"`
	MaxDistance float32 `toml:"max_distance" yaml:"max_distance"`
	Steps       int     `toml:"steps" yaml:"steps"`
}

func DefaultScreenSpaceShadowParams() ScreenSpaceShadowParams {
	return ScreenSpaceShadowParams{Enabled: true, Intensity: 1, Thickness: 0.1, MaxDistance: 0.5, Steps: 16}
}

func (p ScreenSpaceShadowParams) Uniforms() []byte {
	return vec4s(p.Intensity, p.Thickness, p.MaxDistance, float32(p.Steps))
}
func (p ScreenSpaceShadowParams) IsEnabled() bool { return p.Enabled }
func (p ScreenSpaceShadowParams) WithEnabled(enabled bool) ScreenSpaceShadowParams {
	p.Enabled = enabled
	return p
}

// AmbientOcclusionParams configure screen-space ambient occlusion.
type AmbientOcclusionParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Radius    float32 `toml:"radius" yaml:"radius"`
	Intensity float32 `toml:"intensity" yaml:"intensity"`
	Bias      float32 `toml:"bias" yaml:"bias"`
	Samples   int     `toml:"samples" yaml:"samples"`
	// HistoryWeight blends the result with the previous frame, 0 disables accumulation.
	HistoryWeight float32 `toml:"history_weight" yaml:"history_weight"`
}

func DefaultAmbientOcclusionParams() AmbientOcclusionParams {
	return AmbientOcclusionParams{Enabled: true, Radius: 0.5, Intensity: 1, Bias: 0.025, Samples: 12, HistoryWeight: 0.5}
}

func (p AmbientOcclusionParams) Uniforms() []byte {
	return vec4s(p.Radius, p.Intensity, p.Bias, float32(p.Samples), p.HistoryWeight)
}
func (p AmbientOcclusionParams) IsEnabled() bool { return p.Enabled }
func (p AmbientOcclusionParams) WithEnabled(enabled bool) AmbientOcclusionParams {
	p.Enabled = enabled
	return p
}

// DeferredShadingParams configure the lighting composite.
type DeferredShadingParams struct {
	Enabled          bool       `toml:"enabled" yaml:"enabled"`
	AmbientColor     [3]float32 `toml:"ambient_color" yaml:"ambient_color"`
	AmbientIntensity float32    `toml:"ambient_intensity" yaml:"ambient_intensity"`
	ShadowStrength   float32    `toml:"shadow_strength" yaml:"shadow_strength"`
}

func DefaultDeferredShadingParams() DeferredShadingParams {
	return DeferredShadingParams{Enabled: true, AmbientColor: [3]float32{1, 1, 1}, AmbientIntensity: 0.1, ShadowStrength: 1}
}

func (p DeferredShadingParams) Uniforms() []byte {
	return vec4s(p.AmbientColor[0], p.AmbientColor[1], p.AmbientColor[2], p.AmbientIntensity, p.ShadowStrength)
}
func (p DeferredShadingParams) IsEnabled() bool { return p.Enabled }
func (p DeferredShadingParams) WithEnabled(enabled bool) DeferredShadingParams {
	p.Enabled = enabled
	return p
}

// ScreenSpaceReflectionParams configure screen-space reflections.
type ScreenSpaceReflectionParams struct {
	Enabled     bool    `toml:"enabled" yaml:"enabled"`
	Intensity   float32 `toml:"intensity" yaml:"intensity"`
	MaxDistance float32 `toml:"max_distance" yaml:"max_distance"`
	Thickness   float32 `toml:"thickness" yaml:"thickness"`
	Steps       int     `toml:"steps" yaml:"steps"`
}

func DefaultScreenSpaceReflectionParams() ScreenSpaceReflectionParams {
	return ScreenSpaceReflectionParams{Intensity: 0.5, MaxDistance: 10, Thickness: 0.2, Steps: 32}
}

func (p ScreenSpaceReflectionParams) Uniforms() []byte {
	return vec4s(p.Intensity, p.MaxDistance, p.Thickness, float32(p.Steps))
}
func (p ScreenSpaceReflectionParams) IsEnabled() bool { return p.Enabled }
func (p ScreenSpaceReflectionParams) WithEnabled(enabled bool) ScreenSpaceReflectionParams {
	p.Enabled = enabled
	return p
}

// LightShaftParams configure crepuscular rays from the directional light.
type LightShaftParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Intensity float32 `toml:"intensity" yaml:"intensity"`
	Decay     float32 `toml:"decay" yaml:"decay"`
	Density   float32 `toml:"density" yaml:"density"`
	Samples   int     `toml:"samples" yaml:"samples"`
}

func DefaultLightShaftParams() LightShaftParams {
	return LightShaftParams{Intensity: 0.3, Decay: 0.96, Density: 0.8, Samples: 48}
}

func (p LightShaftParams) Uniforms() []byte {
	return vec4s(p.Intensity, p.Decay, p.Density, float32(p.Samples))
}
func (p LightShaftParams) IsEnabled() bool { return p.Enabled }
func (p LightShaftParams) WithEnabled(enabled bool) LightShaftParams {
	p.Enabled = enabled
	return p
}

// VolumetricLightParams configure spot light in-scattering.
type VolumetricLightParams struct {
	Enabled     bool    `toml:"enabled" yaml:"enabled"`
	Intensity   float32 `toml:"intensity" yaml:"intensity"`
	Scattering  float32 `toml:"scattering" yaml:"scattering"`
	Steps       int     `toml:"steps" yaml:"steps"`
	MaxDistance float32 `toml:"max_distance" yaml:"max_distance"`
}

func DefaultVolumetricLightParams() VolumetricLightParams {
	return VolumetricLightParams{Intensity: 1, Scattering: 0.05, Steps: 24, MaxDistance: 30}
}

func (p VolumetricLightParams) Uniforms() []byte {
	return vec4s(p.Intensity, p.Scattering, float32(p.Steps), p.MaxDistance)
}
func (p VolumetricLightParams) IsEnabled() bool { return p.Enabled }
func (p VolumetricLightParams) WithEnabled(enabled bool) VolumetricLightParams {
	p.Enabled = enabled
	return p
}

// HeightFogParams configure exponential height fog. A disabled fog still composites light
// shafts and volumetric light, with zero density.
type HeightFogParams struct {
	Enabled    bool       `toml:"enabled" yaml:"enabled"`
	Color      [3]float32 `toml:"color" yaml:"color"`
	Density    float32    `toml:"density" yaml:"density"`
	Height     float32    `toml:"height" yaml:"height"`
	Falloff    float32    `toml:"falloff" yaml:"falloff"`
	NoiseScale float32    `toml:"noise_scale" yaml:"noise_scale"`
	NoiseSpeed float32    `toml:"noise_speed" yaml:"noise_speed"`
}

func DefaultHeightFogParams() HeightFogParams {
	return HeightFogParams{Color: [3]float32{0.6, 0.65, 0.7}, Density: 0.02, Height: 0, Falloff: 0.2, NoiseScale: 0.05, NoiseSpeed: 0.02}
}

func (p HeightFogParams) Uniforms() []byte {
	density := p.Density
	if !p.Enabled {
		density = 0
	}
	return vec4s(p.Color[0], p.Color[1], p.Color[2], density, p.Height, p.Falloff, p.NoiseScale, p.NoiseSpeed)
}
func (p HeightFogParams) IsEnabled() bool { return p.Enabled }
func (p HeightFogParams) WithEnabled(enabled bool) HeightFogParams {
	p.Enabled = enabled
	return p
}

// FXAAParams configure fast approximate anti-aliasing.
type FXAAParams struct {
	Enabled          bool    `toml:"enabled" yaml:"enabled"`
	EdgeThreshold    float32 `toml:"edge_threshold" yaml:"edge_threshold"`
	EdgeThresholdMin float32 `toml:"edge_threshold_min" yaml:"edge_threshold_min"`
	Subpixel         float32 `toml:"subpixel" yaml:"subpixel"`
}

func DefaultFXAAParams() FXAAParams {
	return FXAAParams{Enabled: true, EdgeThreshold: 0.125, EdgeThresholdMin: 0.0312, Subpixel: 0.75}
}

func (p FXAAParams) Uniforms() []byte {
	return vec4s(p.EdgeThreshold, p.EdgeThresholdMin, p.Subpixel)
}
func (p FXAAParams) IsEnabled() bool { return p.Enabled }
func (p FXAAParams) WithEnabled(enabled bool) FXAAParams {
	p.Enabled = enabled
	return p
}

// DepthOfFieldParams configure a circle-of-confusion blur.
type DepthOfFieldParams struct {
	Enabled       bool    `toml:"enabled" yaml:"enabled"`
	FocusDistance float32 `toml:"focus_distance" yaml:"focus_distance"`
	FocusRange    float32 `toml:"focus_range" yaml:"focus_range"`
	MaxBlur       float32 `toml:"max_blur" yaml:"max_blur"`
}

func DefaultDepthOfFieldParams() DepthOfFieldParams {
	return DepthOfFieldParams{FocusDistance: 10, FocusRange: 5, MaxBlur: 3}
}

func (p DepthOfFieldParams) Uniforms() []byte {
	return vec4s(p.FocusDistance, p.FocusRange, p.MaxBlur)
}
func (p DepthOfFieldParams) IsEnabled() bool { return p.Enabled }
func (p DepthOfFieldParams) WithEnabled(enabled bool) DepthOfFieldParams {
	p.Enabled = enabled
	return p
}

// BloomParams configure the bright-pass glow.
type BloomParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Threshold float32 `toml:"threshold" yaml:"threshold"`
	Strength  float32 `toml:"strength" yaml:"strength"`
	Radius    float32 `toml:"radius" yaml:"radius"`
}

func DefaultBloomParams() BloomParams {
	return BloomParams{Threshold: 1, Strength: 0.6, Radius: 2}
}

func (p BloomParams) Uniforms() []byte {
	return vec4s(p.Threshold, p.Strength, p.Radius)
}
func (p BloomParams) IsEnabled() bool { return p.Enabled }
func (p BloomParams) WithEnabled(enabled bool) BloomParams {
	p.Enabled = enabled
	return p
}

// StreakParams configure anamorphic light streaks.
type StreakParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Threshold float32 `toml:"threshold" yaml:"threshold"`
	Strength  float32 `toml:"strength" yaml:"strength"`
	Length    float32 `toml:"length" yaml:"length"`
	Angle     float32 `toml:"angle" yaml:"angle"`
}

func DefaultStreakParams() StreakParams {
	return StreakParams{Threshold: 1.2, Strength: 0.3, Length: 4}
}

func (p StreakParams) Uniforms() []byte {
	return vec4s(p.Threshold, p.Strength, p.Length, p.Angle)
}
func (p StreakParams) IsEnabled() bool { return p.Enabled }
func (p StreakParams) WithEnabled(enabled bool) StreakParams {
	p.Enabled = enabled
	return p
}

// ToneMapOperator selects the tone mapping curve.
type ToneMapOperator int

const (
	ToneMapACES ToneMapOperator = iota
	ToneMapReinhard
	ToneMapLinear
)

// ToneMappingParams bring HDR color into display range.
type ToneMappingParams struct {
	Enabled  bool            `toml:"enabled" yaml:"enabled"`
	Exposure float32         `toml:"exposure" yaml:"exposure"`
	Operator ToneMapOperator `toml:"operator" yaml:"operator"`
	Gamma    float32         `toml:"gamma" yaml:"gamma"`
}

func DefaultToneMappingParams() ToneMappingParams {
	return ToneMappingParams{Enabled: true, Exposure: 1, Operator: ToneMapACES, Gamma: 1}
}

func (p ToneMappingParams) Uniforms() []byte {
	return vec4s(p.Exposure, float32(p.Operator), p.Gamma)
}
func (p ToneMappingParams) IsEnabled() bool { return p.Enabled }
func (p ToneMappingParams) WithEnabled(enabled bool) ToneMappingParams {
	p.Enabled = enabled
	return p
}

// VignetteParams darken the frame towards its edges.
type VignetteParams struct {
	Enabled    bool       `toml:"enabled" yaml:"enabled"`
	Color      [3]float32 `toml:"color" yaml:"color"`
	Intensity  float32    `toml:"intensity" yaml:"intensity"`
	Smoothness float32    `toml:"smoothness" yaml:"smoothness"`
	Roundness  float32    `toml:"roundness" yaml:"roundness"`
}

func DefaultVignetteParams() VignetteParams {
	return VignetteParams{Intensity: 0.3, Smoothness: 0.4, Roundness: 1}
}

func (p VignetteParams) Uniforms() []byte {
	return vec4s(p.Color[0], p.Color[1], p.Color[2], 0, p.Intensity, p.Smoothness, p.Roundness)
}
func (p VignetteParams) IsEnabled() bool { return p.Enabled }
func (p VignetteParams) WithEnabled(enabled bool) VignetteParams {
	p.Enabled = enabled
	return p
}

// ChromaticAberrationParams offset the red and blue channels radially.
type ChromaticAberrationParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Intensity float32 `toml:"intensity" yaml:"intensity"`
}

func DefaultChromaticAberrationParams() ChromaticAberrationParams {
	return ChromaticAberrationParams{Intensity: 0.5}
}

func (p ChromaticAberrationParams) Uniforms() []byte {
	return vec4s(p.Intensity)
}
func (p ChromaticAberrationParams) IsEnabled() bool { return p.Enabled }
func (p ChromaticAberrationParams) WithEnabled(enabled bool) ChromaticAberrationParams {
	p.Enabled = enabled
	return p
}

// GlitchParams configure blocky horizontal displacement.
type GlitchParams struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Intensity float32 `toml:"intensity" yaml:"intensity"`
	BlockSize float32 `toml:"block_size" yaml:"block_size"`
	Speed     float32 `toml:"speed" yaml:"speed"`
}

func DefaultGlitchParams() GlitchParams {
	return GlitchParams{Intensity: 0.5, BlockSize: 24, Speed: 8}
}

func (p GlitchParams) Uniforms() []byte {
	return vec4s(p.Intensity, p.BlockSize, p.Speed)
}
func (p GlitchParams) IsEnabled() bool { return p.Enabled }
func (p GlitchParams) WithEnabled(enabled bool) GlitchParams {
	p.Enabled = enabled
	return p
}
