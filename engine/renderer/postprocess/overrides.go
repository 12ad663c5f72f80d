package postprocess

// Override structs mirror their params struct field by field. A nil field leaves the base
// value untouched.

type ScreenSpaceShadowOverride struct {
	Enabled     *bool    `toml:"enabled" yaml:"enabled"`
	Intensity   *float32 `toml:"intensity" yaml:"intensity"`
	Thickness   *float32 `toml:"thickness" yaml:"thickness"`
	MaxDistance *float32 `toml:"max_distance" yaml:"max_distance"`
	Steps       *int     `toml:"steps" yaml:"steps"`
}

type AmbientOcclusionOverride struct {
	Enabled       *bool    `toml:"enabled" yaml:"enabled"`
	Radius        *float32 `toml:"radius" yaml:"radius"`
	Intensity     *float32 `toml:"intensity" yaml:"intensity"`
	Bias          *float32 `toml:"bias" yaml:"bias"`
	Samples       *int     `toml:"samples" yaml:"samples"`
	HistoryWeight *float32 `toml:"history_weight" yaml:"history_weight"`
}

type ScreenSpaceReflectionOverride struct {
	Enabled     *bool    `toml:"enabled" yaml:"enabled"`
	Intensity   *float32 `toml:"intensity" yaml:"intensity"`
	MaxDistance *float32 `toml:"max_distance" yaml:"max_distance"`
	Thickness   *float32 `toml:"thickness" yaml:"thickness"`
	Steps       *int     `toml:"steps" yaml:"steps"`
}

type HeightFogOverride struct {
	Enabled    *bool       `toml:"enabled" yaml:"enabled"`
	Color      *[3]float32 `toml:"color" yaml:"color"`
	Density    *float32    `toml:"density" yaml:"density"`
	Height     *float32    `toml:"height" yaml:"height"`
	Falloff    *float32    `toml:"falloff" yaml:"falloff"`
	NoiseScale *float32    `toml:"noise_scale" yaml:"noise_scale"`
	NoiseSpeed *float32    `toml:"noise_speed" yaml:"noise_speed"`
}

type FXAAOverride struct {
	Enabled          *bool    `toml:"enabled" yaml:"enabled"`
	EdgeThreshold    *float32 `toml:"edge_threshold" yaml:"edge_threshold"`
	EdgeThresholdMin *float32 `toml:"edge_threshold_min" yaml:"edge_threshold_min"`
	Subpixel         *float32 `toml:"subpixel" yaml:"subpixel"`
}

type DepthOfFieldOverride struct {
	Enabled       *bool    `toml:"enabled" yaml:"enabled"`
	FocusDistance *float32 `toml:"focus_distance" yaml:"focus_distance"`
	FocusRange    *float32 `toml:"focus_range" yaml:"focus_range"`
	MaxBlur       *float32 `toml:"max_blur" yaml:"max_blur"`
}

type BloomOverride struct {
	Enabled   *bool    `toml:"enabled" yaml:"enabled"`
	Threshold *float32 `toml:"threshold" yaml:"threshold"`
	Strength  *float32 `toml:"strength" yaml:"strength"`
	Radius    *float32 `toml:"radius" yaml:"radius"`
}

type StreakOverride struct {
	Enabled   *bool    `toml:"enabled" yaml:"enabled"`
	Threshold *float32 `toml:"threshold" yaml:"threshold"`
	Strength  *float32 `toml:"strength" yaml:"strength"`
	Length    *float32 `toml:"length" yaml:"length"`
	Angle     *float32 `toml:"angle" yaml:"angle"`
}

type ToneMappingOverride struct {
	Enabled  *bool            `toml:"enabled" yaml:"enabled"`
	Exposure *float32         `toml:"exposure" yaml:"exposure"`
	Operator *ToneMapOperator `toml:"operator" yaml:"operator"`
	Gamma    *float32         `toml:"gamma" yaml:"gamma"`
}

type VignetteOverride struct {
	Enabled    *bool       `toml:"enabled" yaml:"enabled"`
	Color      *[3]float32 `toml:"color" yaml:"color"`
	Intensity  *float32    `toml:"intensity" yaml:"intensity"`
	Smoothness *float32    `toml:"smoothness" yaml:"smoothness"`
	Roundness  *float32    `toml:"roundness" yaml:"roundness"`
}

type ChromaticAberrationOverride struct {
	Enabled   *bool    `toml:"enabled" yaml:"enabled"`
	Intensity *float32 `toml:"intensity" yaml:"intensity"`
}

type GlitchOverride struct {
	Enabled   *bool    `toml:"enabled" yaml:"enabled"`
	Intensity *float32 `toml:"intensity" yaml:"intensity"`
	BlockSize *float32 `toml:"block_size" yaml:"block_size"`
	Speed     *float32 `toml:"speed" yaml:"speed"`
}

// Overrides is the set of partial parameter overrides a post-process volume carries. Nil
// members leave their pass untouched.
type Overrides struct {
	ScreenSpaceShadow     *ScreenSpaceShadowOverride     `toml:"screen_space_shadow" yaml:"screen_space_shadow"`
	AmbientOcclusion      *AmbientOcclusionOverride      `toml:"ambient_occlusion" yaml:"ambient_occlusion"`
	ScreenSpaceReflection *ScreenSpaceReflectionOverride `toml:"screen_space_reflection" yaml:"screen_space_reflection"`
	HeightFog             *HeightFogOverride             `toml:"height_fog" yaml:"height_fog"`
	FXAA                  *FXAAOverride                  `toml:"fxaa" yaml:"fxaa"`
	DepthOfField          *DepthOfFieldOverride          `toml:"depth_of_field" yaml:"depth_of_field"`
	Bloom                 *BloomOverride                 `toml:"bloom" yaml:"bloom"`
	Streak                *StreakOverride                `toml:"streak" yaml:"streak"`
	ToneMapping           *ToneMappingOverride           `toml:"tone_mapping" yaml:"tone_mapping"`
	Vignette              *VignetteOverride              `toml:"vignette" yaml:"vignette"`
	ChromaticAberration   *ChromaticAberrationOverride   `toml:"chromatic_aberration" yaml:"chromatic_aberration"`
	Glitch                *GlitchOverride                `toml:"glitch" yaml:"glitch"`
}
