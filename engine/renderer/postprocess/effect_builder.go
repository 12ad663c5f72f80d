package postprocess

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

type effectConfig struct {
	format       gpu.TextureFormat
	scale        int
	size         common.Size
	requirements Requirement
	neutral      [4]float64
	history      bool
}

// EffectBuilderOption is a functional option for configuring an Effect.
type EffectBuilderOption func(*effectConfig)

// WithFormat sets the color format of the effect's target. Defaults to RGBA16Float.
//
// Parameters:
//   - format: the color format
//
// Returns:
//   - EffectBuilderOption: a function that applies the format
func WithFormat(format gpu.TextureFormat) EffectBuilderOption {
	return func(c *effectConfig) {
		c.format = format
	}
}

// WithTargetScale renders the effect at 1/scale of the viewport.
//
// Parameters:
//   - scale: the integer divisor
//
// Returns:
//   - EffectBuilderOption: a function that applies the scale
func WithTargetScale(scale int) EffectBuilderOption {
	return func(c *effectConfig) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithInitialSize allocates the effect's target immediately.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - EffectBuilderOption: a function that applies the size
func WithInitialSize(width, height int) EffectBuilderOption {
	return func(c *effectConfig) {
		c.size = common.Size{Width: width, Height: height}
	}
}

// WithRequirements declares the scene features the effect needs.
func WithRequirements(r Requirement) EffectBuilderOption {
	return func(c *effectConfig) {
		c.requirements = r
	}
}

// WithNeutralColor sets the clear color RenderNeutral writes. Defaults to opaque black.
func WithNeutralColor(color [4]float64) EffectBuilderOption {
	return func(c *effectConfig) {
		c.neutral = color
	}
}

// WithHistory double-buffers the effect's target and binds the previous result at the
// "history" slot.
func WithHistory() EffectBuilderOption {
	return func(c *effectConfig) {
		c.history = true
	}
}
