package light

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

func degreesToRadians(deg float32) float32 {
	return deg * math32.Pi / 180
}

// WithPosition is an option builder that sets the position of the light.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(p common.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = p
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - d: the direction the light travels in
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(d common.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = common.Normalize3(d)
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - c: the color as (r, g, b)
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(c common.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = c
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithDistance sets the range of a point or spot light.
//
// Parameters:
//   - distance: the range, 0 for no cutoff
//
// Returns:
//   - LightBuilderOption: a function that applies the distance option to a lightImpl
func WithDistance(distance float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.distance = distance
	}
}

// WithSpotCone sets the cone of a spot light.
//
// Parameters:
//   - angleDeg: the cone half-angle in degrees
//   - penumbra: the fraction of the cone over which the light fades, clamped to [0, 1]
//
// Returns:
//   - LightBuilderOption: a function that applies the cone option to a lightImpl
func WithSpotCone(angleDeg, penumbra float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.angle = degreesToRadians(angleDeg)
		l.penumbra = math32.Max(0, math32.Min(1, penumbra))
	}
}

// WithDecay sets the distance attenuation exponent.
func WithDecay(decay float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.decay = decay
	}
}

// WithEnabled sets the initial enabled state. Lights are enabled by default.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithCastShadows marks the light as a shadow caster. A caster needs a Shadow assigned before
// it is rendered.
func WithCastShadows() LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = true
	}
}

// WithShadow assigns the shadow map and shadow camera and marks the light as a caster.
//
// Parameters:
//   - shadow: the shadow
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightImpl
func WithShadow(shadow *Shadow) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadow = shadow
		l.castsShadows = true
	}
}
