package light

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction, such as the sun.
	// It is not attenuated by distance.
	LightTypeDirectional LightType = iota

	// LightTypePoint emits in all directions from a position and attenuates with distance.
	LightTypePoint

	// LightTypeSpot emits in a cone from a position along a direction. It attenuates with
	// distance and with the angle from the cone axis.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType    LightType
	position     common.Vec3
	direction    common.Vec3
	color        common.Vec3
	intensity    float32
	distance     float32
	angle        float32
	penumbra     float32
	decay        float32
	enabled      bool
	castsShadows bool
	shadow       *Shadow
}

// Light is a light source. Type-specific properties (cone angle for spot lights, distance
// for point and spot lights) are ignored by the pipeline for the other kinds.
//
// Position and direction are in the space of the scene node holding the light; the renderer
// transforms them by the node's world matrix.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the light position. Meaningless for directional lights.
	//
	// Returns:
	//   - common.Vec3: position as (x, y, z)
	Position() common.Vec3

	// Direction returns the normalized direction the light travels in. For spot lights this is
	// the cone axis. Meaningless for point lights.
	//
	// Returns:
	//   - common.Vec3: normalized direction as (x, y, z)
	Direction() common.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - common.Vec3: color as (r, g, b)
	Color() common.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Distance returns the range of point and spot lights. Zero means inverse-power falloff
	// with no cutoff.
	//
	// Returns:
	//   - float32: the range value
	Distance() float32

	// Angle returns the spot cone half-angle in radians.
	//
	// Returns:
	//   - float32: the half-angle
	Angle() float32

	// Penumbra returns the fraction of the cone, from 0 to 1, over which a spot light fades out.
	Penumbra() float32

	// Decay returns the distance attenuation exponent.
	Decay() float32

	// Enabled returns whether this light contributes to rendering.
	Enabled() bool

	// CastsShadows returns whether this light renders a shadow map.
	CastsShadows() bool

	// Shadow returns the light's shadow map and shadow camera, or nil when none is assigned.
	//
	// Returns:
	//   - *Shadow: the shadow or nil
	Shadow() *Shadow

	// SetPosition sets the light position.
	SetPosition(p common.Vec3)

	// SetDirection sets and normalizes the light direction.
	SetDirection(d common.Vec3)

	// SetColor sets the RGB color.
	SetColor(c common.Vec3)

	// SetIntensity sets the intensity multiplier.
	SetIntensity(intensity float32)

	// SetEnabled toggles the light.
	SetEnabled(enabled bool)

	// SetCastsShadows toggles shadow casting.
	SetCastsShadows(castsShadows bool)

	// SetShadow assigns the shadow map and camera.
	//
	// Parameters:
	//   - shadow: the shadow, or nil to remove it
	SetShadow(shadow *Shadow)
}

var _ Light = &lightImpl{}

// NewLight creates a light of the given type. Defaults: white, intensity 1, enabled, decay 2,
// spot half-angle 30 degrees, pointing down the negative Y axis.
//
// Parameters:
//   - lightType: the kind of light
//   - opts: variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: lightType,
		direction: common.Vec3{0, -1, 0},
		color:     common.Vec3{1, 1, 1},
		intensity: 1,
		angle:     degreesToRadians(30),
		decay:     2,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDirectional creates a directional light.
func NewDirectional(opts ...LightBuilderOption) Light {
	return NewLight(LightTypeDirectional, opts...)
}

// NewSpot creates a spot light.
func NewSpot(opts ...LightBuilderOption) Light {
	return NewLight(LightTypeSpot, opts...)
}

// NewPoint creates a point light.
func NewPoint(opts ...LightBuilderOption) Light {
	return NewLight(LightTypePoint, opts...)
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() common.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() common.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() common.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Distance() float32 {
	return l.distance
}

func (l *lightImpl) Angle() float32 {
	return l.angle
}

func (l *lightImpl) Penumbra() float32 {
	return l.penumbra
}

func (l *lightImpl) Decay() float32 {
	return l.decay
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) Shadow() *Shadow {
	return l.shadow
}

func (l *lightImpl) SetPosition(p common.Vec3) {
	l.position = p
}

func (l *lightImpl) SetDirection(d common.Vec3) {
	l.direction = common.Normalize3(d)
}

func (l *lightImpl) SetColor(c common.Vec3) {
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

func (l *lightImpl) SetShadow(shadow *Shadow) {
	l.shadow = shadow
}
