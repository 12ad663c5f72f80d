package light

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// ShadowMapResolution is the default width and height in texels of a shadow map.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane of shadow cameras.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of shadow cameras.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// Shadow pairs a light with the depth-only target it renders into and the camera it renders
// from.
type Shadow struct {
	// Map is the depth-only shadow map target.
	Map *target.RenderTarget

	// Camera is the light's point of view.
	Camera camera.Camera

	// Bias is subtracted from the receiver depth before comparison.
	Bias float32

	// AutoAim re-aims Camera along the light every frame.
	AutoAim bool

	// distance is how far behind the focus point a directional shadow camera sits.
	distance float32
}

// NewShadowMap allocates a square depth-only shadow map target.
//
// Parameters:
//   - backend: the GPU backend
//   - label: debug label
//   - resolution: width and height in texels
//
// Returns:
//   - *target.RenderTarget: the shadow map
//   - error: an allocation error
func NewShadowMap(backend gpu.Backend, label string, resolution int) (*target.RenderTarget, error) {
	rt, err := target.NewRenderTarget(backend, label,
		target.WithFormats(),
		target.WithDepth(),
		target.WithSize(resolution, resolution),
	)
	if err != nil {
		return nil, fmt.Errorf("shadow map %q: %w", label, err)
	}
	return rt, nil
}

// NewDirectionalShadow creates a shadow for a directional light: an orthographic camera of
// half-extent halfExtent that follows the light direction.
//
// Parameters:
//   - backend: the GPU backend
//   - resolution: shadow map resolution in texels
//   - halfExtent: orthographic half-extent in world units
//
// Returns:
//   - *Shadow: the shadow
//   - error: an allocation error
func NewDirectionalShadow(backend gpu.Backend, resolution int, halfExtent float32) (*Shadow, error) {
	m, err := NewShadowMap(backend, "directional shadow", resolution)
	if err != nil {
		return nil, err
	}
	return &Shadow{
		Map: m,
		Camera: camera.NewCamera(
			camera.WithProjection(&camera.Orthographic{
				Left: -halfExtent, Right: halfExtent, Bottom: -halfExtent, Top: halfExtent, FixedAspect: true,
			}),
			camera.WithClip(DefaultShadowNear, DefaultShadowFar),
		),
		Bias:     DefaultShadowBias,
		AutoAim:  true,
		distance: DefaultShadowFar / 2,
	}, nil
}

// NewSpotShadow creates a shadow for a spot light: a perspective camera covering the cone.
//
// Parameters:
//   - backend: the GPU backend
//   - label: debug label of the shadow map
//   - resolution: shadow map resolution in texels
//   - l: the spot light the camera covers
//
// Returns:
//   - *Shadow: the shadow
//   - error: an allocation error
func NewSpotShadow(backend gpu.Backend, label string, resolution int, l Light) (*Shadow, error) {
	m, err := NewShadowMap(backend, label, resolution)
	if err != nil {
		return nil, err
	}
	far := l.Distance()
	if far <= 0 {
		far = DefaultShadowFar
	}
	return &Shadow{
		Map: m,
		Camera: camera.NewCamera(
			camera.WithProjection(&camera.Perspective{Fov: 2 * l.Angle(), Aspect: 1}),
			camera.WithClip(DefaultShadowNear, far),
		),
		Bias:    DefaultShadowBias,
		AutoAim: true,
	}, nil
}

// Aim points the shadow camera along the light.
//
// Parameters:
//   - t: the light type
//   - position: world-space light position, used by spot lights
//   - direction: world-space light direction
//   - focus: world-space point a directional shadow is centered on
func (s *Shadow) Aim(t LightType, position, direction, focus common.Vec3) {
	dir := common.Normalize3(direction)
	up := common.Vec3{0, 1, 0}
	if d := common.Dot3(dir, up); d > 0.99 || d < -0.99 {
		up = common.Vec3{0, 0, 1}
	}
	s.Camera.SetUp(up)
	switch t {
	case LightTypeDirectional:
		dist := s.distance
		if dist <= 0 {
			dist = DefaultShadowFar / 2
		}
		eye := common.Vec3{focus[0] - dir[0]*dist, focus[1] - dir[1]*dist, focus[2] - dir[2]*dist}
		s.Camera.LookAt(eye, focus)
	default:
		s.Camera.LookAt(position, common.Vec3{position[0] + dir[0], position[1] + dir[1], position[2] + dir[2]})
	}
}

// Matrix returns the world to shadow clip matrix the lighting pass samples the map with.
func (s *Shadow) Matrix() common.Mat4 {
	return s.Camera.ViewProjectionMatrix()
}

// Release frees the shadow map.
func (s *Shadow) Release() {
	s.Map.Release()
}
