package camera

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the eye position.
//
// Parameters:
//   - eye: world-space eye position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(eye common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = eye
	}
}

// WithTarget sets the look-at point.
//
// Parameters:
//   - target: world-space look-at point
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(target common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = target
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up common.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithPerspective uses a perspective projection.
//
// Parameters:
//   - fovDegrees: vertical field of view in degrees
//   - aspect: width / height
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithPerspective(fovDegrees, aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = NewPerspective(fovDegrees, aspect)
	}
}

// WithOrthographic uses an orthographic projection.
//
// Parameters:
//   - halfWidth: half the horizontal extent in world units
//   - halfHeight: half the vertical extent in world units
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithOrthographic(halfWidth, halfHeight float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = NewOrthographic(halfWidth, halfHeight)
	}
}

// WithProjection uses an explicit projection.
func WithProjection(p Projection) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = p
	}
}

// WithClip sets the near and far plane distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the clip planes
func WithClip(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithRenderTarget renders the camera's final image into rt instead of the screen.
func WithRenderTarget(rt *target.RenderTarget) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.renderTarget = rt
	}
}

// WithPostProcess attaches a camera-level post-process chain that runs after the scene chain.
func WithPostProcess(chain *postprocess.Chain) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.postProcess = chain
	}
}

// WithController attaches a controller to the camera.
// After all options are applied, the camera takes its position and target from the controller.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl Controller) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
