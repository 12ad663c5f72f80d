package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

type cameraImpl struct {
	mu sync.Mutex

	position common.Vec3
	target   common.Vec3
	up       common.Vec3

	near       float32
	far        float32
	projection Projection

	dirty             bool
	view              common.Mat4
	proj              common.Mat4
	viewProj          common.Mat4
	inverseView       common.Mat4
	inverseProjection common.Mat4

	renderTarget *target.RenderTarget
	postProcess  *postprocess.Chain
	controller   Controller
}

// Camera is a viewpoint with a perspective or orthographic projection. The view matrix is
// derived from position, target and up; matrices are recomputed lazily after any change.
//
// A camera may carry its own render target and post-process chain. When either is set the
// scene chain no longer ends on the default framebuffer.
type Camera interface {
	// Position returns the world-space eye position.
	//
	// Returns:
	//   - common.Vec3: the eye position
	Position() common.Vec3

	// Target returns the world-space look-at point.
	//
	// Returns:
	//   - common.Vec3: the look-at point
	Target() common.Vec3

	// Up returns the up vector used to build the view matrix.
	Up() common.Vec3

	// LookAt places the camera.
	//
	// Parameters:
	//   - eye: the eye position
	//   - target: the look-at point
	LookAt(eye, target common.Vec3)

	// SetUp sets the up vector.
	SetUp(up common.Vec3)

	// Near returns the near plane distance.
	Near() float32

	// Far returns the far plane distance.
	Far() float32

	// SetClip sets the near and far plane distances.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClip(near, far float32)

	// Projection returns the projection, either *Perspective or *Orthographic. The returned
	// value must not be mutated except through SetProjection or SetAspect.
	//
	// Returns:
	//   - Projection: the projection
	Projection() Projection

	// SetProjection replaces the projection.
	//
	// Parameters:
	//   - p: the new projection
	SetProjection(p Projection)

	// SetAspect adapts the projection to a viewport aspect ratio.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// ViewMatrix returns the world to view matrix.
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the view to clip matrix.
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns projection * view.
	ViewProjectionMatrix() common.Mat4

	// InverseViewMatrix returns the view to world matrix.
	InverseViewMatrix() common.Mat4

	// InverseProjectionMatrix returns the clip to view matrix.
	InverseProjectionMatrix() common.Mat4

	// RenderTarget returns the camera's dedicated output target, or nil.
	//
	// Returns:
	//   - *target.RenderTarget: the target or nil
	RenderTarget() *target.RenderTarget

	// SetRenderTarget sets the camera's dedicated output target; nil renders to the screen.
	//
	// Parameters:
	//   - rt: the target or nil
	SetRenderTarget(rt *target.RenderTarget)

	// PostProcess returns the camera's own post-process chain, or nil.
	//
	// Returns:
	//   - *postprocess.Chain: the chain or nil
	PostProcess() *postprocess.Chain

	// SetPostProcess sets the camera's own post-process chain.
	//
	// Parameters:
	//   - chain: the chain or nil
	SetPostProcess(chain *postprocess.Chain)

	// Controller returns the attached controller, or nil.
	Controller() Controller

	// SetController attaches a controller that drives position and target on Update.
	//
	// Parameters:
	//   - ctrl: the controller or nil
	SetController(ctrl Controller)

	// Update copies position and target from the controller. It does nothing without one.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (0, 0, 5) looking at the origin with a 45 degree perspective
// projection.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position:   common.Vec3{0, 0, 5},
		up:         common.Vec3{0, 1, 0},
		near:       0.1,
		far:        100,
		projection: NewPerspective(45, 1),
		dirty:      true,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.position = c.controller.Position()
		c.target = c.controller.Target()
	}
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) LookAt(eye, target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = eye
	c.target = target
	c.dirty = true
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.dirty = true
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.dirty = true
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetProjection(p Projection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = p
	c.dirty = true
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection.Resize(aspect)
	c.dirty = true
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.proj
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewProj
}

func (c *cameraImpl) InverseViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.inverseView
}

func (c *cameraImpl) InverseProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.inverseProjection
}

func (c *cameraImpl) RenderTarget() *target.RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderTarget
}

func (c *cameraImpl) SetRenderTarget(rt *target.RenderTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderTarget = rt
}

func (c *cameraImpl) PostProcess() *postprocess.Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postProcess
}

func (c *cameraImpl) SetPostProcess(chain *postprocess.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postProcess = chain
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	c.target = c.controller.Target()
	c.dirty = true
}

// updateMatrices recomputes every matrix when the camera changed. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if !c.dirty {
		return
	}
	c.view = common.LookAt(c.position, c.target, c.up)
	c.proj = c.projection.Matrix(c.near, c.far)
	c.viewProj = common.Mul4(c.proj, c.view)
	if inv, ok := common.Invert4(c.view); ok {
		c.inverseView = inv
	}
	if inv, ok := common.Invert4(c.proj); ok {
		c.inverseProjection = inv
	}
	c.dirty = false
}
