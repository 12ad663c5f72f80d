package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Controller owns a camera's positional state. The camera copies it on Update.
type Controller interface {
	// Position returns the world-space eye position.
	Position() common.Vec3

	// Target returns the world-space look-at point.
	Target() common.Vec3
}

// OrbitController orbits a target on spherical coordinates (radius, azimuth, elevation) and
// pans target and eye together along the view's local axes.
type OrbitController struct {
	mu sync.Mutex

	target    common.Vec3
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

var _ Controller = &OrbitController{}

// NewOrbitController creates an orbit controller 10 units from the origin, 30 degrees above
// the horizon.
//
// Parameters:
//   - options: variadic list of OrbitControllerOption functions
//
// Returns:
//   - *OrbitController: the controller
func NewOrbitController(options ...OrbitControllerOption) *OrbitController {
	oc := &OrbitController{
		radius:       10,
		elevation:    math32.Pi / 6,
		minRadius:    1,
		maxRadius:    500,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		orbitSpeed:   0.03,
		zoomSpeed:    0.5,
		panSpeed:     0.1,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	return oc
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// position computes the eye from the spherical coordinates. Caller must hold the mutex.
func (oc *OrbitController) position() common.Vec3 {
	cosElev, sinElev := math32.Cos(oc.elevation), math32.Sin(oc.elevation)
	cosAzim, sinAzim := math32.Cos(oc.azimuth), math32.Sin(oc.azimuth)
	return common.Vec3{
		oc.target[0] + oc.radius*cosElev*sinAzim,
		oc.target[1] + oc.radius*sinElev,
		oc.target[2] + oc.radius*cosElev*cosAzim,
	}
}

func (oc *OrbitController) Position() common.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position()
}

func (oc *OrbitController) Target() common.Vec3 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

// SetTarget moves the pivot; the eye follows at the same spherical offset.
func (oc *OrbitController) SetTarget(target common.Vec3) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = target
}

// Radius returns the distance from the target.
func (oc *OrbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

// Orbit rotates around the target by steps of the orbit speed. Elevation is clamped.
//
// Parameters:
//   - dAzimuth: horizontal steps, positive is to the right
//   - dElevation: vertical steps, positive is upwards
func (oc *OrbitController) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth * oc.orbitSpeed
	oc.elevation = clamp(oc.elevation+dElevation*oc.orbitSpeed, oc.minElevation, oc.maxElevation)
}

// Zoom moves towards the target for positive delta. The radius is clamped.
func (oc *OrbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
}

// Pan translates target and eye along the view's right and up axes.
//
// Parameters:
//   - right: steps along the local right axis
//   - up: steps along the local up axis
func (oc *OrbitController) Pan(right, up float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	back := common.Normalize3(common.Sub3(oc.position(), oc.target))
	r := common.Normalize3(common.Cross3(common.Vec3{0, 1, 0}, back))
	u := common.Cross3(back, r)
	for i := range 3 {
		oc.target[i] += (r[i]*right + u[i]*up) * oc.panSpeed
	}
}
