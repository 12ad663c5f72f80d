package camera

import "github.com/Carmen-Shannon/oxy-deferred/common"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*OrbitController)

// WithOrbitTarget sets the pivot point.
//
// Parameters:
//   - target: world-space pivot
//
// Returns:
//   - OrbitControllerOption: functional option to set the target position
func WithOrbitTarget(target common.Vec3) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.target = target
	}
}

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: horizontal angle around the Y axis, 0 is +Z
//   - elevation: vertical angle from the horizontal plane
//
// Returns:
//   - OrbitControllerOption: functional option to set the angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.azimuth = azimuth
		oc.elevation = elevation
	}
}

// WithRadiusLimits bounds the orbit radius.
func WithRadiusLimits(minRadius, maxRadius float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.minRadius = minRadius
		oc.maxRadius = maxRadius
	}
}

// WithSpeeds sets the orbit, zoom and pan step sizes.
func WithSpeeds(orbit, zoom, pan float32) OrbitControllerOption {
	return func(oc *OrbitController) {
		oc.orbitSpeed = orbit
		oc.zoomSpeed = zoom
		oc.panSpeed = pan
	}
}
