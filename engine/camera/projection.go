package camera

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Projection is the closed set of camera projections: *Perspective or *Orthographic.
type Projection interface {
	// Matrix builds the projection matrix for the given clip planes.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	//
	// Returns:
	//   - common.Mat4: the projection matrix (WebGPU depth range 0..1)
	Matrix(near, far float32) common.Mat4

	// Resize adapts the projection to a new viewport aspect ratio.
	//
	// Parameters:
	//   - aspect: width / height
	Resize(aspect float32)

	projection()
}

// Perspective is a symmetric perspective projection.
type Perspective struct {
	// Fov is the vertical field of view in radians.
	Fov    float32
	Aspect float32
}

// Orthographic is an axis aligned box projection in view space.
type Orthographic struct {
	Left, Right, Bottom, Top float32

	// FixedAspect keeps the box as given when the viewport resizes.
	FixedAspect bool
}

var (
	_ Projection = &Perspective{}
	_ Projection = &Orthographic{}
)

// NewPerspective creates a perspective projection with fov given in degrees.
func NewPerspective(fovDegrees, aspect float32) *Perspective {
	return &Perspective{Fov: fovDegrees * math32.Pi / 180, Aspect: aspect}
}

// NewOrthographic creates an orthographic projection centered on the view axis.
func NewOrthographic(halfWidth, halfHeight float32) *Orthographic {
	return &Orthographic{Left: -halfWidth, Right: halfWidth, Bottom: -halfHeight, Top: halfHeight}
}

func (p *Perspective) Matrix(near, far float32) common.Mat4 {
	return common.Perspective(p.Fov, p.Aspect, near, far)
}

func (p *Perspective) Resize(aspect float32) {
	if aspect > 0 {
		p.Aspect = aspect
	}
}

func (*Perspective) projection() {}

func (o *Orthographic) Matrix(near, far float32) common.Mat4 {
	return common.Orthographic(o.Left, o.Right, o.Bottom, o.Top, near, far)
}

// Resize keeps the vertical extent and widens or narrows the horizontal extent to aspect.
func (o *Orthographic) Resize(aspect float32) {
	if o.FixedAspect || aspect <= 0 {
		return
	}
	cx := (o.Left + o.Right) / 2
	half := (o.Top - o.Bottom) / 2 * aspect
	o.Left, o.Right = cx-half, cx+half
}

// Aspect returns width / height of the box.
func (o *Orthographic) Aspect() float32 {
	h := o.Top - o.Bottom
	if h == 0 {
		return 1
	}
	return (o.Right - o.Left) / h
}

func (*Orthographic) projection() {}
