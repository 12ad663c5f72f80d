package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func TestProjectionDiscriminator(t *testing.T) {
	persp := NewCamera(WithPerspective(60, 2))
	p, ok := persp.Projection().(*Perspective)
	require.True(t, ok)
	assert.InDelta(t, math32.Pi/3, p.Fov, 1e-6)
	assert.Equal(t, float32(2), p.Aspect)

	ortho := NewCamera(WithOrthographic(4, 2))
	o, ok := ortho.Projection().(*Orthographic)
	require.True(t, ok)
	assert.Equal(t, float32(2), o.Aspect())
}

func TestSetAspect(t *testing.T) {
	persp := NewCamera()
	persp.SetAspect(1.5)
	assert.Equal(t, float32(1.5), persp.Projection().(*Perspective).Aspect)

	ortho := NewCamera(WithOrthographic(1, 1))
	ortho.SetAspect(2)
	o := ortho.Projection().(*Orthographic)
	assert.Equal(t, float32(-2), o.Left)
	assert.Equal(t, float32(2), o.Right)
	assert.Equal(t, float32(1), o.Top)

	fixed := NewCamera(WithProjection(&Orthographic{Left: -1, Right: 1, Bottom: -1, Top: 1, FixedAspect: true}))
	fixed.SetAspect(3)
	assert.Equal(t, float32(1), fixed.Projection().(*Orthographic).Right)
}

func TestMatricesFollowLookAt(t *testing.T) {
	c := NewCamera(WithClip(0.5, 50))
	c.LookAt(common.Vec3{0, 0, 10}, common.Vec3{})

	view := c.ViewMatrix()
	origin := common.TransformPoint(view, common.Vec3{})
	assert.InDelta(t, -10, origin[2], 1e-5)

	identity := common.Mul4(c.ViewMatrix(), c.InverseViewMatrix())
	for i, v := range common.Identity4() {
		assert.InDelta(t, v, identity[i], 1e-5)
	}
	assert.Equal(t, common.Mul4(c.ProjectionMatrix(), c.ViewMatrix()), c.ViewProjectionMatrix())

	c.LookAt(common.Vec3{0, 0, 20}, common.Vec3{})
	origin = common.TransformPoint(c.ViewMatrix(), common.Vec3{})
	assert.InDelta(t, -20, origin[2], 1e-5)
}

func TestControllerDrivesCamera(t *testing.T) {
	oc := NewOrbitController(WithRadius(5), WithAngles(0, 0), WithOrbitTarget(common.Vec3{1, 0, 0}))
	c := NewCamera(WithController(oc))
	pos := c.Position()
	assert.InDeltaSlice(t, []float32{1, 0, 5}, pos[:], 1e-5)
	assert.Equal(t, common.Vec3{1, 0, 0}, c.Target())

	oc.Zoom(2)
	c.Update()
	assert.InDelta(t, 4, common.Distance3(c.Position(), c.Target()), 1e-5)
}

func TestOrbitClampsElevationAndRadius(t *testing.T) {
	oc := NewOrbitController(WithRadiusLimits(2, 3), WithRadius(10))
	assert.Equal(t, float32(3), oc.Radius())

	oc.Orbit(0, 1000)
	p := oc.Position()
	assert.Less(t, p[1], float32(3))
	assert.Greater(t, p[1], float32(2.9))
}

func TestPanMovesTargetAndEyeTogether(t *testing.T) {
	oc := NewOrbitController(WithAngles(0, 0), WithSpeeds(0.03, 0.5, 1))
	before := common.Sub3(oc.Position(), oc.Target())
	oc.Pan(1, 0)
	after := common.Sub3(oc.Position(), oc.Target())
	assert.InDeltaSlice(t, before[:], after[:], 1e-5)
	assert.InDelta(t, 1, oc.Target()[0], 1e-5)
}
