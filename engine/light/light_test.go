package light

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewSpot(WithSpotCone(45, 2), WithDirection(common.Vec3{0, 0, -3}))
	assert.Equal(t, LightTypeSpot, l.Type())
	assert.True(t, l.Enabled())
	assert.False(t, l.CastsShadows())
	assert.Nil(t, l.Shadow())
	assert.InDelta(t, math32.Pi/4, l.Angle(), 1e-6)
	assert.Equal(t, float32(1), l.Penumbra())
	assert.Equal(t, common.Vec3{0, 0, -1}, l.Direction())
	assert.Equal(t, "spot", l.Type().String())
}

func TestDirectionalShadow(t *testing.T) {
	b := gpu.NewRecordingBackend()
	s, err := NewDirectionalShadow(b, 512, 10)
	require.NoError(t, err)

	assert.Nil(t, s.Map.Texture())
	require.NotNil(t, s.Map.Depth())
	assert.Equal(t, 512, s.Map.Depth().Width())
	assert.True(t, s.Map.Depth().Format().IsDepth())
	_, ortho := s.Camera.Projection().(*camera.Orthographic)
	assert.True(t, ortho)

	l := NewDirectional(WithShadow(s), WithDirection(common.Vec3{0, -1, 0}))
	assert.True(t, l.CastsShadows())
	s.Aim(l.Type(), common.Vec3{}, l.Direction(), common.Vec3{1, 0, 1})
	assert.Equal(t, common.Vec3{1, 0, 1}, s.Camera.Target())
	pos := s.Camera.Position()
	assert.InDeltaSlice(t, []float32{1, 100, 1}, pos[:], 1e-4)

	center := common.TransformPoint(s.Matrix(), common.Vec3{1, 0, 1})
	assert.InDelta(t, 0, center[0], 1e-5)
	assert.InDelta(t, 0, center[1], 1e-5)
}

func TestSpotShadowCoversCone(t *testing.T) {
	b := gpu.NewRecordingBackend()
	l := NewSpot(WithSpotCone(30, 0), WithDistance(25), WithPosition(common.Vec3{0, 5, 0}))
	s, err := NewSpotShadow(b, "spot shadow", 256, l)
	require.NoError(t, err)

	p, ok := s.Camera.Projection().(*camera.Perspective)
	require.True(t, ok)
	assert.InDelta(t, math32.Pi/3, p.Fov, 1e-6)
	assert.Equal(t, float32(25), s.Camera.Far())

	s.Aim(l.Type(), l.Position(), l.Direction(), common.Vec3{})
	assert.Equal(t, common.Vec3{0, 5, 0}, s.Camera.Position())
	target := s.Camera.Target()
	assert.InDeltaSlice(t, []float32{0, 4, 0}, target[:], 1e-6)

	s.Release()
	assert.Nil(t, s.Map.Depth())
}
