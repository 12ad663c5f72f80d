package animator

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

func TestTickAdvancesRotation(t *testing.T) {
	a := NewAnimator()
	g := scene.NewGroup("spinner")
	a.Add(g, common.Vec3{0, 1, -0.5})

	a.Tick(0.5)
	r := g.Rotation()
	assert.InDeltaSlice(t, []float32{0, 0.5, -0.25}, r[:], 1e-6)

	a.SetPaused(true)
	a.Tick(1)
	assert.InDelta(t, 0.5, g.Rotation()[1], 1e-6)
}

func TestTimeScale(t *testing.T) {
	a := NewAnimator(WithTimeScale(-2), WithCapacity(4))
	g := scene.NewGroup("spinner")
	a.Add(g, common.Vec3{1, 0, 0})
	a.Tick(0.25)
	assert.InDelta(t, -0.5, g.Rotation()[0], 1e-6)
}

func TestAddTwiceReplacesSpeed(t *testing.T) {
	a := NewAnimator()
	g := scene.NewGroup("spinner")
	a.Add(g, common.Vec3{1, 0, 0})
	a.Add(g, common.Vec3{2, 0, 0})

	assert.Equal(t, 1, a.Count())
	speed, ok := a.Speed(g)
	require.True(t, ok)
	assert.Equal(t, common.Vec3{2, 0, 0}, speed)
}

func TestRemoveSwapsLast(t *testing.T) {
	a := NewAnimator()
	first, middle, last := scene.NewGroup("a"), scene.NewGroup("b"), scene.NewGroup("c")
	a.Add(first, common.Vec3{1, 0, 0})
	a.Add(middle, common.Vec3{2, 0, 0})
	a.Add(last, common.Vec3{3, 0, 0})

	require.True(t, a.Remove(first))
	assert.False(t, a.Remove(first))
	assert.Equal(t, 2, a.Count())

	speed, ok := a.Speed(last)
	require.True(t, ok)
	assert.Equal(t, common.Vec3{3, 0, 0}, speed)

	a.Tick(0.1)
	assert.Zero(t, first.Rotation()[0], "removed actors keep their rotation")
	assert.InDelta(t, 0.2, middle.Rotation()[0], 1e-6)
	assert.InDelta(t, 0.3, last.Rotation()[0], 1e-6)
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, math32.Pi, wrapAngle(math32.Pi), 1e-5)
	assert.InDelta(t, math32.Pi, wrapAngle(-math32.Pi), 1e-5)
	assert.InDelta(t, -math32.Pi/2, wrapAngle(3*math32.Pi/2), 1e-5)
	assert.InDelta(t, 0.5, wrapAngle(0.5+4*math32.Pi), 1e-4)
}
