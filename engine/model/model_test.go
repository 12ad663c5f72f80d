package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

func TestVertexLayout(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0.5, 1}}
	assert.Equal(t, 32, v.Size())
	got := common.BytesToFloat32s(v.Marshal())
	assert.Equal(t, []float32{1, 2, 3, 0, 1, 0, 0.5, 1}, got)
}

func TestBoxBounds(t *testing.T) {
	box := NewBox("cube", common.Vec3{2, 4, 6})
	assert.Equal(t, 24, len(box.Vertices()))
	assert.Equal(t, 36, box.IndexCount())

	lo, hi := box.Bounds()
	assert.Equal(t, common.Vec3{-1, -2, -3}, lo)
	assert.Equal(t, common.Vec3{1, 2, 3}, hi)

	// front face winds counter-clockwise around +Z
	vs := box.Vertices()
	idx := box.Indices()
	e1 := common.Sub3(vs[idx[1]].Position, vs[idx[0]].Position)
	e2 := common.Sub3(vs[idx[2]].Position, vs[idx[0]].Position)
	n := common.Cross3(e1, e2)
	assert.Greater(t, common.Dot3(n, vs[idx[0]].Normal), float32(0))
}

func TestGeometryIsUploadedOnce(t *testing.T) {
	b := gpu.NewRecordingBackend()
	quad := NewQuad("quad", 1, 1)

	g1, err := quad.Geometry(b)
	require.NoError(t, err)
	g2, err := quad.Geometry(b)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, 6, g1.IndexCount())
	assert.Len(t, b.Filter(gpu.CommandCreateGeometry), 1)
}

func TestSphereRadius(t *testing.T) {
	s := NewSphere("sphere", 2, 8, 4)
	assert.InDelta(t, 2, s.BoundingRadius(), 1e-5)
	assert.Equal(t, 8*4*6, s.IndexCount())
}
