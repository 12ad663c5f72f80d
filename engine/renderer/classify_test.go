package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

type classifyFixture struct {
	t    *testing.T
	b    *gpu.RecordingBackend
	prog gpu.Program
}

func newClassifyFixture(t *testing.T) *classifyFixture {
	t.Helper()
	b := gpu.NewRecordingBackend()
	p, err := b.CreateProgram(gpu.ProgramDescriptor{Key: "p"})
	require.NoError(t, err)
	return &classifyFixture{t: t, b: b, prog: p}
}

func (f *classifyFixture) mesh(name string, z float32, opts ...material.MaterialBuilderOption) *scene.Mesh {
	f.t.Helper()
	g, err := f.b.CreateGeometry(name, testVertices, nil, 0)
	require.NoError(f.t, err)
	m := material.NewMaterial(append([]material.MaterialBuilderOption{material.WithName(name), material.WithProgram(f.prog)}, opts...)...)
	return scene.NewMesh(name, []scene.MeshPart{{Geometry: g, Material: m}}, scene.WithPosition(common.Vec3{0, 0, z}))
}

func names(infos []RenderMeshInfo) []string {
	out := make([]string, 0, len(infos))
	for _, i := range infos {
		out = append(out, i.Actor.Name())
	}
	return out
}

func classifyScene(s scene.Scene) *renderLists {
	s.UpdateTransforms()
	return classify(s, common.Vec3{0, 0, 10}, 2, 2, newPrepPool(1, 64))
}

func TestClassifyQueues(t *testing.T) {
	f := newClassifyFixture(t)
	g, err := f.b.CreateGeometry("sky", testVertices, nil, 0)
	require.NoError(t, err)
	sky := scene.NewSkybox("sky", scene.MeshPart{Geometry: g, Material: material.NewMaterial(material.WithProgram(f.prog))})

	s := scene.NewScene("test", scene.WithActors(
		f.mesh("glass", 0, material.WithState(pipeline.WithBlend(pipeline.BlendTransparent))),
		f.mesh("glow", 5, material.WithState(pipeline.WithBlend(pipeline.BlendAdditive))),
		f.mesh("leaves", -30, material.WithAlphaTest(0.5)),
		f.mesh("rock", -5),
		f.mesh("late", 8, material.WithRenderQueueIndex(material.QueueIndexOpaque+1)),
		sky,
	))
	lists := classifyScene(s)
	require.Empty(t, lists.errs)

	assert.Equal(t, []string{"sky", "rock", "late", "leaves", "glass", "glow"}, names(lists.sorted))
	assert.Equal(t, []RenderQueue{QueueSkybox, QueueOpaque, QueueOpaque, QueueAlphaTest, QueueTransparent, QueueTransparent},
		[]RenderQueue{lists.sorted[0].Queue, lists.sorted[1].Queue, lists.sorted[2].Queue, lists.sorted[3].Queue, lists.sorted[4].Queue, lists.sorted[5].Queue})

	assert.Equal(t, []string{"sky", "late", "rock", "leaves"}, names(lists.base))
	assert.Equal(t, []string{"late", "rock", "leaves"}, names(lists.prePass))
	assert.Equal(t, []string{"glass", "glow"}, names(lists.transparent))
	assert.Equal(t, "alpha test", QueueAlphaTest.String())
}

func TestClassifySkyboxFollowsEye(t *testing.T) {
	f := newClassifyFixture(t)
	g, err := f.b.CreateGeometry("sky", testVertices, nil, 0)
	require.NoError(t, err)
	s := scene.NewScene("test", scene.WithActors(
		scene.NewSkybox("sky", scene.MeshPart{Geometry: g, Material: material.NewMaterial(material.WithProgram(f.prog))},
			scene.WithPosition(common.Vec3{100, 0, 0})),
	))

	lists := classifyScene(s)
	require.Len(t, lists.base, 1)
	assert.Zero(t, lists.base[0].Distance)
	assert.Equal(t, common.Vec3{0, 0, 10}, common.Translation(lists.base[0].Transform.Model))
}

func TestClassifySkipsInvalidActors(t *testing.T) {
	f := newClassifyFixture(t)
	g, err := f.b.CreateGeometry("two", testVertices, nil, 0)
	require.NoError(t, err)
	good := material.NewMaterial(material.WithProgram(f.prog))
	bad := material.NewMaterial(material.WithProgram(f.prog), material.WithState(pipeline.WithBlend(pipeline.BlendMode(9))))

	s := scene.NewScene("test", scene.WithActors(
		f.mesh("rock", 0),
		f.mesh("odd", 0, material.WithState(pipeline.WithBlend(pipeline.BlendMode(9)))),
		scene.NewMesh("two", []scene.MeshPart{{Geometry: g, Material: good}, {Geometry: g, Material: bad}}),
		scene.NewMesh("empty", []scene.MeshPart{{Material: good}}),
		scene.NewMesh("hidden", []scene.MeshPart{{Geometry: g, Material: good}}, scene.WithEnabled(false)),
	))
	lists := classifyScene(s)

	assert.Equal(t, []string{"rock"}, names(lists.sorted), "an actor with one bad part is left out whole")
	require.Len(t, lists.errs, 3)
	assert.ErrorIs(t, lists.errs[0], ErrUnknownBlendMode)
	assert.ErrorContains(t, lists.errs[0], `actor "odd"`)
	assert.ErrorIs(t, lists.errs[1], ErrUnknownBlendMode)
	assert.ErrorIs(t, lists.errs[2], ErrMissingProgram)
}

func TestClassifyLights(t *testing.T) {
	s := scene.NewScene("test", scene.WithActors(
		scene.NewLight("sun", light.NewDirectional()),
		scene.NewLight("moon", light.NewDirectional()),
		scene.NewLight("off", light.NewSpot(light.WithEnabled(false))),
		scene.NewLight("spot-1", light.NewSpot()),
		scene.NewLight("spot-2", light.NewSpot()),
		scene.NewLight("spot-3", light.NewSpot()),
		scene.NewLight("bulb", light.NewPoint()),
		scene.NewPostProcessVolume("first", nil),
		scene.NewPostProcessVolume("second", nil),
	))
	lists := classifyScene(s)

	require.NotNil(t, lists.lights.Directional)
	assert.Equal(t, "sun", lists.lights.Directional.Name())
	require.Len(t, lists.lights.Spots, 2, "spot lights are capped")
	assert.Equal(t, "spot-1", lists.lights.Spots[0].Name())
	assert.Len(t, lists.lights.Points, 1)
	assert.Equal(t, "first", lists.volume.Name())
}

func TestClassifyKeepsNearestLights(t *testing.T) {
	s := scene.NewScene("test", scene.WithActors(
		scene.NewLight("spot-far", light.NewSpot(), scene.WithPosition(common.Vec3{0, 0, -50})),
		scene.NewLight("spot-mid", light.NewSpot(), scene.WithPosition(common.Vec3{0, 0, 0})),
		scene.NewLight("spot-near", light.NewSpot(), scene.WithPosition(common.Vec3{0, 0, 8})),
		scene.NewLight("bulb-far", light.NewPoint(), scene.WithPosition(common.Vec3{40, 0, 0})),
		scene.NewLight("bulb-a", light.NewPoint(), scene.WithPosition(common.Vec3{1, 0, 9})),
		scene.NewLight("bulb-b", light.NewPoint(), scene.WithPosition(common.Vec3{0, 1, 9})),
	))
	lists := classifyScene(s)

	spots := make([]string, 0, len(lists.lights.Spots))
	for _, l := range lists.lights.Spots {
		spots = append(spots, l.Name())
	}
	assert.Equal(t, []string{"spot-mid", "spot-near"}, spots, "the farthest light is dropped, order is kept")

	points := make([]string, 0, len(lists.lights.Points))
	for _, l := range lists.lights.Points {
		points = append(points, l.Name())
	}
	assert.Equal(t, []string{"bulb-a", "bulb-b"}, points)
}

func TestPrepPoolRelease(t *testing.T) {
	f := newClassifyFixture(t)
	var infos []RenderMeshInfo
	for i := range 16 {
		m := f.mesh(fmt.Sprintf("m%02d", i), float32(i))
		infos = append(infos, RenderMeshInfo{Actor: m, Part: m.Parts()[0]})
	}
	p := newPrepPool(4, 8)
	assert.Nil(t, p.pool, "workers start with the first parallel frame")

	p.prepare(infos, common.Vec3{})
	require.NotNil(t, p.pool)
	p.release()
	assert.Nil(t, p.pool)
	p.release()

	p.prepare(infos, common.Vec3{0, 0, 20})
	assert.InDelta(t, float32(20), infos[0].Distance, 1e-5)
	p.release()
}

func TestRendererReleaseStopsPrepWorkers(t *testing.T) {
	b := gpu.NewRecordingBackend()
	r, err := NewRenderer(b, WithSize(8, 8), WithPrepWorkers(4), WithPrepThreshold(1))
	require.NoError(t, err)
	impl := r.(*renderer)

	s := scene.NewScene("test", scene.WithActors(gbufferMesh(t, b, r, "a"), gbufferMesh(t, b, r, "b")))
	require.NoError(t, r.Render(s, newTestCamera(), SharedTextures{}, RenderOptions{}))
	require.NotNil(t, impl.prep.pool)

	r.Release()
	assert.Nil(t, impl.prep.pool)
}

func gbufferMesh(t *testing.T, b gpu.Backend, r Renderer, name string) scene.Actor {
	t.Helper()
	p, blocks, err := r.Program(shader.KeyGBuffer)
	require.NoError(t, err)
	g, err := b.CreateGeometry(name, testVertices, nil, 0)
	require.NoError(t, err)
	m := material.NewMaterial(material.WithName(name), material.WithProgram(p, blocks...))
	return scene.NewMesh(name, []scene.MeshPart{{Geometry: g, Material: m}})
}

func TestPrepPoolMatchesSerial(t *testing.T) {
	f := newClassifyFixture(t)
	var actors []scene.Actor
	for i := 0; i < 40; i++ {
		actors = append(actors, f.mesh(fmt.Sprintf("m%02d", i), float32(i-20)))
	}
	s := scene.NewScene("test", scene.WithActors(actors...))
	s.UpdateTransforms()
	eye := common.Vec3{3, 1, 10}

	serial := classify(s, eye, 0, 0, newPrepPool(1, 64))
	pool := newPrepPool(4, 8)
	defer pool.release()
	parallel := classify(s, eye, 0, 0, pool)

	require.Len(t, parallel.base, len(serial.base))
	for i := range serial.base {
		assert.Equal(t, serial.base[i].Actor.Name(), parallel.base[i].Actor.Name())
		assert.InDelta(t, serial.base[i].Distance, parallel.base[i].Distance, 1e-6)
		assert.Equal(t, serial.base[i].Transform, parallel.base[i].Transform)
	}
	for i := 1; i < len(parallel.base); i++ {
		assert.LessOrEqual(t, parallel.base[i-1].Distance, parallel.base[i].Distance)
	}
}
