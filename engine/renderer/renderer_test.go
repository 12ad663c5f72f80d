package renderer

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// testVertices is one position-only vertex; the recording backend rejects empty geometry.
var testVertices = make([]byte, 12)

type fixture struct {
	t *testing.T
	b *gpu.RecordingBackend
	r Renderer
}

func newFixture(t *testing.T, opts ...RendererBuilderOption) *fixture {
	t.Helper()
	b := gpu.NewRecordingBackend()
	b.ConfigureSurface(64, 32)
	r, err := NewRenderer(b, append([]RendererBuilderOption{WithSize(64, 32), WithPrepWorkers(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	b.Reset()
	return &fixture{t: t, b: b, r: r}
}

func (f *fixture) material(name, key string, opts ...material.MaterialBuilderOption) material.Material {
	f.t.Helper()
	p, blocks, err := f.r.Program(key)
	require.NoError(f.t, err)
	return material.NewMaterial(append([]material.MaterialBuilderOption{
		material.WithName(name),
		material.WithProgram(p, blocks...),
	}, opts...)...)
}

func (f *fixture) mesh(name string, m material.Material, opts ...scene.NodeOption) *scene.Mesh {
	f.t.Helper()
	g, err := f.b.CreateGeometry(name, testVertices, nil, 0)
	require.NoError(f.t, err)
	return scene.NewMesh(name, []scene.MeshPart{{Geometry: g, Material: m}}, opts...)
}

func (f *fixture) opaque(name string, z float32) *scene.Mesh {
	return f.mesh(name, f.material(name, shader.KeyGBuffer), scene.WithPosition(common.Vec3{0, 0, z}))
}

func (f *fixture) render(s scene.Scene, cam camera.Camera) error {
	f.b.Reset()
	return f.r.Render(s, cam, SharedTextures{}, RenderOptions{Time: 1})
}

func newTestCamera(opts ...camera.CameraBuilderOption) camera.Camera {
	return camera.NewCamera(append([]camera.CameraBuilderOption{
		camera.WithPosition(common.Vec3{0, 0, 10}),
		camera.WithTarget(common.Vec3{0, 0, 0}),
		camera.WithPerspective(60, 2),
	}, opts...)...)
}

func passLabels(b *gpu.RecordingBackend) []string {
	var out []string
	for _, c := range b.Filter(gpu.CommandBeginRenderPass) {
		out = append(out, c.Label)
	}
	return out
}

func drawsIn(b *gpu.RecordingBackend, pass string) []string {
	var out []string
	for _, c := range b.Filter(gpu.CommandDraw) {
		if c.Pass == pass {
			out = append(out, c.Label)
		}
	}
	return out
}

func TestRenderPassOrder(t *testing.T) {
	f := newFixture(t)
	sun, err := light.NewDirectionalShadow(f.b, 64, 20)
	require.NoError(t, err)
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("box", 0),
		scene.NewLight("sun", light.NewDirectional(light.WithDirection(common.Vec3{0, -1, 0}), light.WithShadow(sun))),
	))

	require.NoError(t, f.render(s, newTestCamera()))

	assert.Equal(t, []string{
		"depth prepass",
		"gbuffer",
		"directional shadow",
		shader.KeyScreenSpaceShadow,
		shader.KeyAmbientOcclusion,
		shader.KeyDeferredShading,
		shader.KeyLightShaft,
		shader.KeyVolumetricLight,
		shader.KeyFXAA,
		shader.KeyToneMapping,
	}, passLabels(f.b))

	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	assert.Equal(t, gpu.LoadOpClear, passes[1].ColorLoad)
	assert.Equal(t, gpu.LoadOpLoad, passes[1].DepthLoad)
	assert.Equal(t, "depth prepass depth", passes[1].Depth)
	assert.True(t, passes[len(passes)-1].Framebuffer)

	copies := f.b.Filter(gpu.CommandCopyTexture)
	require.Len(t, copies, 2)
	assert.Equal(t, "depth snapshot", copies[0].Dst)
	assert.Equal(t, "deferred_shading color 0", copies[1].Src)
	assert.Equal(t, "after deferred color 0", copies[1].Dst)

	deferred := f.b.Filter(gpu.CommandDraw)
	for _, d := range deferred {
		if d.Pass == shader.KeyDeferredShading {
			assert.Equal(t, "depth snapshot", d.Texture(postprocess.SlotDepth))
			assert.Equal(t, "directional shadow depth", d.Texture(postprocess.SlotShadowMap))
			assert.Contains(t, d.Texture(postprocess.SlotAO), "ambient_occlusion color 0/")
		}
	}
	assert.Len(t, f.b.Filter(gpu.CommandPresent), 1)
}

func TestRenderDrawOrder(t *testing.T) {
	f := newFixture(t)
	glass := f.material("glass", shader.KeyForward, material.WithState(pipeline.WithBlend(pipeline.BlendTransparent)))
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("far", -20),
		f.opaque("near", 5),
		f.opaque("mid", -5),
		f.mesh("glass-near", glass, scene.WithPosition(common.Vec3{0, 0, 5})),
		f.mesh("glass-far", glass, scene.WithPosition(common.Vec3{0, 0, -20})),
	))

	require.NoError(t, f.render(s, newTestCamera()))

	assert.Equal(t, []string{"near", "mid", "far"}, drawsIn(f.b, "depth prepass"))
	assert.Equal(t, []string{"near", "mid", "far"}, drawsIn(f.b, "gbuffer"))
	assert.Equal(t, []string{"glass-far", "glass-near"}, drawsIn(f.b, "transparent"))

	for _, d := range f.b.Filter(gpu.CommandDraw) {
		switch d.Pass {
		case "gbuffer":
			assert.Equal(t, pipeline.CompareLessEqual, d.State.DepthCompare)
			assert.False(t, d.State.DepthWrite)
		case "transparent":
			assert.Equal(t, "depth snapshot", d.Texture(material.DepthSlot))
		}
	}
}

func TestRenderAlphaTestedDrawsWithBase(t *testing.T) {
	f := newFixture(t)
	leaves := f.material("leaves", shader.KeyGBuffer, material.WithAlphaTest(0.5))
	s := scene.NewScene("test", scene.WithActors(
		f.mesh("tree", leaves, scene.WithPosition(common.Vec3{0, 0, 8})),
		f.opaque("ground", -10),
	))

	require.NoError(t, f.render(s, newTestCamera()))
	assert.Equal(t, []string{"tree", "ground"}, drawsIn(f.b, "depth prepass"))
	assert.Equal(t, []string{"tree", "ground"}, drawsIn(f.b, "gbuffer"))
	assert.Empty(t, drawsIn(f.b, "transparent"))
}

func TestRenderSkipDepthPrePassSnapshotsOnce(t *testing.T) {
	f := newFixture(t)
	custom, err := f.b.CreateProgram(gpu.ProgramDescriptor{Key: "decal"})
	require.NoError(t, err)
	decal := material.NewMaterial(
		material.WithName("decal"),
		material.WithProgram(custom),
		material.WithSkipDepthPrePass(),
		material.WithState(pipeline.WithDepthWrite(false)),
	)
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("box", 0),
		f.mesh("decal-a", decal, scene.WithPosition(common.Vec3{0, 0, -1})),
		f.mesh("decal-b", decal, scene.WithPosition(common.Vec3{0, 0, -2})),
	))

	copiesBefore := f.r.Context().Depth.Copies()
	require.NoError(t, f.render(s, newTestCamera()))

	assert.Equal(t, []string{"box"}, drawsIn(f.b, "depth prepass"))
	assert.Equal(t, []string{"box", "decal-a", "decal-b"}, drawsIn(f.b, "gbuffer"))

	var gbufferPasses []gpu.Command
	for _, c := range f.b.Filter(gpu.CommandBeginRenderPass) {
		if c.Label == "gbuffer" {
			gbufferPasses = append(gbufferPasses, c)
		}
	}
	require.Len(t, gbufferPasses, 2, "the pass is split once to take the snapshot")
	assert.Equal(t, gpu.LoadOpLoad, gbufferPasses[1].ColorLoad)

	for _, d := range f.b.Filter(gpu.CommandDraw) {
		if d.Program == "decal" {
			assert.Equal(t, "depth snapshot", d.Texture(material.DepthSlot))
		}
	}
	assert.Equal(t, 1, f.r.Context().Depth.Copies()-copiesBefore, "the snapshot is reused until depth is written")
}

func TestRenderErrorsSkipActor(t *testing.T) {
	f := newFixture(t)
	odd := f.material("odd", shader.KeyGBuffer, material.WithState(pipeline.WithBlend(pipeline.BlendMode(42))))
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("box", 0),
		f.mesh("odd", odd),
		f.mesh("bare", material.NewMaterial(material.WithName("bare"))),
	))

	err := f.render(s, newTestCamera())
	assert.ErrorIs(t, err, ErrUnknownBlendMode)
	assert.ErrorIs(t, err, ErrMissingProgram)
	assert.Equal(t, []string{"box"}, drawsIn(f.b, "gbuffer"))
	assert.Len(t, f.b.Filter(gpu.CommandPresent), 1, "the frame completes")
}

func TestRenderMissingShadowMapReportedOnce(t *testing.T) {
	f := newFixture(t)
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("box", 0),
		scene.NewLight("sun", light.NewDirectional(light.WithCastShadows())),
	))
	cam := newTestCamera()

	err := f.render(s, cam)
	assert.ErrorIs(t, err, ErrMissingShadowMap)
	assert.NotContains(t, passLabels(f.b), "directional shadow")

	assert.NoError(t, f.render(s, cam))

	castShadow, err := f.r.Context().Registry.Get(uniform.BlockDirectionalLight, "castShadow")
	require.NoError(t, err)
	assert.Zero(t, castShadow[0])
}

func (f *fixture) shadowedSpot(name string, x float32) scene.Actor {
	f.t.Helper()
	l := light.NewSpot(light.WithDirection(common.Vec3{0, -1, 0}), light.WithDistance(50), light.WithCastShadows())
	sh, err := light.NewSpotShadow(f.b, name+" shadow", 32, l)
	require.NoError(f.t, err)
	l.SetShadow(sh)
	return scene.NewLight(name, l, scene.WithPosition(common.Vec3{x, 5, 0}))
}

func TestRenderSpotShadowSlots(t *testing.T) {
	f := newFixture(t, WithMaxSpotLights(postprocess.MaxSpotShadows+2))
	actors := []scene.Actor{f.opaque("box", 0)}
	for i := range postprocess.MaxSpotShadows + 1 {
		actors = append(actors, f.shadowedSpot(fmt.Sprintf("spot-%d", i), float32(i)))
	}
	actors = append(actors, scene.NewLight("plain", light.NewSpot()))
	s := scene.NewScene("test", scene.WithActors(actors...))
	cam := newTestCamera()

	err := f.render(s, cam)
	assert.ErrorIs(t, err, ErrTooManySpotShadows)
	assert.ErrorContains(t, err, fmt.Sprintf("spot-%d", postprocess.MaxSpotShadows))

	labels := passLabels(f.b)
	for i := range postprocess.MaxSpotShadows {
		assert.Contains(t, labels, fmt.Sprintf("spot shadow %d", i))
	}
	assert.NotContains(t, labels, fmt.Sprintf("spot shadow %d", postprocess.MaxSpotShadows), "a light without a slot renders no map")

	var deferred gpu.Command
	for _, d := range f.b.Filter(gpu.CommandDraw) {
		if d.Pass == shader.KeyDeferredShading {
			deferred = d
		}
	}
	for i := range postprocess.MaxSpotShadows {
		assert.Equal(t, fmt.Sprintf("spot-%d shadow depth", i), deferred.Texture(postprocess.SpotShadowSlot(i)))
	}

	reg := f.r.Context().Registry
	for i := range postprocess.MaxSpotShadows + 2 {
		slot, err := reg.GetField(uniform.BlockSpotLight, uniform.EntryLights, i, "shadowSlot")
		require.NoError(t, err)
		cast, err := reg.GetField(uniform.BlockSpotLight, uniform.EntryLights, i, "castShadow")
		require.NoError(t, err)
		if i < postprocess.MaxSpotShadows {
			assert.Equal(t, []float32{float32(i)}, slot, "spot %d", i)
			assert.Equal(t, []float32{1}, cast, "spot %d", i)
		} else {
			assert.Equal(t, []float32{-1}, slot, "spot %d", i)
			assert.Equal(t, []float32{0}, cast, "spot %d", i)
		}
	}
	count, err := reg.Get(uniform.BlockCommon, "spotShadowCount")
	require.NoError(t, err)
	assert.Equal(t, float32(postprocess.MaxSpotShadows), count[0])

	assert.NoError(t, f.render(s, cam), "the extra light is reported once")
}

func TestRenderDeferredShadingSamplesSkybox(t *testing.T) {
	f := newFixture(t)
	sky, err := f.b.CreateTexture(gpu.TextureDescriptor{Label: "sky", Width: 4, Height: 2, Format: gpu.TextureFormatRGBA8Unorm})
	require.NoError(t, err)
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0)))

	f.b.Reset()
	require.NoError(t, f.r.Render(s, newTestCamera(), SharedTextures{Skybox: sky}, RenderOptions{Time: 1}))
	var found bool
	for _, d := range f.b.Filter(gpu.CommandDraw) {
		if d.Pass == shader.KeyDeferredShading {
			found = true
			assert.Equal(t, "sky", d.Texture(postprocess.SlotSkybox))
		}
	}
	assert.True(t, found)

	require.NoError(t, f.render(s, newTestCamera()))
	for _, d := range f.b.Filter(gpu.CommandDraw) {
		if d.Pass == shader.KeyDeferredShading {
			assert.Equal(t, "fallback", d.Texture(postprocess.SlotSkybox), "without a skybox the ambient term is unscaled")
		}
	}
}

func TestRenderNeutralWithoutDirectionalLight(t *testing.T) {
	f := newFixture(t)
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0)))

	require.NoError(t, f.render(s, newTestCamera()))

	draws := drawsIn(f.b, shader.KeyScreenSpaceShadow)
	assert.Empty(t, draws, "contact shadows need a directional light")
	assert.Contains(t, passLabels(f.b), shader.KeyScreenSpaceShadow, "the neutral result is still rendered")

	for _, d := range f.b.Filter(gpu.CommandDraw) {
		if d.Pass == shader.KeyDeferredShading {
			assert.Equal(t, "fallback depth", d.Texture(postprocess.SlotShadowMap))
			assert.Equal(t, "screen_space_shadow color 0", d.Texture(postprocess.SlotSSS))
		}
	}
}

func TestRenderNoEnabledScenePass(t *testing.T) {
	settings := postprocess.DefaultSettings()
	settings.FXAA.Enabled = false
	settings.ToneMapping.Enabled = false
	f := newFixture(t, WithSettings(settings))

	err := f.render(scene.NewScene("test", scene.WithActors(f.opaque("box", 0))), newTestCamera())
	assert.ErrorIs(t, err, ErrNoEnabledPass)
	assert.Empty(t, f.b.Filter(gpu.CommandPresent))
	assert.NotEmpty(t, f.b.Filter(gpu.CommandEndFrame))
}

func TestRenderVolumeOverrides(t *testing.T) {
	f := newFixture(t)
	on, off := true, false
	s := scene.NewScene("test", scene.WithActors(
		f.opaque("box", 0),
		scene.NewPostProcessVolume("volume", &postprocess.Overrides{
			Vignette:    &postprocess.VignetteOverride{Enabled: &on},
			ToneMapping: &postprocess.ToneMappingOverride{Enabled: &off},
		}),
	))
	cam := newTestCamera()

	require.NoError(t, f.render(s, cam))
	labels := passLabels(f.b)
	assert.Equal(t, []string{shader.KeyFXAA, shader.KeyVignette}, labels[len(labels)-2:])

	s.Remove(s.Find("volume"))
	require.NoError(t, f.render(s, cam))
	labels = passLabels(f.b)
	assert.Equal(t, []string{shader.KeyFXAA, shader.KeyToneMapping}, labels[len(labels)-2:])
}

func TestRenderCameraTargetAndChain(t *testing.T) {
	f := newFixture(t)
	rt, err := target.NewRenderTarget(f.b, "camera", target.WithFormats(gpu.TextureFormatRGBA8Unorm), target.WithSize(64, 32))
	require.NoError(t, err)
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0)))

	require.NoError(t, f.render(s, newTestCamera(camera.WithRenderTarget(rt))))
	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	last := passes[len(passes)-1]
	assert.Equal(t, shader.KeyToneMapping, last.Label)
	assert.False(t, last.Framebuffer)
	assert.Equal(t, []string{"camera color 0"}, last.Colors)
	assert.Empty(t, f.b.Filter(gpu.CommandPresent))

	lib := f.r.Context().Library
	vignette, err := postprocess.NewVignette(f.b, lib, postprocess.DefaultVignetteParams().WithEnabled(true),
		postprocess.WithInitialSize(64, 32))
	require.NoError(t, err)
	require.NoError(t, f.render(s, newTestCamera(camera.WithPostProcess(postprocess.NewChain(vignette)))))

	passes = f.b.Filter(gpu.CommandBeginRenderPass)
	tone, last := passes[len(passes)-2], passes[len(passes)-1]
	assert.Equal(t, shader.KeyToneMapping, tone.Label)
	assert.False(t, tone.Framebuffer, "the scene chain feeds the camera chain")
	assert.Equal(t, shader.KeyVignette, last.Label)
	assert.True(t, last.Framebuffer)
	assert.Len(t, f.b.Filter(gpu.CommandPresent), 1)
}

func TestRenderLightUniforms(t *testing.T) {
	f := newFixture(t)
	spot := scene.NewLight("spot", light.NewSpot(
		light.WithColor(common.Vec3{1, 0, 0}),
		light.WithIntensity(3),
		light.WithDirection(common.Vec3{0, -1, 0}),
	), scene.WithPosition(common.Vec3{1, 2, 3}))
	bulb := scene.NewLight("bulb", light.NewPoint(light.WithIntensity(2)))
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0), spot, bulb))
	cam := newTestCamera()

	require.NoError(t, f.render(s, cam))
	reg := f.r.Context().Registry

	pos, err := reg.GetField(uniform.BlockSpotLight, uniform.EntryLights, 0, "position")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 2, 3}, pos, 1e-5)
	color, err := reg.GetField(uniform.BlockSpotLight, uniform.EntryLights, 0, "color")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1}, color)
	intensity, err := reg.GetField(uniform.BlockPointLight, uniform.EntryLights, 0, "intensity")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, intensity)
	spots, err := reg.Get(uniform.BlockCommon, "spotLightCount")
	require.NoError(t, err)
	assert.NotZero(t, spots[0])

	// A removed light must stop contributing.
	s.Remove(s.Find("spot"))
	require.NoError(t, f.render(s, cam))
	color, err = reg.GetField(uniform.BlockSpotLight, uniform.EntryLights, 0, "color")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, color)
}

func TestRenderRetainStaleLights(t *testing.T) {
	f := newFixture(t, WithRetainStaleLights())
	spot := scene.NewLight("spot", light.NewSpot(light.WithColor(common.Vec3{0, 1, 0})))
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0), spot))
	cam := newTestCamera()

	require.NoError(t, f.render(s, cam))
	s.Remove(spot)
	require.NoError(t, f.render(s, cam))

	color, err := f.r.Context().Registry.GetField(uniform.BlockSpotLight, uniform.EntryLights, 0, "color")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 1}, color)
}

func TestSetSizeResizesEveryTarget(t *testing.T) {
	f := newFixture(t, WithSize(800, 600))
	require.NoError(t, f.r.SetSize(400, 300))

	ctx := f.r.Context()
	for _, rt := range ctx.Targets() {
		assert.Equal(t, common.Size{Width: 400, Height: 300}, rt.Size(), rt.Label())
	}
	assert.Equal(t, common.Size{Width: 200, Height: 150}, ctx.Passes.Bloom.Bright().Size())
	assert.Equal(t, common.Size{Width: 400, Height: 300}, f.b.SurfaceSize())
	assert.Equal(t, common.Size{Width: 400, Height: 300}, f.r.Size())

	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0)))
	require.NoError(t, f.render(s, newTestCamera()), "copies between resized targets must still match")

	assert.ErrorIs(t, f.r.SetSize(0, 300), ErrInvalidSize)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, f.r.Size())
}

func TestNewRendererRejectsInvalidSize(t *testing.T) {
	_, err := NewRenderer(gpu.NewRecordingBackend(), WithSize(-1, 10))
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRenderOnBeforePostProcess(t *testing.T) {
	f := newFixture(t)
	s := scene.NewScene("test", scene.WithActors(f.opaque("box", 0)))
	hookErr := errors.New("hook failed")

	var seen *PipelineContext
	err := f.r.Render(s, newTestCamera(), SharedTextures{}, RenderOptions{
		OnBeforePostProcess: func(ctx *PipelineContext) error {
			seen = ctx
			return hookErr
		},
	})
	assert.ErrorIs(t, err, hookErr)
	require.NotNil(t, seen)
	assert.NotNil(t, seen.AfterDeferred)
	assert.NotContains(t, passLabels(f.b), shader.KeyToneMapping)
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	cfg.PostProcess.Glitch.Enabled = true
	f.r.ApplyConfig(cfg)

	require.NoError(t, f.render(scene.NewScene("test", scene.WithActors(f.opaque("box", 0))), newTestCamera()))
	labels := passLabels(f.b)
	assert.Equal(t, shader.KeyGlitch, labels[len(labels)-1])
}

func TestRenderOnGPU(t *testing.T) {
	if os.Getenv("OXY_GPU_TESTS") == "" {
		t.Skip("Need software GPU on CI")
	}
	backend, err := gpu.NewWGPUBackend(nil, gpu.WithForceSoftwareRenderer(true))
	require.NoError(t, err)

	r, err := NewRenderer(backend, WithSize(64, 64))
	require.NoError(t, err)
	defer r.Release()

	rt, err := target.NewRenderTarget(backend, "offscreen", target.WithSize(64, 64))
	require.NoError(t, err)
	defer rt.Release()
	assert.NoError(t, r.Render(scene.NewScene("empty"), newTestCamera(camera.WithRenderTarget(rt)), SharedTextures{}, RenderOptions{}))
}
