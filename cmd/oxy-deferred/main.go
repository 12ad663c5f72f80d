// Command oxy-deferred opens a window and renders a demo scene through the deferred pipeline.
//
// Drag with the left mouse button to orbit, with the middle or right button to pan, and scroll
// to zoom. Keys 1-6 toggle the screen-space passes and F, D, B, S, T, V, C, G the post-process
// effects. Escape quits.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/animator"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

type options struct {
	config   string
	model    string
	software bool
	profile  bool
	verbose  bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.config, "config", "c", "", "TOML or YAML config file, reloaded on change")
	pflag.StringVarP(&opts.model, "model", "m", "", "glTF or GLB model to place in the scene")
	pflag.BoolVar(&opts.software, "software", false, "force the software adapter")
	pflag.BoolVar(&opts.profile, "profile", false, "log per-pass frame timings")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	pflag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-deferred:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return err
		}
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithSize(cfg.Width, cfg.Height),
		window.WithSizeLimits(cfg.MinWidth, cfg.MinHeight, cfg.MaxWidth, cfg.MaxHeight),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	backend, err := gpu.NewWGPUBackend(win.SurfaceDescriptor(), gpu.WithForceSoftwareRenderer(opts.software))
	if err != nil {
		return err
	}

	var prof *profiler.Profiler
	if opts.profile {
		prof = profiler.NewProfiler()
	}
	r, err := renderer.NewRenderer(backend,
		renderer.WithConfig(cfg),
		renderer.WithSize(win.Width(), win.Height()),
		renderer.WithProfiler(prof),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	demo, err := buildScene(backend, r, cfg)
	if err != nil {
		return err
	}
	defer demo.release()

	if opts.model != "" {
		ldr := loader.NewLoader(backend, r)
		defer ldr.Release()
		g, err := ldr.Load(opts.model)
		if err != nil {
			return err
		}
		g.SetPosition(common.Vec3{0, 0, 0})
		demo.scene.Add(g)
	}

	oc := camera.NewOrbitController(
		camera.WithOrbitTarget(common.Vec3{0, 1, 0}),
		camera.WithRadius(12),
		camera.WithAngles(0.6, 0.35),
		camera.WithRadiusLimits(2, 80),
	)
	cam := camera.NewCamera(
		camera.WithPerspective(50, float32(win.Width())/float32(max(win.Height(), 1))),
		camera.WithClip(0.1, 200),
		camera.WithController(oc),
	)

	engineOpts := []engine.EngineBuilderOption{
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(demo.scene),
		engine.WithCamera(cam),
		engine.WithSharedTextures(demo.shared),
		engine.WithProfiler(prof),
	}
	if opts.config != "" {
		engineOpts = append(engineOpts, engine.WithConfigWatch(opts.config))
	}
	e := engine.NewEngine(engineOpts...)
	engine.BindOrbitControls(e, oc)
	engine.BindPassToggles(e, engine.DefaultPassKeys)

	anim := animator.NewAnimator()
	anim.Add(demo.spinner, common.Vec3{0.2, 0.5, 0})
	anim.Add(demo.rig, common.Vec3{0, -0.8, 0})
	e.SetTickCallback(anim.Tick)

	return e.Run()
}

// demoScene is the built-in scene with the resources it owns.
type demoScene struct {
	scene   scene.Scene
	spinner *scene.Mesh
	rig     *scene.Group
	shared  renderer.SharedTextures

	models   []model.Model
	textures []gpu.Texture
	shadows  []*light.Shadow
}

func (d *demoScene) release() {
	if d.scene != nil {
		d.scene.Release()
	}
	for _, m := range d.models {
		m.Release()
	}
	for _, t := range d.textures {
		t.Release()
	}
	for _, s := range d.shadows {
		s.Release()
	}
}

// buildScene lays out a floor, a few primitives, a glass pane, a sun and a spot light.
func buildScene(backend gpu.Backend, r renderer.Renderer, cfg config.Config) (d *demoScene, err error) {
	d = &demoScene{}
	defer func() {
		if err != nil {
			d.release()
		}
	}()

	texture := func(label string, data common.TextureData) (gpu.Texture, error) {
		tex, err := backend.CreateTexture(gpu.TextureDescriptor{
			Label:  label,
			Width:  data.Width,
			Height: data.Height,
			Format: gpu.TextureFormatRGBA8Unorm,
			Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		d.textures = append(d.textures, tex)
		return tex, backend.WriteTexture(tex, data)
	}
	if d.shared.Noise, err = texture("noise", common.NoiseTexture(64, 64, 1)); err != nil {
		return nil, err
	}
	if d.shared.Skybox, err = texture("sky", common.SolidTexture(1, 1, [4]uint8{90, 130, 190, 255})); err != nil {
		return nil, err
	}

	mat := func(name, key string, opts ...material.MaterialBuilderOption) (material.Material, error) {
		p, blocks, err := r.Program(key)
		if err != nil {
			return nil, err
		}
		return material.NewMaterial(append([]material.MaterialBuilderOption{
			material.WithName(name),
			material.WithProgram(p, blocks...),
		}, opts...)...), nil
	}
	mesh := func(name string, m model.Model, mt material.Material, opts ...scene.NodeOption) (*scene.Mesh, error) {
		d.models = append(d.models, m)
		g, err := m.Geometry(backend)
		if err != nil {
			return nil, err
		}
		return scene.NewMesh(name, []scene.MeshPart{{Geometry: g, Material: mt}}, opts...), nil
	}

	floorMat, err := mat("floor", shader.KeyGBuffer,
		material.WithBaseColor([4]float32{0.6, 0.6, 0.62, 1}),
		material.WithMetallic(0),
		material.WithRoughness(0.25),
	)
	if err != nil {
		return nil, err
	}
	goldMat, err := mat("gold", shader.KeyGBuffer,
		material.WithBaseColor([4]float32{1, 0.77, 0.34, 1}),
		material.WithMetallic(1),
		material.WithRoughness(0.3),
	)
	if err != nil {
		return nil, err
	}
	lampMat, err := mat("lamp", shader.KeyGBuffer,
		material.WithBaseColor([4]float32{0.1, 0.1, 0.1, 1}),
		material.WithEmissive([3]float32{4, 2.5, 1}),
	)
	if err != nil {
		return nil, err
	}
	glassMat, err := mat("glass", shader.KeyForward,
		material.WithBaseColor([4]float32{0.4, 0.7, 1, 0.35}),
		material.WithRoughness(0.05),
		material.WithState(pipeline.WithBlend(pipeline.BlendTransparent), pipeline.WithSide(pipeline.FaceDouble)),
	)
	if err != nil {
		return nil, err
	}
	skyMat, err := mat("sky", shader.KeySkybox)
	if err != nil {
		return nil, err
	}

	floor, err := mesh("floor", model.NewBox("floor", common.Vec3{30, 0.2, 30}), floorMat,
		scene.WithPosition(common.Vec3{0, -0.1, 0}))
	if err != nil {
		return nil, err
	}
	d.spinner, err = mesh("spinner", model.NewBox("spinner", common.Vec3{1.5, 1.5, 1.5}), goldMat,
		scene.WithPosition(common.Vec3{-2.5, 0.75, 0}))
	if err != nil {
		return nil, err
	}
	ball, err := mesh("ball", model.NewSphere("ball", 1, 32, 16), goldMat,
		scene.WithPosition(common.Vec3{2.5, 1, 0}))
	if err != nil {
		return nil, err
	}
	lamp, err := mesh("lamp", model.NewSphere("lamp", 0.2, 16, 8), lampMat,
		scene.WithPosition(common.Vec3{0, 3, 2}))
	if err != nil {
		return nil, err
	}
	pane, err := mesh("pane", model.NewQuad("pane", 3, 2), glassMat,
		scene.WithPosition(common.Vec3{0, 1, 3}))
	if err != nil {
		return nil, err
	}

	skyModel := model.NewSphere("sky", 1, 16, 8)
	d.models = append(d.models, skyModel)
	skyGeom, err := skyModel.Geometry(backend)
	if err != nil {
		return nil, err
	}
	sky := scene.NewSkybox("sky", scene.MeshPart{Geometry: skyGeom, Material: skyMat})

	sunShadow, err := light.NewDirectionalShadow(backend, cfg.Shadow.Resolution, cfg.Shadow.HalfExtent)
	if err != nil {
		return nil, err
	}
	sunShadow.Bias = cfg.Shadow.Bias
	d.shadows = append(d.shadows, sunShadow)
	sun := light.NewDirectional(
		light.WithDirection(common.Vec3{-0.4, -1, -0.3}),
		light.WithColor(common.Vec3{1, 0.95, 0.85}),
		light.WithIntensity(2),
		light.WithShadow(sunShadow),
	)

	spot := light.NewSpot(
		light.WithPosition(common.Vec3{0, 6, 6}),
		light.WithDirection(common.Vec3{0, -1, -1}),
		light.WithColor(common.Vec3{0.3, 1, 0.6}),
		light.WithIntensity(30),
		light.WithDistance(20),
		light.WithSpotCone(30, 0.3),
	)
	spotShadow, err := light.NewSpotShadow(backend, "spot shadow", cfg.Shadow.Resolution/2, spot)
	if err != nil {
		return nil, err
	}
	d.shadows = append(d.shadows, spotShadow)
	spot.SetShadow(spotShadow)
	spot.SetCastsShadows(true)

	warm := light.NewPoint(
		light.WithColor(common.Vec3{1, 0.6, 0.3}),
		light.WithIntensity(8),
		light.WithDistance(10),
	)

	bloom := float32(1.2)
	enabled := true
	volume := scene.NewPostProcessVolume("glow", &postprocess.Overrides{
		Bloom: &postprocess.BloomOverride{Enabled: &enabled, Strength: &bloom},
	})

	d.rig = scene.NewGroup("lamp rig",
		scene.WithRotation(common.Vec3{0, float32(math.Pi) / 4, 0}),
		scene.WithChildren(lamp, scene.NewLight("warm", warm, scene.WithPosition(common.Vec3{0, 3, 2}))),
	)

	d.scene = scene.NewScene("demo", scene.WithActors(
		sky,
		floor,
		d.spinner,
		ball,
		pane,
		d.rig,
		scene.NewLight("sun", sun),
		scene.NewLight("spot", spot),
		volume,
	))
	return d, nil
}
