package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// fakeWindow captures the callbacks the engine installs.
type fakeWindow struct {
	width, height int

	onResize func(width, height int)
	onScroll func(delta float32)
	onKey    func(key window.Key, pressed bool)
	onDrag   func(button window.MouseButton, dx, dy float32)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(func())                                      {}
func (w *fakeWindow) SetResizeCallback(cb func(width, height int))                  { w.onResize = cb }
func (w *fakeWindow) SetScrollCallback(cb func(delta float32))                      { w.onScroll = cb }
func (w *fakeWindow) SetKeyCallback(cb func(window.Key, bool))                      { w.onKey = cb }
func (w *fakeWindow) SetDragCallback(cb func(window.MouseButton, float32, float32)) { w.onDrag = cb }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor                    { return nil }
func (w *fakeWindow) IsRunning() bool                                               { return false }
func (w *fakeWindow) Close() error                                                  { return nil }
func (w *fakeWindow) ProcessMessages()                                              {}
func (w *fakeWindow) Width() int                                                    { return w.width }
func (w *fakeWindow) Height() int                                                   { return w.height }

type engineFixture struct {
	b   *gpu.RecordingBackend
	r   renderer.Renderer
	s   scene.Scene
	cam camera.Camera
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	b := gpu.NewRecordingBackend()
	b.ConfigureSurface(64, 32)
	r, err := renderer.NewRenderer(b, renderer.WithSize(64, 32), renderer.WithPrepWorkers(1))
	require.NoError(t, err)
	t.Cleanup(r.Release)
	b.Reset()
	return &engineFixture{
		b: b,
		r: r,
		s: scene.NewScene("test"),
		cam: camera.NewCamera(
			camera.WithPosition(common.Vec3{0, 0, 10}),
			camera.WithPerspective(60, 2),
		),
	}
}

func (f *engineFixture) engine(opts ...EngineBuilderOption) *engine {
	return NewEngine(append([]EngineBuilderOption{
		WithRenderer(f.r), WithScene(f.s), WithCamera(f.cam),
	}, opts...)...).(*engine)
}

func TestRunRequiresRendererSceneCamera(t *testing.T) {
	f := newEngineFixture(t)
	assert.ErrorIs(t, NewEngine().Run(), ErrNotConfigured)
	assert.ErrorIs(t, NewEngine(WithRenderer(f.r), WithScene(f.s)).Run(), ErrNotConfigured)
}

func TestRunHeadlessRendersUntilQuit(t *testing.T) {
	f := newEngineFixture(t)
	e := f.engine(WithProfiler(profiler.NewProfiler()))

	frames := 0
	e.SetRenderCallback(func(_ float32, err error) {
		assert.NoError(t, err)
		frames++
		if frames == 3 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run())

	assert.Equal(t, 3, frames)
	assert.Len(t, f.b.Filter(gpu.CommandPresent), 3)
	e.Quit()
}

func TestRunTicks(t *testing.T) {
	f := newEngineFixture(t)
	e := f.engine(WithTickRate(500), WithRenderFrameLimit(500))

	ticks := 0
	e.SetTickCallback(func(dt float32) {
		assert.Positive(t, dt)
		ticks++
		if ticks == 2 {
			e.Quit()
		}
	})
	require.NoError(t, e.Run())
	assert.Equal(t, 2, ticks)
}

func TestInactiveSceneIsNotRendered(t *testing.T) {
	f := newEngineFixture(t)
	f.s.SetActive(false)
	e := f.engine()

	require.NoError(t, e.frame(time.Now()))
	assert.Empty(t, f.b.Commands())
}

func TestResizeRunsBetweenFrames(t *testing.T) {
	f := newEngineFixture(t)
	w := &fakeWindow{width: 64, height: 32}
	e := f.engine(WithWindow(w))
	require.NotNil(t, w.onResize)

	w.onResize(0, 0)
	w.onResize(128, 32)
	assert.Equal(t, common.Size{Width: 64, Height: 32}, f.r.Size(), "queued until the next frame")

	require.NoError(t, e.frame(time.Now()))
	assert.Equal(t, common.Size{Width: 128, Height: 32}, f.r.Size())
	assert.Equal(t, common.Size{Width: 128, Height: 32}, f.b.SurfaceSize())

	e.resize(0, 10)
	assert.Equal(t, common.Size{Width: 128, Height: 32}, f.r.Size(), "a minimized window keeps the last size")
}

func TestDoRunsInOrder(t *testing.T) {
	f := newEngineFixture(t)
	e := f.engine()

	var got []int
	e.Do(func() { got = append(got, 1) })
	e.Do(func() { got = append(got, 2) })
	require.NoError(t, e.frame(time.Now()))
	require.NoError(t, e.frame(time.Now()))
	assert.Equal(t, []int{1, 2}, got)
}

func TestTogglePass(t *testing.T) {
	f := newEngineFixture(t)
	e := f.engine()
	fxaa := f.r.Context().Passes.FXAA
	require.True(t, fxaa.Enabled())

	assert.True(t, TogglePass(e, shader.KeyFXAA))
	assert.False(t, fxaa.Enabled())
	assert.True(t, TogglePass(e, shader.KeyFXAA))
	assert.True(t, fxaa.Enabled())
	assert.False(t, TogglePass(e, "sharpen"))
}

func TestBindControls(t *testing.T) {
	f := newEngineFixture(t)
	w := &fakeWindow{width: 64, height: 32}
	e := f.engine(WithWindow(w))
	oc := camera.NewOrbitController()

	BindOrbitControls(e, oc)
	BindPassToggles(e, DefaultPassKeys)
	require.NotNil(t, w.onDrag)
	require.NotNil(t, w.onScroll)
	require.NotNil(t, w.onKey)

	start := oc.Position()
	w.onDrag(window.MouseLeft, 10, 0)
	assert.NotEqual(t, start, oc.Position())

	target := oc.Target()
	w.onDrag(window.MouseRight, 0, 10)
	assert.NotEqual(t, target, oc.Target())

	radius := oc.Radius()
	w.onScroll(1)
	assert.Less(t, oc.Radius(), radius)

	w.onKey('F', false)
	w.onKey('F', true)
	w.onKey('Q', true)
	assert.True(t, f.r.Context().Passes.FXAA.Enabled(), "toggles wait for the render goroutine")
	require.NoError(t, e.frame(time.Now()))
	assert.False(t, f.r.Context().Passes.FXAA.Enabled())
}

func TestBindControlsHeadless(t *testing.T) {
	f := newEngineFixture(t)
	e := f.engine()
	BindOrbitControls(e, camera.NewOrbitController())
	BindPassToggles(e, DefaultPassKeys)
	assert.Nil(t, e.Window())
}

func TestConfigWatchAppliesReload(t *testing.T) {
	f := newEngineFixture(t)
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = 64\nheight = 32\n"), 0o644))
	e := f.engine(WithConfigWatch(path))

	reloaded := false
	e.SetRenderCallback(func(float32, error) {
		if !f.r.Context().Passes.FXAA.Enabled() {
			reloaded = true
			e.Quit()
		}
	})

	cfg := config.Default()
	cfg.Width, cfg.Height = 64, 32
	cfg.PostProcess.FXAA.Enabled = false
	data, err := config.Encode(cfg, ".toml")
	require.NoError(t, err)

	go func() {
		// Give the watcher time to register the directory.
		time.Sleep(100 * time.Millisecond)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			e.Quit()
		}
	}()
	time.AfterFunc(5*time.Second, e.Quit)

	require.NoError(t, e.Run())
	assert.True(t, reloaded)
}

func TestFrameInterval(t *testing.T) {
	assert.Zero(t, frameInterval(0))
	assert.Zero(t, frameInterval(-5))
	assert.Equal(t, 10*time.Millisecond, frameInterval(100))
}
