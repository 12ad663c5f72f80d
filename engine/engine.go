package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// ErrNotConfigured is returned by Run when the engine has no renderer, scene or camera.
var ErrNotConfigured = errors.New("engine is not configured")

// engine is the implementation of the Engine interface.
type engine struct {
	// frameMu serializes ticks, queued work and frames, so a tick never edits the scene while it
	// is rendered.
	frameMu sync.Mutex

	window   window.Window
	renderer renderer.Renderer
	scene    scene.Scene
	camera   camera.Camera
	shared   renderer.SharedTextures

	onBeforePostProcess func(ctx *renderer.PipelineContext) error

	tickRateChannel  chan time.Duration
	engineTickRate   time.Duration
	renderFrameLimit time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32, err error)

	queueMu sync.Mutex
	queue   []func()

	configPath string

	profiler         *profiler.Profiler
	profilingEnabled bool

	start       time.Time
	running     bool
	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup
}

// Engine drives the frame loop: a fixed-rate tick for scene updates, a render loop calling
// Renderer.Render, resize propagation from the window and optional config hot reload.
type Engine interface {
	// Window returns the window the engine presents to, or nil when running headless.
	Window() window.Window

	// Renderer returns the renderer.
	Renderer() renderer.Renderer

	// Scene returns the rendered scene.
	Scene() scene.Scene

	// SetScene replaces the rendered scene from the next frame on.
	//
	// Parameters:
	//   - s: the scene
	SetScene(s scene.Scene)

	// Camera returns the camera the scene is rendered through.
	Camera() camera.Camera

	// SetCamera replaces the camera from the next frame on.
	//
	// Parameters:
	//   - c: the camera
	SetCamera(c camera.Camera)

	// SetSharedTextures sets the noise and skybox textures passed to every frame.
	//
	// Parameters:
	//   - shared: the shared textures
	SetSharedTextures(shared renderer.SharedTextures)

	// Do queues fn to run on the render goroutine before the next frame. Input handlers use it to
	// touch the scene, camera or passes without racing the frame.
	//
	// Parameters:
	//   - fn: the work to run
	Do(fn func())

	// SetTickRate sets the engine tick rate in ticks per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target ticks per second (default 60)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous tick
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each frame.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous frame and the frame's error
	SetRenderCallback(callback func(deltaTime float32, err error))

	// SetRenderFrameLimit sets an optional render frame rate cap.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Run starts the engine and blocks until the window closes or Quit is called.
	// With a window, Run must be called on the goroutine that created it.
	//
	// Returns:
	//   - error: ErrNotConfigured when the renderer, scene or camera is missing
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// The window's resize events are forwarded to the renderer and the camera aspect.
//
// Parameters:
//   - options: functional options for engine configuration (renderer, scene, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.Do(func() { e.resize(width, height) })
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.scene = s
}

func (e *engine) Camera() camera.Camera {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.camera
}

func (e *engine) SetCamera(c camera.Camera) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.camera = c
}

func (e *engine) SetSharedTextures(shared renderer.SharedTextures) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.shared = shared
}

func (e *engine) Do(fn func()) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	e.queue = append(e.queue, fn)
}

func (e *engine) Run() error {
	if e.renderer == nil || e.scene == nil || e.camera == nil {
		return ErrNotConfigured
	}
	e.start = time.Now()
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
	return nil
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines, plus the config watcher when a config path
// is set. Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	if e.configPath != "" {
		ctx, cancel := context.WithCancel(context.Background())
		e.wg.Add(2)
		go func() {
			defer e.wg.Done()
			<-e.quitChannel
			cancel()
		}()
		go e.handleConfig(ctx)
	}
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.frameMu.Lock()
				e.tickCallback(dt)
				e.frameMu.Unlock()
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration drains the work queue, renders one frame and reports it.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			err := e.frame(now)
			if err != nil {
				logger.L().Debug("frame finished with errors", "err", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt, err)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// frame runs the queued work and renders the scene once.
func (e *engine) frame(now time.Time) error {
	e.queueMu.Lock()
	queued := e.queue
	e.queue = nil
	e.queueMu.Unlock()

	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	for _, fn := range queued {
		fn()
	}
	if !e.scene.Active() {
		return nil
	}
	return e.renderer.Render(e.scene, e.camera, e.shared, renderer.RenderOptions{
		Time:                now.Sub(e.start).Seconds(),
		OnBeforePostProcess: e.onBeforePostProcess,
	})
}

// resize forwards a framebuffer size to the renderer and the camera. A minimized window's zero
// size is ignored so the targets keep their last valid size.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		logger.L().Debug("ignoring resize", "width", width, "height", height)
		return
	}
	if err := e.renderer.SetSize(width, height); err != nil {
		logger.L().Error("resize failed", "width", width, "height", height, "err", err)
		return
	}
	e.camera.SetAspect(float32(width) / float32(height))
}

// handleConfig reloads the config file on change and applies it on the render goroutine.
func (e *engine) handleConfig(ctx context.Context) {
	defer e.wg.Done()
	err := config.Watch(ctx, e.configPath, func(cfg config.Config) {
		e.Do(func() { e.renderer.ApplyConfig(cfg) })
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.L().Error("config watcher stopped", "err", err)
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running {
		// Non-blocking send; a pending update is replaced.
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32, err error)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameInterval(fps)
}

// frameInterval converts a frame rate to a frame duration. Zero or negative rates are uncapped.
func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
