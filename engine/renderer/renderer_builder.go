package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSize sets the initial viewport size. Defaults to 1280x720.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.size = common.Size{Width: width, Height: height}
	}
}

// WithMaxSpotLights bounds the spot lights collected per frame. Extra lights are skipped with a warning.
//
// Parameters:
//   - n: the maximum spot light count
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMaxSpotLights(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n >= 0 {
			r.maxSpots = n
		}
	}
}

// WithMaxPointLights bounds the point lights collected per frame. Extra lights are skipped with a warning.
//
// Parameters:
//   - n: the maximum point light count
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMaxPointLights(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n >= 0 {
			r.maxPoints = n
		}
	}
}

// WithPrograms registers WGSL sources with the shader library. A key equal to a built-in key
// replaces the built-in shader.
//
// Parameters:
//   - sources: shader sources keyed by program key
//
// Returns:
//   - RendererBuilderOption: a function that applies the programs to a renderer
func WithPrograms(sources map[string]string) RendererBuilderOption {
	return func(r *renderer) {
		for k, v := range sources {
			r.programs[k] = v
		}
	}
}

// WithSettings sets the initial post-process parameters.
//
// Parameters:
//   - settings: the pass parameters
//
// Returns:
//   - RendererBuilderOption: a function that applies the settings to a renderer
func WithSettings(settings postprocess.Settings) RendererBuilderOption {
	return func(r *renderer) {
		r.settings = settings
	}
}

// WithPrepWorkers sets the worker count of the per-frame preparation pool.
// Defaults to one less than the CPU count. One worker prepares on the calling goroutine.
func WithPrepWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.prepWorkers = n
		}
	}
}

// WithPrepThreshold sets the draw count from which preparation runs on the worker pool.
func WithPrepThreshold(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n >= 0 {
			r.prepThreshold = n
		}
	}
}

// WithRetainStaleLights keeps the light uniform blocks of the previous frame instead of zeroing
// them before the lights are published. A light removed from the scene then keeps contributing
// until its slot is overwritten.
func WithRetainStaleLights() RendererBuilderOption {
	return func(r *renderer) {
		r.retainStaleLights = true
	}
}

// WithProfiler records per-pass CPU timings into p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithConfig applies a loaded configuration: size, light limits, preparation pool, stale light
// policy and post-process parameters. Options after it override its values.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration to a renderer
func WithConfig(cfg config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.size = common.Size{Width: cfg.Width, Height: cfg.Height}
		r.maxSpots = cfg.Renderer.MaxSpotLights
		r.maxPoints = cfg.Renderer.MaxPointLights
		if cfg.Renderer.PrepWorkers > 0 {
			r.prepWorkers = cfg.Renderer.PrepWorkers
		}
		r.prepThreshold = cfg.Renderer.PrepThreshold
		r.retainStaleLights = cfg.Renderer.RetainStaleLights
		r.settings = cfg.PostProcess
	}
}
