package gpu

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// defaultArenaSize is the per-frame uniform arena capacity in bytes.
const defaultArenaSize = 4 << 20

// WGPUBackendOption is a functional option applied to the WebGPU backend during construction.
type WGPUBackendOption func(*wgpuBackend)

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUBackendOption: a function that applies the option
func WithPresentMode(mode PresentMode) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - WGPUBackendOption: a function that applies the option
func WithForceSoftwareRenderer(force bool) WGPUBackendOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}

// WithArenaSize sets the capacity of the per-frame uniform arena. A draw that does not fit
// fails with ErrUniformArenaFull.
//
// Parameters:
//   - bytes: the arena capacity in bytes
//
// Returns:
//   - WGPUBackendOption: a function that applies the option
func WithArenaSize(bytes int) WGPUBackendOption {
	return func(b *wgpuBackend) {
		if bytes > 0 {
			b.arenaSize = bytes
		}
	}
}
