package target

import "github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"

// RenderTargetBuilderOption is a functional option applied to a RenderTarget during construction.
type RenderTargetBuilderOption func(*RenderTarget)

// WithFormats sets the color attachment formats, in attachment order. No formats makes a
// depth-only target.
//
// Parameters:
//   - formats: the color formats
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the option
func WithFormats(formats ...gpu.TextureFormat) RenderTargetBuilderOption {
	return func(t *RenderTarget) {
		t.formats = formats
	}
}

// WithDepth makes the target allocate and own a Depth32Float attachment.
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the option
func WithDepth() RenderTargetBuilderOption {
	return func(t *RenderTarget) {
		t.ownsDepth = true
	}
}

// WithScale sets an integer divisor applied to every requested size, for sub-resolution
// effects. The allocated size is max(1, size/scale).
//
// Parameters:
//   - scale: the divisor, values below 1 are treated as 1
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the option
func WithScale(scale int) RenderTargetBuilderOption {
	return func(t *RenderTarget) {
		t.scale = max(1, scale)
	}
}

// WithDoubleBuffer gives the target two color sets with Read, Write and Swap ping-pong access.
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the option
func WithDoubleBuffer() RenderTargetBuilderOption {
	return func(t *RenderTarget) {
		t.doubleBuffered = true
	}
}

// WithSize allocates the attachments at construction.
//
// Parameters:
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the option
func WithSize(width, height int) RenderTargetBuilderOption {
	return func(t *RenderTarget) {
		t.requested.Width = width
		t.requested.Height = height
	}
}
