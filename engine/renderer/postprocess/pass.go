// Package postprocess provides the post-process pass contract, the concrete fullscreen
// passes of the deferred pipeline and the chain that pipes passes into one another.
package postprocess

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// ErrNoEnabledPass is returned by Chain.Render when every pass of the chain is disabled.
var ErrNoEnabledPass = errors.New("post-process chain has no enabled pass")

// ErrNoInput is returned when a pass is rendered without an input target.
var ErrNoInput = errors.New("post-process pass has no input")

// Requirement is a bit set of scene features a pass needs to produce a meaningful result.
type Requirement uint8

const (
	RequiresDirectionalLight Requirement = 1 << iota
	RequiresSpotLights
)

// Has reports whether r contains every bit of other.
func (r Requirement) Has(other Requirement) bool {
	return r&other == other
}

// Texture slots with a fixed meaning for every pass.
const (
	// SlotInput is bound to the base input target's first color attachment.
	SlotInput = "input"
	// SlotHistory is bound to the previous result of a double-buffered pass.
	SlotHistory = "history"
)

// Context carries what a pass needs for one render.
type Context struct {
	Backend gpu.Backend

	// Input is the target whose color the pass treats as its base input.
	Input *target.RenderTarget

	// Textures maps slot names to the textures bound for this render. Slots missing from the
	// map are bound to Fallback, or FallbackDepth for depth slots.
	Textures      map[string]gpu.Texture
	Fallback      gpu.Texture
	FallbackDepth gpu.Texture

	// ToFramebuffer renders into the default framebuffer instead of the pass's own target.
	ToFramebuffer bool

	// Output overrides the pass's own target when set and ToFramebuffer is false.
	Output *target.RenderTarget
}

// Pass is one fullscreen step of the deferred pipeline or of a post-process chain.
type Pass interface {
	// Name returns the pass name used in labels and logs.
	Name() string

	// Enabled reports whether the pass runs.
	Enabled() bool

	// SetEnabled toggles the pass.
	//
	// Parameters:
	//   - enabled: the new state
	SetEnabled(enabled bool)

	// SetSize resizes the pass's own targets. The pass applies its own scale divisor.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	//
	// Returns:
	//   - error: an error if reallocation fails
	SetSize(width, height int) error

	// RenderTarget returns the target holding the pass's latest result.
	//
	// Returns:
	//   - *target.RenderTarget: the pass's target
	RenderTarget() *target.RenderTarget

	// Render runs the pass with its effective parameters.
	//
	// Parameters:
	//   - ctx: the render context
	//
	// Returns:
	//   - error: a backend error, or ErrNoInput
	Render(ctx *Context) error

	// RenderNeutral writes the pass's neutral result, used when a required light is absent so no
	// stale contribution survives from an earlier frame.
	//
	// Parameters:
	//   - ctx: the render context
	//
	// Returns:
	//   - error: a backend error
	RenderNeutral(ctx *Context) error

	// Requirements returns the scene features the pass needs.
	Requirements() Requirement

	// Shaders returns the shaders the pass draws with, so their uniform blocks can be bound.
	Shaders() []shader.Shader

	// Release frees the pass's targets.
	Release()
}
