package postprocess

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// Destination selects where the last enabled pass of a chain renders.
type Destination struct {
	// Framebuffer renders the last pass into the default framebuffer.
	Framebuffer bool

	// Target renders the last pass into an external target. Ignored when Framebuffer is set.
	// With neither set, the last pass renders into its own target.
	Target *target.RenderTarget
}

// Chain is an ordered list of passes where each enabled pass reads the previous enabled
// pass's output.
type Chain struct {
	passes []Pass
}

// NewChain creates a chain over passes in order.
//
// Parameters:
//   - passes: the passes
//
// Returns:
//   - *Chain: the chain
func NewChain(passes ...Pass) *Chain {
	return &Chain{passes: passes}
}

// Passes returns the passes in order.
func (c *Chain) Passes() []Pass {
	return c.passes
}

// Append adds passes to the end of the chain.
func (c *Chain) Append(passes ...Pass) {
	c.passes = append(c.passes, passes...)
}

// HasEnabled reports whether at least one pass would run.
func (c *Chain) HasEnabled() bool {
	for _, p := range c.passes {
		if p.Enabled() {
			return true
		}
	}
	return false
}

// SetSize resizes every pass, enabled or not.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - error: the first resize error
func (c *Chain) SetSize(width, height int) error {
	for _, p := range c.passes {
		if err := p.SetSize(width, height); err != nil {
			return fmt.Errorf("chain pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Render runs the enabled passes in order. The first reads input; each later pass reads the
// previous pass's target. The last enabled pass renders into dst.
//
// Parameters:
//   - ctx: the shared context; Input, ToFramebuffer and Output are set per pass
//   - input: the chain input
//   - dst: the destination of the last enabled pass
//
// Returns:
//   - *target.RenderTarget: the target holding the result, or nil when it went to the framebuffer
//   - error: ErrNoEnabledPass when every pass is disabled, or the first pass error
func (c *Chain) Render(ctx *Context, input *target.RenderTarget, dst Destination) (*target.RenderTarget, error) {
	last := -1
	for i, p := range c.passes {
		if p.Enabled() {
			last = i
		}
	}
	if last < 0 {
		return nil, ErrNoEnabledPass
	}

	current := input
	for i, p := range c.passes[:last+1] {
		if !p.Enabled() {
			continue
		}
		pctx := *ctx
		pctx.Input = current
		pctx.ToFramebuffer = false
		pctx.Output = nil
		if i == last {
			pctx.ToFramebuffer = dst.Framebuffer
			if !dst.Framebuffer {
				pctx.Output = dst.Target
			}
		}
		if err := p.Render(&pctx); err != nil {
			return nil, err
		}
		current = p.RenderTarget()
	}

	switch {
	case dst.Framebuffer:
		return nil, nil
	case dst.Target != nil:
		return dst.Target, nil
	default:
		return current, nil
	}
}

// Release frees every pass.
func (c *Chain) Release() {
	for _, p := range c.passes {
		p.Release()
	}
}
