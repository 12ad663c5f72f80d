package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

// PipelineContext exposes the resources a renderer owns, for tools, tests and the
// OnBeforePostProcess hook. Callers must not release them.
type PipelineContext struct {
	Backend  gpu.Backend
	Library  *shader.Library
	Registry *uniform.Registry

	Fallback      gpu.Texture
	FallbackDepth gpu.Texture

	DepthPrePass  *target.RenderTarget
	GBuffer       *target.GBuffer
	AfterDeferred *target.RenderTarget

	Passes *postprocess.Set
	Graph  *PassGraph
	Depth  *DepthState
}

// Targets lists every owned render target, pass targets included, in resize order.
func (c *PipelineContext) Targets() []*target.RenderTarget {
	out := []*target.RenderTarget{c.DepthPrePass, c.GBuffer.RenderTarget, c.AfterDeferred}
	for _, p := range c.Passes.All() {
		out = append(out, p.RenderTarget())
	}
	return out
}
