package renderer

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// Ref names a resource a pass graph node reads or writes. Target refs resolve to render
// targets; texture refs resolve to single textures. A node's output ref is a target ref.
type Ref string

// External refs provided by the pipeline each frame.
const (
	RefGBuffer                  Ref = "gbuffer"
	RefGBufferNormal            Ref = "gbuffer.normal"
	RefGBufferMetallicRoughness Ref = "gbuffer.metallicRoughness"
	RefGBufferEmissive          Ref = "gbuffer.emissive"
	RefDepth                    Ref = "depth"
	RefShadowMap                Ref = "shadow.directional"
	RefNoise                    Ref = "noise"
	RefSkybox                   Ref = "skybox"
)

// RefSpotShadow is the external ref of spot shadow map slot i.
func RefSpotShadow(i int) Ref { return Ref(fmt.Sprintf("shadow.spot.%d", i)) }

// Bypass selects what a node produces when its pass is disabled or lacks a required light.
type Bypass int

const (
	// BypassNeutral renders the pass's neutral result into its own target.
	BypassNeutral Bypass = iota
	// BypassPassThrough makes the node's output the node's input target.
	BypassPassThrough
)

// PassNode is one step of the screen-space pass graph.
type PassNode struct {
	Pass postprocess.Pass

	// Input is the target the pass treats as its base color input.
	Input Ref

	// Slots routes the pass's texture slots, other than input and history, to refs.
	Slots map[string]Ref

	// Output is the ref later nodes read this node's result under.
	Output Ref

	Bypass Bypass
}

// PassGraph is a validated, ordered list of pass nodes. Every ref a node reads is either
// external or the output of an earlier node, and every texture slot a pass's shaders declare
// is routed.
type PassGraph struct {
	nodes    []PassNode
	external map[Ref]bool
	targets  map[Ref]bool
}

// NewPassGraph validates nodes in execution order.
//
// Parameters:
//   - nodes: the nodes in execution order
//   - targetRefs: external refs that resolve to render targets
//   - textureRefs: external refs that resolve to textures
//
// Returns:
//   - *PassGraph: the graph
//   - error: ErrInvalidPassGraph wrapped with the first misrouting found
func NewPassGraph(nodes []PassNode, targetRefs, textureRefs []Ref) (*PassGraph, error) {
	g := &PassGraph{
		nodes:    nodes,
		external: make(map[Ref]bool),
		targets:  make(map[Ref]bool),
	}
	for _, r := range targetRefs {
		g.external[r] = true
		g.targets[r] = true
	}
	for _, r := range textureRefs {
		g.external[r] = true
	}

	known := make(map[Ref]bool, len(g.external))
	for r := range g.external {
		known[r] = true
	}
	for i, n := range nodes {
		if n.Pass == nil {
			return nil, fmt.Errorf("%w: node %d has no pass", ErrInvalidPassGraph, i)
		}
		name := n.Pass.Name()
		if !known[n.Input] {
			return nil, fmt.Errorf("%w: pass %q reads unknown input %q", ErrInvalidPassGraph, name, n.Input)
		}
		if !g.targets[n.Input] {
			return nil, fmt.Errorf("%w: pass %q input %q is not a render target", ErrInvalidPassGraph, name, n.Input)
		}

		declared := declaredSlots(n.Pass)
		for slot, ref := range n.Slots {
			if !slices.Contains(declared, slot) {
				return nil, fmt.Errorf("%w: pass %q routes undeclared slot %q", ErrInvalidPassGraph, name, slot)
			}
			if !known[ref] {
				return nil, fmt.Errorf("%w: pass %q slot %q reads unknown ref %q", ErrInvalidPassGraph, name, slot, ref)
			}
		}
		for _, slot := range declared {
			if _, ok := n.Slots[slot]; !ok {
				return nil, fmt.Errorf("%w: pass %q slot %q is not routed", ErrInvalidPassGraph, name, slot)
			}
		}

		if n.Output == "" || known[n.Output] {
			return nil, fmt.Errorf("%w: pass %q output %q is empty or already defined", ErrInvalidPassGraph, name, n.Output)
		}
		known[n.Output] = true
		g.targets[n.Output] = true
	}
	return g, nil
}

// declaredSlots lists the texture slots of a pass's shaders that the graph routes.
func declaredSlots(p postprocess.Pass) []string {
	var out []string
	for _, s := range p.Shaders() {
		for _, slot := range s.Textures() {
			if slot.Name == postprocess.SlotInput || slot.Name == postprocess.SlotHistory {
				continue
			}
			if !slices.Contains(out, slot.Name) {
				out = append(out, slot.Name)
			}
		}
	}
	return out
}

// Nodes returns the nodes in execution order.
func (g *PassGraph) Nodes() []PassNode {
	return g.nodes
}

// Output returns the output ref of the last node.
func (g *PassGraph) Output() Ref {
	if len(g.nodes) == 0 {
		return ""
	}
	return g.nodes[len(g.nodes)-1].Output
}

// graphFrame holds the resources refs resolve to during one run of the graph.
type graphFrame struct {
	targets  map[Ref]*target.RenderTarget
	textures map[Ref]gpu.Texture
}

func newGraphFrame() *graphFrame {
	return &graphFrame{
		targets:  make(map[Ref]*target.RenderTarget),
		textures: make(map[Ref]gpu.Texture),
	}
}

func (f *graphFrame) setTarget(r Ref, t *target.RenderTarget) {
	f.targets[r] = t
}

func (f *graphFrame) texture(r Ref) gpu.Texture {
	if tex, ok := f.textures[r]; ok {
		return tex
	}
	if t, ok := f.targets[r]; ok && t != nil {
		return t.Texture()
	}
	return nil
}

// nodeRun is the outcome of one node.
type nodeRun int

const (
	nodeRendered nodeRun = iota
	nodeNeutral
	nodePassedThrough
)

// run executes the graph. available reports the scene features present this frame; before is
// called ahead of each pass to publish uniforms.
func (g *PassGraph) run(frame *graphFrame, base postprocess.Context, available postprocess.Requirement, before func() error, timed func(string) func()) (map[string]nodeRun, error) {
	runs := make(map[string]nodeRun, len(g.nodes))
	for _, n := range g.nodes {
		name := n.Pass.Name()
		input := frame.targets[n.Input]

		active := n.Pass.Enabled() && available.Has(n.Pass.Requirements())
		if !active && n.Bypass == BypassPassThrough {
			frame.setTarget(n.Output, input)
			runs[name] = nodePassedThrough
			logger.L().Debug("pass bypassed", "pass", name, "input", string(n.Input))
			continue
		}

		ctx := base
		ctx.Input = input
		ctx.Textures = make(map[string]gpu.Texture, len(n.Slots))
		for slot, ref := range n.Slots {
			if tex := frame.texture(ref); tex != nil {
				ctx.Textures[slot] = tex
			}
		}

		if err := before(); err != nil {
			return runs, err
		}
		end := timed(name)
		var err error
		if active {
			err = n.Pass.Render(&ctx)
			runs[name] = nodeRendered
		} else {
			err = n.Pass.RenderNeutral(&ctx)
			runs[name] = nodeNeutral
		}
		end()
		if err != nil {
			return runs, err
		}
		frame.setTarget(n.Output, n.Pass.RenderTarget())
	}
	return runs, nil
}
