package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

// fakePass records how the graph ran it.
type fakePass struct {
	name     string
	enabled  bool
	requires postprocess.Requirement
	rt       *target.RenderTarget

	calls  []string
	inputs []*target.RenderTarget
	slots  []map[string]gpu.Texture
}

var _ postprocess.Pass = &fakePass{}

func (p *fakePass) Name() string                                 { return p.name }
func (p *fakePass) Enabled() bool                                { return p.enabled }
func (p *fakePass) SetEnabled(enabled bool)                      { p.enabled = enabled }
func (p *fakePass) SetSize(width, height int) error              { return p.rt.SetSize(width, height) }
func (p *fakePass) RenderTarget() *target.RenderTarget           { return p.rt }
func (p *fakePass) Requirements() postprocess.Requirement        { return p.requires }
func (p *fakePass) Shaders() []shader.Shader                     { return nil }
func (p *fakePass) Release()                                     {}
func (p *fakePass) Render(ctx *postprocess.Context) error        { return p.record("render", ctx) }
func (p *fakePass) RenderNeutral(ctx *postprocess.Context) error { return p.record("neutral", ctx) }

func (p *fakePass) record(call string, ctx *postprocess.Context) error {
	p.calls = append(p.calls, call)
	p.inputs = append(p.inputs, ctx.Input)
	p.slots = append(p.slots, ctx.Textures)
	return nil
}

func newFakePass(t *testing.T, b gpu.Backend, name string, enabled bool) *fakePass {
	t.Helper()
	rt, err := target.NewRenderTarget(b, name, target.WithSize(8, 8))
	require.NoError(t, err)
	return &fakePass{name: name, enabled: enabled, rt: rt}
}

func TestNewPassGraphRejectsMisrouting(t *testing.T) {
	b := gpu.NewRecordingBackend()
	a := newFakePass(t, b, "a", true)
	c := newFakePass(t, b, "c", true)

	tests := []struct {
		name  string
		nodes []PassNode
	}{
		{name: "nil pass", nodes: []PassNode{{Input: RefGBuffer, Output: "x"}}},
		{name: "unknown input", nodes: []PassNode{{Pass: a, Input: "nowhere", Output: "a"}}},
		{name: "texture as input", nodes: []PassNode{{Pass: a, Input: RefDepth, Output: "a"}}},
		{name: "read before write", nodes: []PassNode{
			{Pass: a, Input: "c", Output: "a"},
			{Pass: c, Input: RefGBuffer, Output: "c"},
		}},
		{name: "undeclared slot", nodes: []PassNode{
			{Pass: a, Input: RefGBuffer, Slots: map[string]Ref{"depth": RefDepth}, Output: "a"},
		}},
		{name: "empty output", nodes: []PassNode{{Pass: a, Input: RefGBuffer}}},
		{name: "duplicate output", nodes: []PassNode{
			{Pass: a, Input: RefGBuffer, Output: "a"},
			{Pass: c, Input: "a", Output: "a"},
		}},
		{name: "output shadows external", nodes: []PassNode{{Pass: a, Input: RefGBuffer, Output: RefDepth}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPassGraph(tt.nodes, graphTargetRefs, graphTextureRefs)
			assert.ErrorIs(t, err, ErrInvalidPassGraph)
		})
	}
}

func TestNewPassGraphRequiresEveryDeclaredSlot(t *testing.T) {
	b := gpu.NewRecordingBackend()
	lib := shader.NewLibrary(shader.NewPreProcessor(uniform.DefaultCatalog(uniform.DefaultMaxSpotLights, uniform.DefaultMaxPointLights)))
	set, err := postprocess.NewSet(b, lib, postprocess.DefaultSettings(), 8, 8)
	require.NoError(t, err)
	defer set.Release()

	nodes := screenSpaceNodes(set)
	g, err := NewPassGraph(nodes, graphTargetRefs, graphTextureRefs)
	require.NoError(t, err)
	assert.Equal(t, Ref("fog"), g.Output())
	assert.Len(t, g.Nodes(), len(set.ScreenSpace()))

	delete(nodes[2].Slots, postprocess.SlotAO)
	_, err = NewPassGraph(nodes, graphTargetRefs, graphTextureRefs)
	assert.ErrorIs(t, err, ErrInvalidPassGraph)
	assert.ErrorContains(t, err, `slot "ao" is not routed`)
}

func TestPassGraphRunBypass(t *testing.T) {
	b := gpu.NewRecordingBackend()
	gbuffer, err := target.NewRenderTarget(b, "gbuffer", target.WithSize(8, 8))
	require.NoError(t, err)
	depth, err := b.CreateTexture(gpu.TextureDescriptor{Label: "depth", Width: 8, Height: 8, Format: gpu.TextureFormatDepth32Float})
	require.NoError(t, err)

	shade := newFakePass(t, b, "shade", true)
	shaft := newFakePass(t, b, "shaft", true)
	shaft.requires = postprocess.RequiresDirectionalLight
	reflect := newFakePass(t, b, "reflect", false)
	fog := newFakePass(t, b, "fog", true)

	g, err := NewPassGraph([]PassNode{
		{Pass: shade, Input: RefGBuffer, Output: "shade"},
		{Pass: shaft, Input: "shade", Output: "shaft"},
		{Pass: reflect, Input: "shade", Output: "reflect", Bypass: BypassPassThrough},
		{Pass: fog, Input: "reflect", Slots: nil, Output: "fog"},
	}, []Ref{RefGBuffer}, []Ref{RefDepth})
	require.NoError(t, err)

	frame := newGraphFrame()
	frame.setTarget(RefGBuffer, gbuffer)
	frame.textures[RefDepth] = depth

	flushes := 0
	var timed []string
	runs, err := g.run(frame, postprocess.Context{Backend: b}, 0,
		func() error { flushes++; return nil },
		func(name string) func() { timed = append(timed, name); return func() {} })
	require.NoError(t, err)

	assert.Equal(t, map[string]nodeRun{
		"shade":   nodeRendered,
		"shaft":   nodeNeutral,
		"reflect": nodePassedThrough,
		"fog":     nodeRendered,
	}, runs)
	assert.Equal(t, []string{"shade", "shaft", "fog"}, timed)
	assert.Equal(t, 3, flushes)

	assert.Same(t, gbuffer, shade.inputs[0])
	assert.Equal(t, []string{"neutral"}, shaft.calls)
	assert.Empty(t, reflect.calls)
	assert.Same(t, shade.rt, fog.inputs[0], "a passed-through node forwards its input")
	assert.Same(t, fog.rt, frame.targets[g.Output()])
}

func TestPassGraphRunRoutesSlots(t *testing.T) {
	b := gpu.NewRecordingBackend()
	lib := shader.NewLibrary(shader.NewPreProcessor(uniform.DefaultCatalog(uniform.DefaultMaxSpotLights, uniform.DefaultMaxPointLights)))
	set, err := postprocess.NewSet(b, lib, postprocess.DefaultSettings(), 8, 8)
	require.NoError(t, err)
	defer set.Release()
	g, err := NewPassGraph(screenSpaceNodes(set), graphTargetRefs, graphTextureRefs)
	require.NoError(t, err)

	gbuffer, err := target.NewGBuffer(b, 8, 8)
	require.NoError(t, err)
	snapshot, err := b.CreateTexture(gpu.TextureDescriptor{Label: "depth snapshot", Width: 8, Height: 8, Format: gpu.TextureFormatDepth32Float})
	require.NoError(t, err)
	fallback, err := b.CreateTexture(gpu.TextureDescriptor{Label: "fallback", Width: 1, Height: 1, Format: gpu.TextureFormatRGBA8Unorm})
	require.NoError(t, err)
	fallbackDepth, err := b.CreateTexture(gpu.TextureDescriptor{Label: "fallback depth", Width: 1, Height: 1, Format: gpu.TextureFormatDepth32Float})
	require.NoError(t, err)

	frame := newGraphFrame()
	frame.setTarget(RefGBuffer, gbuffer.RenderTarget)
	frame.textures[RefGBufferNormal] = gbuffer.Color(target.GBufferNormal)
	frame.textures[RefGBufferMetallicRoughness] = gbuffer.Color(target.GBufferMetallicRoughness)
	frame.textures[RefGBufferEmissive] = gbuffer.Color(target.GBufferEmissive)
	frame.textures[RefDepth] = snapshot
	skybox, err := b.CreateTexture(gpu.TextureDescriptor{Label: "sky", Width: 4, Height: 2, Format: gpu.TextureFormatRGBA8Unorm})
	require.NoError(t, err)
	frame.textures[RefSkybox] = skybox
	spotMap, err := b.CreateTexture(gpu.TextureDescriptor{Label: "spot map", Width: 8, Height: 8, Format: gpu.TextureFormatDepth32Float})
	require.NoError(t, err)
	frame.textures[RefSpotShadow(1)] = spotMap

	require.NoError(t, b.BeginFrame())
	base := postprocess.Context{Backend: b, Fallback: fallback, FallbackDepth: fallbackDepth}
	_, err = g.run(frame, base, postprocess.RequiresDirectionalLight,
		func() error { return nil }, func(string) func() { return func() {} })
	require.NoError(t, err)
	require.NoError(t, b.EndFrame())

	var deferred gpu.Command
	for _, d := range b.Filter(gpu.CommandDraw) {
		if d.Pass == shader.KeyDeferredShading {
			deferred = d
		}
	}
	require.Equal(t, shader.KeyDeferredShading, deferred.Program)
	assert.Equal(t, "gbuffer color 0", deferred.Texture(postprocess.SlotInput))
	assert.Equal(t, "gbuffer color 1", deferred.Texture(target.GBufferSlots[target.GBufferNormal]))
	assert.Equal(t, "screen_space_shadow color 0", deferred.Texture(postprocess.SlotSSS))
	assert.Equal(t, "depth snapshot", deferred.Texture(postprocess.SlotDepth))
	assert.Equal(t, "sky", deferred.Texture(postprocess.SlotSkybox))
	assert.Equal(t, "fallback depth", deferred.Texture(postprocess.SpotShadowSlot(0)))
	assert.Equal(t, "spot map", deferred.Texture(postprocess.SpotShadowSlot(1)))
	assert.Equal(t, "fallback depth", deferred.Texture(postprocess.SpotShadowSlot(postprocess.MaxSpotShadows-1)))
	assert.Same(t, set.DeferredShading.RenderTarget(), frame.targets[g.Output()], "disabled reflections and fog pass the lit image through")
}
