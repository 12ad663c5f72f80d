package postprocess

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	b     *gpu.RecordingBackend
	lib   *shader.Library
	input *target.RenderTarget
	ctx   *Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := gpu.NewRecordingBackend()
	lib := shader.NewLibrary(shader.NewPreProcessor(uniform.DefaultCatalog(uniform.DefaultMaxSpotLights, uniform.DefaultMaxPointLights)))
	input, err := target.NewRenderTarget(b, "scene", target.WithSize(64, 32))
	require.NoError(t, err)
	white, err := b.CreateTexture(gpu.TextureDescriptor{Label: "fallback", Width: 1, Height: 1, Format: gpu.TextureFormatRGBA8Unorm})
	require.NoError(t, err)
	depth, err := b.CreateTexture(gpu.TextureDescriptor{Label: "fallback depth", Width: 1, Height: 1, Format: gpu.TextureFormatDepth32Float})
	require.NoError(t, err)
	b.ConfigureSurface(64, 32)
	require.NoError(t, b.BeginFrame())
	return &fixture{
		b:     b,
		lib:   lib,
		input: input,
		ctx:   &Context{Backend: b, Fallback: white, FallbackDepth: depth},
	}
}

func (f *fixture) draws() []gpu.Command {
	return f.b.Filter(gpu.CommandDraw)
}

func enabled[P Params[P]](params P) P {
	return params.WithEnabled(true)
}

func TestChainSkipsDisabledAndRoutesLastToFramebuffer(t *testing.T) {
	f := newFixture(t)
	fxaa, err := NewFXAA(f.b, f.lib, DefaultFXAAParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	vignette, err := NewVignette(f.b, f.lib, DefaultVignetteParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	tone, err := NewToneMapping(f.b, f.lib, DefaultToneMappingParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	require.False(t, vignette.Enabled())

	out, err := NewChain(fxaa, vignette, tone).Render(f.ctx, f.input, Destination{Framebuffer: true})
	require.NoError(t, err)
	assert.Nil(t, out)

	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	require.Len(t, passes, 2)
	assert.Equal(t, "fxaa", passes[0].Label)
	assert.Equal(t, []string{"fxaa color 0"}, passes[0].Colors)
	assert.Equal(t, "tone_mapping", passes[1].Label)
	assert.True(t, passes[1].Framebuffer)

	draws := f.draws()
	require.Len(t, draws, 2)
	assert.Equal(t, "scene color 0", draws[0].Texture(SlotInput))
	assert.Equal(t, "fxaa color 0", draws[1].Texture(SlotInput))
	assert.True(t, draws[1].Fullscreen)
	assert.False(t, draws[1].State.DepthTest)
}

func TestChainRoutesLastToTarget(t *testing.T) {
	f := newFixture(t)
	fxaa, err := NewFXAA(f.b, f.lib, DefaultFXAAParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	dst, err := target.NewRenderTarget(f.b, "camera", target.WithSize(64, 32))
	require.NoError(t, err)

	out, err := NewChain(fxaa).Render(f.ctx, f.input, Destination{Target: dst})
	require.NoError(t, err)
	assert.Same(t, dst, out)
	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	require.Len(t, passes, 1)
	assert.Equal(t, []string{"camera color 0"}, passes[0].Colors)
}

func TestChainWithoutDestinationReturnsLastPassTarget(t *testing.T) {
	f := newFixture(t)
	fxaa, err := NewFXAA(f.b, f.lib, DefaultFXAAParams(), WithInitialSize(64, 32))
	require.NoError(t, err)

	out, err := NewChain(fxaa).Render(f.ctx, f.input, Destination{})
	require.NoError(t, err)
	assert.Same(t, fxaa.RenderTarget(), out)
}

func TestChainWithNoEnabledPass(t *testing.T) {
	f := newFixture(t)
	vignette, err := NewVignette(f.b, f.lib, DefaultVignetteParams())
	require.NoError(t, err)
	chain := NewChain(vignette)

	assert.False(t, chain.HasEnabled())
	_, err = chain.Render(f.ctx, f.input, Destination{Framebuffer: true})
	assert.ErrorIs(t, err, ErrNoEnabledPass)
	assert.Empty(t, f.draws())

	_, err = NewChain().Render(f.ctx, f.input, Destination{})
	assert.ErrorIs(t, err, ErrNoEnabledPass)
}

func TestChainSetSizeResizesDisabledPasses(t *testing.T) {
	f := newFixture(t)
	vignette, err := NewVignette(f.b, f.lib, DefaultVignetteParams())
	require.NoError(t, err)
	require.NoError(t, NewChain(vignette).SetSize(100, 50))
	assert.Equal(t, common.Size{Width: 100, Height: 50}, vignette.RenderTarget().Size())
}
