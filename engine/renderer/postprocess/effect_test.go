package postprocess

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestApplyOverrideChangesOnlySetFields(t *testing.T) {
	f := newFixture(t)
	tone, err := NewToneMapping(f.b, f.lib, DefaultToneMappingParams())
	require.NoError(t, err)

	require.NoError(t, tone.ApplyOverride(&ToneMappingOverride{Exposure: ptr(float32(2))}))
	eff := tone.Effective()
	assert.Equal(t, float32(2), eff.Exposure)
	assert.Equal(t, float32(1), eff.Gamma)
	assert.Equal(t, ToneMapACES, eff.Operator)

	base := tone.Params()
	base.Gamma = 2.2
	tone.SetParams(base)
	eff = tone.Effective()
	assert.Equal(t, float32(2), eff.Exposure)
	assert.Equal(t, float32(2.2), eff.Gamma)
	assert.Equal(t, float32(1), tone.Params().Exposure)

	tone.ClearOverride()
	assert.Equal(t, float32(1), tone.Effective().Exposure)
}

func TestOverrideCanDisablePass(t *testing.T) {
	f := newFixture(t)
	fxaa, err := NewFXAA(f.b, f.lib, DefaultFXAAParams())
	require.NoError(t, err)
	require.True(t, fxaa.Enabled())

	require.NoError(t, fxaa.ApplyOverride(&FXAAOverride{Enabled: ptr(false)}))
	assert.False(t, fxaa.Enabled())
	assert.True(t, fxaa.Params().Enabled)
}

func TestRenderUploadsEffectiveParams(t *testing.T) {
	f := newFixture(t)
	tone, err := NewToneMapping(f.b, f.lib, DefaultToneMappingParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	require.NoError(t, tone.ApplyOverride(&ToneMappingOverride{Exposure: ptr(float32(3)), Operator: ptr(ToneMapReinhard)}))

	require.NoError(t, tone.Render(&Context{Backend: f.b, Input: f.input, Fallback: f.ctx.Fallback}))
	draws := f.draws()
	require.Len(t, draws, 1)
	u := common.BytesToFloat32s(draws[0].Uniforms)
	require.Len(t, u, 4)
	assert.Equal(t, []float32{3, 1, 1, 0}, u)
}

func TestRenderWithoutInput(t *testing.T) {
	f := newFixture(t)
	fxaa, err := NewFXAA(f.b, f.lib, DefaultFXAAParams(), WithInitialSize(8, 8))
	require.NoError(t, err)
	assert.ErrorIs(t, fxaa.Render(&Context{Backend: f.b}), ErrNoInput)
}

func TestMissingSlotsUseFallbacks(t *testing.T) {
	f := newFixture(t)
	deferred, err := NewDeferredShading(f.b, f.lib, DefaultDeferredShadingParams(), WithInitialSize(64, 32))
	require.NoError(t, err)

	ctx := *f.ctx
	ctx.Input = f.input
	require.NoError(t, deferred.Render(&ctx))

	draw := f.draws()[0]
	assert.Equal(t, "scene color 0", draw.Texture(SlotInput))
	assert.Equal(t, "fallback", draw.Texture(SlotAO))
	assert.Equal(t, "fallback depth", draw.Texture(SlotShadowMap))
	assert.Equal(t, "fallback depth", draw.Texture(SlotDepth))
	assert.Len(t, draw.Textures, 9)
}

func TestRenderNeutralClearsWithoutDrawing(t *testing.T) {
	f := newFixture(t)
	sss, err := NewScreenSpaceShadow(f.b, f.lib, DefaultScreenSpaceShadowParams(), WithInitialSize(64, 32))
	require.NoError(t, err)
	assert.Equal(t, RequiresDirectionalLight, sss.Requirements())

	require.NoError(t, sss.RenderNeutral(f.ctx))
	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	require.Len(t, passes, 1)
	assert.Equal(t, gpu.LoadOpClear, passes[0].ColorLoad)
	assert.Equal(t, []string{"screen_space_shadow color 0"}, passes[0].Colors)
	assert.Empty(t, f.draws())
}

func TestAmbientOcclusionReadsPreviousResultAsHistory(t *testing.T) {
	f := newFixture(t)
	ao, err := NewAmbientOcclusion(f.b, f.lib, DefaultAmbientOcclusionParams(), WithInitialSize(64, 32))
	require.NoError(t, err)

	ctx := *f.ctx
	ctx.Input = f.input
	require.NoError(t, ao.Render(&ctx))
	require.NoError(t, ao.Render(&ctx))

	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	draws := f.draws()
	require.Len(t, draws, 2)
	assert.Equal(t, passes[0].Colors[0], draws[1].Texture(SlotHistory))
	assert.Equal(t, draws[0].Texture(SlotHistory), passes[1].Colors[0])
	assert.NotEqual(t, passes[0].Colors[0], passes[1].Colors[0])
	assert.Equal(t, passes[1].Colors[0], ao.RenderTarget().Texture().Label())
}

func TestBloomExtractsAtHalfResolution(t *testing.T) {
	f := newFixture(t)
	bloom, err := NewBloom(f.b, f.lib, enabled(DefaultBloomParams()), WithInitialSize(64, 32))
	require.NoError(t, err)
	assert.Equal(t, common.Size{Width: 32, Height: 16}, bloom.Bright().Size())
	assert.Len(t, bloom.Shaders(), 2)

	ctx := *f.ctx
	ctx.Input = f.input
	ctx.ToFramebuffer = true
	require.NoError(t, bloom.Render(&ctx))

	passes := f.b.Filter(gpu.CommandBeginRenderPass)
	require.Len(t, passes, 2)
	assert.Equal(t, "bloom_extract", passes[0].Label)
	assert.False(t, passes[0].Framebuffer)
	assert.True(t, passes[1].Framebuffer)
	assert.Equal(t, "bloom_extract color 0", f.draws()[1].Texture(SlotBloom))
	assert.Nil(t, ctx.Textures)

	require.NoError(t, bloom.SetSize(128, 64))
	assert.Equal(t, common.Size{Width: 64, Height: 32}, bloom.Bright().Size())
}

func TestHeightFogDisabledUploadsZeroDensity(t *testing.T) {
	p := DefaultHeightFogParams()
	require.False(t, p.Enabled)
	u := common.BytesToFloat32s(p.Uniforms())
	require.Len(t, u, 8)
	assert.Zero(t, u[3])
	assert.Equal(t, p.Density, common.BytesToFloat32s(enabled(p).Uniforms())[3])
}
