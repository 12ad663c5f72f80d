package target

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSizeReallocatesOnlyOnChange(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "hdr", WithDepth(), WithSize(64, 32))
	require.NoError(t, err)
	gen := rt.Generation()

	require.NoError(t, rt.SetSize(64, 32))
	assert.Equal(t, gen, rt.Generation())
	assert.Len(t, b.Filter(gpu.CommandCreateTexture), 2)

	require.NoError(t, rt.SetSize(128, 64))
	assert.Equal(t, gen+1, rt.Generation())
	assert.Equal(t, common.Size{Width: 128, Height: 64}, rt.Size())
	assert.Len(t, b.Filter(gpu.CommandReleaseTexture), 2)
}

func TestLastSetSizeWins(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "hdr", WithSize(10, 10))
	require.NoError(t, err)

	require.NoError(t, rt.SetSize(20, 30))
	require.NoError(t, rt.SetSize(40, 50))
	assert.Equal(t, common.Size{Width: 40, Height: 50}, rt.Size())
	assert.Equal(t, 40, rt.Texture().Width())
}

func TestScaleDivisor(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "bloom", WithScale(4), WithSize(802, 3))
	require.NoError(t, err)
	assert.Equal(t, common.Size{Width: 200, Height: 1}, rt.Size())
	assert.Equal(t, 1, gbufferScale(t))
}

func gbufferScale(t *testing.T) int {
	t.Helper()
	g, err := NewGBuffer(gpu.NewRecordingBackend(), 8, 8)
	require.NoError(t, err)
	return g.Scale()
}

func TestInvalidSize(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "x")
	require.NoError(t, err)
	assert.ErrorIs(t, rt.SetSize(0, 10), ErrInvalidSize)
	assert.Nil(t, rt.Texture())
}

func TestDoubleBufferSwap(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "pp", WithDoubleBuffer(), WithSize(4, 4))
	require.NoError(t, err)

	w := rt.Write()[0]
	r := rt.Read()[0]
	assert.NotEqual(t, w.Label(), r.Label())
	rt.Swap()
	assert.Equal(t, w.Label(), rt.Read()[0].Label())
	assert.Equal(t, r.Label(), rt.Write()[0].Label())
}

func TestSingleBufferReadIsWrite(t *testing.T) {
	b := gpu.NewRecordingBackend()
	rt, err := NewRenderTarget(b, "single", WithSize(4, 4))
	require.NoError(t, err)
	rt.Swap()
	assert.Equal(t, rt.Read()[0].Label(), rt.Write()[0].Label())
}

func TestBorrowedDepthIsNeverReleased(t *testing.T) {
	b := gpu.NewRecordingBackend()
	owner, err := NewRenderTarget(b, "prepass", WithFormats(), WithDepth(), WithSize(4, 4))
	require.NoError(t, err)
	borrower, err := NewRenderTarget(b, "gbuffer", WithSize(4, 4))
	require.NoError(t, err)

	borrower.AttachDepth(owner.Depth())
	assert.Equal(t, "prepass depth", borrower.Depth().Label())
	assert.Nil(t, borrower.OwnedDepth())

	b.Reset()
	borrower.Release()
	releases := b.Filter(gpu.CommandReleaseTexture)
	require.Len(t, releases, 1)
	assert.Equal(t, "gbuffer color 0", releases[0].Label)
}

func TestPassDescriptor(t *testing.T) {
	b := gpu.NewRecordingBackend()
	g, err := NewGBuffer(b, 16, 16)
	require.NoError(t, err)
	depth, err := NewRenderTarget(b, "prepass", WithFormats(), WithDepth(), WithSize(16, 16))
	require.NoError(t, err)
	g.AttachDepth(depth.Depth())

	desc := g.PassDescriptor("gbuffer", gpu.LoadOpClear, [4]float64{}, gpu.LoadOpLoad)
	require.Len(t, desc.Colors, 4)
	require.NotNil(t, desc.Depth)
	assert.Equal(t, gpu.LoadOpLoad, desc.Depth.Load)
	assert.Equal(t, gpu.TextureFormatRGBA16Float, desc.Colors[GBufferNormal].Texture.Format())

	bindings := g.Bindings()
	require.Len(t, bindings, 4)
	assert.Equal(t, "gEmissive", bindings[GBufferEmissive].Name)
}
