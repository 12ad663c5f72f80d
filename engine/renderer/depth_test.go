package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

func newDepthTargets(t *testing.T, b gpu.Backend, w, h int) (*target.RenderTarget, *target.RenderTarget) {
	t.Helper()
	owner, err := target.NewRenderTarget(b, "prepass", target.WithFormats(), target.WithDepth(), target.WithSize(w, h))
	require.NoError(t, err)
	color, err := target.NewRenderTarget(b, "color", target.WithSize(w, h))
	require.NoError(t, err)
	return owner, color
}

func TestAliasDepthSharesTexture(t *testing.T) {
	b := gpu.NewRecordingBackend()
	owner, color := newDepthTargets(t, b, 8, 8)
	d := NewDepthState(b)

	d.AliasDepth(owner, color)
	assert.Same(t, owner.Depth(), color.Depth())
	assert.Empty(t, b.Filter(gpu.CommandCopyTexture))
}

func TestSnapshotDepthReusesUntilWritten(t *testing.T) {
	b := gpu.NewRecordingBackend()
	owner, _ := newDepthTargets(t, b, 8, 8)
	d := NewDepthState(b)
	require.NoError(t, b.BeginFrame())

	assert.True(t, d.Stale(owner))
	first, err := d.SnapshotDepth(owner)
	require.NoError(t, err)
	assert.Equal(t, "depth snapshot", first.Label())
	assert.False(t, d.Stale(owner))

	again, err := d.SnapshotDepth(owner)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, d.Copies())

	d.MarkWritten()
	assert.True(t, d.Stale(owner))
	_, err = d.SnapshotDepth(owner)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Copies())

	copies := b.Filter(gpu.CommandCopyTexture)
	require.Len(t, copies, 2)
	assert.Equal(t, "prepass depth", copies[0].Src)
	assert.Equal(t, "depth snapshot", copies[0].Dst)
	require.NoError(t, b.EndFrame())
}

func TestSnapshotDepthFollowsResize(t *testing.T) {
	b := gpu.NewRecordingBackend()
	owner, _ := newDepthTargets(t, b, 8, 8)
	d := NewDepthState(b)
	require.NoError(t, b.BeginFrame())

	_, err := d.SnapshotDepth(owner)
	require.NoError(t, err)
	require.NoError(t, owner.SetSize(4, 2))
	assert.True(t, d.Stale(owner))

	snap, err := d.SnapshotDepth(owner)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Width())
	assert.Equal(t, 2, snap.Height())
	require.NoError(t, b.EndFrame())
}

func TestSnapshotDepthInsidePassFails(t *testing.T) {
	b := gpu.NewRecordingBackend()
	owner, color := newDepthTargets(t, b, 8, 8)
	d := NewDepthState(b)
	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(color.PassDescriptor("open", gpu.LoadOpClear, clearBlack, gpu.LoadOpClear)))

	_, err := d.SnapshotDepth(owner)
	assert.Error(t, err)
}

func TestSnapshotDepthWithoutDepth(t *testing.T) {
	b := gpu.NewRecordingBackend()
	_, color := newDepthTargets(t, b, 8, 8)
	d := NewDepthState(b)

	_, err := d.SnapshotDepth(color)
	assert.ErrorContains(t, err, "has no depth")
	assert.True(t, d.Stale(color))
}
