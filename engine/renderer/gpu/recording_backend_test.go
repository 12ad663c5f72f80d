package gpu

import (
	"bytes"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTex(t *testing.T, b *RecordingBackend, label string, format TextureFormat) Texture {
	t.Helper()
	tex, err := b.CreateTexture(TextureDescriptor{Label: label, Width: 4, Height: 4, Format: format,
		Usage: TextureUsageRenderAttachment | TextureUsageSampled | TextureUsageCopySrc | TextureUsageCopyDst})
	require.NoError(t, err)
	return tex
}

func TestRecordingPassesDoNotNest(t *testing.T) {
	b := NewRecordingBackend()
	color := newTex(t, b, "color", TextureFormatRGBA8Unorm)

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{Label: "a", Colors: []ColorAttachment{{Texture: color}}}))
	assert.ErrorIs(t, b.BeginRenderPass(RenderPassDescriptor{Label: "b", Colors: []ColorAttachment{{Texture: color}}}), errPassOpen)
	assert.ErrorIs(t, b.EndFrame(), errPassOpen)
	require.NoError(t, b.EndRenderPass())
	assert.ErrorIs(t, b.EndRenderPass(), errNoPass)
	require.NoError(t, b.EndFrame())
}

func TestRecordingCopyOnlyOutsidePass(t *testing.T) {
	b := NewRecordingBackend()
	src := newTex(t, b, "src", TextureFormatDepth32Float)
	dst := newTex(t, b, "dst", TextureFormatDepth32Float)
	color := newTex(t, b, "color", TextureFormatRGBA8Unorm)

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{Label: "p", Colors: []ColorAttachment{{Texture: color}}}))
	assert.Error(t, b.CopyTexture(src, dst))
	require.NoError(t, b.EndRenderPass())
	assert.NoError(t, b.CopyTexture(src, dst))
	assert.Error(t, b.CopyTexture(src, color), "format mismatch must be rejected")
	require.NoError(t, b.EndFrame())

	copies := b.Filter(CommandCopyTexture)
	require.Len(t, copies, 1)
	assert.Equal(t, "src", copies[0].Src)
	assert.Equal(t, "dst", copies[0].Dst)
}

func TestRecordingRejectsSamplingAttachment(t *testing.T) {
	b := NewRecordingBackend()
	color := newTex(t, b, "color", TextureFormatRGBA8Unorm)
	depth := newTex(t, b, "depth", TextureFormatDepth32Float)
	prog, err := b.CreateProgram(ProgramDescriptor{Key: "p"})
	require.NoError(t, err)

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{
		Label:  "gbuffer",
		Colors: []ColorAttachment{{Texture: color}},
		Depth:  &DepthAttachment{Texture: depth},
	}))
	err = b.Draw(DrawCommand{Label: "d", Program: prog, State: pipeline.NewState(),
		Textures: []TextureBinding{{Name: "depth", Texture: depth}}})
	assert.ErrorContains(t, err, "attached to the open pass")
}

func TestRecordingSnapshotsBlocksPerDraw(t *testing.T) {
	b := NewRecordingBackend()
	color := newTex(t, b, "color", TextureFormatRGBA8Unorm)
	buf, err := b.CreateUniformBuffer("Transformations", 4)
	require.NoError(t, err)
	prog, err := b.CreateProgram(ProgramDescriptor{Key: "p"})
	require.NoError(t, err)
	require.NoError(t, b.BindUniformBlocks(prog, []BlockBinding{{Name: "Transformations", Buffer: buf}}))

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{Label: "p", Colors: []ColorAttachment{{Texture: color}}}))
	require.NoError(t, b.WriteBuffer(buf, 0, []byte{1, 0, 0, 0}))
	require.NoError(t, b.Draw(DrawCommand{Label: "first", Program: prog, State: pipeline.NewState()}))
	require.NoError(t, b.WriteBuffer(buf, 0, []byte{2, 0, 0, 0}))
	require.NoError(t, b.Draw(DrawCommand{Label: "second", Program: prog, State: pipeline.NewState()}))
	require.NoError(t, b.EndRenderPass())
	require.NoError(t, b.EndFrame())

	draws := b.Filter(CommandDraw)
	require.Len(t, draws, 2)
	assert.Equal(t, byte(1), draws[0].Blocks["Transformations"][0])
	assert.Equal(t, byte(2), draws[1].Blocks["Transformations"][0])
	assert.True(t, draws[0].Fullscreen)
}

func TestRecordingReleasedTextureRejected(t *testing.T) {
	b := NewRecordingBackend()
	color := newTex(t, b, "color", TextureFormatRGBA8Unorm)
	color.Release()
	color.Release()

	require.NoError(t, b.BeginFrame())
	assert.ErrorIs(t, b.BeginRenderPass(RenderPassDescriptor{Label: "p", Colors: []ColorAttachment{{Texture: color}}}), errReleased)
	assert.Len(t, b.Filter(CommandReleaseTexture), 1)
}

func TestRecordingWriteBufferBounds(t *testing.T) {
	b := NewRecordingBackend()
	buf, err := b.CreateUniformBuffer("Common", 8)
	require.NoError(t, err)
	assert.Error(t, b.WriteBuffer(buf, 4, make([]byte, 8)))
	require.NoError(t, b.WriteBuffer(buf, 4, []byte{9, 9, 9, 9}))
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 9}, b.BufferData(buf))
}

func TestRecordingWriteTextureSize(t *testing.T) {
	b := NewRecordingBackend()
	tex := newTex(t, b, "noise", TextureFormatRGBA8Unorm)
	assert.NoError(t, b.WriteTexture(tex, common.SolidTexture(4, 4, [4]uint8{1, 2, 3, 4})))
	assert.Error(t, b.WriteTexture(tex, common.SolidTexture(2, 2, [4]uint8{})))
}

func TestDumpListsCommands(t *testing.T) {
	b := NewRecordingBackend()
	b.ConfigureSurface(640, 480)
	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{Label: "final", Framebuffer: true}))
	require.NoError(t, b.EndRenderPass())
	require.NoError(t, b.EndFrame())
	b.Present()

	var out bytes.Buffer
	require.NoError(t, b.Dump(&out))
	assert.Contains(t, out.String(), `BeginRenderPass "final" framebuffer`)
	assert.Contains(t, out.String(), `ConfigureSurface "surface" 640x480`)
	assert.Equal(t, common.Size{Width: 640, Height: 480}, b.SurfaceSize())
}

func TestTextureFormatString(t *testing.T) {
	assert.Equal(t, "Depth32Float", TextureFormatDepth32Float.String())
	assert.Equal(t, "TextureFormat(99)", TextureFormat(99).String())
	assert.True(t, TextureFormatDepth32Float.IsDepth())
	assert.False(t, TextureFormatR32Float.IsDepth())
}

func TestGPUBackendScenario(t *testing.T) {
	t.Skip("Need software GPU on CI")

	b, err := NewWGPUBackend(nil, WithForceSoftwareRenderer(true))
	require.NoError(t, err)
	tex, err := b.CreateTexture(TextureDescriptor{Label: "t", Width: 8, Height: 8, Format: TextureFormatRGBA8Unorm,
		Usage: TextureUsageRenderAttachment})
	require.NoError(t, err)
	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderPass(RenderPassDescriptor{Label: "clear", Colors: []ColorAttachment{{Texture: tex, Load: LoadOpClear}}}))
	require.NoError(t, b.EndRenderPass())
	require.NoError(t, b.EndFrame())
}
