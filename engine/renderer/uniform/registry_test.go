package uniform

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *gpu.RecordingBackend) {
	t.Helper()
	b := gpu.NewRecordingBackend()
	r, err := NewRegistry(b, DefaultCatalog(DefaultMaxSpotLights, DefaultMaxPointLights))
	require.NoError(t, err)
	return r, b
}

func TestPaddingRule(t *testing.T) {
	assert.Equal(t, 4, TypeFloat.PaddedFloats())
	assert.Equal(t, 4, TypeVec2.PaddedFloats())
	assert.Equal(t, 4, TypeVec3.PaddedFloats())
	assert.Equal(t, 4, TypeVec4.PaddedFloats())
	assert.Equal(t, 4, TypeColor.PaddedFloats())
	assert.Equal(t, 16, TypeMat4.PaddedFloats())
}

func TestBlockIndicesFollowCatalog(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, []string{
		BlockTransformations, BlockCamera, BlockDirectionalLight, BlockSpotLight,
		BlockPointLight, BlockTimeline, BlockCommon,
	}, r.Names())

	bindings, err := r.Resolve([]string{BlockCommon, BlockCamera})
	require.NoError(t, err)
	assert.Equal(t, 6, bindings[0].Index)
	assert.Equal(t, 1, bindings[1].Index)

	_, err = r.Resolve([]string{"Fog"})
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

func TestDuplicateBlockRejected(t *testing.T) {
	a := BlockSpec{Name: "A", Entries: []Entry{{Name: "x", Type: TypeFloat}}}
	_, err := NewRegistry(gpu.NewRecordingBackend(), []BlockSpec{a, a})
	assert.ErrorContains(t, err, `duplicate uniform block "A"`)
}

func TestCommonLayout(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.Set(BlockCommon, "resolution", [2]float32{800, 600}))
	require.NoError(t, r.Set(BlockCommon, "pointLightCount", 3))
	require.NoError(t, r.Set(BlockCommon, "spotShadowCount", 2))

	f := common.BytesToFloat32s(mustBytes(t, r, BlockCommon))
	require.Len(t, f, 16)
	assert.Equal(t, []float32{800, 600, 0, 0}, f[0:4])
	assert.Equal(t, float32(3), f[8])
	assert.Equal(t, float32(2), f[12])
}

func TestSpotLightIntensityRoundTrip(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.SetField(BlockSpotLight, EntryLights, 2, "intensity", float32(3.5)))

	got, err := r.GetField(BlockSpotLight, EntryLights, 2, "intensity")
	require.NoError(t, err)
	assert.Equal(t, []float32{3.5}, got)

	// position, direction, color precede intensity; each element is 56 floats wide.
	f := common.BytesToFloat32s(mustBytes(t, r, BlockSpotLight))
	assert.Equal(t, float32(3.5), f[2*56+12])
	assert.Len(t, f, 56*DefaultMaxSpotLights)
}

func TestSpotLightShadowSlotPrecedesMatrix(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.SetField(BlockSpotLight, EntryLights, 1, "shadowSlot", 3))
	require.NoError(t, r.SetField(BlockSpotLight, EntryLights, 1, "shadowMatrix", [16]float32{0: 7}))

	f := common.BytesToFloat32s(mustBytes(t, r, BlockSpotLight))
	assert.Equal(t, float32(3), f[56+36])
	assert.Equal(t, float32(7), f[56+40], "the matrix starts on a 16-byte boundary")
}

func TestSetFieldBounds(t *testing.T) {
	r, _ := newRegistry(t)
	assert.ErrorIs(t, r.SetField(BlockPointLight, EntryLights, DefaultMaxPointLights, "intensity", 1.0), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.SetField(BlockPointLight, EntryLights, 0, "angle", 1.0), ErrUnknownEntry)
	assert.ErrorIs(t, r.SetField(BlockPointLight, EntryLights, 0, "color", [2]float32{}), ErrTypeMismatch)
}

func TestSetTypeChecks(t *testing.T) {
	r, _ := newRegistry(t)
	assert.ErrorIs(t, r.Set(BlockCamera, "view", [4]float32{}), ErrTypeMismatch)
	assert.ErrorIs(t, r.Set(BlockSpotLight, EntryLights, 1.0), ErrTypeMismatch)
	assert.ErrorIs(t, r.Set(BlockCamera, "zoom", 1.0), ErrUnknownEntry)
	assert.NoError(t, r.Set(BlockCamera, "fov", 1.0))
	assert.ErrorIs(t, r.Set("Nope", "view", 1.0), ErrUnknownBlock)

	require.NoError(t, r.Set(BlockDirectionalLight, "color", [3]float32{1, 0.5, 0}))
	got, err := r.Get(BlockDirectionalLight, "color")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.5, 0, 1}, got)
}

func TestFlushWritesOnlyDirtyBlocks(t *testing.T) {
	r, b := newRegistry(t)
	require.NoError(t, r.Flush())
	b.Reset()

	require.NoError(t, r.Set(BlockTimeline, "time", 1.25))
	require.NoError(t, r.Flush())
	writes := b.Filter(gpu.CommandWriteBuffer)
	require.Len(t, writes, 1)
	assert.Equal(t, BlockTimeline, writes[0].Label)

	block, ok := r.Block(BlockTimeline)
	require.True(t, ok)
	assert.Equal(t, float32(1.25), common.BytesToFloat32s(b.BufferData(block.Buffer()))[0])
}

func TestClearZeroesBlock(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.SetField(BlockPointLight, EntryLights, 0, "intensity", 2.0))
	require.NoError(t, r.Clear(BlockPointLight))
	got, err := r.GetField(BlockPointLight, EntryLights, 0, "intensity")
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, got)
}

func mustBytes(t *testing.T, r *Registry, block string) []byte {
	t.Helper()
	data, err := r.Bytes(block)
	require.NoError(t, err)
	return data
}
