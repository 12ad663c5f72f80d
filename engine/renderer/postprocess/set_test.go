package postprocess

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneChainDefaults(t *testing.T) {
	f := newFixture(t)
	set, err := NewSet(f.b, f.lib, DefaultSettings(), 64, 32)
	require.NoError(t, err)

	var names, on []string
	for _, p := range set.SceneChain().Passes() {
		names = append(names, p.Name())
		if p.Enabled() {
			on = append(on, p.Name())
		}
	}
	assert.Equal(t, []string{"fxaa", "depth_of_field", "bloom", "streak", "tone_mapping", "vignette", "chromatic_aberration", "glitch"}, names)
	assert.Equal(t, []string{"fxaa", "tone_mapping"}, on)
	assert.Len(t, set.ScreenSpace(), 7)
}

func TestSetApplyOverrides(t *testing.T) {
	f := newFixture(t)
	set, err := NewSet(f.b, f.lib, DefaultSettings(), 64, 32)
	require.NoError(t, err)

	require.NoError(t, set.ApplyOverrides(&Overrides{
		Bloom:       &BloomOverride{Enabled: ptr(true), Strength: ptr(float32(2))},
		ToneMapping: &ToneMappingOverride{Enabled: ptr(false)},
	}))
	assert.True(t, set.Bloom.Enabled())
	assert.Equal(t, float32(2), set.Bloom.Effective().Strength)
	assert.False(t, set.ToneMapping.Enabled())

	_, err = set.SceneChain().Render(f.ctx, f.input, Destination{Framebuffer: true})
	require.NoError(t, err)
	var programs []string
	for _, d := range f.b.Filter(gpu.CommandDraw) {
		programs = append(programs, d.Program)
	}
	assert.Equal(t, []string{"fxaa", "bloom_extract", "bloom"}, programs)

	require.NoError(t, set.ApplyOverrides(nil))
	assert.False(t, set.Bloom.Enabled())
	assert.True(t, set.ToneMapping.Enabled())
}

func TestSetApplyReplacesBaseParams(t *testing.T) {
	f := newFixture(t)
	set, err := NewSet(f.b, f.lib, DefaultSettings(), 64, 32)
	require.NoError(t, err)

	s := DefaultSettings()
	s.Glitch.Enabled = true
	s.FXAA.Enabled = false
	set.Apply(s)
	assert.True(t, set.Glitch.Enabled())
	assert.False(t, set.FXAA.Enabled())
}
