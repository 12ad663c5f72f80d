package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPP() PreProcessor {
	return NewPreProcessor(uniform.DefaultCatalog(uniform.DefaultMaxSpotLights, uniform.DefaultMaxPointLights))
}

func TestProcessBlocksBindInDeclarationOrder(t *testing.T) {
	pp := newPP()
	src := "// @oxy:block Camera\n// @oxy:block Transformations\n@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }"
	out, err := pp.Process(src)
	require.NoError(t, err)

	assert.Equal(t, []string{uniform.BlockCamera, uniform.BlockTransformations}, pp.Blocks())
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> uCamera: Camera;")
	assert.Contains(t, out, "@group(0) @binding(1) var<uniform> uTransformations: Transformations;")
	assert.Contains(t, out, "near: vec4<f32>,")
	assert.Contains(t, out, "view: mat4x4<f32>,")
}

func TestProcessStructArrayBlock(t *testing.T) {
	out, err := newPP().Process("// @oxy:block SpotLight")
	require.NoError(t, err)
	assert.Contains(t, out, "struct SpotLightLightsElement {")
	assert.Contains(t, out, "lights: array<SpotLightLightsElement, 8>,")
	assert.Contains(t, out, "intensity: vec4<f32>,")
}

func TestProcessTextureSlots(t *testing.T) {
	pp := newPP()
	out, err := pp.Process("// @oxy:material\n// @oxy:texture input\n// @oxy:texture depth depth")
	require.NoError(t, err)

	assert.Equal(t, []TextureSlot{{Name: "input"}, {Name: "depth", Depth: true}}, pp.Textures())
	assert.Contains(t, out, "@group(1) @binding(0) var<uniform> material: MaterialParams;")
	assert.Contains(t, out, "@group(1) @binding(1) var input: texture_2d<f32>;")
	assert.Contains(t, out, "@group(1) @binding(2) var inputSampler: sampler;")
	assert.Contains(t, out, "@group(1) @binding(3) var depth: texture_depth_2d;")
	assert.Contains(t, out, "@group(1) @binding(4) var depthSampler: sampler;")
}

func TestProcessRejectsBadAnnotations(t *testing.T) {
	cases := map[string]string{
		"unknown block":     "// @oxy:block Fog",
		"duplicate block":   "// @oxy:block Camera\n// @oxy:block Camera",
		"duplicate texture": "// @oxy:texture a\n// @oxy:texture a",
		"bad kind":          "// @oxy:texture a cube",
		"unknown type":      "// @oxy:storage x",
		"empty":             "// @oxy:",
		"two materials":     "// @oxy:material\n// @oxy:material",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newPP().Process(src)
			assert.Error(t, err)
		})
	}
}

func TestProcessResetsBetweenCalls(t *testing.T) {
	pp := newPP()
	_, err := pp.Process("// @oxy:block Camera\n// @oxy:texture a")
	require.NoError(t, err)
	_, err = pp.Process("// @oxy:fullscreen")
	require.NoError(t, err)
	assert.Empty(t, pp.Blocks())
	assert.Empty(t, pp.Textures())
	require.Len(t, pp.Declarations(), 1)
	assert.Equal(t, AnnotationTypeFullscreen, pp.Declarations()[0].Type)
}

func TestNewShaderDetectsBindingCollision(t *testing.T) {
	src := "// @oxy:fullscreen\n// @oxy:texture input\n@group(1) @binding(1) var other: texture_2d<f32>;"
	_, err := NewShader("collide", src, newPP())
	assert.ErrorContains(t, err, "@binding(1)")
}

func TestEveryBuiltinProcesses(t *testing.T) {
	lib := NewLibrary(newPP())
	keys := BuiltinKeys()
	require.Contains(t, keys, KeyDeferredShading)
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			s, err := lib.Get(key)
			require.NoError(t, err)
			assert.Equal(t, "vs_main", s.VertexEntryPoint())
			assert.Equal(t, "fs_main", s.FragmentEntryPoint())
			assert.NotContains(t, s.Source(), "@oxy:")
		})
	}
}

func TestFullscreenPassesReadInputFirst(t *testing.T) {
	lib := NewLibrary(newPP())
	for _, key := range BuiltinKeys() {
		s, err := lib.Get(key)
		require.NoError(t, err)
		if !strings.Contains(s.Source(), "FullscreenOut") {
			continue
		}
		require.NotEmpty(t, s.Textures(), key)
		assert.Equal(t, "input", s.Textures()[0].Name, key)
	}
}

func TestLibraryRegisterOverridesBuiltin(t *testing.T) {
	lib := NewLibrary(newPP())
	lib.Register(KeyVignette, "// @oxy:fullscreen\n// @oxy:texture input\n@fragment fn main_fs() {}")
	s, err := lib.Get(KeyVignette)
	require.NoError(t, err)
	assert.Equal(t, "main_fs", s.FragmentEntryPoint())

	_, err = lib.Get("nope")
	assert.Error(t, err)
}

func TestCompileCachesProgram(t *testing.T) {
	b := gpu.NewRecordingBackend()
	s, err := NewLibrary(newPP()).Get(KeyToneMapping)
	require.NoError(t, err)

	p1, err := s.Compile(b)
	require.NoError(t, err)
	p2, err := s.Compile(b)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Len(t, b.Filter(gpu.CommandCreateProgram), 1)
	assert.Equal(t, KeyToneMapping, s.Program().Key())
}
