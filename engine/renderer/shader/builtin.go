package shader

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed builtin/*.wgsl
var builtinFS embed.FS

// Keys of the built-in programs.
const (
	KeyDepth                 = "depth"
	KeyGBuffer               = "gbuffer"
	KeySkybox                = "skybox"
	KeyForward               = "forward"
	KeyScreenSpaceShadow     = "screen_space_shadow"
	KeyAmbientOcclusion      = "ambient_occlusion"
	KeyDeferredShading       = "deferred_shading"
	KeyScreenSpaceReflection = "screen_space_reflection"
	KeyLightShaft            = "light_shaft"
	KeyVolumetricLight       = "volumetric_light"
	KeyHeightFog             = "height_fog"
	KeyFXAA                  = "fxaa"
	KeyDepthOfField          = "depth_of_field"
	KeyBloomExtract          = "bloom_extract"
	KeyBloom                 = "bloom"
	KeyStreak                = "streak"
	KeyToneMapping           = "tone_mapping"
	KeyVignette              = "vignette"
	KeyChromaticAberration   = "chromatic_aberration"
	KeyGlitch                = "glitch"
)

// BuiltinSource returns the raw source of a built-in program.
//
// Parameters:
//   - key: the program key
//
// Returns:
//   - string: the annotated WGSL source
//   - error: an error if no built-in program has that key
func BuiltinSource(key string) (string, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", key+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("no built-in shader %q: %w", key, err)
	}
	return string(data), nil
}

// BuiltinKeys lists every built-in program key in lexical order.
func BuiltinKeys() []string {
	entries, _ := fs.ReadDir(builtinFS, "builtin")
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, strings.TrimSuffix(e.Name(), ".wgsl"))
	}
	sort.Strings(keys)
	return keys
}

// Library compiles shaders on demand and caches them by key. Sources registered with Register
// take precedence over the built-in set.
type Library struct {
	pp      PreProcessor
	sources map[string]string
	shaders map[string]Shader
}

// NewLibrary creates a Library over the given pre-processor.
//
// Parameters:
//   - pp: the pre-processor used for every shader
//
// Returns:
//   - *Library: the library
func NewLibrary(pp PreProcessor) *Library {
	return &Library{
		pp:      pp,
		sources: make(map[string]string),
		shaders: make(map[string]Shader),
	}
}

// Register sets the source of a key, replacing the built-in source and any cached shader.
//
// Parameters:
//   - key: the program key
//   - source: the annotated WGSL source
func (l *Library) Register(key, source string) {
	l.sources[key] = source
	delete(l.shaders, key)
}

// Get returns the processed shader for key.
//
// Parameters:
//   - key: the program key
//
// Returns:
//   - Shader: the processed shader
//   - error: an error for an unknown key or a pre-processing failure
func (l *Library) Get(key string) (Shader, error) {
	if s, ok := l.shaders[key]; ok {
		return s, nil
	}
	src, ok := l.sources[key]
	if !ok {
		var err error
		if src, err = BuiltinSource(key); err != nil {
			return nil, err
		}
	}
	s, err := NewShader(key, src, l.pp)
	if err != nil {
		return nil, err
	}
	l.shaders[key] = s
	return s, nil
}

// Lookup returns a previously processed shader by its program key.
//
// Parameters:
//   - key: the program key
//
// Returns:
//   - Shader: the shader
//   - bool: false if key has not been processed by this library
func (l *Library) Lookup(key string) (Shader, bool) {
	s, ok := l.shaders[key]
	return s, ok
}
