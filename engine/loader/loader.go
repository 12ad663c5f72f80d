package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// ErrUnsupportedFormat is returned by Load for a file extension no importer handles.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// baseColorSlot is the texture slot the gbuffer and forward programs sample the base color from.
const baseColorSlot = "baseColorMap"

// ProgramSource resolves material programs by library key. The renderer implements it.
type ProgramSource interface {
	Program(key string) (gpu.Program, []string, error)
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.Mutex

	backend  gpu.Backend
	programs ProgramSource

	opaqueKey      string
	transparentKey string

	importers map[string]loaderBackend
	cache     map[string]*uploadedModel
}

// uploadedModel is an imported file with its GPU resources. Every instance shares them.
type uploadedModel struct {
	imported *importedModel
	parts    [][]scene.MeshPart
	textures []gpu.Texture
}

// Loader imports model files into scene graph subtrees. Geometry, textures and materials are
// uploaded once per file and shared by every subtree built from it.
type Loader interface {
	// Load imports a .gltf or .glb file. A file that was loaded before is not read again.
	//
	// Parameters:
	//   - path: the model file
	//
	// Returns:
	//   - *scene.Group: a new group holding the file's default scene
	//   - error: ErrUnsupportedFormat, a read, parse or upload error
	Load(path string) (*scene.Group, error)

	// LoadReader imports a model from r and caches it under name. External buffer and image
	// files cannot be resolved, so the data must be self-contained.
	//
	// Parameters:
	//   - name: the cache key and group name
	//   - r: the model data
	//   - isGLB: true for the binary container
	//
	// Returns:
	//   - *scene.Group: a new group holding the model's default scene
	//   - error: a read, parse or upload error
	LoadReader(name string, r io.Reader, isGLB bool) (*scene.Group, error)

	// Evict releases the GPU resources of a cached model. Groups built from it must no longer
	// be rendered.
	//
	// Parameters:
	//   - name: the path or name the model was loaded under
	//
	// Returns:
	//   - bool: false if nothing was cached under name
	Evict(name string) bool

	// Release evicts every cached model.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a Loader uploading to backend and building materials with programs from
// programs.
//
// Parameters:
//   - backend: the GPU backend
//   - programs: the program library, usually the renderer
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(backend gpu.Backend, programs ProgramSource, options ...LoaderBuilderOption) Loader {
	l := &loader{
		backend:        backend,
		programs:       programs,
		opaqueKey:      shader.KeyGBuffer,
		transparentKey: shader.KeyForward,
		importers: map[string]loaderBackend{
			".gltf": gltfLoaderBackend{},
			".glb":  gltfLoaderBackend{},
		},
		cache: make(map[string]*uploadedModel),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*scene.Group, error) {
	ext := strings.ToLower(filepath.Ext(path))
	importer, ok := l.importers[ext]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	return l.instance(path, func() (*importedModel, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return importer.Import(data, filepath.Dir(path), ext == ".glb")
	})
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*scene.Group, error) {
	return l.instance(name, func() (*importedModel, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return gltfLoaderBackend{}.Import(data, "", isGLB)
	})
}

func (l *loader) Evict(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.cache[name]
	if !ok {
		return false
	}
	m.release()
	delete(l.cache, name)
	return true
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for name, m := range l.cache {
		m.release()
		delete(l.cache, name)
	}
}

// instance returns a new group for the model cached under name, importing and uploading it
// first when needed.
func (l *loader) instance(name string, load func() (*importedModel, error)) (*scene.Group, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.cache[name]
	if !ok {
		imported, err := load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		if m, err = l.upload(name, imported); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		l.cache[name] = m
		logger.L().Info("model loaded", "name", name,
			"meshes", len(imported.meshes), "materials", len(imported.materials), "images", len(imported.images))
	}

	roots := make([]scene.Actor, len(m.imported.roots))
	for i, n := range m.imported.roots {
		roots[i] = m.build(n)
	}
	return scene.NewGroup(name, scene.WithChildren(roots...)), nil
}

// upload creates the textures, materials and geometry of an imported model.
func (l *loader) upload(name string, imported *importedModel) (*uploadedModel, error) {
	m := &uploadedModel{imported: imported}
	fail := func(err error) (*uploadedModel, error) {
		m.release()
		return nil, err
	}

	textures := make(map[int]gpu.Texture)
	texture := func(image int) (gpu.Texture, error) {
		if tex, ok := textures[image]; ok {
			return tex, nil
		}
		data := imported.images[image]
		tex, err := l.backend.CreateTexture(gpu.TextureDescriptor{
			Label:  fmt.Sprintf("%s/image %d", name, image),
			Width:  data.Width,
			Height: data.Height,
			Format: gpu.TextureFormatRGBA8Unorm,
			Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		m.textures = append(m.textures, tex)
		if err := l.backend.WriteTexture(tex, data); err != nil {
			return nil, err
		}
		textures[image] = tex
		return tex, nil
	}

	materials := make([]material.Material, len(imported.materials))
	for i, src := range imported.materials {
		mat, err := l.material(src, texture)
		if err != nil {
			return fail(fmt.Errorf("material %q: %w", src.name, err))
		}
		materials[i] = mat
	}
	var fallback material.Material

	m.parts = make([][]scene.MeshPart, len(imported.meshes))
	for i, mesh := range imported.meshes {
		parts := make([]scene.MeshPart, len(mesh.primitives))
		for j, prim := range mesh.primitives {
			g, err := prim.model.Geometry(l.backend)
			if err != nil {
				return fail(fmt.Errorf("mesh %q: %w", mesh.name, err))
			}
			parts[j].Geometry = g

			if prim.material >= 0 {
				parts[j].Material = materials[prim.material]
				continue
			}
			if fallback == nil {
				mat, err := l.material(defaultMaterial, texture)
				if err != nil {
					return fail(err)
				}
				fallback = mat
			}
			parts[j].Material = fallback
		}
		m.parts[i] = parts
	}
	return m, nil
}

// material builds the render material of an imported material. Blended materials draw in the
// forward pass, the rest go to the G-buffer.
func (l *loader) material(src importedMaterial, texture func(int) (gpu.Texture, error)) (material.Material, error) {
	key := l.opaqueKey
	var state []pipeline.StateBuilderOption
	if src.alpha == alphaBlend {
		key = l.transparentKey
		state = append(state, pipeline.WithBlend(pipeline.BlendTransparent))
	}
	if src.doubleSided {
		state = append(state, pipeline.WithSide(pipeline.FaceDouble))
	}

	p, blocks, err := l.programs.Program(key)
	if err != nil {
		return nil, err
	}

	opts := []material.MaterialBuilderOption{
		material.WithName(src.name),
		material.WithProgram(p, blocks...),
		material.WithState(state...),
		material.WithBaseColor(src.baseColor),
		material.WithEmissive(src.emissive),
		material.WithMetallic(src.metallic),
		material.WithRoughness(src.roughness),
	}
	if src.alpha == alphaMask {
		opts = append(opts, material.WithAlphaTest(src.alphaCutoff))
	}
	if src.baseColorImage >= 0 {
		tex, err := texture(src.baseColorImage)
		if err != nil {
			return nil, err
		}
		opts = append(opts, material.WithTexture(baseColorSlot, tex, gpu.SamplerLinear))
	}
	return material.NewMaterial(opts...), nil
}

// build creates the actor of an imported node and its subtree.
func (m *uploadedModel) build(n importedNode) scene.Actor {
	children := make([]scene.Actor, len(n.children))
	for i, c := range n.children {
		children[i] = m.build(c)
	}

	opts := []scene.NodeOption{
		scene.WithPosition(n.position),
		scene.WithRotation(n.rotation),
		scene.WithScale(n.scale),
		scene.WithChildren(children...),
	}
	if n.mesh >= 0 {
		return scene.NewMesh(n.name, m.parts[n.mesh], opts...)
	}
	return scene.NewGroup(n.name, opts...)
}

func (m *uploadedModel) release() {
	for _, tex := range m.textures {
		tex.Release()
	}
	m.textures = nil
	for _, mesh := range m.imported.meshes {
		for _, prim := range mesh.primitives {
			prim.model.Release()
		}
	}
}
