package loader

import "fmt"

// gltfLoaderBackend is the loaderBackend for glTF 2.0 (.gltf) and its binary container (.glb).
type gltfLoaderBackend struct{}

var _ loaderBackend = gltfLoaderBackend{}

func (gltfLoaderBackend) Import(data []byte, baseDir string, binary bool) (*importedModel, error) {
	p, err := parseGLTF(data, baseDir, binary)
	if err != nil {
		return nil, err
	}

	m := &importedModel{}
	if m.meshes, err = extractMeshes(p); err != nil {
		return nil, err
	}
	if m.materials, err = extractMaterials(p); err != nil {
		return nil, err
	}
	if m.images, err = extractImages(p); err != nil {
		return nil, err
	}
	if m.roots, err = extractNodes(p); err != nil {
		return nil, err
	}

	for _, mesh := range m.meshes {
		for i, prim := range mesh.primitives {
			if prim.material >= len(m.materials) {
				return nil, fmt.Errorf("mesh %q primitive %d: material %d: %w", mesh.name, i, prim.material, errAccessorRange)
			}
		}
	}
	for i, mat := range m.materials {
		if mat.baseColorImage >= len(m.images) {
			return nil, fmt.Errorf("material %d: image %d: %w", i, mat.baseColorImage, errAccessorRange)
		}
	}
	return m, nil
}
