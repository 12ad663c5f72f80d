package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
)

// extractMeshes converts every glTF mesh into one model per primitive.
func extractMeshes(p *gltfParser) ([]importedMesh, error) {
	out := make([]importedMesh, len(p.doc.Meshes))
	for mi, mesh := range p.doc.Meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("mesh %d", mi)
		}
		out[mi].name = name
		for pi := range mesh.Primitives {
			prim, err := extractPrimitive(p, &mesh.Primitives[pi], fmt.Sprintf("%s/%d", name, pi))
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			out[mi].primitives = append(out[mi].primitives, prim)
		}
	}
	return out, nil
}

func extractPrimitive(p *gltfParser, prim *gltfPrimitive, name string) (importedPrimitive, error) {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return importedPrimitive{}, fmt.Errorf("%w: primitive mode %d, only triangles are drawn", errUnsupportedData, *prim.Mode)
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return importedPrimitive{}, fmt.Errorf("%w: no POSITION attribute", errUnsupportedData)
	}
	positions, err := p.readFloats(posIndex, "VEC3")
	if err != nil {
		return importedPrimitive{}, fmt.Errorf("positions: %w", err)
	}
	vertices := make([]model.GPUVertex, len(positions)/3)
	for i := range vertices {
		copy(vertices[i].Position[:], positions[i*3:i*3+3])
	}

	hasNormals := false
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readFloats(idx, "VEC3")
		if err != nil {
			return importedPrimitive{}, fmt.Errorf("normals: %w", err)
		}
		for i := range min(len(vertices), len(normals)/3) {
			copy(vertices[i].Normal[:], normals[i*3:i*3+3])
		}
		hasNormals = true
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readFloats(idx, "VEC2")
		if err != nil {
			return importedPrimitive{}, fmt.Errorf("texcoords: %w", err)
		}
		for i := range min(len(vertices), len(uvs)/2) {
			copy(vertices[i].TexCoord[:], uvs[i*2:i*2+2])
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readIndices(*prim.Indices); err != nil {
			return importedPrimitive{}, fmt.Errorf("indices: %w", err)
		}
		for _, ix := range indices {
			if int(ix) >= len(vertices) {
				return importedPrimitive{}, fmt.Errorf("index %d of %d vertices: %w", ix, len(vertices), errAccessorRange)
			}
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return importedPrimitive{}, fmt.Errorf("%w: %d indices is not a triangle list", errUnsupportedData, len(indices))
	}
	if !hasNormals {
		generateNormals(vertices, indices)
	}

	material := -1
	if prim.Material != nil {
		material = *prim.Material
	}
	return importedPrimitive{
		model:    model.NewModel(model.WithName(name), model.WithVertices(vertices), model.WithIndices(indices)),
		material: material,
	}, nil
}

// generateNormals sets smooth per-vertex normals from area-weighted face normals.
// Vertices on no triangle, or only on degenerate ones, point up.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]common.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := vertices[a].Position, vertices[b].Position, vertices[c].Position
		face := common.Cross3(common.Sub3(p1, p0), common.Sub3(p2, p0))
		for _, ix := range [3]uint32{a, b, c} {
			for k := range 3 {
				accum[ix][k] += face[k]
			}
		}
	}
	for i := range vertices {
		if common.Length3(accum[i]) < 1e-6 {
			vertices[i].Normal = common.Vec3{0, 1, 0}
			continue
		}
		vertices[i].Normal = common.Normalize3(accum[i])
	}
}
