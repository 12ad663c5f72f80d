package model

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// boxFaces lists each face of a unit box as (normal, u axis, v axis).
var boxFaces = [6][3]common.Vec3{
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
}

// NewBox creates an axis-aligned box centered at the origin with per-face normals.
//
// Parameters:
//   - name: the model name
//   - size: the edge lengths along X, Y, Z
//
// Returns:
//   - Model: the box
func NewBox(name string, size common.Vec3) Model {
	half := common.Vec3{size[0] / 2, size[1] / 2, size[2] / 2}
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range boxFaces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(vertices))
		for _, c := range corners {
			var p common.Vec3
			for i := range 3 {
				p[i] = (n[i] + u[i]*c[0] + v[i]*c[1]) * half[i]
			}
			vertices = append(vertices, GPUVertex{
				Position: p,
				Normal:   n,
				TexCoord: [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices(indices))
}

// NewQuad creates a quad in the XY plane facing +Z.
//
// Parameters:
//   - name: the model name
//   - width: extent along X
//   - height: extent along Y
//
// Returns:
//   - Model: the quad
func NewQuad(name string, width, height float32) Model {
	w, h := width/2, height/2
	n := [3]float32{0, 0, 1}
	vertices := []GPUVertex{
		{Position: [3]float32{-w, -h, 0}, Normal: n, TexCoord: [2]float32{0, 1}},
		{Position: [3]float32{w, -h, 0}, Normal: n, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{w, h, 0}, Normal: n, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{-w, h, 0}, Normal: n, TexCoord: [2]float32{0, 0}},
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices([]uint32{0, 1, 2, 0, 2, 3}))
}

// NewSphere creates a UV sphere centered at the origin.
//
// Parameters:
//   - name: the model name
//   - radius: the sphere radius
//   - segments: longitudinal segments, at least 3
//   - rings: latitudinal rings, at least 2
//
// Returns:
//   - Model: the sphere
func NewSphere(name string, radius float32, segments, rings int) Model {
	segments = max(segments, 3)
	rings = max(rings, 2)
	vertices := make([]GPUVertex, 0, (segments+1)*(rings+1))
	for r := 0; r <= rings; r++ {
		v := float32(r) / float32(rings)
		phi := v * math32.Pi
		for s := 0; s <= segments; s++ {
			u := float32(s) / float32(segments)
			theta := u * 2 * math32.Pi
			n := common.Vec3{math32.Sin(phi) * math32.Cos(theta), math32.Cos(phi), math32.Sin(phi) * math32.Sin(theta)}
			vertices = append(vertices, GPUVertex{
				Position: common.Vec3{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
				TexCoord: [2]float32{u, v},
			})
		}
	}
	indices := make([]uint32, 0, segments*rings*6)
	stride := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			indices = append(indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return NewModel(WithName(name), WithVertices(vertices), WithIndices(indices))
}
