package model

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

// model is the implementation of the Model interface.
type model struct {
	mu *sync.Mutex

	name     string
	vertices []GPUVertex
	indices  []uint32

	boundingMin    common.Vec3
	boundingMax    common.Vec3
	boundingRadius float32

	geometry gpu.Geometry
}

// Model is CPU-side indexed mesh data that uploads itself to the GPU on first use.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices retrieves the vertex list.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices retrieves the triangle index list.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// IndexCount returns the number of indices.
	IndexCount() int

	// Bounds returns the axis-aligned bounding box in model space.
	//
	// Returns:
	//   - common.Vec3: the minimum corner
	//   - common.Vec3: the maximum corner
	Bounds() (common.Vec3, common.Vec3)

	// BoundingRadius returns the radius of the bounding sphere centered at the model origin.
	//
	// Returns:
	//   - float32: the radius
	BoundingRadius() float32

	// Geometry uploads the mesh on the first call and returns the cached geometry afterwards.
	//
	// Parameters:
	//   - backend: the GPU backend
	//
	// Returns:
	//   - gpu.Geometry: the uploaded geometry
	//   - error: an upload error
	Geometry(backend gpu.Backend) (gpu.Geometry, error)

	// Release frees the uploaded geometry. A later Geometry call uploads again.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model from the provided options and computes its bounds.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{mu: &sync.Mutex{}}
	for _, opt := range options {
		opt(m)
	}
	m.computeBounds()
	return m
}

func (m *model) computeBounds() {
	if len(m.vertices) == 0 {
		return
	}
	m.boundingMin = m.vertices[0].Position
	m.boundingMax = m.vertices[0].Position
	for _, v := range m.vertices {
		for i := range 3 {
			m.boundingMin[i] = math32.Min(m.boundingMin[i], v.Position[i])
			m.boundingMax[i] = math32.Max(m.boundingMax[i], v.Position[i])
		}
		m.boundingRadius = math32.Max(m.boundingRadius, common.Length3(v.Position))
	}
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	return m.vertices
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) IndexCount() int {
	return len(m.indices)
}

func (m *model) Bounds() (common.Vec3, common.Vec3) {
	return m.boundingMin, m.boundingMax
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Geometry(backend gpu.Backend) (gpu.Geometry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.geometry != nil {
		return m.geometry, nil
	}
	g, err := backend.CreateGeometry(m.name, MarshalVertices(m.vertices), MarshalIndices(m.indices), len(m.indices))
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.name, err)
	}
	m.geometry = g
	return g, nil
}

func (m *model) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.geometry != nil {
		m.geometry.Release()
		m.geometry = nil
	}
}
