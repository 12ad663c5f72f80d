package loader

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
)

// loaderBackend decodes one model file format into engine-neutral import data.
type loaderBackend interface {
	// Import decodes a model.
	//
	// Parameters:
	//   - data: the file contents
	//   - baseDir: the directory external resources resolve against, or "" for none
	//   - binary: true for the binary container variant of the format
	//
	// Returns:
	//   - *importedModel: the decoded model
	//   - error: a decode error
	Import(data []byte, baseDir string, binary bool) (*importedModel, error)
}

// importedModel is a decoded model before any GPU upload.
type importedModel struct {
	meshes    []importedMesh
	materials []importedMaterial
	images    []common.TextureData
	roots     []importedNode
}

type importedMesh struct {
	name       string
	primitives []importedPrimitive
}

// importedPrimitive is one draw of a mesh. material is -1 for the default material.
type importedPrimitive struct {
	model    model.Model
	material int
}

// Alpha handling of an imported material.
type alphaMode int

const (
	alphaOpaque alphaMode = iota
	alphaMask
	alphaBlend
)

// importedMaterial holds metallic-roughness parameters. baseColorImage is -1 without a texture.
type importedMaterial struct {
	name           string
	baseColor      [4]float32
	metallic       float32
	roughness      float32
	emissive       [3]float32
	alpha          alphaMode
	alphaCutoff    float32
	doubleSided    bool
	baseColorImage int
}

// defaultMaterial is used by primitives without a material.
var defaultMaterial = importedMaterial{
	name:           "default",
	baseColor:      [4]float32{1, 1, 1, 1},
	metallic:       1,
	roughness:      1,
	alphaCutoff:    0.5,
	baseColorImage: -1,
}

// importedNode is a transform node. mesh is -1 for pure transform nodes.
type importedNode struct {
	name     string
	position common.Vec3
	rotation common.Vec3
	scale    common.Vec3
	mesh     int
	children []importedNode
}
