package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// extractNodes builds the node trees of the default scene. Documents without scenes use every
// node that is nobody's child as a root.
func extractNodes(p *gltfParser) ([]importedNode, error) {
	doc := p.doc
	var roots []int
	switch {
	case len(doc.Scenes) > 0:
		s := 0
		if doc.Scene != nil {
			s = *doc.Scene
		}
		if s < 0 || s >= len(doc.Scenes) {
			return nil, fmt.Errorf("scene %d: %w", s, errAccessorRange)
		}
		roots = doc.Scenes[s].Nodes
	default:
		child := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				if c >= 0 && c < len(child) {
					child[c] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !child[i] {
				roots = append(roots, i)
			}
		}
	}

	visiting := make([]bool, len(doc.Nodes))
	out := make([]importedNode, 0, len(roots))
	for _, r := range roots {
		n, err := extractNode(doc, r, visiting)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func extractNode(doc *gltfDocument, index int, visiting []bool) (importedNode, error) {
	if index < 0 || index >= len(doc.Nodes) {
		return importedNode{}, fmt.Errorf("node %d: %w", index, errAccessorRange)
	}
	if visiting[index] {
		return importedNode{}, fmt.Errorf("node %d: %w: the node hierarchy has a cycle", index, errUnsupportedData)
	}
	visiting[index] = true
	defer func() { visiting[index] = false }()

	src := doc.Nodes[index]
	n := importedNode{name: src.Name, mesh: -1}
	if n.name == "" {
		n.name = fmt.Sprintf("node %d", index)
	}
	if src.Mesh != nil {
		if *src.Mesh < 0 || *src.Mesh >= len(doc.Meshes) {
			return importedNode{}, fmt.Errorf("node %q: mesh %d: %w", n.name, *src.Mesh, errAccessorRange)
		}
		n.mesh = *src.Mesh
	}
	n.position, n.rotation, n.scale = nodeTransform(src)

	for _, c := range src.Children {
		child, err := extractNode(doc, c, visiting)
		if err != nil {
			return importedNode{}, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

// nodeTransform returns a node's local translation, Euler rotation and scale.
func nodeTransform(n gltfNode) (common.Vec3, common.Vec3, common.Vec3) {
	if n.Matrix != nil {
		return common.Decompose(*n.Matrix)
	}
	pos, scale := common.Vec3{}, common.Vec3{1, 1, 1}
	if n.Translation != nil {
		pos = *n.Translation
	}
	if n.Scale != nil {
		scale = *n.Scale
	}
	var rot common.Vec3
	if n.Rotation != nil {
		_, rot, _ = common.Decompose(common.QuatMatrix(*n.Rotation))
	}
	return pos, rot, scale
}
