package scene

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Node is the state every actor shares: identity, flags, a local transform and its place in
// the tree. A node's world matrix is derived from its parent by Scene.UpdateTransforms; a
// child never owns its parent.
type Node struct {
	name          string
	enabled       atomic.Bool
	castShadow    bool
	receiveShadow bool

	position common.Vec3
	rotation common.Vec3
	scale    common.Vec3
	world    common.Mat4

	parent   *Node
	children []Actor
}

// NodeOption is a functional option applied to the Node of an actor during construction.
type NodeOption func(*Node)

func (n *Node) init(name string, opts []NodeOption) {
	n.name = name
	n.enabled.Store(true)
	n.castShadow = true
	n.receiveShadow = true
	n.scale = common.Vec3{1, 1, 1}
	for _, opt := range opts {
		opt(n)
	}
	n.world = n.LocalMatrix()
}

func (n *Node) node() *Node {
	return n
}

// Name returns the actor name.
func (n *Node) Name() string {
	return n.name
}

// Enabled reports whether the actor, and with it its subtree, takes part in traversal.
func (n *Node) Enabled() bool {
	return n.enabled.Load()
}

// SetEnabled toggles the actor.
func (n *Node) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// CastShadow reports whether the actor is drawn into shadow maps.
func (n *Node) CastShadow() bool {
	return n.castShadow
}

// SetCastShadow toggles shadow casting.
func (n *Node) SetCastShadow(cast bool) {
	n.castShadow = cast
}

// ReceiveShadow reports whether the actor is shadowed by others.
func (n *Node) ReceiveShadow() bool {
	return n.receiveShadow
}

// SetReceiveShadow toggles shadow receiving.
func (n *Node) SetReceiveShadow(receive bool) {
	n.receiveShadow = receive
}

// Position returns the position relative to the parent.
func (n *Node) Position() common.Vec3 {
	return n.position
}

// SetPosition sets the position relative to the parent.
func (n *Node) SetPosition(p common.Vec3) {
	n.position = p
}

// Rotation returns the Euler rotation in radians relative to the parent.
func (n *Node) Rotation() common.Vec3 {
	return n.rotation
}

// SetRotation sets the Euler rotation in radians.
func (n *Node) SetRotation(r common.Vec3) {
	n.rotation = r
}

// Scale returns the per-axis scale.
func (n *Node) Scale() common.Vec3 {
	return n.scale
}

// SetScale sets the per-axis scale.
func (n *Node) SetScale(s common.Vec3) {
	n.scale = s
}

// LocalMatrix composes the local transform.
func (n *Node) LocalMatrix() common.Mat4 {
	return common.ModelMatrix(n.position, n.rotation, n.scale)
}

// WorldMatrix returns the world matrix computed by the last transform update.
func (n *Node) WorldMatrix() common.Mat4 {
	return n.world
}

// WorldPosition returns the translation of the world matrix.
func (n *Node) WorldPosition() common.Vec3 {
	return common.Translation(n.world)
}

// Parent returns the parent node, or nil for a root-level actor.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children in insertion order.
func (n *Node) Children() []Actor {
	return n.children
}

// Add attaches children to the node, detaching each from its previous parent first.
//
// Parameters:
//   - children: the actors to attach
func (n *Node) Add(children ...Actor) {
	for _, c := range children {
		cn := c.node()
		if cn == n {
			continue
		}
		if cn.parent != nil {
			cn.parent.Remove(c)
		}
		cn.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches a direct child.
//
// Parameters:
//   - child: the actor to detach
//
// Returns:
//   - bool: false if child is not a direct child of the node
func (n *Node) Remove(child Actor) bool {
	cn := child.node()
	for i, c := range n.children {
		if c.node() == cn {
			n.children = append(n.children[:i], n.children[i+1:]...)
			cn.parent = nil
			return true
		}
	}
	return false
}

// updateWorld recomputes the world matrices of the node and its subtree.
func (n *Node) updateWorld(parent common.Mat4) {
	n.world = common.Mul4(parent, n.LocalMatrix())
	for _, c := range n.children {
		c.node().updateWorld(n.world)
	}
}

// WithPosition sets the initial local position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - NodeOption: a function that applies the position to a Node
func WithPosition(p common.Vec3) NodeOption {
	return func(n *Node) {
		n.position = p
	}
}

// WithRotation sets the initial Euler rotation in radians.
//
// Parameters:
//   - r: rotation around X, Y, Z
//
// Returns:
//   - NodeOption: a function that applies the rotation to a Node
func WithRotation(r common.Vec3) NodeOption {
	return func(n *Node) {
		n.rotation = r
	}
}

// WithScale sets the initial scale.
//
// Parameters:
//   - s: the per-axis scale
//
// Returns:
//   - NodeOption: a function that applies the scale to a Node
func WithScale(s common.Vec3) NodeOption {
	return func(n *Node) {
		n.scale = s
	}
}

// WithEnabled sets the initial enabled state. Actors are enabled by default.
func WithEnabled(enabled bool) NodeOption {
	return func(n *Node) {
		n.enabled.Store(enabled)
	}
}

// WithCastShadow sets whether the actor casts shadows. Defaults to true.
func WithCastShadow(cast bool) NodeOption {
	return func(n *Node) {
		n.castShadow = cast
	}
}

// WithReceiveShadow sets whether the actor receives shadows. Defaults to true.
func WithReceiveShadow(receive bool) NodeOption {
	return func(n *Node) {
		n.receiveShadow = receive
	}
}

// WithChildren attaches children at construction.
//
// Parameters:
//   - children: the child actors
//
// Returns:
//   - NodeOption: a function that attaches the children to a Node
func WithChildren(children ...Actor) NodeOption {
	return func(n *Node) {
		n.Add(children...)
	}
}
