package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
)

// Kind names the variant of an actor.
type Kind int

const (
	KindMesh Kind = iota
	KindSkinnedMesh
	KindSkybox
	KindDirectionalLight
	KindSpotLight
	KindPointLight
	KindCamera
	KindPostProcessVolume
	KindGroup
)

var kindNames = [...]string{
	KindMesh:              "mesh",
	KindSkinnedMesh:       "skinned mesh",
	KindSkybox:            "skybox",
	KindDirectionalLight:  "directional light",
	KindSpotLight:         "spot light",
	KindPointLight:        "point light",
	KindCamera:            "camera",
	KindPostProcessVolume: "post-process volume",
	KindGroup:             "group",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Actor is a member of the scene tree. The set of actor types is closed: every actor embeds
// Node, and dispatch goes through Visitor, which has one method per type.
type Actor interface {
	// Kind returns the actor variant.
	Kind() Kind

	// Accept calls the Visitor method matching the actor type.
	//
	// Parameters:
	//   - v: the visitor
	Accept(v Visitor)

	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	CastShadow() bool
	ReceiveShadow() bool
	WorldMatrix() common.Mat4
	WorldPosition() common.Vec3
	Children() []Actor
	Add(children ...Actor)
	Remove(child Actor) bool

	node() *Node
}

// Visitor receives each actor of a traversal through the method of its type.
type Visitor interface {
	VisitMesh(m *Mesh)
	VisitSkinnedMesh(m *SkinnedMesh)
	VisitSkybox(s *Skybox)
	VisitDirectionalLight(l *DirectionalLight)
	VisitSpotLight(l *SpotLight)
	VisitPointLight(l *PointLight)
	VisitCamera(c *Camera)
	VisitPostProcessVolume(v *PostProcessVolume)
	VisitGroup(g *Group)
}

// MeshPart is one (geometry, material) pair of a mesh.
type MeshPart struct {
	Geometry gpu.Geometry
	Material material.Material
}

// Drawable is implemented by the mesh-like actors.
type Drawable interface {
	Actor

	// Parts returns the geometry and material pairs, in material index order.
	Parts() []MeshPart
}

// Mesh is a static mesh.
type Mesh struct {
	Node
	parts []MeshPart
}

// NewMesh creates a mesh actor.
//
// Parameters:
//   - name: the actor name
//   - parts: the geometry and material pairs
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *Mesh: the mesh
func NewMesh(name string, parts []MeshPart, opts ...NodeOption) *Mesh {
	m := &Mesh{parts: parts}
	m.init(name, opts)
	return m
}

func (m *Mesh) Kind() Kind        { return KindMesh }
func (m *Mesh) Accept(v Visitor)  { v.VisitMesh(m) }
func (m *Mesh) Parts() []MeshPart { return m.parts }

// SetParts replaces the geometry and material pairs.
func (m *Mesh) SetParts(p []MeshPart) { m.parts = p }

// SkinnedMesh is a mesh deformed by joint matrices. The pipeline draws it like a mesh; the
// joints are uploaded by the program that consumes them.
type SkinnedMesh struct {
	Mesh
	Joints []common.Mat4
}

// NewSkinnedMesh creates a skinned mesh actor.
//
// Parameters:
//   - name: the actor name
//   - parts: the geometry and material pairs
//   - joints: the joint matrices
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *SkinnedMesh: the skinned mesh
func NewSkinnedMesh(name string, parts []MeshPart, joints []common.Mat4, opts ...NodeOption) *SkinnedMesh {
	m := &SkinnedMesh{Mesh: Mesh{parts: parts}, Joints: joints}
	m.init(name, opts)
	return m
}

func (m *SkinnedMesh) Kind() Kind       { return KindSkinnedMesh }
func (m *SkinnedMesh) Accept(v Visitor) { v.VisitSkinnedMesh(m) }

// Skybox is an environment mesh drawn around the camera, behind everything else.
type Skybox struct {
	Node
	parts []MeshPart
}

// NewSkybox creates a skybox actor.
//
// Parameters:
//   - name: the actor name
//   - part: the sky geometry and material
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *Skybox: the skybox
func NewSkybox(name string, part MeshPart, opts ...NodeOption) *Skybox {
	s := &Skybox{parts: []MeshPart{part}}
	s.init(name, append([]NodeOption{WithCastShadow(false), WithReceiveShadow(false)}, opts...))
	return s
}

func (s *Skybox) Kind() Kind        { return KindSkybox }
func (s *Skybox) Accept(v Visitor)  { v.VisitSkybox(s) }
func (s *Skybox) Parts() []MeshPart { return s.parts }

// CenteredOn returns the skybox world matrix translated onto eye, keeping its rotation and scale.
//
// Parameters:
//   - eye: the camera position
//
// Returns:
//   - common.Mat4: the re-centered world matrix
func (s *Skybox) CenteredOn(eye common.Vec3) common.Mat4 {
	m := s.world
	m[12], m[13], m[14] = eye[0], eye[1], eye[2]
	return m
}

// DirectionalLight places a directional light in the scene. The light direction is rotated
// by the actor's world matrix.
type DirectionalLight struct {
	Node
	Light light.Light
}

func (l *DirectionalLight) Kind() Kind       { return KindDirectionalLight }
func (l *DirectionalLight) Accept(v Visitor) { v.VisitDirectionalLight(l) }

// SpotLight places a spot light in the scene. Position and direction are transformed by the
// actor's world matrix.
type SpotLight struct {
	Node
	Light light.Light
}

func (l *SpotLight) Kind() Kind       { return KindSpotLight }
func (l *SpotLight) Accept(v Visitor) { v.VisitSpotLight(l) }

// PointLight places a point light in the scene.
type PointLight struct {
	Node
	Light light.Light
}

func (l *PointLight) Kind() Kind       { return KindPointLight }
func (l *PointLight) Accept(v Visitor) { v.VisitPointLight(l) }

// NewLight wraps a light in the actor matching its type.
//
// Parameters:
//   - name: the actor name
//   - l: the light
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - Actor: a *DirectionalLight, *SpotLight or *PointLight
func NewLight(name string, l light.Light, opts ...NodeOption) Actor {
	opts = append([]NodeOption{WithCastShadow(l.CastsShadows())}, opts...)
	switch l.Type() {
	case light.LightTypeDirectional:
		a := &DirectionalLight{Light: l}
		a.init(name, opts)
		return a
	case light.LightTypeSpot:
		a := &SpotLight{Light: l}
		a.init(name, opts)
		return a
	default:
		a := &PointLight{Light: l}
		a.init(name, opts)
		return a
	}
}

// WorldLight returns the light position and direction transformed by world.
//
// Parameters:
//   - world: the actor world matrix
//   - l: the light
//
// Returns:
//   - common.Vec3: the world position
//   - common.Vec3: the normalized world direction
func WorldLight(world common.Mat4, l light.Light) (common.Vec3, common.Vec3) {
	p := common.TransformPoint(world, l.Position())
	d := l.Direction()
	wd := common.Vec3{
		world[0]*d[0] + world[4]*d[1] + world[8]*d[2],
		world[1]*d[0] + world[5]*d[1] + world[9]*d[2],
		world[2]*d[0] + world[6]*d[1] + world[10]*d[2],
	}
	return p, common.Normalize3(wd)
}

// Camera places a camera in the scene. The renderer draws through the camera passed to
// Render; camera actors are collected for tools that pick one.
type Camera struct {
	Node
	Camera camera.Camera
}

// NewCamera wraps a camera in an actor.
//
// Parameters:
//   - name: the actor name
//   - c: the camera
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *Camera: the camera actor
func NewCamera(name string, c camera.Camera, opts ...NodeOption) *Camera {
	a := &Camera{Camera: c}
	a.init(name, opts)
	return a
}

func (c *Camera) Kind() Kind       { return KindCamera }
func (c *Camera) Accept(v Visitor) { v.VisitCamera(c) }

// PostProcessVolume overrides post-process parameters while it is enabled. The first enabled
// volume of a traversal is the active one.
type PostProcessVolume struct {
	Node
	Overrides *postprocess.Overrides
}

// NewPostProcessVolume creates a volume.
//
// Parameters:
//   - name: the actor name
//   - overrides: the partial parameter overrides
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *PostProcessVolume: the volume
func NewPostProcessVolume(name string, overrides *postprocess.Overrides, opts ...NodeOption) *PostProcessVolume {
	v := &PostProcessVolume{Overrides: overrides}
	v.init(name, opts)
	return v
}

func (v *PostProcessVolume) Kind() Kind         { return KindPostProcessVolume }
func (v *PostProcessVolume) Accept(vis Visitor) { vis.VisitPostProcessVolume(v) }

// Group is a plain transform node.
type Group struct {
	Node
}

// NewGroup creates a group.
//
// Parameters:
//   - name: the actor name
//   - opts: variadic list of NodeOption functions
//
// Returns:
//   - *Group: the group
func NewGroup(name string, opts ...NodeOption) *Group {
	g := &Group{}
	g.init(name, opts)
	return g
}

func (g *Group) Kind() Kind       { return KindGroup }
func (g *Group) Accept(v Visitor) { v.VisitGroup(g) }

var (
	_ Drawable = &Mesh{}
	_ Drawable = &SkinnedMesh{}
	_ Drawable = &Skybox{}
	_ Actor    = &DirectionalLight{}
	_ Actor    = &SpotLight{}
	_ Actor    = &PointLight{}
	_ Actor    = &Camera{}
	_ Actor    = &PostProcessVolume{}
	_ Actor    = &Group{}
)
