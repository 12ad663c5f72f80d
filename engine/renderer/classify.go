package renderer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// RenderQueue is the coarse draw-order bucket of a mesh part.
type RenderQueue int

const (
	QueueSkybox RenderQueue = iota
	QueueOpaque
	QueueAlphaTest
	QueueTransparent
)

var renderQueueNames = [...]string{
	QueueSkybox:      "skybox",
	QueueOpaque:      "opaque",
	QueueAlphaTest:   "alpha test",
	QueueTransparent: "transparent",
}

func (q RenderQueue) String() string {
	if q < 0 || int(q) >= len(renderQueueNames) {
		return fmt.Sprintf("RenderQueue(%d)", int(q))
	}
	return renderQueueNames[q]
}

// Transform is the per-draw payload of the Transformations block.
type Transform struct {
	Model        common.Mat4
	ModelInverse common.Mat4
	Normal       common.Mat4
}

// RenderMeshInfo is one (actor, material) pair scheduled for the current frame.
type RenderMeshInfo struct {
	Actor         scene.Drawable
	MaterialIndex int
	Queue         RenderQueue
	Distance      float32

	Part      scene.MeshPart
	Transform Transform
}

// Material returns the material of the scheduled part.
func (i RenderMeshInfo) Material() material.Material {
	return i.Part.Material
}

// LightActors are the lights collected by the frame's traversal.
type LightActors struct {
	Directional *scene.DirectionalLight
	Spots       []*scene.SpotLight
	Points      []*scene.PointLight
}

// renderLists is everything classification produces for one frame.
type renderLists struct {
	// sorted is the four queues, each sorted by render queue index, concatenated in queue order.
	sorted []RenderMeshInfo

	// base is skybox, opaque and alpha-test parts front to back.
	base []RenderMeshInfo
	// transparent is the transparent parts back to front.
	transparent []RenderMeshInfo
	// prePass is base without skyboxes.
	prePass []RenderMeshInfo

	lights LightActors
	volume *scene.PostProcessVolume

	errs []error
}

// classifier is the scene visitor that buckets mesh parts and collects lights.
type classifier struct {
	queues    [4][]RenderMeshInfo
	lights    LightActors
	volume    *scene.PostProcessVolume
	maxSpots  int
	maxPoints int
	errs      []error
}

var _ scene.Visitor = &classifier{}

func (c *classifier) VisitMesh(m *scene.Mesh)               { c.addDrawable(m, false) }
func (c *classifier) VisitSkinnedMesh(m *scene.SkinnedMesh) { c.addDrawable(m, false) }
func (c *classifier) VisitSkybox(s *scene.Skybox)           { c.addDrawable(s, true) }

func (c *classifier) VisitDirectionalLight(l *scene.DirectionalLight) {
	if !l.Light.Enabled() {
		return
	}
	if c.lights.Directional != nil {
		logger.L().Warn("extra directional light ignored", "light", l.Name(), "active", c.lights.Directional.Name())
		return
	}
	c.lights.Directional = l
}

func (c *classifier) VisitSpotLight(l *scene.SpotLight) {
	if l.Light.Enabled() {
		c.lights.Spots = append(c.lights.Spots, l)
	}
}

func (c *classifier) VisitPointLight(l *scene.PointLight) {
	if l.Light.Enabled() {
		c.lights.Points = append(c.lights.Points, l)
	}
}

// nearestLights keeps the limit lights closest to eye in traversal order and warns for every
// light left out.
func nearestLights[L interface{ Name() string }](lights []L, limit int, eye common.Vec3, pos func(L) common.Vec3, kind string) []L {
	limit = max(limit, 0)
	if len(lights) <= limit {
		return lights
	}
	order := make([]int, len(lights))
	dist := make([]float32, len(lights))
	for i, l := range lights {
		order[i] = i
		dist[i] = common.Distance3(eye, pos(l))
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
	for _, i := range order[limit:] {
		logger.L().Warn(kind+" light limit exceeded", "light", lights[i].Name(), "max", limit)
	}
	kept := order[:limit]
	sort.Ints(kept)
	out := make([]L, len(kept))
	for j, i := range kept {
		out[j] = lights[i]
	}
	return out
}

func spotPosition(l *scene.SpotLight) common.Vec3 {
	p, _ := scene.WorldLight(l.WorldMatrix(), l.Light)
	return p
}

func pointPosition(l *scene.PointLight) common.Vec3 {
	p, _ := scene.WorldLight(l.WorldMatrix(), l.Light)
	return p
}

func (c *classifier) VisitCamera(*scene.Camera) {}

func (c *classifier) VisitPostProcessVolume(v *scene.PostProcessVolume) {
	if c.volume != nil {
		logger.L().Warn("extra post-process volume ignored", "volume", v.Name(), "active", c.volume.Name())
		return
	}
	c.volume = v
}

func (c *classifier) VisitGroup(*scene.Group) {}

// addDrawable validates every part of an actor before routing any of them, so an actor with a
// bad material is left out as a whole.
func (c *classifier) addDrawable(d scene.Drawable, skybox bool) {
	parts := d.Parts()
	routed := make([]RenderQueue, len(parts))
	for i, p := range parts {
		m := p.Material
		if m == nil || !m.CanRender() || p.Geometry == nil {
			c.fail(fmt.Errorf("actor %q material %d: %w", d.Name(), i, ErrMissingProgram))
			return
		}
		q, err := route(m, skybox)
		if err != nil {
			c.fail(fmt.Errorf("actor %q material %q: %w", d.Name(), m.Name(), err))
			return
		}
		routed[i] = q
	}
	for i, p := range parts {
		c.queues[routed[i]] = append(c.queues[routed[i]], RenderMeshInfo{
			Actor:         d,
			MaterialIndex: i,
			Queue:         routed[i],
			Part:          p,
		})
	}
}

func (c *classifier) fail(err error) {
	logger.L().Error("actor skipped", "err", err)
	c.errs = append(c.errs, err)
}

// route picks the render queue of a material. Alpha testing wins over the blend mode.
func route(m material.Material, skybox bool) (RenderQueue, error) {
	if skybox {
		return QueueSkybox, nil
	}
	if m.AlphaTest() {
		return QueueAlphaTest, nil
	}
	switch m.Blend() {
	case pipeline.BlendOpaque:
		return QueueOpaque, nil
	case pipeline.BlendTransparent, pipeline.BlendAdditive:
		return QueueTransparent, nil
	default:
		return 0, fmt.Errorf("%w %d", ErrUnknownBlendMode, int(m.Blend()))
	}
}

// classify traverses the scene once and builds the frame's render lists. Distances and
// transforms are computed by prep. Spot and point lights past their limits are dropped
// farthest from eye first.
func classify(s scene.Scene, eye common.Vec3, maxSpots, maxPoints int, prep *prepPool) *renderLists {
	c := &classifier{maxSpots: maxSpots, maxPoints: maxPoints}
	s.Traverse(c)
	c.lights.Spots = nearestLights(c.lights.Spots, maxSpots, eye, spotPosition, "spot")
	c.lights.Points = nearestLights(c.lights.Points, maxPoints, eye, pointPosition, "point")

	out := &renderLists{lights: c.lights, volume: c.volume, errs: c.errs}
	for q := range c.queues {
		queue := c.queues[q]
		sort.SliceStable(queue, func(i, j int) bool {
			return queue[i].Material().RenderQueueIndex() < queue[j].Material().RenderQueueIndex()
		})
		for _, info := range queue {
			if info.Actor.Enabled() {
				out.sorted = append(out.sorted, info)
			}
		}
	}

	prep.prepare(out.sorted, eye)

	for _, info := range out.sorted {
		if info.Queue == QueueTransparent {
			out.transparent = append(out.transparent, info)
		} else {
			out.base = append(out.base, info)
		}
	}
	sort.SliceStable(out.base, func(i, j int) bool {
		return out.base[i].Distance < out.base[j].Distance
	})
	sort.SliceStable(out.transparent, func(i, j int) bool {
		return out.transparent[i].Distance > out.transparent[j].Distance
	})
	for _, info := range out.base {
		if info.Queue != QueueSkybox {
			out.prePass = append(out.prePass, info)
		}
	}
	return out
}

// prepPool computes per-draw distances and transforms, on the worker pool once there are
// enough of them. The pool is started by the first frame that needs it.
type prepPool struct {
	pool      worker.DynamicWorkerPool
	workers   int
	threshold int
}

func newPrepPool(workers, threshold int) *prepPool {
	return &prepPool{workers: workers, threshold: threshold}
}

// release stops the pool's workers. A later prepare starts a new pool.
func (p *prepPool) release() {
	if p.pool != nil {
		p.pool.Stop()
		p.pool = nil
	}
}

func (p *prepPool) prepare(infos []RenderMeshInfo, eye common.Vec3) {
	if len(infos) < p.threshold || p.workers < 2 {
		prepRange(infos, eye)
		return
	}
	if p.pool == nil {
		p.pool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	}

	// Workers persist across frames; the WaitGroup is the per-frame barrier.
	chunk := (len(infos) + p.workers - 1) / p.workers
	var wg sync.WaitGroup
	for id, start := 0, 0; start < len(infos); id, start = id+1, start+chunk {
		part := infos[start:min(start+chunk, len(infos))]
		wg.Add(1)
		p.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				prepRange(part, eye)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func prepRange(infos []RenderMeshInfo, eye common.Vec3) {
	for i := range infos {
		info := &infos[i]
		world := info.Actor.WorldMatrix()
		if sky, ok := info.Actor.(*scene.Skybox); ok {
			world = sky.CenteredOn(eye)
			info.Distance = 0
		} else {
			info.Distance = common.Distance3(eye, common.Translation(world))
		}
		inv, ok := common.Invert4(world)
		if !ok {
			inv = common.Identity4()
		}
		info.Transform = Transform{Model: world, ModelInverse: inv, Normal: common.NormalMatrix(world)}
	}
}
