package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Scene is a tree of actors under an implicit root group. The tree is read by the renderer
// each frame through Traverse; mutations and traversal are serialized by the scene lock, so
// a scene may be edited from another goroutine between frames.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Root returns the implicit root group. Its transform applies to every actor.
	Root() *Group

	// Add attaches actors to the root.
	//
	// Parameters:
	//   - actors: the actors to attach
	Add(actors ...Actor)

	// Remove detaches an actor from wherever it sits in the tree.
	//
	// Parameters:
	//   - a: the actor to detach
	//
	// Returns:
	//   - bool: false if a is not part of the scene
	Remove(a Actor) bool

	// Find returns the first actor in depth-first order with the given name, enabled or not.
	//
	// Parameters:
	//   - name: the actor name
	//
	// Returns:
	//   - Actor: the actor, or nil
	Find(name string) Actor

	// Count returns the number of actors in the tree, excluding the root.
	Count() int

	// Clear detaches every actor.
	Clear()

	// UpdateTransforms recomputes the world matrix of every actor from its local transform
	// and its parent's world matrix. Root-level subtrees are updated on the worker pool.
	UpdateTransforms()

	// Traverse visits enabled actors depth-first in insertion order. A disabled actor prunes
	// its whole subtree. The root itself is not visited.
	//
	// Parameters:
	//   - v: the visitor
	Traverse(v Visitor)

	// Release stops the transform workers. A later UpdateTransforms starts them again.
	Release()

	// Walk calls fn for enabled actors depth-first, like Traverse, without type dispatch.
	//
	// Parameters:
	//   - fn: called for each actor; returning false prunes that actor's subtree
	Walk(fn func(a Actor) bool)
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool
	root   *Group

	// transformPool updates disjoint root-level subtrees in parallel. It is started by the
	// first parallel update and workers persist across frames; a WaitGroup is the per-frame
	// barrier.
	transformPool    worker.DynamicWorkerPool
	transformWorkers int
	parallelMin      int
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:               &sync.RWMutex{},
		name:             name,
		active:           true,
		root:             NewGroup("root"),
		transformWorkers: max(runtime.NumCPU()-1, 1),
		parallelMin:      defaultParallelMin,
	}
	for _, option := range options {
		option(s)
	}
	s.root.updateWorld(common.Identity4())
	return s
}

// defaultParallelMin is the root child count below which transforms update serially.
const defaultParallelMin = 8

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Root() *Group {
	return s.root
}

func (s *scene) Add(actors ...Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.Add(actors...)
}

func (s *scene) Remove(a Actor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := a.node()
	if n.parent == nil || !s.contains(n) {
		return false
	}
	return n.parent.Remove(a)
}

// contains reports whether n hangs under the root.
func (s *scene) contains(n *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == &s.root.Node {
			return true
		}
	}
	return false
}

func (s *scene) Find(name string) Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found Actor
	walk(s.root.children, true, func(a Actor) bool {
		if found != nil {
			return false
		}
		if a.Name() == name {
			found = a
			return false
		}
		return true
	})
	return found
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	walk(s.root.children, true, func(Actor) bool {
		count++
		return true
	})
	return count
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.root.children {
		c.node().parent = nil
	}
	s.root.children = nil
}

func (s *scene) UpdateTransforms() {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := &s.root.Node
	root.world = root.LocalMatrix()
	if len(root.children) < s.parallelMin {
		for _, c := range root.children {
			c.node().updateWorld(root.world)
		}
		return
	}

	if s.transformPool == nil {
		s.transformPool = worker.NewDynamicWorkerPool(s.transformWorkers, 256, 1*time.Second)
	}
	var wg sync.WaitGroup
	for i, c := range root.children {
		wg.Add(1)
		child := c.node()
		s.transformPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				child.updateWorld(root.world)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transformPool != nil {
		s.transformPool.Stop()
		s.transformPool = nil
	}
}

func (s *scene) Traverse(v Visitor) {
	s.Walk(func(a Actor) bool {
		a.Accept(v)
		return true
	})
}

func (s *scene) Walk(fn func(a Actor) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	walk(s.root.children, false, fn)
}

// walk visits actors depth-first. Disabled actors and their subtrees are skipped unless
// includeDisabled is set.
func walk(actors []Actor, includeDisabled bool, fn func(a Actor) bool) {
	for _, a := range actors {
		if !includeDisabled && !a.Enabled() {
			continue
		}
		if fn(a) {
			walk(a.Children(), includeDisabled, fn)
		}
	}
}
