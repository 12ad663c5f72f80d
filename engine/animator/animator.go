package animator

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// Rotatable is an actor whose local Euler rotation the animator drives. Every scene actor
// implements it through its embedded Node.
type Rotatable interface {
	Rotation() common.Vec3
	SetRotation(r common.Vec3)
}

// instance is one animated actor and its angular velocity in radians per second.
type instance struct {
	target Rotatable
	speed  common.Vec3
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	// instances is dense; index maps each target to its slot and is fixed up on swap-remove.
	instances []instance
	index     map[Rotatable]int

	timeScale float32
	paused    bool
}

// Animator spins actors at constant angular velocities. Tick it from the engine tick callback,
// which runs between frames.
type Animator interface {
	// Add starts animating target. Adding a target twice replaces its speed.
	//
	// Parameters:
	//   - target: the actor to rotate
	//   - speed: angular velocity around x, y and z in radians per second
	Add(target Rotatable, speed common.Vec3)

	// Remove stops animating target and leaves its rotation where it is.
	//
	// Parameters:
	//   - target: the actor
	//
	// Returns:
	//   - bool: false if target was not animated
	Remove(target Rotatable) bool

	// Speed returns the angular velocity of target.
	//
	// Returns:
	//   - common.Vec3: the velocity in radians per second
	//   - bool: false if target is not animated
	Speed(target Rotatable) (common.Vec3, bool)

	// Count returns the number of animated actors.
	Count() int

	// SetPaused stops or resumes every animation.
	SetPaused(paused bool)

	// Tick advances every rotation by dt seconds scaled by the time scale. Angles wrap to
	// (-pi, pi].
	//
	// Parameters:
	//   - dt: elapsed seconds
	Tick(dt float32)
}

var _ Animator = &animator{}

// NewAnimator creates an Animator.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:        &sync.Mutex{},
		index:     make(map[Rotatable]int),
		timeScale: 1,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Add(target Rotatable, speed common.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, ok := a.index[target]; ok {
		a.instances[i].speed = speed
		return
	}
	a.index[target] = len(a.instances)
	a.instances = append(a.instances, instance{target: target, speed: speed})
}

func (a *animator) Remove(target Rotatable) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[target]
	if !ok {
		return false
	}
	last := len(a.instances) - 1
	if i != last {
		a.instances[i] = a.instances[last]
		a.index[a.instances[i].target] = i
	}
	a.instances[last] = instance{}
	a.instances = a.instances[:last]
	delete(a.index, target)
	return true
}

func (a *animator) Speed(target Rotatable) (common.Vec3, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[target]
	if !ok {
		return common.Vec3{}, false
	}
	return a.instances[i].speed, true
}

func (a *animator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.instances)
}

func (a *animator) SetPaused(paused bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = paused
}

func (a *animator) Tick(dt float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.paused || dt <= 0 {
		return
	}
	dt *= a.timeScale
	for _, in := range a.instances {
		r := in.target.Rotation()
		for k := range 3 {
			r[k] = wrapAngle(r[k] + in.speed[k]*dt)
		}
		in.target.SetRotation(r)
	}
}

// wrapAngle maps an angle in radians to (-pi, pi].
func wrapAngle(v float32) float32 {
	v = math32.Mod(v+math32.Pi, 2*math32.Pi)
	if v <= 0 {
		v += 2 * math32.Pi
	}
	return v - math32.Pi
}
