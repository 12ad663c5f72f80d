package scene

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering. Scenes start active.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithActors attaches initial actors to the root.
//
// Parameters:
//   - actors: the actors to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActors(actors ...Actor) SceneBuilderOption {
	return func(s *scene) {
		s.root.Add(actors...)
	}
}

// WithRootTransform sets the transform of the implicit root group.
//
// Parameters:
//   - opts: node options applied to the root
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRootTransform(opts ...NodeOption) SceneBuilderOption {
	return func(s *scene) {
		for _, opt := range opts {
			opt(&s.root.Node)
		}
	}
}

// WithTransformWorkers sets the number of worker goroutines UpdateTransforms fans root-level
// subtrees out to. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTransformWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.transformWorkers = n
	}
}

// WithParallelThreshold sets how many root-level actors a scene needs before UpdateTransforms
// uses the worker pool. Zero always uses it.
//
// Parameters:
//   - n: the threshold
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithParallelThreshold(n int) SceneBuilderOption {
	return func(s *scene) {
		s.parallelMin = max(n, 0)
	}
}
