package animator

// AnimatorBuilderOption is a functional option for configuring an Animator.
type AnimatorBuilderOption func(*animator)

// WithTimeScale multiplies every Tick duration. Negative scales play backwards.
//
// Parameters:
//   - scale: the time multiplier (default 1)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the option to an animator
func WithTimeScale(scale float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.timeScale = scale
	}
}

// WithCapacity preallocates room for n animated actors.
func WithCapacity(n int) AnimatorBuilderOption {
	return func(a *animator) {
		if n > 0 {
			a.instances = make([]instance, 0, n)
			a.index = make(map[Rotatable]int, n)
		}
	}
}
