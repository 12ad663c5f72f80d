package pipeline

// StateBuilderOption is a functional option used to configure a State during construction.
type StateBuilderOption func(*State)

// WithDepthTest sets whether depth testing is enabled.
//
// Parameters:
//   - enabled: true to enable depth testing
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithDepthTest(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.DepthTest = enabled
	}
}

// WithDepthWrite sets whether depth writes are enabled.
//
// Parameters:
//   - enabled: true to enable depth writes
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithDepthWrite(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.DepthWrite = enabled
	}
}

// WithDepthCompare sets the depth comparison function.
//
// Parameters:
//   - fn: the comparison function
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithDepthCompare(fn CompareFunc) StateBuilderOption {
	return func(s *State) {
		s.DepthCompare = fn
	}
}

// WithBlend sets the blend mode.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithBlend(mode BlendMode) StateBuilderOption {
	return func(s *State) {
		s.Blend = mode
	}
}

// WithSide sets which faces are rasterized.
//
// Parameters:
//   - side: the face side
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithSide(side FaceSide) StateBuilderOption {
	return func(s *State) {
		s.Side = side
	}
}

// WithColorWrite sets whether color channels are written.
//
// Parameters:
//   - enabled: false for depth-only draws
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithColorWrite(enabled bool) StateBuilderOption {
	return func(s *State) {
		s.ColorWrite = enabled
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias.
//
// Parameters:
//   - bias: constant depth bias
//   - slopeScale: slope-scaled depth bias
//
// Returns:
//   - StateBuilderOption: a function that applies the option
func WithDepthBias(bias int32, slopeScale float32) StateBuilderOption {
	return func(s *State) {
		s.DepthBias = bias
		s.DepthBiasSlopeScale = slopeScale
	}
}
