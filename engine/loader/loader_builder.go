package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithOpaqueProgram sets the program key of opaque and alpha-tested materials.
//
// Parameters:
//   - key: a program library key (default shader.KeyGBuffer)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithOpaqueProgram(key string) LoaderBuilderOption {
	return func(l *loader) {
		l.opaqueKey = key
	}
}

// WithTransparentProgram sets the program key of blended materials.
//
// Parameters:
//   - key: a program library key (default shader.KeyForward)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithTransparentProgram(key string) LoaderBuilderOption {
	return func(l *loader) {
		l.transparentKey = key
	}
}
