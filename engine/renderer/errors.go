package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// Configuration errors. Render wraps them with the offending actor, light or pass name and
// returns every one raised during a frame joined with errors.Join.
var (
	// ErrUnknownBlendMode is raised when a material's blend mode is outside Opaque,
	// Transparent and Additive. The actor is left out of the frame.
	ErrUnknownBlendMode = errors.New("unknown blend mode")

	// ErrMissingShadowMap is raised when a shadow-casting light has no shadow map.
	ErrMissingShadowMap = errors.New("shadow-casting light has no shadow map")

	// ErrMissingShadowCamera is raised when a shadow-casting light's shadow has no camera.
	ErrMissingShadowCamera = errors.New("shadow-casting light has no shadow camera")

	// ErrTooManySpotShadows is raised when more spot lights cast usable shadows than the
	// deferred shading pass has shadow map slots. The extra lights render unshadowed.
	ErrTooManySpotShadows = errors.New("too many shadow-casting spot lights")

	// ErrMissingProgram is raised when a mesh material has no program to draw with.
	ErrMissingProgram = errors.New("material has no program")

	// ErrNoEnabledPass is raised when every pass of the scene post-process chain is disabled.
	ErrNoEnabledPass = postprocess.ErrNoEnabledPass

	// ErrInvalidPassGraph is returned by NewRenderer when a pass input is misrouted.
	ErrInvalidPassGraph = errors.New("invalid pass graph")

	// ErrInvalidSize is returned by SetSize for non-positive dimensions.
	ErrInvalidSize = target.ErrInvalidSize
)
