package pipeline

import (
	"fmt"
)

// BlendMode selects how a draw's color output combines with the attachment contents.
// It also decides the render queue an opaque-or-not material routes to.
type BlendMode int

const (
	// BlendOpaque writes color without blending.
	BlendOpaque BlendMode = iota

	// BlendTransparent composites with standard straight-alpha "over" blending.
	BlendTransparent

	// BlendAdditive adds source color scaled by source alpha onto the destination.
	BlendAdditive
)

var blendModeNames = [...]string{
	BlendOpaque:      "Opaque",
	BlendTransparent: "Transparent",
	BlendAdditive:    "Additive",
}

// Valid reports whether b is one of the known blend modes.
func (b BlendMode) Valid() bool {
	return b >= BlendOpaque && int(b) < len(blendModeNames)
}

func (b BlendMode) String() string {
	if !b.Valid() {
		return fmt.Sprintf("BlendMode(%d)", int(b))
	}
	return blendModeNames[b]
}

// FaceSide selects which triangle faces are rasterized.
type FaceSide int

const (
	// FaceFront renders front faces and culls back faces.
	FaceFront FaceSide = iota

	// FaceBack renders back faces and culls front faces. Shadow casters commonly use this.
	FaceBack

	// FaceDouble renders both faces.
	FaceDouble
)

var faceSideNames = [...]string{
	FaceFront:  "Front",
	FaceBack:   "Back",
	FaceDouble: "Double",
}

func (f FaceSide) String() string {
	if f < FaceFront || int(f) >= len(faceSideNames) {
		return fmt.Sprintf("FaceSide(%d)", int(f))
	}
	return faceSideNames[f]
}

// CompareFunc is the depth comparison function.
type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareGreaterEqual
	CompareNotEqual
	CompareAlways
	CompareNever
)

var compareFuncNames = [...]string{
	CompareLess:         "Less",
	CompareLessEqual:    "LessEqual",
	CompareEqual:        "Equal",
	CompareGreater:      "Greater",
	CompareGreaterEqual: "GreaterEqual",
	CompareNotEqual:     "NotEqual",
	CompareAlways:       "Always",
	CompareNever:        "Never",
}

func (c CompareFunc) String() string {
	if c < CompareLess || int(c) >= len(compareFuncNames) {
		return fmt.Sprintf("CompareFunc(%d)", int(c))
	}
	return compareFuncNames[c]
}

// State is the fixed-function configuration of a draw: depth, blending, culling and color writes.
// It is a comparable value so backends can key their pipeline caches on it.
type State struct {
	// DepthTest enables depth comparison against the bound depth attachment.
	DepthTest bool
	// DepthWrite enables writing depth.
	DepthWrite bool
	// DepthCompare is the comparison applied when DepthTest is set.
	DepthCompare CompareFunc
	// Blend is the color blend mode.
	Blend BlendMode
	// Side controls face culling.
	Side FaceSide
	// ColorWrite disables all color channel writes when false (depth-only draws).
	ColorWrite bool
	// DepthBias is a constant depth offset, used by shadow casters.
	DepthBias int32
	// DepthBiasSlopeScale scales the depth offset by the polygon slope.
	DepthBiasSlopeScale float32
}

// Key returns a stable string identifying the state, used as part of pipeline cache keys.
//
// Returns:
//   - string: the cache key fragment for this state
func (s State) Key() string {
	return fmt.Sprintf("dt%t-dw%t-%s-%s-%s-cw%t-b%d-%g",
		s.DepthTest, s.DepthWrite, s.DepthCompare, s.Blend, s.Side, s.ColorWrite, s.DepthBias, s.DepthBiasSlopeScale)
}

// Validate reports a state that no backend can realize.
//
// Returns:
//   - error: an error naming the invalid field, or nil
func (s State) Validate() error {
	if !s.Blend.Valid() {
		return fmt.Errorf("unrecognized blend mode %s", s.Blend)
	}
	if s.DepthCompare < CompareLess || s.DepthCompare > CompareNever {
		return fmt.Errorf("unrecognized depth compare %s", s.DepthCompare)
	}
	if s.Side < FaceFront || s.Side > FaceDouble {
		return fmt.Errorf("unrecognized face side %s", s.Side)
	}
	return nil
}

// NewState creates a State with opaque, depth-tested, depth-writing, back-face-culled defaults
// and applies the provided options.
//
// Parameters:
//   - opts: variadic list of StateBuilderOption functions
//
// Returns:
//   - State: the configured state
func NewState(opts ...StateBuilderOption) State {
	s := State{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: CompareLess,
		Blend:        BlendOpaque,
		Side:         FaceFront,
		ColorWrite:   true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// DepthOnly returns a copy of s that writes depth only, with opaque blending.
func (s State) DepthOnly() State {
	s.ColorWrite = false
	s.Blend = BlendOpaque
	s.DepthWrite = true
	s.DepthTest = true
	return s
}
