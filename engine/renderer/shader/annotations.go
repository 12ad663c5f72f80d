package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation in WGSL source.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of Oxy annotation.
type AnnotationType string

const (
	// AnnotationTypeBlock declares a dependency on a global uniform block:
	//
	//	// @oxy:block Camera
	//
	// It expands to the block's struct and a group 0 uniform variable named u<Block>.
	// Blocks take consecutive bindings in declaration order.
	AnnotationTypeBlock AnnotationType = "block"

	// AnnotationTypeMaterial declares the per-draw uniform at group 1 binding 0:
	//
	//	// @oxy:material           -> MaterialParams, variable "material"
	//	// @oxy:material FogParams -> the shader's own struct type, variable "params"
	AnnotationTypeMaterial AnnotationType = "material"

	// AnnotationTypeTexture declares a texture slot and its sampler:
	//
	//	// @oxy:texture gNormal
	//	// @oxy:texture depth depth
	//
	// Slot i takes group 1 bindings 1+2i (texture) and 2+2i (sampler). The optional second
	// argument "depth" declares a texture_depth_2d.
	AnnotationTypeTexture AnnotationType = "texture"

	// AnnotationTypeFullscreen injects the fullscreen triangle vertex stage vs_main and the
	// FullscreenOut struct it produces.
	AnnotationTypeFullscreen AnnotationType = "fullscreen"
)

// Annotation is one parsed Oxy annotation.
type Annotation struct {
	// Type is the annotation kind.
	Type AnnotationType

	// Args are the whitespace separated arguments after the type.
	Args []string

	// Line is the 1-based source line the annotation was found on.
	Line int
}

// textureKindDepth is the optional second argument of a texture annotation.
const textureKindDepth = "depth"

// parseAnnotation parses a single source line. It returns nil, nil for lines that carry no
// annotation.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number, used in error messages
//
// Returns:
//   - *Annotation: the parsed annotation, or nil
//   - error: an error for a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	a := &Annotation{Type: AnnotationType(args[0]), Args: args[1:], Line: lineNum}
	switch a.Type {
	case AnnotationTypeBlock:
		if len(a.Args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy:block requires exactly one block name", lineNum)
		}
	case AnnotationTypeMaterial:
		if len(a.Args) > 1 {
			return nil, fmt.Errorf("line %d: @oxy:material takes at most one struct type", lineNum)
		}
	case AnnotationTypeTexture:
		if len(a.Args) < 1 || len(a.Args) > 2 {
			return nil, fmt.Errorf("line %d: @oxy:texture requires a slot name and an optional kind", lineNum)
		}
		if len(a.Args) == 2 && a.Args[1] != textureKindDepth {
			return nil, fmt.Errorf("line %d: unknown texture kind %q", lineNum, a.Args[1])
		}
	case AnnotationTypeFullscreen:
		if len(a.Args) != 0 {
			return nil, fmt.Errorf("line %d: @oxy:fullscreen takes no arguments", lineNum)
		}
	default:
		return nil, fmt.Errorf("line %d: unknown annotation type %q", lineNum, args[0])
	}
	return a, nil
}
