// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, replaces them with generated WGSL declarations, and records which global
// uniform blocks and texture slots the program reads so the renderer can wire them by name.
//
// Generated struct layouts come from the uniform catalog and follow its padding rule: every
// scalar and short vector is emitted as vec4<f32>.
package shader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

// TextureSlot is a texture declared by a program, in binding order.
type TextureSlot struct {
	// Name is the slot name the renderer matches inputs against.
	Name string

	// Depth marks a texture_depth_2d slot.
	Depth bool
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// blocks maps block names to their catalog declaration.
	blocks map[string]uniform.BlockSpec

	// declarations accumulates every annotation of the last Process call in source order.
	declarations []Annotation
	blockNames   []string
	textures     []TextureSlot
}

// PreProcessor processes raw WGSL shader source containing @oxy: annotations.
type PreProcessor interface {
	// Process replaces each annotation with its generated WGSL. The declaration lists are
	// reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error for a malformed annotation, an unknown block or a duplicate slot
	Process(source string) (string, error)

	// Declarations returns the annotations collected by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations
	Declarations() []Annotation

	// Blocks returns the global block names declared by the last Process call, in binding order.
	//
	// Returns:
	//   - []string: the block names
	Blocks() []string

	// Textures returns the texture slots declared by the last Process call, in binding order.
	//
	// Returns:
	//   - []TextureSlot: the slots
	Textures() []TextureSlot
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves @oxy:block names against catalog.
//
// Parameters:
//   - catalog: the uniform block catalog
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(catalog []uniform.BlockSpec) PreProcessor {
	p := &preProcessor{blocks: make(map[string]uniform.BlockSpec, len(catalog))}
	for _, spec := range catalog {
		p.blocks[spec.Name] = spec
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	p.blockNames = nil
	p.textures = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	materialDeclared := false

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeBlock:
			name := a.Args[0]
			spec, ok := p.blocks[name]
			if !ok {
				return "", fmt.Errorf("line %d: %w %q", a.Line, uniform.ErrUnknownBlock, name)
			}
			if slices.Contains(p.blockNames, name) {
				return "", fmt.Errorf("line %d: block %q declared twice", a.Line, name)
			}
			out = append(out, blockSource(spec))
			out = append(out, fmt.Sprintf("@group(0) @binding(%d) var<uniform> u%s: %s;", len(p.blockNames), name, name))
			p.blockNames = append(p.blockNames, name)
		case AnnotationTypeMaterial:
			if materialDeclared {
				return "", fmt.Errorf("line %d: material uniform declared twice", a.Line)
			}
			materialDeclared = true
			if len(a.Args) == 0 {
				out = append(out, materialParamsSource)
				out = append(out, "@group(1) @binding(0) var<uniform> material: MaterialParams;")
			} else {
				out = append(out, fmt.Sprintf("@group(1) @binding(0) var<uniform> params: %s;", a.Args[0]))
			}
		case AnnotationTypeTexture:
			slot := TextureSlot{Name: a.Args[0], Depth: len(a.Args) == 2}
			if slices.ContainsFunc(p.textures, func(s TextureSlot) bool { return s.Name == slot.Name }) {
				return "", fmt.Errorf("line %d: texture slot %q declared twice", a.Line, slot.Name)
			}
			i := len(p.textures)
			texType := "texture_2d<f32>"
			if slot.Depth {
				texType = "texture_depth_2d"
			}
			out = append(out, fmt.Sprintf("@group(1) @binding(%d) var %s: %s;", 1+2*i, slot.Name, texType))
			out = append(out, fmt.Sprintf("@group(1) @binding(%d) var %sSampler: sampler;", 2+2*i, slot.Name))
			p.textures = append(p.textures, slot)
		case AnnotationTypeFullscreen:
			out = append(out, fullscreenSource)
		}
		p.declarations = append(p.declarations, *a)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Blocks() []string {
	return p.blockNames
}

func (p *preProcessor) Textures() []TextureSlot {
	return p.textures
}

// wgslType returns the padded WGSL type of a scalar or vector entry.
func wgslType(t uniform.EntryType) string {
	if t == uniform.TypeMat4 {
		return "mat4x4<f32>"
	}
	return "vec4<f32>"
}

// blockSource generates the WGSL struct declarations for a catalog block.
func blockSource(spec uniform.BlockSpec) string {
	var sb strings.Builder
	var elements []string
	for _, e := range spec.Entries {
		if e.Type != uniform.TypeStruct && e.Type != uniform.TypeStructArray {
			continue
		}
		elem := spec.Name + strings.ToUpper(e.Name[:1]) + e.Name[1:] + "Element"
		elements = append(elements, elem)
		fmt.Fprintf(&sb, "struct %s {\n", elem)
		for _, f := range e.Fields {
			fmt.Fprintf(&sb, "    %s: %s,\n", f.Name, wgslType(f.Type))
		}
		sb.WriteString("}\n")
	}

	fmt.Fprintf(&sb, "struct %s {\n", spec.Name)
	ei := 0
	for _, e := range spec.Entries {
		switch e.Type {
		case uniform.TypeStruct:
			fmt.Fprintf(&sb, "    %s: %s,\n", e.Name, elements[ei])
			ei++
		case uniform.TypeStructArray:
			fmt.Fprintf(&sb, "    %s: array<%s, %d>,\n", e.Name, elements[ei], e.Count)
			ei++
		default:
			fmt.Fprintf(&sb, "    %s: %s,\n", e.Name, wgslType(e.Type))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// materialParamsSource mirrors material.GPUMaterialParams.
const materialParamsSource = `struct MaterialParams {
    baseColor: vec4<f32>,
    emissive: vec4<f32>,
    surface: vec4<f32>,
}`

// fullscreenSource draws one oversized triangle covering the viewport.
const fullscreenSource = `struct FullscreenOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> FullscreenOut {
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    var out: FullscreenOut;
    out.position = vec4<f32>(uv * vec2<f32>(2.0, -2.0) + vec2<f32>(-1.0, 1.0), 0.0, 1.0);
    out.uv = uv;
    return out;
}`
