package shader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

type shader struct {
	key        string
	source     string
	vertex     string
	fragment   string
	blocks     []string
	textures   []TextureSlot
	bindings   []Binding
	program    gpu.Program
	annotation []Annotation
}

// Shader is a pre-processed WGSL program together with the resources it declares.
type Shader interface {
	// Key returns the unique key of the shader, also used as the program key.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the processed WGSL source.
	//
	// Returns:
	//   - string: the processed source
	Source() string

	// Blocks returns the global uniform block names in group 0 binding order.
	//
	// Returns:
	//   - []string: the block names
	Blocks() []string

	// Textures returns the texture slots in group 1 binding order.
	//
	// Returns:
	//   - []TextureSlot: the texture slots
	Textures() []TextureSlot

	// TextureNames returns the texture slot names in binding order.
	//
	// Returns:
	//   - []string: the slot names
	TextureNames() []string

	// Bindings returns every resource declaration of the processed source.
	//
	// Returns:
	//   - []Binding: the declarations sorted by group and binding
	Bindings() []Binding

	// Declarations returns the Oxy annotations the source carried.
	//
	// Returns:
	//   - []Annotation: the annotations in source order
	Declarations() []Annotation

	// VertexEntryPoint returns the @vertex function name.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the @fragment function name; empty for vertex-only programs.
	FragmentEntryPoint() string

	// Compile creates the GPU program on the backend. Calling Compile again returns the cached
	// program.
	//
	// Parameters:
	//   - backend: the GPU backend
	//
	// Returns:
	//   - gpu.Program: the compiled program
	//   - error: the backend error, if any
	Compile(backend gpu.Backend) (gpu.Program, error)

	// Program returns the compiled program, or nil before Compile succeeds.
	Program() gpu.Program
}

var _ Shader = &shader{}

// NewShader pre-processes source and validates its declarations.
//
// Parameters:
//   - key: the unique shader key
//   - source: the raw WGSL source with Oxy annotations
//   - pp: the pre-processor resolving block names
//
// Returns:
//   - Shader: the processed shader
//   - error: a pre-processing error, a missing @vertex stage, or a hand-written binding that
//     collides with a generated one
func NewShader(key, source string, pp PreProcessor) (Shader, error) {
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", key, err)
	}
	s := &shader{
		key:        key,
		source:     processed,
		blocks:     slices.Clone(pp.Blocks()),
		textures:   slices.Clone(pp.Textures()),
		annotation: slices.Clone(pp.Declarations()),
		bindings:   parseBindings(processed),
	}
	s.vertex, s.fragment = parseEntryPoints(processed)
	if s.vertex == "" {
		return nil, fmt.Errorf("shader %q: no @vertex entry point", key)
	}

	seen := make(map[[2]int]string, len(s.bindings))
	for _, b := range s.bindings {
		k := [2]int{b.Group, b.Binding}
		if prev, dup := seen[k]; dup {
			return nil, fmt.Errorf("shader %q: @group(%d) @binding(%d) used by both %q and %q", key, b.Group, b.Binding, prev, b.Name)
		}
		seen[k] = b.Name
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Blocks() []string {
	return s.blocks
}

func (s *shader) Textures() []TextureSlot {
	return s.textures
}

func (s *shader) TextureNames() []string {
	out := make([]string, len(s.textures))
	for i, t := range s.textures {
		out[i] = t.Name
	}
	return out
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Declarations() []Annotation {
	return s.annotation
}

func (s *shader) VertexEntryPoint() string {
	return s.vertex
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragment
}

func (s *shader) Compile(backend gpu.Backend) (gpu.Program, error) {
	if s.program != nil {
		return s.program, nil
	}
	p, err := backend.CreateProgram(gpu.ProgramDescriptor{
		Key:                s.key,
		Source:             s.source,
		VertexEntryPoint:   s.vertex,
		FragmentEntryPoint: s.fragment,
	})
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", s.key, err)
	}
	s.program = p
	return p, nil
}

func (s *shader) Program() gpu.Program {
	return s.program
}
