// Package uniform holds the global uniform registry: a fixed catalog of named uniform blocks,
// each with a CPU-side float32 image, a GPU buffer and a stable block index.
//
// Every entry is padded to a whole number of vec4 slots: scalars, vec2 and vec3 occupy four
// floats, vec4 and color four, mat4 sixteen. Struct fields follow the same rule in declaration
// order, and struct-array elements repeat the struct stride. Shaders reading these blocks must
// declare scalars and short vectors as vec4.
package uniform

import "fmt"

// EntryType is the type of a uniform entry or struct field.
type EntryType int

const (
	TypeFloat EntryType = iota
	TypeVec2
	TypeVec3
	TypeVec4
	TypeMat4
	TypeColor
	TypeStruct
	TypeStructArray
)

var entryTypeNames = [...]string{
	TypeFloat:       "float",
	TypeVec2:        "vec2",
	TypeVec3:        "vec3",
	TypeVec4:        "vec4",
	TypeMat4:        "mat4",
	TypeColor:       "color",
	TypeStruct:      "struct",
	TypeStructArray: "struct[]",
}

func (t EntryType) String() string {
	if t < 0 || int(t) >= len(entryTypeNames) {
		return fmt.Sprintf("EntryType(%d)", int(t))
	}
	return entryTypeNames[t]
}

// PaddedFloats returns the number of float32 slots a value of type t occupies.
// Struct types report 0; their size depends on their fields.
//
// Returns:
//   - int: the padded size in floats
func (t EntryType) PaddedFloats() int {
	switch t {
	case TypeFloat, TypeVec2, TypeVec3, TypeVec4, TypeColor:
		return 4
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// components returns the number of meaningful floats of a value of type t.
func (t EntryType) components() int {
	switch t {
	case TypeFloat:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeColor:
		return 4
	case TypeMat4:
		return 16
	default:
		return 0
	}
}

// Field is one member of a struct entry. Fields cannot themselves be structs.
type Field struct {
	Name string
	Type EntryType
}

// Entry is one named value in a uniform block.
type Entry struct {
	Name string
	Type EntryType
	// Fields lists the members of a TypeStruct or TypeStructArray entry.
	Fields []Field
	// Count is the element count of a TypeStructArray entry.
	Count int
}

// Stride returns the padded size of one element of the entry, in floats.
func (e Entry) Stride() int {
	if e.Type != TypeStruct && e.Type != TypeStructArray {
		return e.Type.PaddedFloats()
	}
	n := 0
	for _, f := range e.Fields {
		n += f.Type.PaddedFloats()
	}
	return n
}

// Floats returns the padded size of the whole entry, in floats.
func (e Entry) Floats() int {
	if e.Type == TypeStructArray {
		return e.Stride() * e.Count
	}
	return e.Stride()
}

// BlockSpec declares a uniform block and its entries.
type BlockSpec struct {
	Name    string
	Entries []Entry
}

// Floats returns the padded size of the block, in floats.
func (s BlockSpec) Floats() int {
	n := 0
	for _, e := range s.Entries {
		n += e.Floats()
	}
	return n
}

// encode converts v into the components of type t.
func encode(t EntryType, v any) ([]float32, error) {
	switch val := v.(type) {
	case float32:
		if t == TypeFloat {
			return []float32{val}, nil
		}
	case float64:
		if t == TypeFloat {
			return []float32{float32(val)}, nil
		}
	case int:
		if t == TypeFloat {
			return []float32{float32(val)}, nil
		}
	case bool:
		if t == TypeFloat {
			if val {
				return []float32{1}, nil
			}
			return []float32{0}, nil
		}
	case [2]float32:
		if t == TypeVec2 {
			return val[:], nil
		}
	case [3]float32:
		switch t {
		case TypeVec3:
			return val[:], nil
		case TypeColor:
			return []float32{val[0], val[1], val[2], 1}, nil
		}
	case [4]float32:
		if t == TypeVec4 || t == TypeColor {
			return val[:], nil
		}
	case [16]float32:
		if t == TypeMat4 {
			return val[:], nil
		}
	}
	return nil, fmt.Errorf("%w: cannot store %T in %s", ErrTypeMismatch, v, t)
}
