package uniform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

var (
	// ErrUnknownBlock is returned for a block name outside the catalog.
	ErrUnknownBlock = errors.New("unknown uniform block")
	// ErrUnknownEntry is returned for an entry or field name a block does not declare.
	ErrUnknownEntry = errors.New("unknown uniform entry")
	// ErrTypeMismatch is returned when a value does not match the declared entry type.
	ErrTypeMismatch = errors.New("uniform type mismatch")
	// ErrIndexOutOfRange is returned for a struct-array index past the array length.
	ErrIndexOutOfRange = errors.New("uniform array index out of range")
)

type entryLayout struct {
	entry  Entry
	offset int
	fields map[string]int
}

// Block is one uniform block of the registry.
type Block struct {
	name    string
	index   int
	layouts map[string]entryLayout
	data    []float32
	buffer  gpu.Buffer
	dirty   bool
}

// Name returns the block name.
func (b *Block) Name() string { return b.name }

// Index returns the block's stable index, its position in the catalog.
func (b *Block) Index() int { return b.index }

// Buffer returns the GPU buffer backing the block.
func (b *Block) Buffer() gpu.Buffer { return b.buffer }

// Registry is the global uniform registry. Block names are unique and every block owns
// exactly one GPU buffer for the registry's lifetime.
type Registry struct {
	mu      sync.Mutex
	backend gpu.Backend
	order   []*Block
	blocks  map[string]*Block
}

// NewRegistry creates a registry for the given catalog, allocating one uniform buffer per block.
//
// Parameters:
//   - backend: the GPU backend
//   - catalog: the block declarations, in index order
//
// Returns:
//   - *Registry: the registry
//   - error: an error for duplicate names or a buffer allocation failure
func NewRegistry(backend gpu.Backend, catalog []BlockSpec) (*Registry, error) {
	r := &Registry{
		backend: backend,
		blocks:  make(map[string]*Block, len(catalog)),
	}
	for i, spec := range catalog {
		if _, dup := r.blocks[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate uniform block %q", spec.Name)
		}
		b := &Block{
			name:    spec.Name,
			index:   i,
			layouts: make(map[string]entryLayout, len(spec.Entries)),
			data:    make([]float32, spec.Floats()),
			dirty:   true,
		}
		offset := 0
		for _, e := range spec.Entries {
			l := entryLayout{entry: e, offset: offset}
			if e.Type == TypeStruct || e.Type == TypeStructArray {
				l.fields = make(map[string]int, len(e.Fields))
				fo := 0
				for _, f := range e.Fields {
					l.fields[f.Name] = fo
					fo += f.Type.PaddedFloats()
				}
			}
			b.layouts[e.Name] = l
			offset += e.Floats()
		}
		buf, err := backend.CreateUniformBuffer(spec.Name, len(b.data)*4)
		if err != nil {
			return nil, fmt.Errorf("uniform block %q: %w", spec.Name, err)
		}
		b.buffer = buf
		r.order = append(r.order, b)
		r.blocks[spec.Name] = b
	}
	return r, nil
}

func (r *Registry) lookup(block, entry string) (*Block, entryLayout, error) {
	b, ok := r.blocks[block]
	if !ok {
		return nil, entryLayout{}, fmt.Errorf("%w %q", ErrUnknownBlock, block)
	}
	l, ok := b.layouts[entry]
	if !ok {
		return nil, entryLayout{}, fmt.Errorf("%w %q in block %q", ErrUnknownEntry, entry, block)
	}
	return b, l, nil
}

// Block returns the named block.
//
// Parameters:
//   - name: the block name
//
// Returns:
//   - *Block: the block
//   - bool: false if the name is not in the catalog
func (r *Registry) Block(name string) (*Block, bool) {
	b, ok := r.blocks[name]
	return b, ok
}

// Names returns the block names in index order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, b := range r.order {
		out[i] = b.name
	}
	return out
}

// Set stores a value in a non-struct entry.
//
// Parameters:
//   - block: the block name
//   - entry: the entry name
//   - value: float32/float64/int/bool for float, [2]/[3]/[4]/[16]float32 for vectors and mat4
//
// Returns:
//   - error: an error for unknown names or a type mismatch
func (r *Registry) Set(block, entry string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, l, err := r.lookup(block, entry)
	if err != nil {
		return err
	}
	if l.entry.Type == TypeStruct || l.entry.Type == TypeStructArray {
		return fmt.Errorf("%w: %s.%s is a %s, use SetField", ErrTypeMismatch, block, entry, l.entry.Type)
	}
	vals, err := encode(l.entry.Type, value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", block, entry, err)
	}
	slot := b.data[l.offset : l.offset+l.entry.Type.PaddedFloats()]
	clear(slot)
	copy(slot, vals)
	b.dirty = true
	return nil
}

// SetField stores a value in a field of a struct or struct-array entry.
//
// Parameters:
//   - block: the block name
//   - entry: the struct entry name
//   - index: the element index, 0 for a plain struct
//   - field: the field name
//   - value: the value, with the same conversions as Set
//
// Returns:
//   - error: an error for unknown names, an out of range index or a type mismatch
func (r *Registry) SetField(block, entry string, index int, field string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, l, err := r.lookup(block, entry)
	if err != nil {
		return err
	}
	if l.fields == nil {
		return fmt.Errorf("%w: %s.%s is not a struct", ErrTypeMismatch, block, entry)
	}
	count := 1
	if l.entry.Type == TypeStructArray {
		count = l.entry.Count
	}
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %s.%s[%d] (length %d)", ErrIndexOutOfRange, block, entry, index, count)
	}
	fo, ok := l.fields[field]
	if !ok {
		return fmt.Errorf("%w %q in %s.%s", ErrUnknownEntry, field, block, entry)
	}
	var ft EntryType
	for _, f := range l.entry.Fields {
		if f.Name == field {
			ft = f.Type
			break
		}
	}
	vals, err := encode(ft, value)
	if err != nil {
		return fmt.Errorf("%s.%s[%d].%s: %w", block, entry, index, field, err)
	}
	start := l.offset + index*l.entry.Stride() + fo
	slot := b.data[start : start+ft.PaddedFloats()]
	clear(slot)
	copy(slot, vals)
	b.dirty = true
	return nil
}

// Get returns a copy of the padded floats of an entry.
//
// Parameters:
//   - block: the block name
//   - entry: the entry name
//
// Returns:
//   - []float32: the entry's padded floats
//   - error: an error for unknown names
func (r *Registry) Get(block, entry string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, l, err := r.lookup(block, entry)
	if err != nil {
		return nil, err
	}
	out := make([]float32, l.entry.Floats())
	copy(out, b.data[l.offset:])
	return out, nil
}

// GetField returns the meaningful components of a struct field.
//
// Parameters:
//   - block: the block name
//   - entry: the struct entry name
//   - index: the element index
//   - field: the field name
//
// Returns:
//   - []float32: the field's components without padding
//   - error: an error for unknown names or an out of range index
func (r *Registry) GetField(block, entry string, index int, field string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, l, err := r.lookup(block, entry)
	if err != nil {
		return nil, err
	}
	fo, ok := l.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w %q in %s.%s", ErrUnknownEntry, field, block, entry)
	}
	count := 1
	if l.entry.Type == TypeStructArray {
		count = l.entry.Count
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("%w: %s.%s[%d]", ErrIndexOutOfRange, block, entry, index)
	}
	var ft EntryType
	for _, f := range l.entry.Fields {
		if f.Name == field {
			ft = f.Type
		}
	}
	start := l.offset + index*l.entry.Stride() + fo
	out := make([]float32, ft.components())
	copy(out, b.data[start:])
	return out, nil
}

// Bytes serializes a block's CPU image.
//
// Parameters:
//   - block: the block name
//
// Returns:
//   - []byte: little-endian float32 bytes
//   - error: ErrUnknownBlock for an unknown name
func (r *Registry) Bytes(block string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[block]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBlock, block)
	}
	return common.Float32sToBytes(b.data), nil
}

// Clear zeroes every entry of a block.
//
// Parameters:
//   - block: the block name
//
// Returns:
//   - error: ErrUnknownBlock for an unknown name
func (r *Registry) Clear(block string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[block]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownBlock, block)
	}
	clear(b.data)
	b.dirty = true
	return nil
}

// Flush writes every block changed since its last flush to its GPU buffer.
//
// Returns:
//   - error: the first write error
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.order {
		if !b.dirty {
			continue
		}
		if err := r.backend.WriteBuffer(b.buffer, 0, common.Float32sToBytes(b.data)); err != nil {
			return fmt.Errorf("uniform block %q: %w", b.name, err)
		}
		b.dirty = false
	}
	return nil
}

// Resolve maps block names to their bindings, in the order given.
//
// Parameters:
//   - names: block names as a program declares them
//
// Returns:
//   - []gpu.BlockBinding: one binding per name
//   - error: ErrUnknownBlock for the first name outside the catalog
func (r *Registry) Resolve(names []string) ([]gpu.BlockBinding, error) {
	out := make([]gpu.BlockBinding, 0, len(names))
	for _, name := range names {
		b, ok := r.blocks[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownBlock, name)
		}
		out = append(out, gpu.BlockBinding{Name: b.name, Index: b.index, Buffer: b.buffer})
	}
	return out, nil
}
