package gpu

import (
	"errors"
	"fmt"
)

// ErrUniformArenaFull is returned by a draw whose uniforms no longer fit in the frame's
// uniform arena. Raise the capacity with WithArenaSize.
var ErrUniformArenaFull = errors.New("uniform arena full")

// uniformArena is the CPU staging copy of the per-frame uniform buffer. Allocations are
// aligned to uniformAlignment so each one can be bound at a dynamic offset.
type uniformArena struct {
	data   []byte
	cursor int
}

func newUniformArena(size int) *uniformArena {
	return &uniformArena{data: make([]byte, size)}
}

// alloc copies data into the next aligned slot and returns its offset.
func (a *uniformArena) alloc(data []byte) (uint32, error) {
	offset := a.cursor
	end := offset + len(data)
	if end > len(a.data) {
		return 0, fmt.Errorf("%w: %d of %d bytes used, %d more requested", ErrUniformArenaFull, offset, len(a.data), len(data))
	}
	copy(a.data[offset:end], data)
	a.cursor = (end + uniformAlignment - 1) / uniformAlignment * uniformAlignment
	return uint32(offset), nil
}

// used returns the bytes written this frame.
func (a *uniformArena) used() []byte {
	return a.data[:min(a.cursor, len(a.data))]
}

func (a *uniformArena) reset() {
	a.cursor = 0
}
