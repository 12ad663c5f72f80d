// Package target provides render targets: fixed sets of color attachments with an optional
// depth attachment, sized to the viewport or a fraction of it.
package target

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
)

// ErrInvalidSize is returned when a target is sized to a non-positive dimension.
var ErrInvalidSize = errors.New("invalid render target size")

const attachmentUsage = gpu.TextureUsageRenderAttachment | gpu.TextureUsageSampled |
	gpu.TextureUsageCopySrc | gpu.TextureUsageCopyDst

// RenderTarget owns a fixed set of color attachments and optionally a depth attachment.
// A double-buffered target keeps two sets of color attachments and alternates between them.
//
// A depth texture attached with AttachDepth is borrowed: the target binds it but never
// releases or resizes it.
type RenderTarget struct {
	backend gpu.Backend
	label   string

	formats        []gpu.TextureFormat
	ownsDepth      bool
	scale          int
	doubleBuffered bool

	requested  common.Size
	size       common.Size
	allocated  bool
	generation uint64

	colors   [2][]gpu.Texture
	read     int
	depth    gpu.Texture
	borrowed gpu.Texture
}

// NewRenderTarget creates a render target. Attachments are allocated by the first SetSize,
// or immediately when WithSize is given.
//
// Parameters:
//   - backend: the GPU backend that allocates the attachments
//   - label: debug label prefix for the attachments
//   - opts: variadic list of RenderTargetBuilderOption functions
//
// Returns:
//   - *RenderTarget: the render target
//   - error: an error if the initial allocation fails
func NewRenderTarget(backend gpu.Backend, label string, opts ...RenderTargetBuilderOption) (*RenderTarget, error) {
	t := &RenderTarget{
		backend: backend,
		label:   label,
		formats: []gpu.TextureFormat{gpu.TextureFormatRGBA16Float},
		scale:   1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.requested.Valid() {
		size := t.requested
		t.requested = common.Size{}
		if err := t.SetSize(size.Width, size.Height); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Label returns the target's debug label.
func (t *RenderTarget) Label() string {
	return t.label
}

// Size returns the allocated attachment size, after the scale divisor.
func (t *RenderTarget) Size() common.Size {
	return t.size
}

// Scale returns the integer divisor applied to requested sizes.
func (t *RenderTarget) Scale() int {
	return t.scale
}

// Generation counts attachment reallocations. It changes whenever SetSize recreated the attachments.
func (t *RenderTarget) Generation() uint64 {
	return t.generation
}

// ScaledSize computes the attachment size produced by a requested size.
//
// Parameters:
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - common.Size: max(1, width/scale) by max(1, height/scale)
func (t *RenderTarget) ScaledSize(width, height int) common.Size {
	return common.Size{Width: max(1, width/t.scale), Height: max(1, height/t.scale)}
}

// SetSize recreates every owned attachment at the scaled size. Calls that do not change the
// scaled size do nothing.
//
// Parameters:
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - error: ErrInvalidSize for non-positive dimensions, or an allocation error
func (t *RenderTarget) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("target %q %dx%d: %w", t.label, width, height, ErrInvalidSize)
	}
	t.requested = common.Size{Width: width, Height: height}
	size := t.ScaledSize(width, height)
	if size == t.size && t.allocated {
		return nil
	}

	var next [2][]gpu.Texture
	sets := 1
	if t.doubleBuffered {
		sets = 2
	}
	for s := 0; s < sets; s++ {
		for i, f := range t.formats {
			label := fmt.Sprintf("%s color %d", t.label, i)
			if t.doubleBuffered {
				label = fmt.Sprintf("%s color %d/%d", t.label, i, s)
			}
			tex, err := t.backend.CreateTexture(gpu.TextureDescriptor{
				Label:  label,
				Width:  size.Width,
				Height: size.Height,
				Format: f,
				Usage:  attachmentUsage,
			})
			if err != nil {
				releaseAll(next[:])
				return fmt.Errorf("target %q: %w", t.label, err)
			}
			next[s] = append(next[s], tex)
		}
	}

	var depth gpu.Texture
	if t.ownsDepth {
		tex, err := t.backend.CreateTexture(gpu.TextureDescriptor{
			Label:  t.label + " depth",
			Width:  size.Width,
			Height: size.Height,
			Format: gpu.TextureFormatDepth32Float,
			Usage:  attachmentUsage,
		})
		if err != nil {
			releaseAll(next[:])
			return fmt.Errorf("target %q: %w", t.label, err)
		}
		depth = tex
	}

	t.release()
	t.colors = next
	if !t.doubleBuffered {
		t.colors[1] = t.colors[0]
	}
	t.depth = depth
	t.read = 0
	t.size = size
	t.allocated = true
	t.generation++
	return nil
}

func releaseAll(sets [][]gpu.Texture) {
	for _, set := range sets {
		for _, tex := range set {
			tex.Release()
		}
	}
}

func (t *RenderTarget) release() {
	releaseAll(t.colors[:1])
	if t.doubleBuffered {
		releaseAll(t.colors[1:])
	}
	if t.depth != nil {
		t.depth.Release()
	}
	t.colors = [2][]gpu.Texture{}
	t.depth = nil
}

// Release frees every owned attachment. A borrowed depth texture is left untouched.
func (t *RenderTarget) Release() {
	t.release()
	t.borrowed = nil
	t.size = common.Size{}
	t.allocated = false
}

// Read returns the color attachments holding the most recently written result.
func (t *RenderTarget) Read() []gpu.Texture {
	return t.colors[t.read]
}

// Write returns the color attachments the next pass renders into. For a single-buffered
// target this is the same set as Read.
func (t *RenderTarget) Write() []gpu.Texture {
	if !t.doubleBuffered {
		return t.colors[0]
	}
	return t.colors[1-t.read]
}

// Swap makes the write set the read set. It does nothing for a single-buffered target.
func (t *RenderTarget) Swap() {
	if t.doubleBuffered {
		t.read = 1 - t.read
	}
}

// Texture returns the first color attachment of the read set, or nil before allocation.
func (t *RenderTarget) Texture() gpu.Texture {
	read := t.Read()
	if len(read) == 0 {
		return nil
	}
	return read[0]
}

// Color returns color attachment i of the read set.
func (t *RenderTarget) Color(i int) gpu.Texture {
	read := t.Read()
	if i < 0 || i >= len(read) {
		return nil
	}
	return read[i]
}

// AttachDepth borrows an externally owned depth texture. It replaces the owned depth as the
// bound depth attachment until detached with a nil texture.
//
// Parameters:
//   - tex: the depth texture, or nil to detach
func (t *RenderTarget) AttachDepth(tex gpu.Texture) {
	t.borrowed = tex
}

// Depth returns the bound depth attachment: the borrowed texture if any, else the owned one.
func (t *RenderTarget) Depth() gpu.Texture {
	if t.borrowed != nil {
		return t.borrowed
	}
	return t.depth
}

// OwnedDepth returns the depth texture this target allocated, or nil.
func (t *RenderTarget) OwnedDepth() gpu.Texture {
	return t.depth
}

// PassDescriptor builds a render pass descriptor over the write set and the bound depth.
//
// Parameters:
//   - label: the pass label
//   - colorLoad: load op for the color attachments
//   - clearColor: clear color used when colorLoad is LoadOpClear
//   - depthLoad: load op for the depth attachment
//
// Returns:
//   - gpu.RenderPassDescriptor: the descriptor
func (t *RenderTarget) PassDescriptor(label string, colorLoad gpu.LoadOp, clearColor [4]float64, depthLoad gpu.LoadOp) gpu.RenderPassDescriptor {
	desc := gpu.RenderPassDescriptor{Label: label}
	for _, tex := range t.Write() {
		desc.Colors = append(desc.Colors, gpu.ColorAttachment{Texture: tex, Load: colorLoad, ClearColor: clearColor})
	}
	if d := t.Depth(); d != nil {
		desc.Depth = &gpu.DepthAttachment{Texture: d, Load: depthLoad, ClearDepth: 1.0}
	}
	return desc
}
