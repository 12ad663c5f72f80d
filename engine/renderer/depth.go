package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/target"
)

// snapshotLabel is the label of the read-only depth copy.
const snapshotLabel = "depth snapshot"

// DepthState is the only place depth moves between targets. AliasDepth shares one depth
// attachment between targets; SnapshotDepth copies it into a texture that passes can sample
// while the attachment keeps being written.
//
// The snapshot is reused until the source depth is written again, as reported by MarkWritten.
type DepthState struct {
	backend gpu.Backend

	snapshot gpu.Texture
	source   gpu.Texture
	dirty    bool
	copies   int
}

// NewDepthState creates the depth state machine. No texture is allocated until the first snapshot.
//
// Parameters:
//   - backend: the GPU backend
//
// Returns:
//   - *DepthState: the state machine
func NewDepthState(backend gpu.Backend) *DepthState {
	return &DepthState{backend: backend, dirty: true}
}

// AliasDepth binds from's depth attachment as to's depth. Both targets then read and write the
// same texture; nothing is copied.
//
// Parameters:
//   - from: the target owning the depth
//   - to: the target borrowing it
func (d *DepthState) AliasDepth(from, to *target.RenderTarget) {
	to.AttachDepth(from.Depth())
}

// SnapshotDepth copies from's depth into the snapshot texture and returns it. It must be called
// outside a render pass. When from's depth has not been written since the last snapshot the
// existing copy is returned without a new blit.
//
// Parameters:
//   - from: the target whose depth is copied
//
// Returns:
//   - gpu.Texture: the snapshot
//   - error: an error if from has no depth or the copy fails
func (d *DepthState) SnapshotDepth(from *target.RenderTarget) (gpu.Texture, error) {
	src := from.Depth()
	if src == nil {
		return nil, fmt.Errorf("snapshot of %q: target has no depth", from.Label())
	}
	if d.snapshot != nil && (d.snapshot.Width() != src.Width() || d.snapshot.Height() != src.Height()) {
		d.Release()
	}
	if d.snapshot == nil {
		tex, err := d.backend.CreateTexture(gpu.TextureDescriptor{
			Label:  snapshotLabel,
			Width:  src.Width(),
			Height: src.Height(),
			Format: gpu.TextureFormatDepth32Float,
			Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot of %q: %w", from.Label(), err)
		}
		d.snapshot = tex
		d.dirty = true
	}
	if !d.dirty && d.source == src {
		return d.snapshot, nil
	}
	if err := d.backend.CopyTexture(src, d.snapshot); err != nil {
		return nil, fmt.Errorf("snapshot of %q: %w", from.Label(), err)
	}
	d.source = src
	d.dirty = false
	d.copies++
	return d.snapshot, nil
}

// Stale reports whether the next SnapshotDepth of from would have to copy.
func (d *DepthState) Stale(from *target.RenderTarget) bool {
	src := from.Depth()
	if src == nil {
		return true
	}
	return d.snapshot == nil || d.dirty || d.source != src ||
		d.snapshot.Width() != src.Width() || d.snapshot.Height() != src.Height()
}

// MarkWritten records that the snapshotted depth was written, so the next snapshot copies again.
func (d *DepthState) MarkWritten() {
	d.dirty = true
}

// Snapshot returns the last snapshot, or nil before the first one.
func (d *DepthState) Snapshot() gpu.Texture {
	return d.snapshot
}

// Copies counts the blits performed since creation.
func (d *DepthState) Copies() int {
	return d.copies
}

// Release frees the snapshot texture. The next SnapshotDepth allocates a new one.
func (d *DepthState) Release() {
	if d.snapshot != nil {
		d.snapshot.Release()
	}
	d.snapshot = nil
	d.source = nil
	d.dirty = true
}
