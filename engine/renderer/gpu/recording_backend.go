package gpu

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

var (
	errNoFrame     = errors.New("no frame in progress")
	errNoPass      = errors.New("no render pass in progress")
	errPassOpen    = errors.New("render pass already in progress")
	errReleased    = errors.New("resource already released")
	errForeignType = errors.New("resource was not created by this backend")
)

// RecordingBackend is a Backend that performs no GPU work and records every call as a
// Command. It enforces the same pass rules as the WebGPU backend: passes do not nest,
// copies happen outside passes, and a texture cannot be sampled while it is attached to
// the open pass.
type RecordingBackend struct {
	mu sync.Mutex

	commands []Command
	programs map[string][]BlockBinding

	inFrame     bool
	inPass      bool
	passLabel   string
	attachments map[*recordedTexture]bool

	surface common.Size
}

var _ Backend = &RecordingBackend{}

type recordedTexture struct {
	b        *RecordingBackend
	desc     TextureDescriptor
	released bool
}

func (t *recordedTexture) Label() string         { return t.desc.Label }
func (t *recordedTexture) Width() int            { return t.desc.Width }
func (t *recordedTexture) Height() int           { return t.desc.Height }
func (t *recordedTexture) Format() TextureFormat { return t.desc.Format }

func (t *recordedTexture) Release() {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()

	if t.released {
		return
	}
	t.released = true
	t.b.commands = append(t.b.commands, Command{Type: CommandReleaseTexture, Label: t.desc.Label})
}

type recordedBuffer struct {
	label    string
	data     []byte
	released bool
}

func (b *recordedBuffer) Label() string { return b.label }
func (b *recordedBuffer) Size() int     { return len(b.data) }
func (b *recordedBuffer) Release()      { b.released = true }

type recordedProgram struct {
	key string
}

func (p *recordedProgram) Key() string { return p.key }

type recordedGeometry struct {
	label      string
	indexCount int
}

func (g *recordedGeometry) Label() string   { return g.label }
func (g *recordedGeometry) IndexCount() int { return g.indexCount }
func (g *recordedGeometry) Release()        {}

// NewRecordingBackend creates an empty RecordingBackend.
//
// Returns:
//   - *RecordingBackend: the backend
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		programs:    make(map[string][]BlockBinding),
		attachments: make(map[*recordedTexture]bool),
	}
}

// Commands returns a copy of the recorded command log.
//
// Returns:
//   - []Command: every command recorded since creation or the last Reset
func (b *RecordingBackend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// Filter returns the recorded commands of the given types, in order.
//
// Parameters:
//   - types: the command types to keep
//
// Returns:
//   - []Command: the matching commands
func (b *RecordingBackend) Filter(types ...CommandType) []Command {
	keep := make(map[CommandType]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	var out []Command
	for _, c := range b.Commands() {
		if keep[c.Type] {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the command log. Resources stay valid.
func (b *RecordingBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commands = nil
}

// SurfaceSize returns the size last passed to ConfigureSurface.
func (b *RecordingBackend) SurfaceSize() common.Size {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.surface
}

// Dump writes the command log to w, one command per line.
//
// Parameters:
//   - w: the destination writer
//
// Returns:
//   - error: the first write error
func (b *RecordingBackend) Dump(w io.Writer) error {
	for _, c := range b.Commands() {
		if _, err := fmt.Fprintln(w, c.String()); err != nil {
			return err
		}
	}
	return nil
}

func (b *RecordingBackend) record(c Command) {
	b.commands = append(b.commands, c)
}

func (b *RecordingBackend) texture(t Texture) (*recordedTexture, error) {
	rt, ok := t.(*recordedTexture)
	if !ok || rt == nil {
		return nil, errForeignType
	}
	if rt.released {
		return nil, fmt.Errorf("texture %q: %w", rt.desc.Label, errReleased)
	}
	return rt, nil
}

func (b *RecordingBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	b.record(Command{Type: CommandCreateTexture, Label: desc.Label, Width: desc.Width, Height: desc.Height})
	return &recordedTexture{b: b, desc: desc}, nil
}

func (b *RecordingBackend) WriteTexture(tex Texture, data common.TextureData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt, err := b.texture(tex)
	if err != nil {
		return err
	}
	if data.Width != rt.desc.Width || data.Height != rt.desc.Height {
		return fmt.Errorf("texture %q: data is %dx%d, texture is %dx%d",
			rt.desc.Label, data.Width, data.Height, rt.desc.Width, rt.desc.Height)
	}
	b.record(Command{Type: CommandWriteTexture, Label: rt.desc.Label})
	return nil
}

func (b *RecordingBackend) CreateUniformBuffer(label string, size int) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size <= 0 {
		return nil, fmt.Errorf("buffer %q: invalid size %d", label, size)
	}
	b.record(Command{Type: CommandCreateBuffer, Label: label})
	return &recordedBuffer{label: label, data: make([]byte, size)}, nil
}

func (b *RecordingBackend) WriteBuffer(buf Buffer, offset int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rb, ok := buf.(*recordedBuffer)
	if !ok || rb == nil {
		return errForeignType
	}
	if rb.released {
		return fmt.Errorf("buffer %q: %w", rb.label, errReleased)
	}
	if offset < 0 || offset+len(data) > len(rb.data) {
		return fmt.Errorf("buffer %q: write of %d bytes at %d exceeds size %d", rb.label, len(data), offset, len(rb.data))
	}
	copy(rb.data[offset:], data)
	b.record(Command{Type: CommandWriteBuffer, Label: rb.label})
	return nil
}

// BufferData returns a copy of the bytes last written to buf.
//
// Parameters:
//   - buf: a buffer created by this backend
//
// Returns:
//   - []byte: the buffer contents, or nil for a foreign buffer
func (b *RecordingBackend) BufferData(buf Buffer) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	rb, ok := buf.(*recordedBuffer)
	if !ok || rb == nil {
		return nil
	}
	out := make([]byte, len(rb.data))
	copy(out, rb.data)
	return out
}

func (b *RecordingBackend) CreateProgram(desc ProgramDescriptor) (Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.Key == "" {
		return nil, errors.New("program key must not be empty")
	}
	b.record(Command{Type: CommandCreateProgram, Label: desc.Key})
	return &recordedProgram{key: desc.Key}, nil
}

func (b *RecordingBackend) CreateGeometry(label string, vertices, indices []byte, indexCount int) (Geometry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertices) == 0 {
		return nil, fmt.Errorf("geometry %q: no vertex data", label)
	}
	b.record(Command{Type: CommandCreateGeometry, Label: label})
	return &recordedGeometry{label: label, indexCount: indexCount}, nil
}

func (b *RecordingBackend) BindUniformBlocks(p Program, blocks []BlockBinding) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p == nil {
		return errors.New("nil program")
	}
	bound := make([]BlockBinding, len(blocks))
	copy(bound, blocks)
	b.programs[p.Key()] = bound
	b.record(Command{Type: CommandBindUniformBlocks, Label: p.Key()})
	return nil
}

func (b *RecordingBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.surface = common.Size{Width: width, Height: height}
	b.record(Command{Type: CommandConfigureSurface, Label: "surface", Width: width, Height: height})
}

func (b *RecordingBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFrame {
		return errors.New("previous frame not ended")
	}
	b.inFrame = true
	b.record(Command{Type: CommandBeginFrame})
	return nil
}

func (b *RecordingBackend) BeginRenderPass(desc RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return errNoFrame
	}
	if b.inPass {
		return fmt.Errorf("pass %q: %w (%q)", desc.Label, errPassOpen, b.passLabel)
	}

	cmd := Command{Type: CommandBeginRenderPass, Label: desc.Label, Framebuffer: desc.Framebuffer}
	attached := make(map[*recordedTexture]bool)
	size := common.Size{}
	if desc.Framebuffer {
		size = b.surface
		cmd.ColorLoad = desc.FramebufferLoad
	} else {
		for i, c := range desc.Colors {
			rt, err := b.texture(c.Texture)
			if err != nil {
				return fmt.Errorf("pass %q color %d: %w", desc.Label, i, err)
			}
			if rt.desc.Format.IsDepth() {
				return fmt.Errorf("pass %q color %d: depth texture %q used as color", desc.Label, i, rt.desc.Label)
			}
			if i == 0 {
				size = common.Size{Width: rt.desc.Width, Height: rt.desc.Height}
				cmd.ColorLoad = c.Load
			} else if rt.desc.Width != size.Width || rt.desc.Height != size.Height {
				return fmt.Errorf("pass %q: color attachment sizes differ", desc.Label)
			}
			attached[rt] = true
			cmd.Colors = append(cmd.Colors, rt.desc.Label)
		}
	}
	if desc.Depth != nil {
		rt, err := b.texture(desc.Depth.Texture)
		if err != nil {
			return fmt.Errorf("pass %q depth: %w", desc.Label, err)
		}
		if !rt.desc.Format.IsDepth() {
			return fmt.Errorf("pass %q: %q is not a depth texture", desc.Label, rt.desc.Label)
		}
		if size.Valid() && (rt.desc.Width != size.Width || rt.desc.Height != size.Height) {
			return fmt.Errorf("pass %q: depth %q is %dx%d, colors are %dx%d",
				desc.Label, rt.desc.Label, rt.desc.Width, rt.desc.Height, size.Width, size.Height)
		}
		attached[rt] = true
		cmd.Depth = rt.desc.Label
		cmd.DepthLoad = desc.Depth.Load
	}
	if !desc.Framebuffer && len(desc.Colors) == 0 && desc.Depth == nil {
		return fmt.Errorf("pass %q: no attachments", desc.Label)
	}

	b.inPass = true
	b.passLabel = desc.Label
	b.attachments = attached
	b.record(cmd)
	return nil
}

func (b *RecordingBackend) Draw(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inPass {
		return fmt.Errorf("draw %q: %w", cmd.Label, errNoPass)
	}
	if cmd.Program == nil {
		return fmt.Errorf("draw %q: nil program", cmd.Label)
	}
	if err := cmd.State.Validate(); err != nil {
		return fmt.Errorf("draw %q: %w", cmd.Label, err)
	}

	rec := Command{
		Type:       CommandDraw,
		Label:      cmd.Label,
		Pass:       b.passLabel,
		Program:    cmd.Program.Key(),
		Fullscreen: cmd.Geometry == nil,
		State:      cmd.State,
		Textures:   make(map[string]string, len(cmd.Textures)),
		Blocks:     make(map[string][]byte),
	}
	if cmd.Geometry != nil {
		rec.Geometry = cmd.Geometry.Label()
	}
	for _, tb := range cmd.Textures {
		rt, err := b.texture(tb.Texture)
		if err != nil {
			return fmt.Errorf("draw %q slot %q: %w", cmd.Label, tb.Name, err)
		}
		if b.attachments[rt] {
			return fmt.Errorf("draw %q slot %q: texture %q is attached to the open pass", cmd.Label, tb.Name, rt.desc.Label)
		}
		rec.Textures[tb.Name] = rt.desc.Label
	}
	for _, bb := range b.programs[cmd.Program.Key()] {
		if rb, ok := bb.Buffer.(*recordedBuffer); ok {
			snapshot := make([]byte, len(rb.data))
			copy(snapshot, rb.data)
			rec.Blocks[bb.Name] = snapshot
		}
	}
	if len(cmd.Uniforms) > 0 {
		rec.Uniforms = append([]byte(nil), cmd.Uniforms...)
	}
	b.record(rec)
	return nil
}

func (b *RecordingBackend) EndRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inPass {
		return errNoPass
	}
	b.inPass = false
	b.passLabel = ""
	b.attachments = make(map[*recordedTexture]bool)
	b.record(Command{Type: CommandEndRenderPass})
	return nil
}

func (b *RecordingBackend) CopyTexture(src, dst Texture) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inPass {
		return fmt.Errorf("copy inside pass %q: %w", b.passLabel, errPassOpen)
	}
	s, err := b.texture(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	d, err := b.texture(dst)
	if err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	if s.desc.Width != d.desc.Width || s.desc.Height != d.desc.Height || s.desc.Format != d.desc.Format {
		return fmt.Errorf("copy %q -> %q: incompatible textures (%dx%d %s vs %dx%d %s)",
			s.desc.Label, d.desc.Label, s.desc.Width, s.desc.Height, s.desc.Format, d.desc.Width, d.desc.Height, d.desc.Format)
	}
	b.record(Command{Type: CommandCopyTexture, Src: s.desc.Label, Dst: d.desc.Label})
	return nil
}

func (b *RecordingBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return errNoFrame
	}
	if b.inPass {
		return fmt.Errorf("end frame: %w (%q)", errPassOpen, b.passLabel)
	}
	b.inFrame = false
	b.record(Command{Type: CommandEndFrame})
	return nil
}

func (b *RecordingBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record(Command{Type: CommandPresent})
}
