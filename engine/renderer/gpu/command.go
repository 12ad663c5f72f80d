package gpu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
)

// CommandType identifies a recorded backend call.
type CommandType uint8

const (
	CommandCreateTexture CommandType = iota
	CommandReleaseTexture
	CommandWriteTexture
	CommandCreateBuffer
	CommandWriteBuffer
	CommandCreateProgram
	CommandCreateGeometry
	CommandBindUniformBlocks
	CommandConfigureSurface
	CommandBeginFrame
	CommandBeginRenderPass
	CommandDraw
	CommandEndRenderPass
	CommandCopyTexture
	CommandEndFrame
	CommandPresent
)

var commandTypeNames = [...]string{
	CommandCreateTexture:     "CreateTexture",
	CommandReleaseTexture:    "ReleaseTexture",
	CommandWriteTexture:      "WriteTexture",
	CommandCreateBuffer:      "CreateBuffer",
	CommandWriteBuffer:       "WriteBuffer",
	CommandCreateProgram:     "CreateProgram",
	CommandCreateGeometry:    "CreateGeometry",
	CommandBindUniformBlocks: "BindUniformBlocks",
	CommandConfigureSurface:  "ConfigureSurface",
	CommandBeginFrame:        "BeginFrame",
	CommandBeginRenderPass:   "BeginRenderPass",
	CommandDraw:              "Draw",
	CommandEndRenderPass:     "EndRenderPass",
	CommandCopyTexture:       "CopyTexture",
	CommandEndFrame:          "EndFrame",
	CommandPresent:           "Present",
}

func (c CommandType) String() string {
	if int(c) >= len(commandTypeNames) {
		return fmt.Sprintf("CommandType(%d)", c)
	}
	return commandTypeNames[c]
}

// Command is one recorded backend call. Only the fields relevant to Type are set.
type Command struct {
	Type CommandType
	// Label is the resource, pass or draw label.
	Label string
	// Pass is the label of the render pass enclosing a draw.
	Pass string

	// Render pass attachments.
	Framebuffer bool
	Colors      []string
	ColorLoad   LoadOp
	Depth       string
	DepthLoad   LoadOp

	// Draw state.
	Program    string
	Geometry   string
	Fullscreen bool
	State      pipeline.State
	Textures   map[string]string
	Blocks     map[string][]byte
	Uniforms   []byte

	// Copy endpoints.
	Src string
	Dst string

	Width  int
	Height int
}

// Texture returns the label of the texture bound at slot, or "" when the slot is empty.
func (c Command) Texture(slot string) string {
	return c.Textures[slot]
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Type.String())
	switch c.Type {
	case CommandBeginRenderPass:
		fmt.Fprintf(&sb, " %q", c.Label)
		if c.Framebuffer {
			sb.WriteString(" framebuffer")
		}
		if len(c.Colors) > 0 {
			fmt.Fprintf(&sb, " colors=%v", c.Colors)
		}
		if c.Depth != "" {
			fmt.Fprintf(&sb, " depth=%s", c.Depth)
			if c.DepthLoad == LoadOpClear {
				sb.WriteString("(clear)")
			}
		}
	case CommandDraw:
		fmt.Fprintf(&sb, " %q program=%s", c.Label, c.Program)
		if c.Fullscreen {
			sb.WriteString(" fullscreen")
		}
		if len(c.Textures) > 0 {
			slots := make([]string, 0, len(c.Textures))
			for slot := range c.Textures {
				slots = append(slots, slot)
			}
			sort.Strings(slots)
			for _, slot := range slots {
				fmt.Fprintf(&sb, " %s=%s", slot, c.Textures[slot])
			}
		}
	case CommandCopyTexture:
		fmt.Fprintf(&sb, " %s -> %s", c.Src, c.Dst)
	case CommandCreateTexture, CommandConfigureSurface:
		fmt.Fprintf(&sb, " %q %dx%d", c.Label, c.Width, c.Height)
	case CommandBeginFrame, CommandEndFrame, CommandPresent, CommandEndRenderPass:
	default:
		fmt.Fprintf(&sb, " %q", c.Label)
	}
	return sb.String()
}
