package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type drag struct {
	button MouseButton
	dx, dy float32
}

func TestDragFiresPerHeldButton(t *testing.T) {
	w := newEngineWindow()
	var got []drag
	w.SetDragCallback(func(b MouseButton, dx, dy float32) { got = append(got, drag{b, dx, dy}) })

	w.handleCursor(10, 10)
	w.handleCursor(12, 10)
	assert.Empty(t, got, "no button held")

	w.handleButton(MouseLeft, true, 12, 10)
	w.handleCursor(15, 6)
	w.handleButton(MouseMiddle, true, 15, 6)
	w.handleCursor(16, 6)
	w.handleCursor(16, 6)
	w.handleButton(MouseLeft, false, 16, 6)
	w.handleCursor(16, 8)

	assert.Equal(t, []drag{
		{MouseLeft, 3, -4},
		{MouseLeft, 1, 0},
		{MouseMiddle, 1, 0},
		{MouseMiddle, 0, 2},
	}, got)
}

func TestFirstCursorEventOnlyAnchors(t *testing.T) {
	w := newEngineWindow()
	w.held[MouseRight] = true
	calls := 0
	w.SetDragCallback(func(MouseButton, float32, float32) { calls++ })

	w.handleCursor(400, 300)
	assert.Zero(t, calls)
	w.handleCursor(401, 300)
	assert.Equal(t, 1, calls)
}

func TestResizeRecordsSize(t *testing.T) {
	w := newEngineWindow(WithSize(640, 480))
	assert.Equal(t, 640, w.Width())

	var gotW, gotH int
	w.SetResizeCallback(func(width, height int) { gotW, gotH = width, height })
	w.handleResize(0, 0)
	assert.Zero(t, w.Width())
	assert.Zero(t, gotW+gotH)

	w.handleResize(800, 600)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, 800, gotW)
	assert.Equal(t, 600, gotH)
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow(WithTitle("viewer"))
	assert.Equal(t, "viewer", w.title)
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), errNotInitialized)

	w.handleKey('F', true)
	w.handleScroll(1)
}

func TestSizeLimits(t *testing.T) {
	w := newEngineWindow()
	minW, minH, maxW, maxH := w.sizeLimits()
	assert.Equal(t, []int{320, 200, 3840, 2160}, []int{minW, minH, maxW, maxH})

	w = newEngineWindow(WithSizeLimits(640, 0, 1920, 0))
	minW, minH, maxW, maxH = w.sizeLimits()
	assert.Equal(t, []int{640, unbounded, 1920, unbounded}, []int{minW, minH, maxW, maxH})
}
