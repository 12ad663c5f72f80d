package engine

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// DefaultPassKeys maps keys to the passes they toggle in the demo viewer.
var DefaultPassKeys = map[window.Key]string{
	'1': shader.KeyScreenSpaceShadow,
	'2': shader.KeyAmbientOcclusion,
	'3': shader.KeyScreenSpaceReflection,
	'4': shader.KeyLightShaft,
	'5': shader.KeyVolumetricLight,
	'6': shader.KeyHeightFog,
	'F': shader.KeyFXAA,
	'D': shader.KeyDepthOfField,
	'B': shader.KeyBloom,
	'S': shader.KeyStreak,
	'T': shader.KeyToneMapping,
	'V': shader.KeyVignette,
	'C': shader.KeyChromaticAberration,
	'G': shader.KeyGlitch,
}

// BindOrbitControls drives oc from the engine window: left drag orbits, middle or right drag
// pans and the wheel zooms. Does nothing for a headless engine.
//
// Parameters:
//   - e: the engine
//   - oc: the controller of the engine camera
func BindOrbitControls(e Engine, oc *camera.OrbitController) {
	w := e.Window()
	if w == nil {
		return
	}
	w.SetDragCallback(func(button window.MouseButton, dx, dy float32) {
		switch button {
		case window.MouseLeft:
			oc.Orbit(-dx, dy)
		case window.MouseMiddle, window.MouseRight:
			oc.Pan(-dx, dy)
		}
	})
	w.SetScrollCallback(oc.Zoom)
}

// BindPassToggles flips the enabled flag of a pass when its key is pressed. The flip runs on the
// render goroutine between frames.
//
// Parameters:
//   - e: the engine
//   - keys: pass names by key, see DefaultPassKeys
func BindPassToggles(e Engine, keys map[window.Key]string) {
	w := e.Window()
	if w == nil {
		return
	}
	w.SetKeyCallback(func(key window.Key, pressed bool) {
		name, ok := keys[key]
		if !pressed || !ok {
			return
		}
		e.Do(func() { TogglePass(e, name) })
	})
}

// TogglePass flips the enabled flag of the named pass. Call it from the render goroutine, for
// example through Engine.Do.
//
// Parameters:
//   - e: the engine
//   - name: the pass name
//
// Returns:
//   - bool: false if the renderer has no pass of that name
func TogglePass(e Engine, name string) bool {
	for _, p := range e.Renderer().Context().Passes.All() {
		if p.Name() == name {
			p.SetEnabled(!p.Enabled())
			logger.L().Info("pass toggled", "pass", name, "enabled", p.Enabled())
			return true
		}
	}
	logger.L().Warn("no pass to toggle", "pass", name)
	return false
}
