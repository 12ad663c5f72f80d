package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
)

// updateActorTransformUniforms publishes the model payload of one draw.
func (r *renderer) updateActorTransformUniforms(t Transform) error {
	reg := r.registry
	return errors.Join(
		reg.Set(uniform.BlockTransformations, "model", [16]float32(t.Model)),
		reg.Set(uniform.BlockTransformations, "modelInverse", [16]float32(t.ModelInverse)),
		reg.Set(uniform.BlockTransformations, "normalMatrix", [16]float32(t.Normal)),
	)
}

// updateCameraUniforms publishes the matrices and projection parameters of cam.
func (r *renderer) updateCameraUniforms(cam camera.Camera) error {
	reg := r.registry
	var perspective, aspect, fov float32
	switch p := cam.Projection().(type) {
	case *camera.Perspective:
		perspective, aspect, fov = 1, p.Aspect, p.Fov
	case *camera.Orthographic:
		aspect = p.Aspect()
	}
	return errors.Join(
		reg.Set(uniform.BlockCamera, "view", [16]float32(cam.ViewMatrix())),
		reg.Set(uniform.BlockCamera, "projection", [16]float32(cam.ProjectionMatrix())),
		reg.Set(uniform.BlockCamera, "viewProjection", [16]float32(cam.ViewProjectionMatrix())),
		reg.Set(uniform.BlockCamera, "inverseView", [16]float32(cam.InverseViewMatrix())),
		reg.Set(uniform.BlockCamera, "inverseProjection", [16]float32(cam.InverseProjectionMatrix())),
		reg.Set(uniform.BlockCamera, "position", [3]float32(cam.Position())),
		reg.Set(uniform.BlockCamera, "near", cam.Near()),
		reg.Set(uniform.BlockCamera, "far", cam.Far()),
		reg.Set(uniform.BlockCamera, "perspective", perspective),
		reg.Set(uniform.BlockCamera, "aspect", aspect),
		reg.Set(uniform.BlockCamera, "fov", fov),
	)
}

// frameShadows is the shadow state the light uniforms and shadow passes agree on for a frame.
type frameShadows struct {
	directional *light.Shadow
	// spots holds the shadow of each collected spot light bound to a map slot, nil otherwise.
	spots []*light.Shadow
	// slots is the spot shadow map slot of each collected spot light, -1 for none.
	slots []int
	// spotCount is the number of spot shadow slots in use.
	spotCount int
}

// noShadows returns the shadow state of a frame without any shadow for n spot lights.
func noShadows(n int) frameShadows {
	fs := frameShadows{spots: make([]*light.Shadow, n), slots: make([]int, n)}
	for i := range fs.slots {
		fs.slots[i] = -1
	}
	return fs
}

// resolveShadows pairs every shadow-casting light with a usable shadow. A light that casts
// shadows without a map or camera is reported once and rendered unshadowed. Spot shadows take
// map slots in traversal order; a shadowed spot light past the last slot is reported once and
// rendered unshadowed.
func (r *renderer) resolveShadows(lights LightActors, focus common.Vec3) (frameShadows, []error) {
	var errs []error
	fs := noShadows(len(lights.Spots))

	if d := lights.Directional; d != nil {
		pos, dir := scene.WorldLight(d.WorldMatrix(), d.Light)
		shadow, err := r.usableShadow(d.Name(), d.Light)
		if err != nil {
			errs = append(errs, err)
		}
		if shadow != nil {
			if shadow.AutoAim {
				shadow.Aim(light.LightTypeDirectional, pos, dir, focus)
			}
			shadow.Camera.Update()
			fs.directional = shadow
		}
	}
	for i, s := range lights.Spots {
		pos, dir := scene.WorldLight(s.WorldMatrix(), s.Light)
		shadow, err := r.usableShadow(s.Name(), s.Light)
		if err != nil {
			errs = append(errs, err)
		}
		if shadow == nil {
			delete(r.slotReported, s.Light)
			continue
		}
		if fs.spotCount == postprocess.MaxSpotShadows {
			if !r.slotReported[s.Light] {
				r.slotReported[s.Light] = true
				err := fmt.Errorf("light %q: %w", s.Name(), ErrTooManySpotShadows)
				logger.L().Error("shadow disabled", "light", s.Name(), "err", err)
				errs = append(errs, err)
			}
			continue
		}
		delete(r.slotReported, s.Light)
		if shadow.AutoAim {
			shadow.Aim(light.LightTypeSpot, pos, dir, focus)
		}
		shadow.Camera.Update()
		fs.spots[i] = shadow
		fs.slots[i] = fs.spotCount
		fs.spotCount++
	}
	return fs, errs
}

// usableShadow returns l's shadow when it casts shadows and is fully configured. The error
// for a misconfigured light is returned only the first time it is seen.
func (r *renderer) usableShadow(name string, l light.Light) (*light.Shadow, error) {
	if !l.CastsShadows() {
		delete(r.shadowReported, l)
		return nil, nil
	}
	s := l.Shadow()
	var err error
	switch {
	case s == nil || s.Map == nil:
		err = fmt.Errorf("light %q: %w", name, ErrMissingShadowMap)
	case s.Camera == nil:
		err = fmt.Errorf("light %q: %w", name, ErrMissingShadowCamera)
	}
	if err == nil {
		delete(r.shadowReported, l)
		return s, nil
	}
	if r.shadowReported[l] {
		return nil, nil
	}
	r.shadowReported[l] = true
	logger.L().Error("shadow disabled", "light", name, "err", err)
	return nil, err
}

// updateLightUniforms publishes the collected lights. Blocks are zeroed first unless stale
// light retention is on, so a light removed since the last frame stops contributing.
func (r *renderer) updateLightUniforms(lights LightActors, shadows frameShadows) error {
	reg := r.registry
	var errs []error
	if !r.retainStaleLights {
		errs = append(errs,
			reg.Clear(uniform.BlockDirectionalLight),
			reg.Clear(uniform.BlockSpotLight),
			reg.Clear(uniform.BlockPointLight),
		)
	}

	if d := lights.Directional; d != nil {
		_, dir := scene.WorldLight(d.WorldMatrix(), d.Light)
		var bias float32
		shadowMatrix := common.Identity4()
		if s := shadows.directional; s != nil {
			bias = s.Bias
			shadowMatrix = s.Matrix()
		}
		errs = append(errs,
			reg.Set(uniform.BlockDirectionalLight, "direction", [3]float32(dir)),
			reg.Set(uniform.BlockDirectionalLight, "color", [3]float32(d.Light.Color())),
			reg.Set(uniform.BlockDirectionalLight, "intensity", d.Light.Intensity()),
			reg.Set(uniform.BlockDirectionalLight, "enabled", true),
			reg.Set(uniform.BlockDirectionalLight, "castShadow", shadows.directional != nil),
			reg.Set(uniform.BlockDirectionalLight, "shadowBias", bias),
			reg.Set(uniform.BlockDirectionalLight, "shadowMatrix", [16]float32(shadowMatrix)),
		)
	}

	for i, s := range lights.Spots {
		pos, dir := scene.WorldLight(s.WorldMatrix(), s.Light)
		shadowMatrix := common.Identity4()
		if sh := shadows.spots[i]; sh != nil {
			shadowMatrix = sh.Matrix()
		}
		l := s.Light
		errs = append(errs,
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "position", [3]float32(pos)),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "direction", [3]float32(dir)),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "color", [3]float32(l.Color())),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "intensity", l.Intensity()),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "distance", l.Distance()),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "angle", l.Angle()),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "penumbra", l.Penumbra()),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "decay", l.Decay()),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "castShadow", shadows.spots[i] != nil),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "shadowSlot", shadows.slots[i]),
			reg.SetField(uniform.BlockSpotLight, uniform.EntryLights, i, "shadowMatrix", [16]float32(shadowMatrix)),
		)
	}

	for i, p := range lights.Points {
		pos, _ := scene.WorldLight(p.WorldMatrix(), p.Light)
		l := p.Light
		errs = append(errs,
			reg.SetField(uniform.BlockPointLight, uniform.EntryLights, i, "position", [3]float32(pos)),
			reg.SetField(uniform.BlockPointLight, uniform.EntryLights, i, "color", [3]float32(l.Color())),
			reg.SetField(uniform.BlockPointLight, uniform.EntryLights, i, "intensity", l.Intensity()),
			reg.SetField(uniform.BlockPointLight, uniform.EntryLights, i, "distance", l.Distance()),
			reg.SetField(uniform.BlockPointLight, uniform.EntryLights, i, "decay", l.Decay()),
		)
	}
	return errors.Join(errs...)
}

// updateTimelineUniforms publishes the frame clock. The first frame has a zero delta.
func (r *renderer) updateTimelineUniforms(t float64) error {
	delta := 0.0
	if r.frame > 0 {
		delta = t - r.lastTime
	}
	r.lastTime = t
	err := errors.Join(
		r.registry.Set(uniform.BlockTimeline, "time", t),
		r.registry.Set(uniform.BlockTimeline, "delta", delta),
		r.registry.Set(uniform.BlockTimeline, "frame", int(r.frame)),
	)
	r.frame++
	return err
}

// updateCommonUniforms publishes viewport and light count data shared by every pass.
func (r *renderer) updateCommonUniforms(size common.Size, lights LightActors, shadows frameShadows) error {
	return errors.Join(
		r.registry.Set(uniform.BlockCommon, "resolution", [2]float32{float32(size.Width), float32(size.Height)}),
		r.registry.Set(uniform.BlockCommon, "spotLightCount", len(lights.Spots)),
		r.registry.Set(uniform.BlockCommon, "pointLightCount", len(lights.Points)),
		r.registry.Set(uniform.BlockCommon, "spotShadowCount", shadows.spotCount),
	)
}
