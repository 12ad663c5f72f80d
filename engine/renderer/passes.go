package renderer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/postprocess"
)

// Shadow caster depth offsets.
const (
	shadowDepthBias      int32   = 2
	shadowDepthBiasSlope float32 = 2.0
)

const (
	passLabelDepthPrePass = "depth prepass"
	passLabelGBuffer      = "gbuffer"
	passLabelTransparent  = "transparent"
)

var clearBlack = [4]float64{0, 0, 0, 0}

// drawCall is one resolved mesh draw.
type drawCall struct {
	info RenderMeshInfo

	// bind is the material whose uniform blocks cover program.
	bind    material.Material
	program gpu.Program
	state   pipeline.State

	// textures is the material whose texture slots are bound.
	textures material.Material
	uniforms []byte
	extras   map[string]gpu.Texture
}

// bindBlocks resolves a program's block names against the registry and binds them.
func (r *renderer) bindBlocks(p gpu.Program, names []string) error {
	bindings, err := r.registry.Resolve(names)
	if err != nil {
		return err
	}
	return r.backend.BindUniformBlocks(p, bindings)
}

// colorCall draws the material as it is.
func colorCall(info RenderMeshInfo, extras map[string]gpu.Texture) drawCall {
	m := info.Material()
	return drawCall{
		info:     info,
		bind:     m,
		program:  m.Program(),
		state:    m.PipelineState(),
		textures: m,
		uniforms: m.Uniforms(),
		extras:   extras,
	}
}

// depthCall draws the material's depth variant. Materials without a depth program of their own
// draw with the built-in depth program.
func (r *renderer) depthCall(info RenderMeshInfo) drawCall {
	dm := info.Material().DepthMaterial()
	c := drawCall{
		info:     info,
		bind:     dm,
		program:  dm.Program(),
		state:    dm.PipelineState(),
		textures: dm,
		uniforms: dm.Uniforms(),
	}
	if c.program == nil {
		c.bind = r.depthMaterial
		c.program = r.depthMaterial.Program()
	}
	return c
}

// draw binds the call's material on first use, publishes its transform and submits it.
func (r *renderer) draw(c drawCall) error {
	if err := c.bind.EnsureBound(r.bindProgram); err != nil {
		return err
	}
	if err := r.updateActorTransformUniforms(c.info.Transform); err != nil {
		return err
	}
	if err := r.registry.Flush(); err != nil {
		return err
	}
	return r.backend.Draw(gpu.DrawCommand{
		Label:     c.info.Actor.Name(),
		Program:   c.program,
		Geometry:  c.info.Part.Geometry,
		State:     c.state,
		Uniforms:  c.uniforms,
		Textures:  r.drawTextures(c.program, c.textures, c.extras),
		Instances: 1,
	})
}

// drawTextures resolves every texture slot the program's shader declares: the material's own
// binding first, then a pipeline extra such as the depth snapshot, then the fallback. Programs
// outside the library get the material's bindings followed by the extras.
func (r *renderer) drawTextures(p gpu.Program, m material.Material, extras map[string]gpu.Texture) []gpu.TextureBinding {
	bound := m.Textures()
	s, ok := r.library.Lookup(p.Key())
	if !ok {
		out := slices.Clone(bound)
		for _, name := range slices.Sorted(maps.Keys(extras)) {
			if extras[name] == nil || slices.ContainsFunc(bound, func(b gpu.TextureBinding) bool { return b.Name == name }) {
				continue
			}
			out = append(out, gpu.TextureBinding{Name: name, Texture: extras[name], Sampler: gpu.SamplerNearest})
		}
		return out
	}

	slots := s.Textures()
	out := make([]gpu.TextureBinding, 0, len(slots))
	for _, slot := range slots {
		b := gpu.TextureBinding{Name: slot.Name, Sampler: gpu.SamplerLinear}
		if slot.Depth {
			b.Sampler = gpu.SamplerNearest
		}
		if i := slices.IndexFunc(bound, func(t gpu.TextureBinding) bool { return t.Name == slot.Name }); i >= 0 && bound[i].Texture != nil {
			b = bound[i]
		} else if tex := extras[slot.Name]; tex != nil {
			b.Texture = tex
		}
		if b.Texture == nil {
			b.Texture = r.fallback
			if slot.Depth {
				b.Texture = r.fallbackDepth
			}
		}
		out = append(out, b)
	}
	return out
}

// renderDepthPrePass clears the pre-pass depth and fills it from every non-skybox base draw
// that does not opt out of the pre-pass.
func (r *renderer) renderDepthPrePass(lists *renderLists) error {
	defer r.profiler.Begin(passLabelDepthPrePass)()

	desc := r.prePass.PassDescriptor(passLabelDepthPrePass, gpu.LoadOpClear, clearBlack, gpu.LoadOpClear)
	if err := r.backend.BeginRenderPass(desc); err != nil {
		return fmt.Errorf("depth prepass: %w", err)
	}
	var drawErr error
	for _, info := range lists.prePass {
		if info.Material().SkipDepthPrePass() {
			continue
		}
		if drawErr = r.draw(r.depthCall(info)); drawErr != nil {
			break
		}
	}
	if err := r.backend.EndRenderPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	r.depth.MarkWritten()
	if drawErr != nil {
		return fmt.Errorf("depth prepass: %w", drawErr)
	}
	return nil
}

// renderGBuffer fills the g-buffer front to back over the pre-pass depth. Pre-passed draws test
// LessEqual without writing depth. A draw that skipped the pre-pass samples a depth snapshot,
// taken by closing and reopening the pass when the current snapshot is stale.
func (r *renderer) renderGBuffer(lists *renderLists, skybox gpu.Texture) error {
	defer r.profiler.Begin(passLabelGBuffer)()

	r.depth.AliasDepth(r.prePass, r.gbuffer.RenderTarget)
	if err := r.backend.BeginRenderPass(r.gbuffer.PassDescriptor(passLabelGBuffer, gpu.LoadOpClear, clearBlack, gpu.LoadOpLoad)); err != nil {
		return fmt.Errorf("gbuffer: %w", err)
	}

	var drawErr error
	for _, info := range lists.base {
		m := info.Material()
		extras := map[string]gpu.Texture{postprocess.SlotSkybox: skybox}
		call := colorCall(info, extras)

		switch {
		case info.Queue == QueueSkybox:
		case !m.SkipDepthPrePass():
			call.state.DepthCompare = pipeline.CompareLessEqual
			call.state.DepthWrite = false
		default:
			if r.depth.Stale(r.prePass) {
				if drawErr = r.backend.EndRenderPass(); drawErr != nil {
					return fmt.Errorf("gbuffer: %w", drawErr)
				}
				if _, drawErr = r.depth.SnapshotDepth(r.prePass); drawErr != nil {
					return fmt.Errorf("gbuffer: %w", drawErr)
				}
				if drawErr = r.backend.BeginRenderPass(r.gbuffer.PassDescriptor(passLabelGBuffer, gpu.LoadOpLoad, clearBlack, gpu.LoadOpLoad)); drawErr != nil {
					return fmt.Errorf("gbuffer: %w", drawErr)
				}
			}
			extras[material.DepthSlot] = r.depth.Snapshot()
		}

		if drawErr = r.draw(call); drawErr != nil {
			break
		}
		if call.state.DepthWrite {
			r.depth.MarkWritten()
		}
	}
	if err := r.backend.EndRenderPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("gbuffer: %w", drawErr)
	}
	return nil
}

// shadowCasters returns the non-skybox base draws whose actor and material both cast shadows.
func shadowCasters(lists *renderLists) []RenderMeshInfo {
	var out []RenderMeshInfo
	for _, info := range lists.base {
		if info.Queue != QueueSkybox && info.Actor.CastShadow() && info.Material().CastShadows() {
			out = append(out, info)
		}
	}
	return out
}

// renderShadows draws the casters into the directional shadow map and then each spot shadow
// map in traversal order. The camera block holds each shadow camera while its map renders and
// is restored to cam afterwards.
func (r *renderer) renderShadows(casters []RenderMeshInfo, shadows frameShadows, cam camera.Camera) (err error) {
	if len(casters) == 0 {
		return nil
	}
	defer r.profiler.Begin("shadows")()
	defer func() {
		if restoreErr := r.updateCameraUniforms(cam); err == nil {
			err = restoreErr
		}
	}()

	if shadows.directional != nil {
		if err := r.renderShadowMap("directional shadow", shadows.directional, casters); err != nil {
			return err
		}
	}
	for i, s := range shadows.spots {
		if s == nil {
			continue
		}
		if err := r.renderShadowMap(fmt.Sprintf("spot shadow %d", i), s, casters); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderShadowMap(label string, s *light.Shadow, casters []RenderMeshInfo) error {
	if err := r.updateCameraUniforms(s.Camera); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if err := r.backend.BeginRenderPass(s.Map.PassDescriptor(label, gpu.LoadOpClear, clearBlack, gpu.LoadOpClear)); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	var drawErr error
	for _, info := range casters {
		call := r.depthCall(info)
		call.state.DepthBias = shadowDepthBias
		call.state.DepthBiasSlopeScale = shadowDepthBiasSlope
		if drawErr = r.draw(call); drawErr != nil {
			break
		}
	}
	if err := r.backend.EndRenderPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("%s: %w", label, drawErr)
	}
	return nil
}

// renderTransparent composites the transparent draws back to front over the after-deferred
// color. The pre-pass depth is aliased for hardware testing and a snapshot of it is bound for
// materials that test depth themselves.
func (r *renderer) renderTransparent(lists *renderLists, snapshot gpu.Texture) error {
	defer r.profiler.Begin(passLabelTransparent)()

	r.depth.AliasDepth(r.prePass, r.afterDeferred)
	if len(lists.transparent) == 0 {
		return nil
	}
	if err := r.backend.BeginRenderPass(r.afterDeferred.PassDescriptor(passLabelTransparent, gpu.LoadOpLoad, clearBlack, gpu.LoadOpLoad)); err != nil {
		return fmt.Errorf("transparent: %w", err)
	}
	var drawErr error
	for _, info := range lists.transparent {
		call := colorCall(info, map[string]gpu.Texture{material.DepthSlot: snapshot})
		if drawErr = r.draw(call); drawErr != nil {
			break
		}
		if call.state.DepthWrite {
			r.depth.MarkWritten()
		}
	}
	if err := r.backend.EndRenderPass(); err != nil && drawErr == nil {
		drawErr = err
	}
	if drawErr != nil {
		return fmt.Errorf("transparent: %w", drawErr)
	}
	return nil
}
