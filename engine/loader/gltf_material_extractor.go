package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// extractMaterials converts glTF metallic-roughness materials, falling back to the glTF
// defaults for absent factors.
func extractMaterials(p *gltfParser) ([]importedMaterial, error) {
	out := make([]importedMaterial, len(p.doc.Materials))
	for i, m := range p.doc.Materials {
		im := defaultMaterial
		im.name = m.Name
		if im.name == "" {
			im.name = fmt.Sprintf("material %d", i)
		}

		if pbr := m.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				im.baseColor = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				im.metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				im.roughness = *pbr.RoughnessFactor
			}
			if t := pbr.BaseColorTexture; t != nil {
				img, err := textureImage(p, t.Index)
				if err != nil {
					return nil, fmt.Errorf("material %q: base color texture: %w", im.name, err)
				}
				im.baseColorImage = img
			}
		}
		if m.EmissiveFactor != nil {
			im.emissive = *m.EmissiveFactor
		}

		switch m.AlphaMode {
		case "", gltfAlphaOpaque:
			im.alpha = alphaOpaque
		case gltfAlphaMask:
			im.alpha = alphaMask
			if m.AlphaCutoff != nil {
				im.alphaCutoff = *m.AlphaCutoff
			}
		case gltfAlphaBlend:
			im.alpha = alphaBlend
		default:
			return nil, fmt.Errorf("material %q: %w: alpha mode %q", im.name, errUnsupportedData, m.AlphaMode)
		}
		im.doubleSided = m.DoubleSided
		out[i] = im
	}
	return out, nil
}

// textureImage resolves a texture to its image index, or -1 for a texture without a source.
func textureImage(p *gltfParser, texture int) (int, error) {
	if texture < 0 || texture >= len(p.doc.Textures) {
		return 0, fmt.Errorf("texture %d: %w", texture, errAccessorRange)
	}
	src := p.doc.Textures[texture].Source
	if src == nil {
		return -1, nil
	}
	if *src < 0 || *src >= len(p.doc.Images) {
		return 0, fmt.Errorf("texture %d: image %d: %w", texture, *src, errAccessorRange)
	}
	return *src, nil
}

// extractImages decodes every image, embedded in a buffer view or referenced by URI,
// to RGBA8 pixels.
func extractImages(p *gltfParser) ([]common.TextureData, error) {
	out := make([]common.TextureData, len(p.doc.Images))
	for i, img := range p.doc.Images {
		var data []byte
		var err error
		switch {
		case img.BufferView != nil:
			data, err = p.bufferView(*img.BufferView)
		case img.URI != "":
			data, err = p.loadURI(img.URI)
		default:
			err = fmt.Errorf("%w: image has neither a buffer view nor a URI", errUnsupportedData)
		}
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		tex, err := common.DecodeTexture(data, "")
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out[i] = tex
	}
	return out, nil
}
