// package common contains math helpers and plain data types shared across the engine. They are not interface-wrapped structs,
// just plain structs that express commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math/rand"
	"os"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// TextureData holds RGBA8 pixel data pending GPU upload.
type TextureData struct {
	// Pixels is RGBA, 4 bytes per pixel, row-major.
	Pixels []byte
	Width  int
	Height int
}

// DecodeTexture decodes PNG or JPEG bytes, or a file at path when data is empty, into RGBA8 pixels.
//
// Parameters:
//   - data: encoded image bytes (may be nil when path is set)
//   - path: file path used when data is empty
//
// Returns:
//   - TextureData: the decoded pixels and dimensions
//   - error: error if neither source is usable or decoding fails
func DecodeTexture(data []byte, path string) (TextureData, error) {
	var img image.Image
	var err error

	switch {
	case len(data) > 0:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	case path != "":
		file, fileErr := os.Open(path)
		if fileErr != nil {
			return TextureData{}, fmt.Errorf("failed to open texture file %s: %w", path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode texture file %s: %w", path, err)
		}
	default:
		return TextureData{}, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return TextureData{Pixels: rgba.Pix, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// SolidTexture returns a width x height texture filled with one RGBA8 color.
func SolidTexture(width, height int, rgba [4]uint8) TextureData {
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], rgba[:])
	}
	return TextureData{Pixels: pix, Width: width, Height: height}
}

// NoiseTexture returns deterministic per-channel white noise, used by the fog
// pass when no noise texture is supplied.
func NoiseTexture(width, height int, seed int64) TextureData {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = byte(rng.Intn(256))
		pix[i+1] = byte(rng.Intn(256))
		pix[i+2] = byte(rng.Intn(256))
		pix[i+3] = 255
	}
	return TextureData{Pixels: pix, Width: width, Height: height}
}
