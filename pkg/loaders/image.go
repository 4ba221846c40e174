package loaders

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe" // Radiance HDR decoder
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

var ErrEmptyImage = errors.New("loaders: empty image")

// LoadImage loads a PNG, JPEG or Radiance HDR image into a 3 channel linear
// texture. 8 bit images are assumed to be sRGB encoded; HDR images are
// already linear.
func LoadImage(filename string) (*texture.Texture, error) {
	// Decode image (auto-detects the format from the file header)
	img, err := imgio.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", filename, err)
	}
	return FromImage(filename, img)
}

// FromImage converts a decoded image into a linear texture
func FromImage(name string, img image.Image) (*texture.Texture, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyImage, name)
	}

	tex, err := texture.New(name, bounds.Dx(), bounds.Dy(), 3)
	if err != nil {
		return nil, err
	}

	if hdrImg, ok := img.(hdr.Image); ok {
		for y := 0; y < tex.Height; y++ {
			for x := 0; x < tex.Width; x++ {
				r, g, b, _ := hdrImg.HDRAt(x+bounds.Min.X, y+bounds.Min.Y).HDRRGBA()
				tex.SetTexel(x, y, [4]float32{float32(r), float32(g), float32(b)})
			}
		}
		return tex, nil
	}

	rgba := clone.AsRGBA(img)
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			c := rgba.RGBAAt(x+rgba.Rect.Min.X, y+rgba.Rect.Min.Y)
			srgb := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
			r, g, b := srgb.LinearRgb()
			tex.SetTexel(x, y, [4]float32{float32(r), float32(g), float32(b)})
		}
	}
	return tex, nil
}

// ToImage tone maps the first three channels of a linear texture to 8 bit
// sRGB. Single channel textures are shown as gray.
func ToImage(tex *texture.Texture, exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, tex.Width, tex.Height))
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			t := tex.Texel(x, y)
			v := core.NewVec3(t[0], t[1], t[2])
			if tex.Channels < 3 {
				v = core.NewVec3(t[0], t[0], t[0])
			}
			v = v.Multiply(exposure).Clamp(0, 1)

			r, g, b := colorful.LinearRgb(float64(v[0]), float64(v[1]), float64(v[2])).Clamped().RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// SavePNG writes a texture as an sRGB PNG
func SavePNG(filename string, tex *texture.Texture) error {
	if err := imgio.Save(filename, ToImage(tex, 1), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}

// EncodePNG writes a texture as an sRGB PNG stream
func EncodePNG(w io.Writer, tex *texture.Texture) error {
	return imgio.PNGEncoder()(w, ToImage(tex, 1))
}
