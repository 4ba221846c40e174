package loaders

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// Heatmap maps one channel of a texture from [0, maxValue] onto a blue to red
// hue ramp. A non-positive maxValue uses the channel maximum.
func Heatmap(tex *texture.Texture, channel int, maxValue float32) (*image.RGBA, error) {
	values, err := tex.Channel(channel)
	if err != nil {
		return nil, err
	}

	if maxValue <= 0 {
		for _, v := range values {
			maxValue = max(maxValue, v)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, tex.Width, tex.Height))
	for i, v := range values {
		var t float64
		if maxValue > 0 {
			t = float64(min(max(v/maxValue, 0), 1))
		}
		r, g, b := colorful.Hsv(240*(1-t), 1, 1).Clamped().RGB255()
		img.SetRGBA(i%tex.Width, i/tex.Width, color.RGBA{R: r, G: g, B: b, A: 255})
	}
	return img, nil
}

// SaveHeatmap writes a heatmap of one channel as PNG
func SaveHeatmap(filename string, tex *texture.Texture, channel int, maxValue float32) error {
	img, err := Heatmap(tex, channel, maxValue)
	if err != nil {
		return err
	}
	if err := imgio.Save(filename, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}
