// Package imgstat computes summary statistics over textures.
package imgstat

import (
	"errors"
	"fmt"
	"math"

	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/texture"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrSizeMismatch = errors.New("imgstat: texture sizes differ")

// Summary holds the moments and range of a set of values
type Summary struct {
	Mean     float64
	Variance float64 // Population variance
	StdDev   float64
	Min      float64
	Max      float64
	Count    int
}

// Summarize computes a Summary over values. An empty input yields a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	mean := stat.Mean(values, nil)
	variance := stat.PopVariance(values, nil)
	return Summary{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Min:      floats.Min(values),
		Max:      floats.Max(values),
		Count:    len(values),
	}
}

// Luminance returns the Rec. 709 luminance of every texel, row-major.
// Textures with fewer than three channels use the first channel.
func Luminance(t *texture.Texture) []float64 {
	out := make([]float64, t.Width*t.Height)
	for i := range out {
		off := i * t.Channels
		if t.Channels >= 3 {
			out[i] = float64(core.NewVec3(t.Pix[off], t.Pix[off+1], t.Pix[off+2]).Luminance())
		} else {
			out[i] = float64(t.Pix[off])
		}
	}
	return out
}

// LuminanceStats summarizes the luminance of a texture
func LuminanceStats(t *texture.Texture) Summary {
	return Summarize(Luminance(t))
}

// ChannelStats summarizes a single channel
func ChannelStats(t *texture.Texture, c int) (Summary, error) {
	values, err := t.Channel(c)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(toFloat64(values)), nil
}

// RMSE is the root mean squared luminance difference between two textures
func RMSE(a, b *texture.Texture) (float64, error) {
	if !a.SameSize(b) {
		return 0, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d", ErrSizeMismatch,
			a.Name, a.Width, a.Height, b.Name, b.Width, b.Height)
	}

	la, lb := Luminance(a), Luminance(b)
	floats.Sub(la, lb)
	return math.Sqrt(floats.Dot(la, la) / float64(len(la))), nil
}

// PSNR is the peak signal to noise ratio in dB for a given peak value.
// Identical textures return +Inf.
func PSNR(a, b *texture.Texture, peak float64) (float64, error) {
	rmse, err := RMSE(a, b)
	if err != nil {
		return 0, err
	}
	if rmse == 0 {
		return math.Inf(1), nil
	}
	return 20 * math.Log10(peak/rmse), nil
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
