package svgf

import (
	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// 1D B3-spline weights for offsets 0, 1, 2; the 5x5 kernel is their outer
// product.
var atrousKernel = [3]float32{1.0, 2.0 / 3.0, 1.0 / 6.0}

// 1D weights of the 3x3 Gaussian used to prefilter variance
var gaussianKernel = [2]float32{1.0 / 2.0, 1.0 / 4.0}

// atrousPixel runs one edge-aware à-trous pass for pixel (x, y) over src with
// taps spaced step pixels apart.
func (f *frame) atrousPixel(src *texture.Texture, step, x, y int) [4]float32 {
	center := FetchSample(src, f.normalDepth, x, y)

	phiColor := f.cfg.PhiColor * math32.Sqrt(max(0, 1e-10+f.gaussianVariance(src, x, y)))
	phiDepth := math32.Abs(center.ZDerivative) * float32(step)

	// The center tap has kernel weight 1 and edge-stopping weight 1
	sumW := float32(1)
	sumColor := center.Signal
	sumVariance := center.Variance

	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}

			px, py := x+dx*step, y+dy*step
			if !src.InBounds(px, py) {
				continue
			}

			neighbor := FetchSample(src, f.normalDepth, px, py)
			k := atrousKernel[abs(dx)] * atrousKernel[abs(dy)]
			w := k * Weight(center, neighbor, phiDepth*offsetLength(dx, dy), f.cfg.PhiNormal, phiColor)

			sumW += w
			sumColor = sumColor.Add(neighbor.Signal.Multiply(w))
			sumVariance += w * w * neighbor.Variance
		}
	}

	color := sumColor.Multiply(1 / sumW)
	variance := max(0, sumVariance/(sumW*sumW))
	return [4]float32{color[0], color[1], color[2], variance}
}

// gaussianVariance is the 3x3 Gaussian filtered variance around (x, y).
// Taps outside the frame are skipped and the weights renormalized.
func (f *frame) gaussianVariance(src *texture.Texture, x, y int) float32 {
	var sum, sumW float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			px, py := x+dx, y+dy
			if !src.InBounds(px, py) {
				continue
			}
			k := gaussianKernel[abs(dx)] * gaussianKernel[abs(dy)]
			sum += k * src.At(px, py, 3)
			sumW += k
		}
	}
	return sum / sumW
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
