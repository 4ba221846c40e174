package svgf

import (
	"github.com/chewxy/math32"
)

// estimateVariancePixel replaces the temporal variance of pixels with a short
// history by a weighted spatial estimate over the moments of their
// neighborhood. Color is never changed.
func (f *frame) estimateVariancePixel(x, y int) [4]float32 {
	signal := f.dst.signal
	texel := signal.Texel(x, y)

	h := f.dst.history.At(x, y, 0)
	threshold := float32(f.cfg.TemporalConfidenceThreshold)
	if h >= threshold {
		return texel
	}

	center := FetchSample(signal, f.normalDepth, x, y)
	zDeriv := math32.Abs(center.ZDerivative)
	moments := f.dst.moments
	r := f.cfg.VarianceRadius

	var sumW, m1, m2 float32
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			px, py := x+dx, y+dy
			if !signal.InBounds(px, py) {
				continue
			}

			neighbor := center
			if dx != 0 || dy != 0 {
				neighbor = FetchSample(signal, f.normalDepth, px, py)
			}

			phiDepth := zDeriv * offsetLength(dx, dy)
			w := Weight(center, neighbor, phiDepth, f.cfg.PhiNormal, f.cfg.PhiColor)

			mo := moments.Offset(px, py)
			sumW += w
			m1 += w * moments.Pix[mo]
			m2 += w * moments.Pix[mo+1]
		}
	}

	// The center always contributes 1, but keep the division safe
	sumW = max(sumW, 1e-6)
	m1 /= sumW
	m2 /= sumW

	// Boost the estimate for young history
	texel[3] = max(0, m2-m1*m1) * threshold / max(h, 1)
	return texel
}

func (f *frame) varianceKernel(x, y int) {
	f.bufs.ping.SetTexel(x, y, f.estimateVariancePixel(x, y))
}

func offsetLength(dx, dy int) float32 {
	return math32.Sqrt(float32(dx*dx + dy*dy))
}
