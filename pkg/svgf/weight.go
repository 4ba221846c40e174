package svgf

import (
	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/core"
)

// Weight is the edge-stopping similarity between a center pixel and one of
// its neighbors, in [0, 1].
//
//   - normal: max(0, dot(nc, nn))^phiNormal
//   - depth: |zc - zn| / phiDepth, disabled when phiDepth is 0
//   - luminance: |lc - ln| / phiColor; with phiColor <= 0 only an exact
//     luminance match survives
//
// The result is exp(-max(depth, 0) - max(luminance, 0)) * normal.
func Weight(center, neighbor Sample, phiDepth, phiNormal, phiColor float32) float32 {
	wNormal := normalWeight(center, neighbor, phiNormal)
	if wNormal == 0 {
		return 0
	}

	var wZ float32
	if phiDepth != 0 {
		wZ = math32.Abs(center.LinearZ-neighbor.LinearZ) / phiDepth
	}

	var wL float32
	dl := math32.Abs(center.Luminance - neighbor.Luminance)
	switch {
	case phiColor > 0:
		wL = dl / phiColor
	case dl != 0:
		wL = math32.Inf(1)
	}

	w := math32.Exp(-max(wZ, 0)-max(wL, 0)) * wNormal
	if math32.IsNaN(w) {
		return 0
	}
	return w
}

func normalWeight(center, neighbor Sample, phiNormal float32) float32 {
	// Identical normals weigh exactly 1
	if center.Normal == neighbor.Normal {
		return 1
	}
	d := core.Saturate(center.Normal.Dot(neighbor.Normal))
	return math32.Pow(d, phiNormal)
}
