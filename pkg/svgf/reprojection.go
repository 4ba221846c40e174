package svgf

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/core"
)

// Absolute slack added to the depth derivative in the consistency test
const depthEpsilon = 1e-2

// reprojection is the temporal accumulation result for one pixel
type reprojection struct {
	color    core.Vec3
	variance float32
	moments  core.Vec2
	history  float32
}

// reprojectPixel blends the noisy sample with the history found at the
// pixel's previous position. Disoccluded pixels restart from the noisy sample
// with a history of 1.
func (f *frame) reprojectPixel(x, y int) reprojection {
	no := f.noisy.Offset(x, y)
	noisy := core.NewVec3(f.noisy.Pix[no], f.noisy.Pix[no+1], f.noisy.Pix[no+2])
	l := noisy.Luminance()

	qx, qy, ok := f.previousPosition(x, y)
	if !ok {
		return disoccluded(noisy, l)
	}

	hPrev := f.prev.history.At(qx, qy, 0)
	if hPrev <= 0 || !f.consistent(x, y, qx, qy) {
		return disoccluded(noisy, l)
	}

	h := min(hPrev+1, float32(f.cfg.MaxHistoryLength))
	alpha := max(f.cfg.ColorAlpha, 1/h)
	momentsAlpha := max(f.cfg.MomentsAlpha, 1/h)

	lo := f.bufs.lastFiltered.Offset(qx, qy)
	prevColor := core.NewVec3(f.bufs.lastFiltered.Pix[lo], f.bufs.lastFiltered.Pix[lo+1], f.bufs.lastFiltered.Pix[lo+2])
	mo := f.prev.moments.Offset(qx, qy)
	prevMoments := f.prev.moments.Pix[mo : mo+2]

	r := reprojection{
		color: noisy.Multiply(alpha).Add(prevColor.Multiply(1 - alpha)),
		moments: core.NewVec2(
			momentsAlpha*l+(1-momentsAlpha)*prevMoments[0],
			momentsAlpha*l*l+(1-momentsAlpha)*prevMoments[1],
		),
		history: h,
	}
	if h >= float32(f.cfg.TemporalConfidenceThreshold) {
		r.variance = max(0, r.moments[1]-r.moments[0]*r.moments[0])
	}
	return r
}

func disoccluded(noisy core.Vec3, l float32) reprojection {
	return reprojection{
		color:   noisy,
		moments: core.NewVec2(l, l*l),
		history: 1,
	}
}

// previousPosition returns the nearest texel to the pixel center's position in
// the previous frame: floor(p + 0.5 + motion).
func (f *frame) previousPosition(x, y int) (int, int, bool) {
	mo := f.motion.Offset(x, y)
	px := math32.Floor(float32(x) + 0.5 + f.motion.Pix[mo])
	py := math32.Floor(float32(y) + 0.5 + f.motion.Pix[mo+1])

	// Written so that NaN fails as well
	if !(px >= 0 && px < float32(f.noisy.Width) && py >= 0 && py < float32(f.noisy.Height)) {
		return 0, 0, false
	}
	return int(px), int(py), true
}

// consistent compares depth and normal of pixel (x, y) against the previous
// frame's values at (qx, qy).
func (f *frame) consistent(x, y, qx, qy int) bool {
	z, dz := f.depthAt(x, y)
	zPrev := f.bufs.prevLinearZ.At(qx, qy, 0)
	if !(math32.Abs(z-zPrev) <= f.cfg.DepthTolerance*(math32.Abs(dz)+depthEpsilon)) {
		return false
	}

	n := codec.DecodeNormal(math.Float32bits(f.normalDepth.At(x, y, 0)))
	nPrev := codec.DecodeNormal(math.Float32bits(f.bufs.prevNormalDepth.At(qx, qy, 0)))
	return n.Dot(nPrev) >= f.cfg.NormalTolerance
}

func (f *frame) reprojectKernel(x, y int) {
	r := f.reprojectPixel(x, y)
	f.dst.signal.SetTexel(x, y, [4]float32{r.color[0], r.color[1], r.color[2], r.variance})
	f.dst.moments.SetTexel(x, y, [4]float32{r.moments[0], r.moments[1]})
	f.dst.history.Set(x, y, 0, r.history)
}
