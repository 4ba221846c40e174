package svgf

import (
	"testing"

	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFrame prepares a 4x4 frame whose previous generation holds history
// hPrev everywhere over a flat surface at depth 2.
func newTestFrame(t *testing.T, hPrev float32) *frame {
	t.Helper()
	bufs, err := newBuffers(4, 4)
	require.NoError(t, err)

	g := flatGBuffer(4, 4, 2)
	f := &frame{
		cfg:         DefaultConfig(),
		noisy:       texture.MustNew("noisy", 4, 4, 3),
		motion:      g.motion,
		linearZ:     g.linearZ,
		normalDepth: g.normalDepth,
		prev:        bufs.cur(),
		dst:         bufs.next(),
		bufs:        bufs,
	}

	f.prev.history.Fill([4]float32{hPrev})
	f.prev.moments.Fill([4]float32{0.2, 0.05})
	bufs.lastFiltered.Fill([4]float32{0.2, 0.2, 0.2, 0})
	require.NoError(t, bufs.prevLinearZ.CopyFrom(g.linearZ))
	require.NoError(t, bufs.prevNormalDepth.CopyFrom(g.normalDepth))
	f.noisy.Fill([4]float32{1, 1, 1})
	return f
}

func TestReprojectPixel_Blend(t *testing.T) {
	f := newTestFrame(t, 3)
	r := f.reprojectPixel(1, 1)

	// h = 4, so both alphas are max(alpha, 1/4) = 0.25
	l := core.NewVec3(1, 1, 1).Luminance()
	assert.Equal(t, float32(4), r.history)
	assert.InDelta(t, 0.25*1+0.75*0.2, r.color[0], 1e-6)
	assert.InDelta(t, 0.25*l+0.75*0.2, r.moments[0], 1e-6)
	assert.InDelta(t, 0.25*l*l+0.75*0.05, r.moments[1], 1e-6)
	assert.InDelta(t, r.moments[1]-r.moments[0]*r.moments[0], r.variance, 1e-6)
}

func TestReprojectPixel_YoungHistoryHasNoVariance(t *testing.T) {
	f := newTestFrame(t, 1)
	r := f.reprojectPixel(2, 2)
	assert.Equal(t, float32(2), r.history)
	assert.Equal(t, float32(0), r.variance)
}

func TestReprojectPixel_Saturates(t *testing.T) {
	f := newTestFrame(t, 32)
	r := f.reprojectPixel(0, 0)
	assert.Equal(t, float32(32), r.history)

	// Lowering the cap applies to existing history as well
	f.cfg.MaxHistoryLength = 8
	r = f.reprojectPixel(0, 0)
	assert.Equal(t, float32(8), r.history)
}

func TestReprojectPixel_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*frame)
	}{
		{"No previous history", func(f *frame) { f.prev.history.Clear() }},
		{"Motion leaves the frame", func(f *frame) { f.motion.Fill([4]float32{0, -2}) }},
		{"Depth changed", func(f *frame) { f.bufs.prevLinearZ.Fill([4]float32{2.5, 0}) }},
		{"Normal changed", func(f *frame) {
			nd := codec.PackNormalDepth(core.NewVec3(0, 1, 0), 2, 0)
			f.bufs.prevNormalDepth.Fill([4]float32{nd[0], nd[1], nd[2]})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFrame(t, 5)
			tt.modify(f)

			r := f.reprojectPixel(1, 1)
			l := core.NewVec3(1, 1, 1).Luminance()
			assert.Equal(t, float32(1), r.history)
			assert.Equal(t, core.NewVec3(1, 1, 1), r.color)
			assert.Equal(t, core.NewVec2(l, l*l), r.moments)
			assert.Equal(t, float32(0), r.variance)
		})
	}
}

func TestReprojectPixel_DepthToleranceScalesWithDerivative(t *testing.T) {
	f := newTestFrame(t, 5)
	f.bufs.prevLinearZ.Fill([4]float32{2.5, 0})
	assert.Equal(t, float32(1), f.reprojectPixel(1, 1).history)

	// A steep surface tolerates the same depth change
	f.linearZ.Fill([4]float32{2, 0.1})
	assert.Equal(t, float32(6), f.reprojectPixel(1, 1).history)
}

func TestFetchSample(t *testing.T) {
	signal := texture.MustNew("signal", 2, 2, 4)
	signal.SetTexel(1, 0, [4]float32{0, 1, 0, 0.25})
	nd := texture.MustNew("nd", 2, 2, 3)
	packed := codec.PackNormalDepth(core.NewVec3(0, 1, 0), 3, 0.5)
	nd.SetTexel(1, 0, [4]float32{packed[0], packed[1], packed[2]})

	s := FetchSample(signal, nd, 1, 0)
	assert.Equal(t, core.NewVec3(0, 1, 0), s.Signal)
	assert.Equal(t, float32(0.25), s.Variance)
	assert.InDelta(t, 1, s.Normal[1], 1e-4)
	assert.Equal(t, float32(3), s.LinearZ)
	assert.Equal(t, float32(0.5), s.ZDerivative)
	assert.InDelta(t, 0.7152, s.Luminance, 1e-6)

	rgb := texture.MustNew("rgb", 2, 2, 3)
	rgb.SetTexel(0, 1, [4]float32{1, 1, 1})
	assert.Equal(t, float32(0), FetchSample(rgb, nd, 0, 1).Variance)
}
