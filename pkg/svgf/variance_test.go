package svgf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVarianceFrame prepares a 3x3 frame after reprojection: a gray signal
// with variance 0.05, history h everywhere and moments (m, m² + 0.01) with
// m = 0.1 * pixel index.
func newVarianceFrame(t *testing.T, h float32) *frame {
	t.Helper()
	bufs, err := newBuffers(3, 3)
	require.NoError(t, err)

	f := &frame{
		cfg:         DefaultConfig(),
		normalDepth: flatGBuffer(3, 3, 1).normalDepth,
		dst:         bufs.next(),
		bufs:        bufs,
	}
	f.dst.signal.Fill([4]float32{0.5, 0.5, 0.5, 0.05})
	f.dst.history.Fill([4]float32{h})
	for i := 0; i < 9; i++ {
		m := 0.1 * float32(i)
		f.dst.moments.SetTexel(i%3, i/3, [4]float32{m, m*m + 0.01})
	}
	return f
}

func TestEstimateVariancePixel(t *testing.T) {
	// Every weight is 1 on this frame, so the spatial estimate is the plain
	// variance of the nine first moments plus 0.01: 60/900 + 0.01.
	const spatial = 60.0/900.0 + 0.01

	tests := []struct {
		name     string
		history  float32
		variance float32
	}{
		{"Confident at the threshold", 4, 0.05},
		{"Confident above the threshold", 20, 0.05},
		{"Young", 2, spatial * 4 / 2},
		{"Newborn", 1, spatial * 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVarianceFrame(t, tt.history)
			in := f.dst.signal.Texel(1, 1)

			out := f.estimateVariancePixel(1, 1)
			assert.Equal(t, in[:3], out[:3])
			if tt.history >= float32(f.cfg.TemporalConfidenceThreshold) {
				assert.Equal(t, in, out)
			} else {
				assert.InDelta(t, tt.variance, out[3], 1e-5)
			}
		})
	}
}

func TestEstimateVariancePixel_KeepsColor(t *testing.T) {
	f := newVarianceFrame(t, 1)
	f.dst.signal.SetTexel(1, 1, [4]float32{0.9, 0.1, 0.3, 0.05})
	f.dst.history.Set(2, 2, 0, 8)

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			in := f.dst.signal.Texel(x, y)
			out := f.estimateVariancePixel(x, y)
			assert.Equal(t, in[:3], out[:3])
			assert.GreaterOrEqual(t, out[3], float32(0))
		}
	}
	assert.Equal(t, f.dst.signal.Texel(2, 2), f.estimateVariancePixel(2, 2))
}
