package imgstat

import (
	"math"
	"testing"

	"github.com/philcn/RaysRenderer/pkg/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected Summary
	}{
		{"Empty", nil, Summary{}},
		{"Constant", []float64{2, 2, 2, 2}, Summary{Mean: 2, Min: 2, Max: 2, Count: 4}},
		{"Two values", []float64{1, 3}, Summary{Mean: 2, Variance: 1, StdDev: 1, Min: 1, Max: 3, Count: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.values))
		})
	}
}

func TestLuminanceStats(t *testing.T) {
	tex := texture.MustNew("gray", 2, 1, 4)
	tex.SetTexel(0, 0, [4]float32{0, 0, 0, 0})
	tex.SetTexel(1, 0, [4]float32{1, 1, 1, 0})

	s := LuminanceStats(tex)
	assert.InDelta(t, 0.5, s.Mean, 1e-6)
	assert.InDelta(t, 0.25, s.Variance, 1e-6)
	assert.Equal(t, 2, s.Count)

	single := texture.MustNew("depth", 2, 1, 1)
	single.Pix[0], single.Pix[1] = 3, 5
	assert.Equal(t, []float64{3, 5}, Luminance(single))
}

func TestChannelStats(t *testing.T) {
	tex := texture.MustNew("signal", 2, 2, 4)
	for i := 0; i < 4; i++ {
		tex.Pix[i*4+3] = float32(i)
	}

	s, err := ChannelStats(tex, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, s.Mean, 1e-9)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 3.0, s.Max)

	_, err = ChannelStats(tex, 4)
	assert.ErrorIs(t, err, texture.ErrChannelRange)
}

func TestRMSEAndPSNR(t *testing.T) {
	a := texture.MustNew("a", 4, 4, 3)
	b := texture.MustNew("b", 4, 4, 3)
	b.Fill([4]float32{0.5, 0.5, 0.5})

	rmse, err := RMSE(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rmse, 1e-6)

	psnr, err := PSNR(a, b, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0206, psnr, 1e-3)

	psnr, err = PSNR(a, a, 1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(psnr, 1))

	_, err = RMSE(a, texture.MustNew("c", 2, 2, 3))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
