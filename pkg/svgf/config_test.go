package svgf

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsClamped(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg, cfg.Clamp())
	assert.Equal(t, 4, cfg.AtrousIterations)
	assert.Equal(t, 2, cfg.FeedbackTap)
}

func TestConfig_Clamp(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		check  func(*testing.T, Config)
	}{
		{
			name:   "Too many iterations",
			modify: func(c *Config) { c.AtrousIterations = 9 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, MaxAtrousIterations, c.AtrousIterations)
			},
		},
		{
			name:   "Negative iterations disable the filter and the tap",
			modify: func(c *Config) { c.AtrousIterations = -1 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 0, c.AtrousIterations)
				assert.Equal(t, 0, c.FeedbackTap)
			},
		},
		{
			name:   "Tap beyond the last pass",
			modify: func(c *Config) { c.AtrousIterations = 3; c.FeedbackTap = 7 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 3, c.FeedbackTap)
			},
		},
		{
			name:   "Zero tap",
			modify: func(c *Config) { c.FeedbackTap = 0 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 1, c.FeedbackTap)
			},
		},
		{
			name:   "Alphas",
			modify: func(c *Config) { c.ColorAlpha = 2; c.MomentsAlpha = -1 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, float32(1), c.ColorAlpha)
				assert.Equal(t, float32(0), c.MomentsAlpha)
			},
		},
		{
			name:   "NaN falls back to the default",
			modify: func(c *Config) { c.ColorAlpha = math32.NaN(); c.PhiColor = math32.NaN() },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, DefaultConfig().ColorAlpha, c.ColorAlpha)
				assert.Equal(t, DefaultConfig().PhiColor, c.PhiColor)
			},
		},
		{
			name:   "Non-positive bandwidths",
			modify: func(c *Config) { c.PhiColor = 0; c.PhiNormal = -3; c.DepthTolerance = 0 },
			check: func(t *testing.T, c Config) {
				assert.Greater(t, c.PhiColor, float32(0))
				assert.Greater(t, c.PhiNormal, float32(0))
				assert.Greater(t, c.DepthTolerance, float32(0))
			},
		},
		{
			name:   "History bounds",
			modify: func(c *Config) { c.MaxHistoryLength = 1000; c.TemporalConfidenceThreshold = 0 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, MaxHistoryCeiling, c.MaxHistoryLength)
				assert.Equal(t, 1, c.TemporalConfidenceThreshold)
			},
		},
		{
			name:   "Threshold above max history",
			modify: func(c *Config) { c.MaxHistoryLength = 3; c.TemporalConfidenceThreshold = 8 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 3, c.TemporalConfidenceThreshold)
			},
		},
		{
			name:   "Variance radius and normal tolerance",
			modify: func(c *Config) { c.VarianceRadius = 0; c.NormalTolerance = 4 },
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 1, c.VarianceRadius)
				assert.Equal(t, float32(1), c.NormalTolerance)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			clamped := cfg.Clamp()
			tt.check(t, clamped)
			assert.Equal(t, clamped, clamped.Clamp(), "clamping is idempotent")
		})
	}
}
