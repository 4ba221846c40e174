package svgf

import "github.com/chewxy/math32"

// Limits applied by Config.Clamp
const (
	MaxAtrousIterations = 5
	MaxHistoryCeiling   = 255 // History is stored in 8 bits on the GPU
	MaxVarianceRadius   = 5
	minPhi              = 1e-4
	minDepthTolerance   = 1e-3
)

// Config holds the tunable filter parameters. The zero value is not useful;
// start from DefaultConfig.
type Config struct {
	// Number of à-trous passes. 0 disables spatial filtering and passes the
	// reprojected signal through.
	AtrousIterations int

	// Number of completed à-trous passes after which the intermediate result
	// is kept as next frame's temporal history. 1-based, in [1, AtrousIterations].
	FeedbackTap int

	// Exponential moving average factors for color and luminance moments.
	ColorAlpha   float32
	MomentsAlpha float32

	// Edge-stopping bandwidths for luminance and normals.
	PhiColor  float32
	PhiNormal float32

	// Pixels with fewer frames of history get a spatial variance estimate.
	TemporalConfidenceThreshold int

	// History length saturates at this value.
	MaxHistoryLength int

	// Radius of the spatial variance estimation window (3 -> 7x7).
	VarianceRadius int

	// Reprojection is rejected when |z - zPrev| > DepthTolerance * (dz + 0.01).
	DepthTolerance float32

	// Reprojection is rejected when dot(n, nPrev) < NormalTolerance.
	NormalTolerance float32
}

// DefaultConfig returns the published SVGF parameters
func DefaultConfig() Config {
	return Config{
		AtrousIterations:            4,
		FeedbackTap:                 2, // Output of the second pass
		ColorAlpha:                  0.05,
		MomentsAlpha:                0.2,
		PhiColor:                    10.0,
		PhiNormal:                   128.0,
		TemporalConfidenceThreshold: 4,
		MaxHistoryLength:            32,
		VarianceRadius:              3,
		DepthTolerance:              10.0,
		NormalTolerance:             0.9,
	}
}

// Clamp returns a copy with every field forced into its valid range.
// Out-of-range values are clamped, never rejected; NaN falls back to the default.
func (c Config) Clamp() Config {
	def := DefaultConfig()

	c.AtrousIterations = clampInt(c.AtrousIterations, 0, MaxAtrousIterations)
	if c.AtrousIterations == 0 {
		c.FeedbackTap = 0
	} else {
		c.FeedbackTap = clampInt(c.FeedbackTap, 1, c.AtrousIterations)
	}

	c.ColorAlpha = clampFloat(c.ColorAlpha, 0, 1, def.ColorAlpha)
	c.MomentsAlpha = clampFloat(c.MomentsAlpha, 0, 1, def.MomentsAlpha)
	c.PhiColor = clampFloat(c.PhiColor, minPhi, math32.MaxFloat32, def.PhiColor)
	c.PhiNormal = clampFloat(c.PhiNormal, minPhi, math32.MaxFloat32, def.PhiNormal)

	c.MaxHistoryLength = clampInt(c.MaxHistoryLength, 1, MaxHistoryCeiling)
	c.TemporalConfidenceThreshold = clampInt(c.TemporalConfidenceThreshold, 1, c.MaxHistoryLength)
	c.VarianceRadius = clampInt(c.VarianceRadius, 1, MaxVarianceRadius)

	c.DepthTolerance = clampFloat(c.DepthTolerance, minDepthTolerance, math32.MaxFloat32, def.DepthTolerance)
	c.NormalTolerance = clampFloat(c.NormalTolerance, -1, 1, def.NormalTolerance)

	return c
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi, fallback float32) float32 {
	if math32.IsNaN(v) {
		return fallback
	}
	return max(lo, min(hi, v))
}
