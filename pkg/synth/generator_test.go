package synth

import (
	"math"
	"testing"

	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, modify func(*Options)) *Generator {
	t.Helper()
	device := compute.NewDevice(compute.Options{Name: "test", NumWorkers: 4, TileSize: 16})
	t.Cleanup(device.Close)

	opts := DefaultOptions()
	opts.Width, opts.Height = 64, 48
	opts.ReferenceSamples = 8
	if modify != nil {
		modify(&opts)
	}

	g, err := NewGenerator(opts, device)
	require.NoError(t, err)
	return g
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"Zero width", func(o *Options) { o.Width = 0 }},
		{"Negative height", func(o *Options) { o.Height = -1 }},
		{"Negative noise", func(o *Options) { o.NoiseAmount = -0.5 }},
		{"NaN noise", func(o *Options) { o.NoiseAmount = float32(math.NaN()) }},
		{"No reference samples", func(o *Options) { o.ReferenceSamples = 0 }},
	}

	require.NoError(t, DefaultOptions().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.ErrorIs(t, opts.Validate(), ErrInvalidOptions)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	g := newTestGenerator(t, nil)

	a, err := g.Render(3)
	require.NoError(t, err)
	b, err := g.Render(3)
	require.NoError(t, err)

	assert.Equal(t, a.GBuffer.NormalDepth.Pix, b.GBuffer.NormalDepth.Pix)
	for _, s := range denoiser.AllSignals {
		assert.Equal(t, a.Noisy[s].Pix, b.Noisy[s].Pix, s.String())
		assert.Equal(t, a.Reference[s].Pix, b.Reference[s].Pix, s.String())
	}

	c, err := g.Render(4)
	require.NoError(t, err)
	assert.NotEqual(t, a.Noisy[denoiser.AmbientOcclusion].Pix, c.Noisy[denoiser.AmbientOcclusion].Pix,
		"every frame draws fresh noise")
	assert.Equal(t, a.Reference[denoiser.AmbientOcclusion].Pix, c.Reference[denoiser.AmbientOcclusion].Pix,
		"static reference does not change")
}

func TestNext_Advances(t *testing.T) {
	g := newTestGenerator(t, nil)
	for i := 0; i < 3; i++ {
		f, err := g.Next()
		require.NoError(t, err)
		assert.Equal(t, i, f.Index)
	}
}

func TestRender_NoiseFree(t *testing.T) {
	g := newTestGenerator(t, func(o *Options) { o.NoiseAmount = 0 })
	f, err := g.Render(0)
	require.NoError(t, err)

	for _, s := range denoiser.AllSignals {
		assert.Equal(t, f.Reference[s].Pix, f.Noisy[s].Pix, s.String())
	}
}

func TestRender_GBuffer(t *testing.T) {
	g := newTestGenerator(t, nil)
	f, err := g.Render(0)
	require.NoError(t, err)
	w, h := g.Options().Width, g.Options().Height

	t.Run("Center pixel sees the sphere", func(t *testing.T) {
		// Camera at height 1.5 looking at a unit sphere centered 5 units away
		// at height 1
		z := f.GBuffer.LinearZ.At(w/2, h/2, 0)
		assert.InDelta(t, 5-math.Sqrt(0.75), z, 0.1)

		nd := f.GBuffer.NormalDepth.Texel(w/2, h/2)
		decoded := codec.UnpackNormalDepth([3]float32{nd[0], nd[1], nd[2]})
		assert.Greater(t, decoded.Normal[2], float32(0.7), "sphere normal faces the camera")
		assert.Equal(t, z, decoded.LinearZ)
	})

	t.Run("Bottom row sees the ground", func(t *testing.T) {
		nd := f.GBuffer.NormalDepth.Texel(w/2, h-1)
		decoded := codec.UnpackNormalDepth([3]float32{nd[0], nd[1], nd[2]})
		assert.InDelta(t, 0, decoded.Normal.Subtract(core.NewVec3(0, 1, 0)).Length(), 1e-3)
		assert.Greater(t, decoded.ZDerivative, float32(0), "receding ground has a depth gradient")
	})

	t.Run("Top row sees the sky", func(t *testing.T) {
		assert.Equal(t, float32(farDepth), f.GBuffer.LinearZ.At(0, 0, 0))
		assert.Equal(t, float32(1), f.Noisy[denoiser.Shadows].At(0, 0, 0))
	})

	t.Run("Static camera has no motion", func(t *testing.T) {
		for _, v := range f.GBuffer.Motion.Pix {
			require.InDelta(t, 0, v, 1e-3)
		}
	})

	t.Run("Signals are in range", func(t *testing.T) {
		for _, s := range []denoiser.Signal{denoiser.Shadows, denoiser.AmbientOcclusion} {
			for _, v := range f.Noisy[s].Pix {
				require.True(t, v == 0 || v == 1, "%s one sample visibility is binary", s)
			}
			for _, v := range f.Reference[s].Pix {
				require.GreaterOrEqual(t, v, float32(0))
				require.LessOrEqual(t, v, float32(1))
			}
		}
	})
}

func TestRender_PanProducesMotion(t *testing.T) {
	g := newTestGenerator(t, func(o *Options) { o.PanSpeed = 0.1 })
	f, err := g.Render(5)
	require.NoError(t, err)
	w, h := g.Options().Width, g.Options().Height

	// The camera moves right, so geometry was further right last frame
	ground := f.GBuffer.Motion.Texel(w/2, h-1)
	assert.Greater(t, ground[0], float32(0))
	assert.InDelta(t, 0, ground[1], 1e-3)

	// Sky points are at infinity
	sky := f.GBuffer.Motion.Texel(0, 0)
	assert.Equal(t, float32(0), sky[0])
}

func TestCamera_ProjectInvertsRay(t *testing.T) {
	cam := newCamera(core.NewVec3(0.5, 1.5, 0), 64, 48, 60)
	for _, p := range [][2]float32{{0.5, 0.5}, {10.5, 40.5}, {63.5, 2.5}} {
		ray := cam.ray(p[0], p[1])
		px, py, ok := cam.project(ray.At(7))
		require.True(t, ok)
		assert.InDelta(t, p[0], px, 1e-3)
		assert.InDelta(t, p[1], py, 1e-3)
	}

	_, _, ok := cam.project(core.NewVec3(0, 0, 1))
	assert.False(t, ok, "points behind the camera do not project")
}
