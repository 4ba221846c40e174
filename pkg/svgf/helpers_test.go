package svgf

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/texture"
	"github.com/stretchr/testify/require"
)

// gbuffer is the per-frame geometry input of a pipeline
type gbuffer struct {
	motion      *texture.Texture
	linearZ     *texture.Texture
	normalDepth *texture.Texture
}

// flatGBuffer describes a fronto-parallel plane at depth z facing the camera
func flatGBuffer(width, height int, z float32) gbuffer {
	g := gbuffer{
		motion:      texture.MustNew("motion", width, height, 2),
		linearZ:     texture.MustNew("linear-z", width, height, 2),
		normalDepth: texture.MustNew("normal-depth", width, height, 3),
	}
	g.linearZ.Fill([4]float32{z, 0})
	nd := codec.PackNormalDepth(core.NewVec3(0, 0, 1), z, 0)
	g.normalDepth.Fill([4]float32{nd[0], nd[1], nd[2]})
	return g
}

// randomGBuffer has random depth, depth derivative and normals per pixel
func randomGBuffer(rng *rand.Rand, width, height int) gbuffer {
	g := flatGBuffer(width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			z := 1 + 10*rng.Float32()
			dz := rng.Float32()
			n := core.NewVec3(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()).Normalize()
			nd := codec.PackNormalDepth(n, z, dz)
			g.linearZ.SetTexel(x, y, [4]float32{z, dz})
			g.normalDepth.SetTexel(x, y, [4]float32{nd[0], nd[1], nd[2]})
		}
	}
	return g
}

// grayNoise returns a gray image of uniform noise in [mean-amp, mean+amp]
func grayNoise(rng *rand.Rand, width, height int, mean, amp float32) *texture.Texture {
	tex := texture.MustNew("noisy", width, height, 3)
	for i := 0; i < width*height; i++ {
		v := mean + amp*(2*rng.Float32()-1)
		tex.Pix[i*3], tex.Pix[i*3+1], tex.Pix[i*3+2] = v, v, v
	}
	return tex
}

// colorNoise returns independent uniform noise per channel in [0, 1)
func colorNoise(rng *rand.Rand, width, height int) *texture.Texture {
	tex := texture.MustNew("noisy", width, height, 3)
	for i := range tex.Pix {
		tex.Pix[i] = rng.Float32()
	}
	return tex
}

func newTestPipeline(t *testing.T, width, height int, cfg Config) *Pipeline {
	t.Helper()
	device := compute.NewDevice(compute.Options{Name: "test", NumWorkers: 4, TileSize: 16})
	t.Cleanup(device.Close)

	p, err := New(width, height, cfg, WithDevice(device), WithName("test"))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func execute(t *testing.T, p *Pipeline, noisy *texture.Texture, g gbuffer) *texture.Texture {
	t.Helper()
	out, err := p.Execute(noisy, g.motion, g.linearZ, g.normalDepth)
	require.NoError(t, err)
	return out
}

var errDispatch = errors.New("dispatch failed")

// failingDevice fails every dispatch of one kernel and forwards the rest
type failingDevice struct {
	dispatcher
	kernel string
}

func (d *failingDevice) Exec2D(name string, width, height int, kernel compute.Kernel) (compute.DispatchStats, error) {
	if name == d.kernel {
		return compute.DispatchStats{}, errDispatch
	}
	return d.dispatcher.Exec2D(name, width, height, kernel)
}
