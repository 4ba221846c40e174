// Package synth renders procedural G-buffers and noisy ray traced signals for
// feeding the denoiser without a renderer.
package synth

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

var ErrInvalidOptions = errors.New("synth: invalid options")

// Background depth for pixels that miss all geometry
const farDepth = 1000

// Salt that separates reference sample streams from the noisy ones
const referenceSalt = 0x5EED

// Options configures a Generator
type Options struct {
	Width  int
	Height int

	// Scales the Monte-Carlo error: 0 renders the reference, 1 a plain one
	// sample per pixel estimate
	NoiseAmount float32

	// Camera translation along +X per frame in world units
	PanSpeed float32

	// Seed of the per-pixel sample streams
	Seed uint64

	// Samples per pixel of the noise-free reference
	ReferenceSamples int
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		Width:            320,
		Height:           180,
		NoiseAmount:      1.0,
		PanSpeed:         0,
		Seed:             1,
		ReferenceSamples: 32,
	}
}

// Validate checks the options for consistency
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.NoiseAmount < 0 || math32.IsNaN(o.NoiseAmount) {
		return fmt.Errorf("%w: noise amount %v", ErrInvalidOptions, o.NoiseAmount)
	}
	if o.ReferenceSamples < 1 {
		return fmt.Errorf("%w: %d reference samples", ErrInvalidOptions, o.ReferenceSamples)
	}
	return nil
}

// Frame is one rendered frame: the shared G-buffer plus a noisy estimate and a
// noise-free reference of every signal
type Frame struct {
	Index     int
	GBuffer   denoiser.GBuffer
	Noisy     map[denoiser.Signal]*texture.Texture
	Reference map[denoiser.Signal]*texture.Texture
}

// Generator renders consecutive frames of the procedural scene
type Generator struct {
	opts   Options
	device *compute.Device
	scene  *scene
	next   int
}

// NewGenerator creates a generator that renders on device
func NewGenerator(opts Options, device *compute.Device) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{opts: opts, device: device, scene: newScene()}, nil
}

// Options returns the generator options
func (g *Generator) Options() Options {
	return g.opts
}

// Next renders the next frame in sequence
func (g *Generator) Next() (*Frame, error) {
	f, err := g.Render(g.next)
	if err != nil {
		return nil, err
	}
	g.next++
	return f, nil
}

// Render renders frame index. Rendering the same index twice yields
// identical textures.
func (g *Generator) Render(index int) (*Frame, error) {
	w, h := g.opts.Width, g.opts.Height
	f := &Frame{
		Index: index,
		GBuffer: denoiser.GBuffer{
			Motion:      texture.MustNew("motion", w, h, 2),
			LinearZ:     texture.MustNew("linear-z", w, h, 2),
			NormalDepth: texture.MustNew("normal-depth", w, h, 3),
		},
		Noisy:     make(map[denoiser.Signal]*texture.Texture, len(denoiser.AllSignals)),
		Reference: make(map[denoiser.Signal]*texture.Texture, len(denoiser.AllSignals)),
	}
	for _, s := range denoiser.AllSignals {
		f.Noisy[s] = texture.MustNew("noisy-"+s.String(), w, h, 3)
		f.Reference[s] = texture.MustNew("reference-"+s.String(), w, h, 3)
	}

	cam := g.cameraAt(index)
	prevCam := g.cameraAt(index - 1)

	_, err := g.device.Exec2D("synth", w, h, func(x, y int) {
		g.renderPixel(f, cam, prevCam, x, y)
	})
	if err != nil {
		return nil, fmt.Errorf("rendering frame %d: %w", index, err)
	}
	return f, nil
}

func (g *Generator) cameraAt(index int) camera {
	origin := core.NewVec3(g.opts.PanSpeed*float32(index), 1.5, 0)
	return newCamera(origin, g.opts.Width, g.opts.Height, 60)
}

func (g *Generator) renderPixel(f *Frame, cam, prevCam camera, x, y int) {
	px, py := float32(x)+0.5, float32(y)+0.5
	ray := cam.ray(px, py)

	h, ok := g.scene.intersect(ray, math32.MaxFloat32)
	if !ok {
		g.renderBackground(f, ray, x, y)
		return
	}

	// G-buffer
	z := cam.depth(h.point)
	dz := max(g.depthDelta(cam, h, px+1, py, z), g.depthDelta(cam, h, px, py+1, z))
	var motion [4]float32
	if ppx, ppy, visible := prevCam.project(h.point); visible {
		motion = [4]float32{ppx - px, ppy - py}
	}
	nd := codec.PackNormalDepth(h.normal, z, dz)
	f.GBuffer.Motion.SetTexel(x, y, motion)
	f.GBuffer.LinearZ.SetTexel(x, y, [4]float32{z, dz})
	f.GBuffer.NormalDepth.SetTexel(x, y, [4]float32{nd[0], nd[1], nd[2]})

	// Noise-free reference
	var refShadow, refAO float32
	var refReflection core.Vec3
	refSampler := core.NewPixelSampler(g.opts.Seed^referenceSalt, 0, x, y)
	n := float32(g.opts.ReferenceSamples)
	for i := 0; i < g.opts.ReferenceSamples; i++ {
		refShadow += g.scene.shadow(h, refSampler)
		refAO += g.scene.ambientOcclusion(h, refSampler)
		refReflection = refReflection.Add(g.scene.reflection(h, ray.Direction, refSampler))
	}
	refShadow /= n
	refAO /= n
	refReflection = refReflection.Multiply(1 / n)

	// One sample estimate, with its error scaled by NoiseAmount
	shadow, ao, reflection := refShadow, refAO, refReflection
	if g.opts.NoiseAmount > 0 {
		sampler := core.NewPixelSampler(g.opts.Seed, f.Index, x, y)
		k := g.opts.NoiseAmount
		shadow = scaleError(refShadow, g.scene.shadow(h, sampler), k)
		ao = scaleError(refAO, g.scene.ambientOcclusion(h, sampler), k)
		estimate := g.scene.reflection(h, ray.Direction, sampler)
		for c := range reflection {
			reflection[c] = scaleError(refReflection[c], estimate[c], k)
		}
	}

	setGray(f.Reference[denoiser.Shadows], x, y, refShadow)
	setGray(f.Reference[denoiser.AmbientOcclusion], x, y, refAO)
	f.Reference[denoiser.Reflection].SetTexel(x, y, refReflection.Vec4(0))

	setGray(f.Noisy[denoiser.Shadows], x, y, shadow)
	setGray(f.Noisy[denoiser.AmbientOcclusion], x, y, ao)
	f.Noisy[denoiser.Reflection].SetTexel(x, y, reflection.Vec4(0))
}

// renderBackground fills a pixel that sees the sky. Points at infinity do
// not move under camera translation, so motion stays zero.
func (g *Generator) renderBackground(f *Frame, ray core.Ray, x, y int) {
	nd := codec.PackNormalDepth(ray.Direction.Multiply(-1), farDepth, 0)
	f.GBuffer.LinearZ.SetTexel(x, y, [4]float32{farDepth, 0})
	f.GBuffer.NormalDepth.SetTexel(x, y, [4]float32{nd[0], nd[1], nd[2]})

	color := sky(ray.Direction).Vec4(0)
	for _, tex := range []*texture.Texture{f.Noisy[denoiser.Reflection], f.Reference[denoiser.Reflection]} {
		tex.SetTexel(x, y, color)
	}
	for _, s := range []denoiser.Signal{denoiser.Shadows, denoiser.AmbientOcclusion} {
		setGray(f.Noisy[s], x, y, 1)
		setGray(f.Reference[s], x, y, 1)
	}
}

// depthDelta is the depth change to a neighboring raster position on the
// same surface, 0 if the neighbor ray misses it
func (g *Generator) depthDelta(cam camera, h hit, px, py, z float32) float32 {
	neighbor, ok := g.scene.intersectShape(h.shape, cam.ray(px, py))
	if !ok {
		return 0
	}
	return math32.Abs(cam.depth(neighbor.point) - z)
}

// scaleError moves an estimate towards the reference; k == 1 keeps it as is
func scaleError(reference, estimate, k float32) float32 {
	if k == 1 {
		return estimate
	}
	return reference + k*(estimate-reference)
}

func setGray(tex *texture.Texture, x, y int, v float32) {
	tex.SetTexel(x, y, [4]float32{v, v, v})
}
