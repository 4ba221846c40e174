package loaders

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

var ErrInvalidDepthRange = errors.New("loaders: invalid depth range")

// DepthFromImage maps the red channel of an image texture linearly onto
// [near, far] and computes the screen space depth derivative as the larger
// forward difference along x and y.
func DepthFromImage(img *texture.Texture, near, far float32) (*texture.Texture, error) {
	if !(near >= 0 && far > near) {
		return nil, fmt.Errorf("%w: near %v, far %v", ErrInvalidDepthRange, near, far)
	}

	depth, err := texture.New("linear-z", img.Width, img.Height, 2)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			depth.Set(x, y, 0, near+img.At(x, y, 0)*(far-near))
		}
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			z := depth.At(x, y, 0)
			var dz float32
			if x+1 < img.Width {
				dz = math32.Abs(depth.At(x+1, y, 0) - z)
			}
			if y+1 < img.Height {
				dz = max(dz, math32.Abs(depth.At(x, y+1, 0)-z))
			}
			depth.Set(x, y, 1, dz)
		}
	}
	return depth, nil
}

// FlatDepth is a constant depth plane facing the camera
func FlatDepth(width, height int, z float32) (*texture.Texture, error) {
	depth, err := texture.New("linear-z", width, height, 2)
	if err != nil {
		return nil, err
	}
	depth.Fill([4]float32{z, 0})
	return depth, nil
}

// NormalsFromImage decodes normals stored as rgb = n * 0.5 + 0.5. Without an
// image every normal faces the camera.
func NormalsFromImage(img *texture.Texture, width, height int) (*texture.Texture, error) {
	normals, err := texture.New("normals", width, height, 3)
	if err != nil {
		return nil, err
	}
	if img == nil {
		normals.Fill([4]float32{0, 0, 1})
		return normals, nil
	}
	if img.Width != width || img.Height != height {
		return nil, fmt.Errorf("%w: normals %dx%d, expected %dx%d", texture.ErrFormatMismatch,
			img.Width, img.Height, width, height)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := img.Texel(x, y)
			n := core.NewVec3(t[0]*2-1, t[1]*2-1, t[2]*2-1).Normalize()
			normals.SetTexel(x, y, n.Vec4(0))
		}
	}
	return normals, nil
}

// BuildGBuffer packs depth and normals into the denoiser inputs of a static
// frame (zero motion).
func BuildGBuffer(depth, normals *texture.Texture) (denoiser.GBuffer, error) {
	if !depth.SameSize(normals) {
		return denoiser.GBuffer{}, fmt.Errorf("%w: depth %dx%d, normals %dx%d", texture.ErrFormatMismatch,
			depth.Width, depth.Height, normals.Width, normals.Height)
	}

	w, h := depth.Width, depth.Height
	g := denoiser.GBuffer{
		Motion:      texture.MustNew("motion", w, h, 2),
		LinearZ:     depth,
		NormalDepth: texture.MustNew("normal-depth", w, h, 3),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := normals.Texel(x, y)
			nd := codec.PackNormalDepth(core.NewVec3(n[0], n[1], n[2]), depth.At(x, y, 0), depth.At(x, y, 1))
			g.NormalDepth.SetTexel(x, y, [4]float32{nd[0], nd[1], nd[2]})
		}
	}
	return g, nil
}
