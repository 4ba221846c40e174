package svgf

import (
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// frame binds the inputs, config snapshot and buffers of one Execute call.
// Kernels are methods on it so that they only see immutable state plus the
// texture they are dispatched to write.
type frame struct {
	cfg Config

	noisy       *texture.Texture
	motion      *texture.Texture
	linearZ     *texture.Texture
	normalDepth *texture.Texture

	prev *generation // Read-only history
	dst  *generation // Written by reprojection
	bufs *buffers
}

// depthAt returns linear depth and its screen-space derivative. A single
// channel depth input takes the derivative from the compact buffer.
func (f *frame) depthAt(x, y int) (z, dz float32) {
	off := f.linearZ.Offset(x, y)
	z = f.linearZ.Pix[off]
	if f.linearZ.Channels > 1 {
		return z, f.linearZ.Pix[off+1]
	}
	return z, f.normalDepth.At(x, y, 2)
}

// cacheDepthPixel stages the current depth and compact normal+depth, which
// become the previous buffers once the frame commits.
func (f *frame) cacheDepthPixel(x, y int) {
	z, dz := f.depthAt(x, y)
	f.bufs.nextLinearZ.SetTexel(x, y, [4]float32{z, dz})

	no := f.normalDepth.Offset(x, y)
	nd := f.normalDepth.Pix[no : no+3]
	f.bufs.nextNormalDepth.SetTexel(x, y, [4]float32{nd[0], nd[1], nd[2]})
}
