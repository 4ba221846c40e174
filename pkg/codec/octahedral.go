// Package codec packs unit normals into 32-bit octahedral words and builds the
// compact normal+depth texels consumed by the denoiser.
package codec

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/x448/float16"
)

// EncodeNormal maps a unit vector onto the octahedron, folds the lower
// hemisphere into the unit square and packs both coordinates as half floats:
// x in the low 16 bits, y in the high 16 bits.
func EncodeNormal(n core.Vec3) uint32 {
	l1 := math32.Abs(n[0]) + math32.Abs(n[1]) + math32.Abs(n[2])
	if l1 == 0 {
		// Degenerate input encodes as +Z
		return pack(0, 0)
	}

	px, py := n[0]/l1, n[1]/l1
	if n[2] <= 0 {
		px, py = (1-math32.Abs(py))*signNotZero(px), (1-math32.Abs(px))*signNotZero(py)
	}

	return pack(px, py)
}

// DecodeNormal is the inverse of EncodeNormal. The result is renormalized
// because the half float encoding is lossy.
func DecodeNormal(code uint32) core.Vec3 {
	ex, ey := unpack(code)

	v := core.NewVec3(ex, ey, 1-math32.Abs(ex)-math32.Abs(ey))
	if v[2] < 0 {
		v[0], v[1] = (1-math32.Abs(ey))*signNotZero(ex), (1-math32.Abs(ex))*signNotZero(ey)
	}

	return v.Normalize()
}

// signNotZero is step(0, v) * 2 - 1; zero folds to the positive side in both
// directions so that encode and decode agree on the axes.
func signNotZero(v float32) float32 {
	if v >= 0 {
		return 1
	}
	return -1
}

func pack(x, y float32) uint32 {
	return uint32(float16.Fromfloat32(y).Bits())<<16 | uint32(float16.Fromfloat32(x).Bits())
}

func unpack(code uint32) (float32, float32) {
	x := float16.Frombits(uint16(code & 0xFFFF)).Float32()
	y := float16.Frombits(uint16((code >> 16) & 0xFFFF)).Float32()
	return x, y
}

// NormalDepth is one texel of the compact normal+depth buffer.
type NormalDepth struct {
	Normal      core.Vec3
	LinearZ     float32
	ZDerivative float32
}

// PackNormalDepth encodes a texel as three float32 channels. The packed
// normal word is stored bit-exactly in the first channel.
func PackNormalDepth(n core.Vec3, linearZ, zDerivative float32) [3]float32 {
	return [3]float32{math.Float32frombits(EncodeNormal(n)), linearZ, zDerivative}
}

// UnpackNormalDepth decodes a texel written by PackNormalDepth.
func UnpackNormalDepth(texel [3]float32) NormalDepth {
	return NormalDepth{
		Normal:      DecodeNormal(math.Float32bits(texel[0])),
		LinearZ:     texel[1],
		ZDerivative: texel[2],
	}
}
