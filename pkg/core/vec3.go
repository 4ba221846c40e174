package core

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Vec2 is a 2 component float32 vector (texture coordinates, motion vectors)
type Vec2 f32.Vec2

// Vec3 is a 3 component float32 vector (colors, normals)
type Vec3 f32.Vec3

// Vec4 is a 4 component float32 vector (a texel of a 4 channel texture)
type Vec4 f32.Vec4

// Rec. 709 luminance weights
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// NewVec2 creates a new Vec2
func NewVec2(x, y float32) Vec2 {
	return Vec2{x, y}
}

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// NewVec4 creates a new Vec4
func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// X returns the first component
func (v Vec3) X() float32 { return v[0] }

// Y returns the second component
func (v Vec3) Y() float32 { return v[1] }

// Z returns the third component
func (v Vec3) Z() float32 { return v[2] }

// Add returns the sum of two vectors
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v[0] + other[0], v[1] + other[1], v[2] + other[2]}
}

// Subtract returns the difference of two vectors
func (v Vec3) Subtract(other Vec3) Vec3 {
	return Vec3{v[0] - other[0], v[1] - other[1], v[2] - other[2]}
}

// Multiply returns the vector scaled by a scalar
func (v Vec3) Multiply(scalar float32) Vec3 {
	return Vec3{v[0] * scalar, v[1] * scalar, v[2] * scalar}
}

// Lerp linearly interpolates from v to other by t
func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return v.Multiply(1 - t).Add(other.Multiply(t))
}

// Length returns the magnitude of the vector
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.LengthSquared())
}

// LengthSquared returns the squared magnitude of the vector
func (v Vec3) LengthSquared() float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// Dot returns the dot product of two vectors
func (v Vec3) Dot(other Vec3) float32 {
	return v[0]*other[0] + v[1]*other[1] + v[2]*other[2]
}

// Abs returns the component-wise absolute value
func (v Vec3) Abs() Vec3 {
	return Vec3{math32.Abs(v[0]), math32.Abs(v[1]), math32.Abs(v[2])}
}

// Clamp returns a vector with components clamped to [min, max]
func (v Vec3) Clamp(minVal, maxVal float32) Vec3 {
	return Vec3{
		Clamp(v[0], minVal, maxVal),
		Clamp(v[1], minVal, maxVal),
		Clamp(v[2], minVal, maxVal),
	}
}

// Normalize returns a unit vector in the same direction
func (v Vec3) Normalize() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{0, 0, 0}
	}
	return v.Multiply(1 / length)
}

// Cross returns the cross product of two vectors
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v[1]*other[2] - v[2]*other[1],
		v[2]*other[0] - v[0]*other[2],
		v[0]*other[1] - v[1]*other[0],
	}
}

// MultiplyVec returns component-wise multiplication of two vectors
func (v Vec3) MultiplyVec(other Vec3) Vec3 {
	return Vec3{v[0] * other[0], v[1] * other[1], v[2] * other[2]}
}

// Luminance returns the relative luminance of a linear RGB color
// using Rec. 709 weights: 0.2126*R + 0.7152*G + 0.0722*B
func (v Vec3) Luminance() float32 {
	return lumR*v[0] + lumG*v[1] + lumB*v[2]
}

// Vec4 expands the vector with a fourth component
func (v Vec3) Vec4(w float32) Vec4 {
	return Vec4{v[0], v[1], v[2], w}
}

// XYZ drops the fourth component
func (v Vec4) XYZ() Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// W returns the fourth component
func (v Vec4) W() float32 { return v[3] }

// Add returns the sum of two vectors
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v[0] + other[0], v[1] + other[1]}
}

// Length returns the magnitude of the vector
func (v Vec2) Length() float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1])
}

// Clamp clamps x to [lo, hi]
func Clamp(x, lo, hi float32) float32 {
	return max(lo, min(hi, x))
}

// Saturate clamps x to [0, 1]
func Saturate(x float32) float32 {
	return Clamp(x, 0, 1)
}
