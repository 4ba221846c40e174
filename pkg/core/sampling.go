package core

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Sampler provides random sampling for stochastic estimators
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float32
	Get2D() Vec2
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewPixelSampler returns a sampler whose sequence depends only on the seed,
// the frame index and the pixel, so that parallel kernels stay deterministic
// regardless of scheduling.
func NewPixelSampler(seed uint64, frame, x, y int) *RandomSampler {
	stream := uint64(uint32(y))<<32 | uint64(uint32(x))
	return NewRandomSampler(rand.New(rand.NewPCG(seed^uint64(frame)*0x9E3779B97F4A7C15, stream)))
}

// Get1D returns a random float32 in [0, 1)
func (r *RandomSampler) Get1D() float32 {
	return r.random.Float32()
}

// Get2D returns two random float32 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float32(), r.random.Float32())
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	// Generate point in unit disk using uniform random sampling
	a := 2.0 * math32.Pi * sample[0]
	z := sample[1]
	r := math32.Sqrt(z)

	x := r * math32.Cos(a)
	y := r * math32.Sin(a)
	zCoord := math32.Sqrt(1.0 - z)

	tangent, bitangent := orthonormalBasis(normal)

	// Transform to world space
	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord))
}

// SampleCone samples a direction uniformly within a cone
func SampleCone(direction Vec3, cosTotalWidth float32, sample Vec2) Vec3 {
	u, v := orthonormalBasis(direction)

	// Sample direction within the cone
	cosTheta := 1.0 - sample[0]*(1.0-cosTotalWidth)
	sinTheta := math32.Sqrt(max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math32.Pi * sample[1]

	return u.Multiply(sinTheta * math32.Cos(phi)).
		Add(v.Multiply(sinTheta * math32.Sin(phi))).
		Add(direction.Multiply(cosTheta))
}

// orthonormalBasis returns two unit vectors perpendicular to w and to each other
func orthonormalBasis(w Vec3) (Vec3, Vec3) {
	// Find a vector not parallel to w
	var a Vec3
	if math32.Abs(w[0]) > 0.1 {
		a = NewVec3(0, 1, 0)
	} else {
		a = NewVec3(1, 0, 0)
	}
	u := a.Cross(w).Normalize()
	return u, w.Cross(u)
}
