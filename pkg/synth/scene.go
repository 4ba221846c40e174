package synth

import (
	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/core"
)

// Shape identifiers stored in a hit
const (
	shapeNone = iota
	shapeGround
	shapeSphere
)

// hit describes a ray-surface intersection
type hit struct {
	t      float32
	point  core.Vec3
	normal core.Vec3
	shape  int
}

type sphere struct {
	center core.Vec3
	radius float32
}

// intersect tests if a ray intersects with the sphere
func (s sphere) intersect(ray core.Ray, tMin, tMax float32) (hit, bool) {
	// Quadratic equation coefficients: at² + bt + c = 0
	oc := ray.Origin.Subtract(s.center)
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.radius*s.radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return hit{}, false
	}

	// Try the closer intersection point first
	sqrtD := math32.Sqrt(discriminant)
	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return hit{}, false
		}
	}

	point := ray.At(root)
	return hit{
		t:      root,
		point:  point,
		normal: point.Subtract(s.center).Multiply(1 / s.radius),
		shape:  shapeSphere,
	}, true
}

type plane struct {
	point  core.Vec3
	normal core.Vec3
}

// intersect tests if a ray intersects with the plane
func (p plane) intersect(ray core.Ray, tMin, tMax float32) (hit, bool) {
	// Ray is parallel to plane
	denominator := ray.Direction.Dot(p.normal)
	if math32.Abs(denominator) < 1e-8 {
		return hit{}, false
	}

	t := p.point.Subtract(ray.Origin).Dot(p.normal) / denominator
	if t < tMin || t > tMax {
		return hit{}, false
	}

	return hit{t: t, point: ray.At(t), normal: p.normal, shape: shapeGround}, true
}

// scene is a ground plane with a sphere resting on it, lit by a distant light
// with a small angular radius.
type scene struct {
	ground plane
	ball   sphere

	lightDir      core.Vec3 // Towards the light
	lightCosWidth float32
	aoRadius      float32
	glossCosWidth float32
}

func newScene() *scene {
	return &scene{
		ground:        plane{point: core.NewVec3(0, 0, 0), normal: core.NewVec3(0, 1, 0)},
		ball:          sphere{center: core.NewVec3(0, 1, -5), radius: 1},
		lightDir:      core.NewVec3(-1, 2, 1).Normalize(),
		lightCosWidth: math32.Cos(0.08),
		aoRadius:      1.5,
		glossCosWidth: math32.Cos(0.12),
	}
}

const rayEpsilon = 1e-3

// intersect returns the closest hit along the ray
func (s *scene) intersect(ray core.Ray, tMax float32) (hit, bool) {
	closest, found := s.ground.intersect(ray, rayEpsilon, tMax)
	if found {
		tMax = closest.t
	}
	if h, ok := s.ball.intersect(ray, rayEpsilon, tMax); ok {
		closest, found = h, true
	}
	return closest, found
}

// intersectShape intersects only the given shape, ignoring occluders
func (s *scene) intersectShape(shape int, ray core.Ray) (hit, bool) {
	switch shape {
	case shapeGround:
		return s.ground.intersect(ray, rayEpsilon, math32.MaxFloat32)
	case shapeSphere:
		return s.ball.intersect(ray, rayEpsilon, math32.MaxFloat32)
	}
	return hit{}, false
}

func (s *scene) occluded(ray core.Ray, tMax float32) bool {
	_, ok := s.intersect(ray, tMax)
	return ok
}

// albedo returns the surface color of a hit: a checkerboard ground and an
// orange sphere.
func (s *scene) albedo(h hit) core.Vec3 {
	if h.shape == shapeSphere {
		return core.NewVec3(0.9, 0.5, 0.2)
	}
	if (int(math32.Floor(h.point[0]))+int(math32.Floor(h.point[2])))&1 == 0 {
		return core.NewVec3(0.8, 0.8, 0.8)
	}
	return core.NewVec3(0.3, 0.3, 0.3)
}

// sky is a vertical gradient from white at the horizon to blue at the zenith
func sky(dir core.Vec3) core.Vec3 {
	t := core.Saturate(0.5 * (dir[1] + 1))
	return core.NewVec3(1, 1, 1).Lerp(core.NewVec3(0.5, 0.7, 1.0), t)
}

// shadow is a one sample visibility estimate of the area light
func (s *scene) shadow(h hit, sampler core.Sampler) float32 {
	dir := core.SampleCone(s.lightDir, s.lightCosWidth, sampler.Get2D())
	if dir.Dot(h.normal) <= 0 {
		return 0
	}
	if s.occluded(core.NewRay(h.point, dir), math32.MaxFloat32) {
		return 0
	}
	return 1
}

// ambientOcclusion is a one sample estimate of unoccluded cosine-weighted
// directions within aoRadius
func (s *scene) ambientOcclusion(h hit, sampler core.Sampler) float32 {
	dir := core.SampleCosineHemisphere(h.normal, sampler.Get2D())
	if s.occluded(core.NewRay(h.point, dir), s.aoRadius) {
		return 0
	}
	return 1
}

// reflection is a one sample estimate of glossy reflected radiance
func (s *scene) reflection(h hit, view core.Vec3, sampler core.Sampler) core.Vec3 {
	mirror := view.Subtract(h.normal.Multiply(2 * view.Dot(h.normal)))
	dir := core.SampleCone(mirror.Normalize(), s.glossCosWidth, sampler.Get2D())
	if dir.Dot(h.normal) <= 0 {
		return core.Vec3{}
	}

	next, ok := s.intersect(core.NewRay(h.point, dir), math32.MaxFloat32)
	if !ok {
		return sky(dir)
	}
	diffuse := max(0, next.normal.Dot(s.lightDir))
	return s.albedo(next).Multiply(0.1 + 0.9*diffuse)
}
