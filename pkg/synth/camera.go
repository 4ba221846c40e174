package synth

import (
	"github.com/chewxy/math32"
	"github.com/philcn/RaysRenderer/pkg/core"
)

// camera is a pinhole camera looking down -Z with +Y up
type camera struct {
	origin   core.Vec3
	width    float32
	height   float32
	tanHalfY float32
	aspect   float32
}

func newCamera(origin core.Vec3, width, height int, vfovDegrees float32) camera {
	return camera{
		origin:   origin,
		width:    float32(width),
		height:   float32(height),
		tanHalfY: math32.Tan(vfovDegrees * math32.Pi / 360),
		aspect:   float32(width) / float32(height),
	}
}

// ray returns the primary ray through raster position (px, py)
func (c camera) ray(px, py float32) core.Ray {
	dir := core.NewVec3(
		(2*px/c.width-1)*c.tanHalfY*c.aspect,
		(1-2*py/c.height)*c.tanHalfY,
		-1,
	)
	return core.NewRay(c.origin, dir.Normalize())
}

// depth is the view space distance of p along the viewing axis
func (c camera) depth(p core.Vec3) float32 {
	return c.origin[2] - p[2]
}

// project returns the raster position of a world space point
func (c camera) project(p core.Vec3) (float32, float32, bool) {
	d := p.Subtract(c.origin)
	if d[2] >= 0 {
		return 0, 0, false
	}
	ndcX := d[0] / -d[2] / (c.tanHalfY * c.aspect)
	ndcY := d[1] / -d[2] / c.tanHalfY
	return (ndcX + 1) * 0.5 * c.width, (1 - ndcY) * 0.5 * c.height, true
}
