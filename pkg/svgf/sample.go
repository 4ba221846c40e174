package svgf

import (
	"math"

	"github.com/philcn/RaysRenderer/pkg/codec"
	"github.com/philcn/RaysRenderer/pkg/core"
	"github.com/philcn/RaysRenderer/pkg/texture"
)

// Sample is everything a filter stage needs to know about one pixel.
// It is derived on demand from a signal texture and the compact
// normal+depth texture and never stored.
type Sample struct {
	Signal      core.Vec3
	Variance    float32
	Normal      core.Vec3
	LinearZ     float32
	ZDerivative float32
	Luminance   float32
}

// FetchSample reads pixel (x, y). The signal texture carries rgb in its first
// three channels and, when present, variance in the fourth.
func FetchSample(signal, normalDepth *texture.Texture, x, y int) Sample {
	so := signal.Offset(x, y)
	rgb := core.NewVec3(signal.Pix[so], signal.Pix[so+1], signal.Pix[so+2])

	var variance float32
	if signal.Channels > 3 {
		variance = signal.Pix[so+3]
	}

	no := normalDepth.Offset(x, y)
	nd := normalDepth.Pix[no : no+3]

	return Sample{
		Signal:      rgb,
		Variance:    variance,
		Normal:      codec.DecodeNormal(math.Float32bits(nd[0])),
		LinearZ:     nd[1],
		ZDerivative: nd[2],
		Luminance:   rgb.Luminance(),
	}
}
