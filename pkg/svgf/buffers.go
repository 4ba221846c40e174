package svgf

import (
	"fmt"

	"github.com/philcn/RaysRenderer/pkg/texture"
)

// generation is one set of temporally accumulated buffers. The pipeline owns
// two: the one written by the most recent Execute and the one before it.
type generation struct {
	signal  *texture.Texture // rgb + variance
	moments *texture.Texture // first and second luminance moment
	history *texture.Texture // accumulated frame count
}

// buffers holds every persistent texture of a pipeline at one resolution
type buffers struct {
	width, height int

	gens    [2]generation
	current int // Index of the generation written by the last Execute

	ping, pong   *texture.Texture // À-trous scratch
	output       *texture.Texture
	lastFiltered *texture.Texture // Feedback tap, next frame's color history
	tap          *texture.Texture // Feedback tap of the running Execute

	prevLinearZ     *texture.Texture
	prevNormalDepth *texture.Texture

	// Depth of the running Execute, published by commit
	nextLinearZ     *texture.Texture
	nextNormalDepth *texture.Texture
}

// ValidateResolution reports whether buffers of width x height can be
// allocated, without allocating them.
func ValidateResolution(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, width, height)
	}
	if int64(width)*int64(height)*4 > texture.MaxTexels {
		return fmt.Errorf("%w: %dx%d: %w", ErrAllocation, width, height, texture.ErrTooLarge)
	}
	return nil
}

func newBuffers(width, height int) (*buffers, error) {
	if err := ValidateResolution(width, height); err != nil {
		return nil, err
	}

	b := &buffers{width: width, height: height}

	var err error
	alloc := func(name string, channels int) *texture.Texture {
		if err != nil {
			return nil
		}
		var t *texture.Texture
		t, err = texture.New(name, width, height, channels)
		return t
	}

	for i := range b.gens {
		b.gens[i] = generation{
			signal:  alloc(fmt.Sprintf("reprojected-%d", i), 4),
			moments: alloc(fmt.Sprintf("moments-%d", i), 2),
			history: alloc(fmt.Sprintf("history-%d", i), 1),
		}
	}
	b.ping = alloc("atrous-ping", 4)
	b.pong = alloc("atrous-pong", 4)
	b.output = alloc("filtered", 4)
	b.lastFiltered = alloc("last-filtered", 4)
	b.tap = alloc("feedback-tap", 4)
	b.prevLinearZ = alloc("prev-linear-z", 2)
	b.prevNormalDepth = alloc("prev-normal-depth", 3)
	b.nextLinearZ = alloc("next-linear-z", 2)
	b.nextNormalDepth = alloc("next-normal-depth", 3)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return b, nil
}

// cur is the generation written by the last Execute; next is the one the
// following Execute overwrites and is read as history until then.
func (b *buffers) cur() *generation  { return &b.gens[b.current] }
func (b *buffers) next() *generation { return &b.gens[1-b.current] }

// commit publishes everything the running Execute wrote for the next frame:
// its generation, its feedback tap and its depth. Until then a failed
// Execute leaves the history of the previous frame intact.
func (b *buffers) commit() {
	b.lastFiltered, b.tap = b.tap, b.lastFiltered
	b.prevLinearZ, b.nextLinearZ = b.nextLinearZ, b.prevLinearZ
	b.prevNormalDepth, b.nextNormalDepth = b.nextNormalDepth, b.prevNormalDepth
	b.current = 1 - b.current
}

// reset drops all history. Every pixel reprojects as disoccluded afterwards.
func (b *buffers) reset() {
	for i := range b.gens {
		b.gens[i].signal.Clear()
		b.gens[i].moments.Clear()
		b.gens[i].history.Clear()
	}
	b.ping.Clear()
	b.pong.Clear()
	b.output.Clear()
	b.lastFiltered.Clear()
	b.tap.Clear()
	b.prevLinearZ.Clear()
	b.prevNormalDepth.Clear()
	b.nextLinearZ.Clear()
	b.nextNormalDepth.Clear()
	b.current = 0
}
