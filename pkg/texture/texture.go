// Package texture provides the float32 multi-channel 2D surfaces that carry
// per-pixel data between denoiser stages.
package texture

import (
	"errors"
	"fmt"
)

// MaxTexels caps a single allocation (width * height * channels).
const MaxTexels = 1 << 30

var (
	ErrInvalidSize    = errors.New("texture: invalid size")
	ErrTooLarge       = errors.New("texture: allocation too large")
	ErrFormatMismatch = errors.New("texture: format mismatch")
	ErrChannelRange   = errors.New("texture: channel out of range")
)

// Texture is a row-major 2D grid of texels with a fixed channel count.
type Texture struct {
	// A name for identifying the texture in errors and logs.
	Name string

	Width    int
	Height   int
	Channels int

	// Pix holds Width*Height*Channels values; texel (x, y) starts at
	// (y*Width + x) * Channels.
	Pix []float32
}

// New allocates a zeroed texture.
func New(name string, width, height, channels int) (*Texture, error) {
	if width <= 0 || height <= 0 || channels <= 0 || channels > 4 {
		return nil, fmt.Errorf("%w: %s %dx%d with %d channels", ErrInvalidSize, name, width, height, channels)
	}
	if int64(width)*int64(height)*int64(channels) > MaxTexels {
		return nil, fmt.Errorf("%w: %s %dx%d with %d channels", ErrTooLarge, name, width, height, channels)
	}

	return &Texture{
		Name:     name,
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(name string, width, height, channels int) *Texture {
	t, err := New(name, width, height, channels)
	if err != nil {
		panic(err)
	}
	return t
}

// Offset returns the index of the first channel of texel (x, y).
func (t *Texture) Offset(x, y int) int {
	return (y*t.Width + x) * t.Channels
}

// InBounds reports whether (x, y) addresses a texel.
func (t *Texture) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.Width && y < t.Height
}

// At returns a single channel of texel (x, y).
func (t *Texture) At(x, y, c int) float32 {
	return t.Pix[t.Offset(x, y)+c]
}

// Set writes a single channel of texel (x, y).
func (t *Texture) Set(x, y, c int, v float32) {
	t.Pix[t.Offset(x, y)+c] = v
}

// Texel returns up to four channels of texel (x, y); missing channels are 0.
func (t *Texture) Texel(x, y int) [4]float32 {
	var out [4]float32
	off := t.Offset(x, y)
	copy(out[:t.Channels], t.Pix[off:off+t.Channels])
	return out
}

// SetTexel writes the first Channels values of v into texel (x, y).
func (t *Texture) SetTexel(x, y int, v [4]float32) {
	off := t.Offset(x, y)
	copy(t.Pix[off:off+t.Channels], v[:t.Channels])
}

// SameSize reports whether both textures have identical dimensions.
func (t *Texture) SameSize(other *Texture) bool {
	return other != nil && t.Width == other.Width && t.Height == other.Height
}

// Clear zeroes every texel.
func (t *Texture) Clear() {
	clear(t.Pix)
}

// Fill sets every texel to v.
func (t *Texture) Fill(v [4]float32) {
	for off := 0; off < len(t.Pix); off += t.Channels {
		copy(t.Pix[off:off+t.Channels], v[:t.Channels])
	}
}

// CopyFrom blits src into t. Both textures must share size and channel count.
func (t *Texture) CopyFrom(src *Texture) error {
	if !t.SameSize(src) || t.Channels != src.Channels {
		return fmt.Errorf("%w: cannot copy %s (%dx%dx%d) into %s (%dx%dx%d)", ErrFormatMismatch,
			src.Name, src.Width, src.Height, src.Channels, t.Name, t.Width, t.Height, t.Channels)
	}
	copy(t.Pix, src.Pix)
	return nil
}

// Clone returns a deep copy.
func (t *Texture) Clone() *Texture {
	pix := make([]float32, len(t.Pix))
	copy(pix, t.Pix)
	return &Texture{Name: t.Name, Width: t.Width, Height: t.Height, Channels: t.Channels, Pix: pix}
}

// Channel extracts one channel into a flat row-major slice.
func (t *Texture) Channel(c int) ([]float32, error) {
	if c < 0 || c >= t.Channels {
		return nil, fmt.Errorf("%w: %s has %d channels, requested %d", ErrChannelRange, t.Name, t.Channels, c)
	}
	out := make([]float32, t.Width*t.Height)
	for i := range out {
		out[i] = t.Pix[i*t.Channels+c]
	}
	return out, nil
}
