package texture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesSize(t *testing.T) {
	tests := []struct {
		name                    string
		width, height, channels int
		expectErr               error
	}{
		{"valid rgba", 8, 4, 4, nil},
		{"valid single channel", 1, 1, 1, nil},
		{"zero width", 0, 4, 4, ErrInvalidSize},
		{"negative height", 4, -1, 4, ErrInvalidSize},
		{"too many channels", 4, 4, 5, ErrInvalidSize},
		{"too large", 1 << 16, 1 << 16, 4, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := New("test", tt.width, tt.height, tt.channels)
			if tt.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectErr), "unexpected error %v", err)
				assert.Nil(t, tex)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tex.Pix, tt.width*tt.height*tt.channels)
		})
	}
}

func TestTexelAccess(t *testing.T) {
	tex := MustNew("rg", 3, 2, 2)
	tex.SetTexel(2, 1, [4]float32{1, 2, 3, 4})

	assert.Equal(t, [4]float32{1, 2, 0, 0}, tex.Texel(2, 1))
	assert.Equal(t, float32(2), tex.At(2, 1, 1))
	assert.Equal(t, (1*3+2)*2, tex.Offset(2, 1))

	tex.Set(0, 0, 1, 7)
	assert.Equal(t, float32(7), tex.Pix[1])

	assert.True(t, tex.InBounds(2, 1))
	assert.False(t, tex.InBounds(3, 1))
	assert.False(t, tex.InBounds(-1, 0))
}

func TestCopyAndClone(t *testing.T) {
	src := MustNew("src", 4, 4, 4)
	src.Fill([4]float32{0.5, 0.25, 1, 2})

	dst := MustNew("dst", 4, 4, 4)
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, src.Pix, dst.Pix)

	clone := src.Clone()
	clone.Pix[0] = 9
	assert.Equal(t, float32(0.5), src.Pix[0], "clone must not alias")

	wrong := MustNew("wrong", 4, 4, 2)
	err := wrong.CopyFrom(src)
	assert.True(t, errors.Is(err, ErrFormatMismatch))

	dst.Clear()
	assert.Equal(t, float32(0), dst.Pix[3])
}

func TestChannel(t *testing.T) {
	tex := MustNew("rg", 2, 1, 2)
	tex.SetTexel(0, 0, [4]float32{1, 2})
	tex.SetTexel(1, 0, [4]float32{3, 4})

	ch, err := tex.Channel(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4}, ch)

	_, err = tex.Channel(2)
	assert.True(t, errors.Is(err, ErrChannelRange))
}
