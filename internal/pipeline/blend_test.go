package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlendFactor(t *testing.T) {
	tests := []struct {
		strength int
		want     float64
	}{
		{strength: 0, want: 0},
		{strength: 40, want: 0.34},
		{strength: 100, want: 0.85},
		{strength: 150, want: 0.85},
		{strength: -5, want: 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, BlendFactor(tt.strength), 1e-9)
	}
}

// TestBlend проверяет смешивание оригинала и улучшенного изображения
func TestBlend(t *testing.T) {
	tests := []struct {
		name     string
		strength int
		want     float64
	}{
		{name: "no strength keeps original", strength: 0, want: 100},
		{name: "partial strength", strength: 40, want: 134},
		{name: "full strength is capped", strength: 100, want: 185},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := grayImage(8, 8, 100)
			enhanced := grayImage(8, 8, 200)

			out := Blend(original, enhanced, tt.strength)

			for i := 0; i < len(out.Pix); i += 4 {
				assert.InDelta(t, tt.want, float64(out.Pix[i]), 1)
				assert.Equal(t, uint8(255), out.Pix[i+3])
			}
		})
	}
}

func TestBlendZeroStrengthIsExactCopy(t *testing.T) {
	original := noisyGray(16, 16, 3)
	enhanced := grayImage(16, 16, 0)

	out := Blend(original, enhanced, 0)

	assert.NotSame(t, original, out)
	assert.Equal(t, original.Pix, out.Pix)
}

func TestBlendResizesOriginal(t *testing.T) {
	original := grayImage(10, 10, 100)
	enhanced := grayImage(20, 20, 200)

	out := Blend(original, enhanced, 100)

	require.Equal(t, [2]int{20, 20}, Dimensions(out))
	assert.InDelta(t, 185, float64(out.NRGBAAt(10, 10).R), 1)
	assert.Equal(t, [2]int{10, 10}, Dimensions(original))
}
