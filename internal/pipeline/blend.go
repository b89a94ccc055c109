package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// BlendCeiling caps how much of the enhanced image reaches the output, even
// at full strength.
const BlendCeiling = 0.85

func BlendFactor(strength int) float64 {
	return float64(clampInt(strength, 0, 100)) / 100 * BlendCeiling
}

// Blend mixes original and enhanced as original*(1-f) + enhanced*f. When the
// sizes differ the original is resampled to the enhanced size first.
func Blend(original, enhanced *image.NRGBA, strength int) *image.NRGBA {
	base := original
	w, h := enhanced.Rect.Dx(), enhanced.Rect.Dy()
	if original.Rect.Dx() != w || original.Rect.Dy() != h {
		base = imaging.Resize(original, w, h, imaging.Lanczos)
	}

	f := BlendFactor(strength)
	if f == 0 {
		if base != original {
			return base
		}
		return imaging.Clone(original)
	}

	dst := image.NewNRGBA(enhanced.Rect)
	for i := 0; i < len(dst.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			dst.Pix[i+c] = clamp8(float64(base.Pix[i+c])*(1-f) + float64(enhanced.Pix[i+c])*f)
		}
		dst.Pix[i+3] = 0xff
	}
	return dst
}
