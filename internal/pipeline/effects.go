package pipeline

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imgenhance/internal/entity"
)

const (
	FilterSharpen = "sharpen"
	FilterBlur    = "blur"

	DefaultBackgroundBlur = 15
	MaxBackgroundBlur     = 30
)

// ApplyFilter runs one of the quick filters.
func ApplyFilter(img *image.NRGBA, kind string) (*image.NRGBA, error) {
	switch kind {
	case FilterSharpen:
		return imaging.Sharpen(img, 1.0), nil
	case FilterBlur:
		return imaging.Blur(img, 2.0), nil
	}
	return nil, entity.InvalidInput("unknown filter_type %q, expected sharpen or blur", kind)
}

// BackgroundBlur keeps a centred elliptical subject sharp and blurs the rest.
// The mask is 1 inside half the radius and falls off smoothly to 0 at 1.5x.
func BackgroundBlur(img *image.NRGBA, strength int) *image.NRGBA {
	if strength <= 0 {
		strength = DefaultBackgroundBlur
	}
	strength = clampInt(strength, 1, MaxBackgroundBlur)

	blurred := imaging.Blur(img, float64(strength))
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := math.Max(cx, 1), math.Max(cy, 1)

	dst := image.NewNRGBA(img.Rect)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				dx := (float64(x) + 0.5 - cx) / rx
				dy := (float64(y) + 0.5 - cy) / ry
				m := subjectMask(math.Sqrt(dx*dx + dy*dy))
				i := y*img.Stride + x*4
				for c := 0; c < 3; c++ {
					dst.Pix[i+c] = clamp8(float64(img.Pix[i+c])*m + float64(blurred.Pix[i+c])*(1-m))
				}
				dst.Pix[i+3] = 0xff
			}
		}
	})
	return dst
}

func subjectMask(r float64) float64 {
	switch {
	case r <= 0.5:
		return 1
	case r >= 1.5:
		return 0
	}
	t := r - 0.5
	return 1 - t*t*(3-2*t)
}
