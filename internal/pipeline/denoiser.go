package pipeline

import (
	"image"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

const (
	denoiseRadius = 2
	// Impulse noise survives bilateral smoothing, strong requests get a
	// median pass first.
	medianThreshold = 0.45
)

// Denoise smooths sensor noise while keeping edges. Intensity is clamped to
// [0,1]; zero returns an unchanged copy.
func Denoise(img *image.NRGBA, intensity float64) *image.NRGBA {
	if intensity <= 0 {
		return imaging.Clone(img)
	}
	intensity = math.Min(intensity, 1)

	src := img
	if intensity >= medianThreshold {
		src = medianFilter(img)
	}
	return bilateral(src, bilateralParams{
		radius:     denoiseRadius,
		sigmaSpace: 1 + 2*intensity,
		sigmaColor: 20 + 60*intensity,
	})
}

func medianFilter(img *image.NRGBA) *image.NRGBA {
	g := gift.New(gift.Median(3, false))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
