package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

const sharpenSigma = 1.0

// Sharpen applies an unsharp mask: o + intensity*(o - blur(o)).
func Sharpen(img *image.NRGBA, intensity float64) *image.NRGBA {
	if intensity <= 0 {
		return imaging.Clone(img)
	}
	return amplifyDifference(img, imaging.Blur(img, sharpenSigma), intensity)
}
