package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// Wider and more tolerant than the denoise filter so that the base layer
// keeps only large structures.
var detailBase = bilateralParams{radius: 3, sigmaSpace: 3, sigmaColor: 75}

// EnhanceDetail boosts the fine-detail layer, the difference between the image
// and its edge-preserving base.
func EnhanceDetail(img *image.NRGBA, intensity float64) *image.NRGBA {
	if intensity <= 0 {
		return imaging.Clone(img)
	}
	return amplifyDifference(img, bilateral(img, detailBase), intensity)
}
