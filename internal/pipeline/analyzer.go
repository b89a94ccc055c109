package pipeline

import (
	"image"
	"math"

	"github.com/ds124wfegd/imgenhance/internal/entity"
)

const (
	minBrightness = 0.35
	maxBrightness = 0.85
	minContrast   = 0.25
	minSharpness  = 0.2

	contrastNorm  = 128.0
	sharpnessNorm = 1000.0
)

// Analyze derives the quality metrics of img. It has no side effects and is
// deterministic for identical pixels.
func Analyze(img *image.NRGBA) entity.QualityMetrics {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return entity.QualityMetrics{NeedsEnhancement: true}
	}

	gray := luminancePlane(img)
	brightness, contrast := exposureStats(gray)
	sharpness := math.Min(laplacianVariance(gray, w, h)/sharpnessNorm, 1)

	return entity.QualityMetrics{
		Brightness: brightness,
		Contrast:   contrast,
		Sharpness:  sharpness,
		NeedsEnhancement: brightness < minBrightness || brightness > maxBrightness ||
			contrast < minContrast || sharpness < minSharpness,
	}
}

func wellExposed(brightness, contrast float64) bool {
	return brightness >= minBrightness && brightness <= maxBrightness && contrast >= minContrast
}

// luminancePlane returns Rec.601 luma in 0..255, one value per pixel.
func luminancePlane(img *image.NRGBA) []float32 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	gray := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			p := img.Pix[row+x*4 : row+x*4+3 : row+x*4+3]
			gray[y*w+x] = float32(299*int(p[0])+587*int(p[1])+114*int(p[2])) / 1000
		}
	}
	return gray
}

// exposureStats returns normalized mean and standard deviation of the plane.
func exposureStats(gray []float32) (brightness, contrast float64) {
	mean, variance := meanVariance(gray)
	return mean / 255, math.Min(math.Sqrt(variance)/contrastNorm, 1)
}

func meanVariance(values []float32) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range values {
		f := float64(v)
		sum += f
		sumSq += f * f
	}
	n := float64(len(values))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// laplacianVariance is the variance of the 4-neighbour Laplacian over the
// interior pixels. Images without an interior report 0.
func laplacianVariance(gray []float32, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	resp := make([]float32, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			resp = append(resp, gray[i-w]+gray[i+w]+gray[i-1]+gray[i+1]-4*gray[i])
		}
	}
	_, variance := meanVariance(resp)
	return variance
}
