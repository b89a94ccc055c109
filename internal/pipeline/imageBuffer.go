// Package pipeline holds the adaptive enhancement stages and the orchestrator
// that sequences them. Every stage takes an opaque *image.NRGBA anchored at the
// origin and returns a newly allocated one; inputs are never written to.
package pipeline

import (
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// NewBuffer copies src into an opaque 8-bit RGB buffer. Alpha is dropped, the
// raw colour channels are kept.
func NewBuffer(src image.Image) *image.NRGBA {
	dst := imaging.Clone(src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func Dimensions(img *image.NRGBA) [2]int {
	return [2]int{img.Rect.Dx(), img.Rect.Dy()}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// amplifyDifference returns base + amount*(base - smooth) per colour channel.
func amplifyDifference(base, smooth *image.NRGBA, amount float64) *image.NRGBA {
	dst := image.NewNRGBA(base.Rect)
	parallelRows(base.Rect.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := y * base.Stride
			srow := y * smooth.Stride
			for x := 0; x < base.Rect.Dx(); x++ {
				i, j := row+x*4, srow+x*4
				for c := 0; c < 3; c++ {
					o := float64(base.Pix[i+c])
					dst.Pix[i+c] = clamp8(o + amount*(o-float64(smooth.Pix[j+c])))
				}
				dst.Pix[i+3] = 0xff
			}
		}
	})
	return dst
}

// parallelRows splits [0,h) into contiguous bands processed concurrently.
func parallelRows(h int, fn func(y0, y1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	if workers <= 1 {
		fn(0, h)
		return
	}
	band := (h + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < h; y0 += band {
		y1 := y0 + band
		if y1 > h {
			y1 = h
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
