package pipeline

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	claheTiles     = 8
	claheClipLimit = 2.0
	histBins       = 256
)

// Correct equalizes local lightness contrast with CLAHE on the L channel of
// CIE Lab. Chroma is carried through untouched. Images whose exposure already
// sits inside the acceptable band are returned as an exact copy, so the stage
// is idempotent on them.
func Correct(img *image.NRGBA) *image.NRGBA {
	brightness, contrast := exposureStats(luminancePlane(img))
	if wellExposed(brightness, contrast) {
		return imaging.Clone(img)
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := w * h
	lightness := make([]uint8, n)
	chromaA := make([]float32, n)
	chromaB := make([]float32, n)

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				pi := y*img.Stride + x*4
				c := colorful.Color{
					R: float64(img.Pix[pi]) / 255,
					G: float64(img.Pix[pi+1]) / 255,
					B: float64(img.Pix[pi+2]) / 255,
				}
				l, a, b := c.Lab()
				i := y*w + x
				lightness[i] = clamp8(l * 255)
				chromaA[i] = float32(a)
				chromaB[i] = float32(b)
			}
		}
	})

	grid := newTileGrid(lightness, w, h)

	dst := image.NewNRGBA(img.Rect)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				l := grid.lookup(x, y, lightness[i]) / 255
				c := colorful.Lab(l, float64(chromaA[i]), float64(chromaB[i])).Clamped()
				di := y*dst.Stride + x*4
				dst.Pix[di] = clamp8(c.R * 255)
				dst.Pix[di+1] = clamp8(c.G * 255)
				dst.Pix[di+2] = clamp8(c.B * 255)
				dst.Pix[di+3] = 0xff
			}
		}
	})
	return dst
}

// tileGrid holds one equalization LUT per tile and interpolates between the
// four nearest tile centres.
type tileGrid struct {
	cols, rows   int
	tileW, tileH float64
	luts         [][histBins]float64
}

func newTileGrid(plane []uint8, w, h int) *tileGrid {
	g := &tileGrid{cols: claheTiles, rows: claheTiles}
	if g.cols > w {
		g.cols = w
	}
	if g.rows > h {
		g.rows = h
	}
	g.tileW = float64(w) / float64(g.cols)
	g.tileH = float64(h) / float64(g.rows)
	g.luts = make([][histBins]float64, g.cols*g.rows)

	for ty := 0; ty < g.rows; ty++ {
		y0, y1 := ty*h/g.rows, (ty+1)*h/g.rows
		for tx := 0; tx < g.cols; tx++ {
			x0, x1 := tx*w/g.cols, (tx+1)*w/g.cols
			var hist [histBins]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[plane[y*w+x]]++
				}
			}
			g.luts[ty*g.cols+tx] = clippedEqualization(hist, (x1-x0)*(y1-y0))
		}
	}
	return g
}

// clippedEqualization clips the histogram, spreads the excess over all bins
// and returns the scaled cumulative distribution.
func clippedEqualization(hist [histBins]int, area int) [histBins]float64 {
	var lut [histBins]float64
	if area == 0 {
		for i := range lut {
			lut[i] = float64(i)
		}
		return lut
	}

	clip := int(claheClipLimit * float64(area) / histBins)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	batch := excess / histBins
	residual := excess - batch*histBins
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := histBins / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < histBins && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	scale := 255 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = math.Min(math.Round(float64(sum)*scale), 255)
	}
	return lut
}

func (g *tileGrid) lookup(x, y int, v uint8) float64 {
	fx := (float64(x)+0.5)/g.tileW - 0.5
	fy := (float64(y)+0.5)/g.tileH - 0.5
	tx0, ty0 := int(math.Floor(fx)), int(math.Floor(fy))
	wx, wy := fx-float64(tx0), fy-float64(ty0)
	tx1, ty1 := clampInt(tx0+1, 0, g.cols-1), clampInt(ty0+1, 0, g.rows-1)
	tx0, ty0 = clampInt(tx0, 0, g.cols-1), clampInt(ty0, 0, g.rows-1)

	top := (1-wx)*g.luts[ty0*g.cols+tx0][v] + wx*g.luts[ty0*g.cols+tx1][v]
	bottom := (1-wx)*g.luts[ty1*g.cols+tx0][v] + wx*g.luts[ty1*g.cols+tx1][v]
	return (1-wy)*top + wy*bottom
}
