package pipeline

import (
	"image"
	"math"
)

type bilateralParams struct {
	radius     int
	sigmaSpace float64
	sigmaColor float64
}

// bilateral is an edge-preserving smoothing filter. Range weights are taken
// from the mean absolute channel difference, borders replicate the edge pixel.
func bilateral(src *image.NRGBA, p bilateralParams) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)
	r := p.radius
	side := 2*r + 1

	spatial := make([]float64, side*side)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+r)*side+dx+r] = math.Exp(-d2 / (2 * p.sigmaSpace * p.sigmaSpace))
		}
	}

	// Index is the L1 distance over three channels, 0..765.
	rangeLUT := make([]float64, 3*255+1)
	for d := range rangeLUT {
		m := float64(d) / 3
		rangeLUT[d] = math.Exp(-m * m / (2 * p.sigmaColor * p.sigmaColor))
	}

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				ci := y*src.Stride + x*4
				c0, c1, c2 := int(src.Pix[ci]), int(src.Pix[ci+1]), int(src.Pix[ci+2])

				var sr, sg, sb, sw float64
				for dy := -r; dy <= r; dy++ {
					row := clampInt(y+dy, 0, h-1) * src.Stride
					k := (dy + r) * side
					for dx := -r; dx <= r; dx++ {
						ni := row + clampInt(x+dx, 0, w-1)*4
						n0, n1, n2 := int(src.Pix[ni]), int(src.Pix[ni+1]), int(src.Pix[ni+2])
						wt := spatial[k+dx+r] * rangeLUT[absInt(n0-c0)+absInt(n1-c1)+absInt(n2-c2)]
						sr += wt * float64(n0)
						sg += wt * float64(n1)
						sb += wt * float64(n2)
						sw += wt
					}
				}

				di := y*dst.Stride + x*4
				dst.Pix[di] = clamp8(sr / sw)
				dst.Pix[di+1] = clamp8(sg / sw)
				dst.Pix[di+2] = clamp8(sb / sw)
				dst.Pix[di+3] = 0xff
			}
		}
	})
	return dst
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
