package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// ToGray converts any image to an 8-bit grayscale copy anchored at (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// downscale returns g shrunk so that its longest side is at most maxDim, and the
// scale factor applied. Images already small enough are returned as-is.
func downscale(g *image.Gray, maxDim int) (*image.Gray, float64) {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxDim <= 0 || longest <= maxDim {
		return g, 1
	}
	scale := float64(maxDim) / float64(longest)
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), g, g.Bounds(), draw.Src, nil)
	return dst, scale
}

type histogram struct {
	bins  [256]int
	total int
}

func histogramOf(g *image.Gray) histogram {
	var h histogram
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			h.bins[v]++
		}
	}
	h.total = b.Dx() * b.Dy()
	return h
}

// percentile returns the smallest intensity whose cumulative share reaches p (0..1).
func (h histogram) percentile(p float64) uint8 {
	if h.total == 0 {
		return 0
	}
	target := int(math.Ceil(p * float64(h.total)))
	if target < 1 {
		target = 1
	}
	cum := 0
	for v, n := range h.bins {
		cum += n
		if cum >= target {
			return uint8(v)
		}
	}
	return 255
}

// spread is the robust intensity range used as the contrast signal, in [0,1].
func (h histogram) spread() (lo, hi uint8, spread float64) {
	lo = h.percentile(0.005)
	hi = h.percentile(0.995)
	if hi <= lo {
		return lo, hi, 0
	}
	return lo, hi, float64(hi-lo) / 255
}

func fill(g *image.Gray, v uint8) {
	draw.Draw(g, g.Bounds(), &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, draw.Src)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
