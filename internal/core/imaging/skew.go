package imaging

import (
	"image"
	"math"
)

const (
	coarseStepDeg  = 0.5
	fineStepDeg    = 0.05
	maxSkewSamples = 150_000
	minInkPixels   = 50
)

type point struct{ x, y float64 }

// EstimateSkew returns the dominant text-line angle in degrees within
// ±maxDeg. Positive angles mean lines descend to the right.
//
// Dark pixels vote into a Hough-style accumulator restricted to near-horizontal
// lines: for each candidate angle every ink pixel lands in the row bin
// rho = y·cosθ − x·sinθ, and the angle whose bins are most concentrated
// (largest sum of squared counts) wins. A coarse sweep is refined around the
// best candidate.
func EstimateSkew(g *image.Gray, maxDeg float64) float64 {
	pts := inkPoints(g)
	if len(pts) < minInkPixels || maxDeg <= 0 {
		return 0
	}

	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	bins := make([]int32, 2*diag+3)

	score := func(deg float64) float64 {
		for i := range bins {
			bins[i] = 0
		}
		sin, cos := math.Sincos(deg * math.Pi / 180)
		for _, p := range pts {
			r := int(math.Round(p.y*cos-p.x*sin)) + diag + 1
			bins[r]++
		}
		var s float64
		for _, c := range bins {
			if c > 0 {
				s += float64(c) * float64(c)
			}
		}
		return s
	}

	best, bestScore := 0.0, score(0)
	for deg := -maxDeg; deg <= maxDeg+1e-9; deg += coarseStepDeg {
		if s := score(deg); s > bestScore {
			best, bestScore = deg, s
		}
	}
	center := best
	for deg := center - coarseStepDeg; deg <= center+coarseStepDeg+1e-9; deg += fineStepDeg {
		if s := score(deg); s > bestScore {
			best, bestScore = deg, s
		}
	}
	return math.Round(best*100) / 100
}

// inkPoints collects the coordinates of pixels darker than the midpoint of the
// robust intensity range. Pages with no usable ink (blank or inverted) yield nil.
func inkPoints(g *image.Gray) []point {
	lo, hi, spread := histogramOf(g).spread()
	if spread < 0.1 {
		return nil
	}
	threshold := uint8((int(lo) + int(hi)) / 2)

	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	var pts []point
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			if v < threshold {
				pts = append(pts, point{x: float64(x), y: float64(y)})
			}
		}
	}
	// more ink than paper usually means an inverted or photographic page
	if len(pts) > w*h/2 {
		return nil
	}
	if len(pts) > maxSkewSamples {
		stride := len(pts)/maxSkewSamples + 1
		sampled := pts[:0:0]
		for i := 0; i < len(pts); i += stride {
			sampled = append(sampled, pts[i])
		}
		pts = sampled
	}
	return pts
}
