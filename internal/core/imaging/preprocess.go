package imaging

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

// Preprocessor applies deskew, denoise and contrast normalization, in that
// order, with strength chosen by the page's quality tier: clean pages are only
// deskewed, moderate pages get a 3x3 median and a half-strength equalization,
// poor pages a 5x5 median and full equalization. Output bounds always equal
// input bounds.
type Preprocessor struct {
	cfg    common.QualityConfig
	logger *slog.Logger
}

func NewPreprocessor(cfg common.QualityConfig, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{cfg: cfg, logger: logger}
}

// Process returns a new normalized image and the list of steps applied.
// The input is never modified.
func (p *Preprocessor) Process(g *image.Gray, a Assessment) (*image.Gray, []string) {
	out := cloneGray(g)
	steps := make([]string, 0, 3)

	if math.Abs(a.SkewDegrees) >= p.cfg.MinDeskewDegrees && a.SkewDegrees != 0 {
		out = Rotate(out, -a.SkewDegrees)
		steps = append(steps, fmt.Sprintf("deskew(%.2fdeg)", -a.SkewDegrees))
	}

	switch a.Tier {
	case constants.TierPoor:
		out = MedianFilter(out, 2)
		steps = append(steps, "denoise(median5x5)")
	case constants.TierModerate:
		out = MedianFilter(out, 1)
		steps = append(steps, "denoise(median3x3)")
	}

	// clean pages already clear CleanMinContrast; only their skew is corrected
	switch a.Tier {
	case constants.TierPoor:
		out = NormalizeContrast(out, 1)
		steps = append(steps, "contrast(equalize)")
	case constants.TierModerate:
		out = NormalizeContrast(out, 0.5)
		steps = append(steps, "contrast(stretch+equalize)")
	}

	p.logger.Debug("imaging.preprocess.ok", "tier", a.Tier, "steps", steps)
	return out, steps
}

// Rotate turns g by deg degrees (positive is clockwise on screen) about its
// center, keeping the canvas size. Uncovered corners take the page background.
func Rotate(g *image.Gray, deg float64) *image.Gray {
	b := g.Bounds()
	dst := image.NewGray(b)
	_, bg, _ := histogramOf(g).spread()
	fill(dst, bg)

	// s2d maps source to destination: rotation by -θ about the center, where
	// θ = -deg is the skew being removed.
	theta := -deg * math.Pi / 180
	sin, cos := math.Sincos(theta)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	s2d := f64.Aff3{
		cos, sin, cx - cx*cos - cy*sin,
		-sin, cos, cy + cx*sin - cy*cos,
	}
	draw.BiLinear.Transform(dst, s2d, g, b, draw.Src, nil)
	return dst
}

// MedianFilter applies a (2r+1)x(2r+1) median with clamped borders, using a
// sliding histogram per row (Huang's algorithm).
func MedianFilter(g *image.Gray, r int) *image.Gray {
	if r <= 0 {
		return cloneGray(g)
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)

	at := func(x, y int) uint8 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return g.Pix[y*g.Stride+x]
	}

	n := (2*r + 1) * (2*r + 1)
	th := n / 2
	var hist [256]int
	for y := 0; y < h; y++ {
		for i := range hist {
			hist[i] = 0
		}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				hist[at(dx, y+dy)]++
			}
		}
		m, lt := 0, 0
		for lt+hist[m] <= th {
			lt += hist[m]
			m++
		}
		for x := 0; x < w; x++ {
			dst.Pix[y*dst.Stride+x] = uint8(m)
			if x == w-1 {
				break
			}
			for dy := -r; dy <= r; dy++ {
				out := at(x-r, y+dy)
				hist[out]--
				if int(out) < m {
					lt--
				}
				in := at(x+r+1, y+dy)
				hist[in]++
				if int(in) < m {
					lt++
				}
			}
			for lt > th {
				m--
				lt -= hist[m]
			}
			for lt+hist[m] <= th {
				lt += hist[m]
				m++
			}
		}
	}
	return dst
}

// NormalizeContrast blends a robust linear stretch with full histogram
// equalization. eqWeight 0 is a pure stretch, which leaves full-range pages
// untouched; 1 is pure equalization.
func NormalizeContrast(g *image.Gray, eqWeight float64) *image.Gray {
	hist := histogramOf(g)
	lo, hi, _ := hist.spread()

	var stretch [256]float64
	for v := 0; v < 256; v++ {
		switch {
		case hi <= lo:
			stretch[v] = float64(v)
		case v <= int(lo):
			stretch[v] = 0
		case v >= int(hi):
			stretch[v] = 255
		default:
			stretch[v] = float64(v-int(lo)) * 255 / float64(int(hi)-int(lo))
		}
	}

	var eq [256]float64
	if eqWeight > 0 {
		cdfMin, cum := 0, 0
		for _, n := range hist.bins {
			if n > 0 {
				cdfMin = n
				break
			}
		}
		denom := float64(hist.total - cdfMin)
		for v, n := range hist.bins {
			cum += n
			if denom <= 0 {
				eq[v] = float64(v)
				continue
			}
			eq[v] = float64(cum-cdfMin) * 255 / denom
		}
	}

	var lut [256]uint8
	for v := 0; v < 256; v++ {
		lut[v] = clampByte((1-eqWeight)*stretch[v] + eqWeight*eq[v])
	}

	dst := image.NewGray(g.Bounds())
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x, v := range src {
			out[x] = lut[v]
		}
	}
	return dst
}

func cloneGray(g *image.Gray) *image.Gray {
	dst := image.NewGray(g.Bounds())
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], g.Pix[y*g.Stride:y*g.Stride+w])
	}
	return dst
}
