package imaging

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

// Assessment holds the three quality signals of one page and the tier derived from them.
type Assessment struct {
	SkewDegrees float64              `json:"skew_degrees"`
	Noise       float64              `json:"noise"`
	Contrast    float64              `json:"contrast"`
	Tier        constants.QualityTier `json:"tier"`
}

// Assessor scores page images. It is stateless apart from its thresholds and
// safe for concurrent use.
type Assessor struct {
	cfg    common.QualityConfig
	logger *slog.Logger
}

func NewAssessor(cfg common.QualityConfig, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{cfg: cfg, logger: logger}
}

// Assess converts img to grayscale and scores it.
func (a *Assessor) Assess(img image.Image) (Assessment, error) {
	if img == nil {
		return Assessment{}, common.NewFormatError("page image is empty", nil)
	}
	return a.AssessGray(ToGray(img))
}

// AssessGray scores an already grayscale page. Pages whose noise estimate is
// beyond UnreadableNoise are rejected with a FormatError.
func (a *Assessor) AssessGray(g *image.Gray) (Assessment, error) {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return Assessment{}, common.NewFormatError(fmt.Sprintf("page image too small (%dx%d)", b.Dx(), b.Dy()), nil)
	}

	noise := EstimateNoise(g)
	if noise > a.cfg.UnreadableNoise {
		a.logger.Warn("imaging.assess.unreadable", "noise", round2(noise), "limit", a.cfg.UnreadableNoise)
		return Assessment{Noise: noise}, common.NewFormatError(
			fmt.Sprintf("page is unreadable: noise estimate %.1f exceeds %.1f", noise, a.cfg.UnreadableNoise), nil)
	}

	_, _, contrast := histogramOf(g).spread()

	small, _ := downscale(g, a.cfg.AnalysisMaxDim)
	skew := EstimateSkew(small, a.cfg.MaxSkewSearch)

	out := Assessment{
		SkewDegrees: skew,
		Noise:       noise,
		Contrast:    contrast,
	}
	out.Tier = a.Tier(out)

	a.logger.Debug("imaging.assess.ok",
		"skew_deg", round2(skew),
		"noise", round2(noise),
		"contrast", round2(contrast),
		"tier", out.Tier,
	)
	return out, nil
}

// Tier maps the signal triple onto a quality tier.
func (a *Assessor) Tier(s Assessment) constants.QualityTier {
	skew := math.Abs(s.SkewDegrees)
	if skew > a.cfg.PoorSkewDegrees || s.Noise > a.cfg.PoorNoise || s.Contrast < a.cfg.PoorContrast {
		return constants.TierPoor
	}
	if skew <= a.cfg.CleanMaxSkewDegrees && s.Noise <= a.cfg.CleanMaxNoise && s.Contrast >= a.cfg.CleanMinContrast {
		return constants.TierClean
	}
	return constants.TierModerate
}

// EstimateNoise is Immerkær's fast noise variance estimator: the mean absolute
// response to a Laplacian-difference mask, scaled to a standard deviation in
// intensity levels. Straight edges cancel out, so printed text scores low.
func EstimateNoise(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	px := func(x, y int) int { return int(g.Pix[y*g.Stride+x]) }

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := px(x-1, y-1) - 2*px(x, y-1) + px(x+1, y-1) -
				2*px(x-1, y) + 4*px(x, y) - 2*px(x+1, y) +
				px(x-1, y+1) - 2*px(x, y+1) + px(x+1, y+1)
			if v < 0 {
				v = -v
			}
			sum += float64(v)
		}
	}
	return sum * math.Sqrt(math.Pi/2) / (6 * float64(w-2) * float64(h-2))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
