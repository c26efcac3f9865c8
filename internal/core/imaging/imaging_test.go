package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

func testQuality() common.QualityConfig {
	return common.DefaultConfig().Quality
}

// textPage draws a white page with dark text-line bars tilted by deg degrees.
func textPage(w, h int, deg float64) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	fill(g, 250)
	slope := math.Tan(deg * math.Pi / 180)
	for y0 := 60; y0 < h-60; y0 += 24 {
		for x := 40; x < w-40; x++ {
			yc := y0 + int(math.Round(float64(x-40)*slope))
			for dy := 0; dy < 6; dy++ {
				if y := yc + dy; y >= 0 && y < h {
					g.SetGray(x, y, color.Gray{Y: 10})
				}
			}
		}
	}
	return g
}

func noisePage(w, h int) *image.Gray {
	r := rand.New(rand.NewSource(42))
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8(r.Intn(256))
	}
	return g
}

func TestAssessCleanPage(t *testing.T) {
	a := NewAssessor(testQuality(), nil)
	got, err := a.AssessGray(textPage(600, 800, 0))
	if err != nil {
		t.Fatalf("AssessGray: %v", err)
	}
	if got.Tier != constants.TierClean {
		t.Errorf("tier = %s, want clean (%+v)", got.Tier, got)
	}
	if math.Abs(got.SkewDegrees) > 0.2 {
		t.Errorf("skew = %.2f, want ~0", got.SkewDegrees)
	}
	if got.Contrast < 0.9 {
		t.Errorf("contrast = %.2f, want high", got.Contrast)
	}
}

func TestAssessDetectsSkew(t *testing.T) {
	a := NewAssessor(testQuality(), nil)
	for _, deg := range []float64{-4, 3, 7} {
		got, err := a.AssessGray(textPage(700, 900, deg))
		if err != nil {
			t.Fatalf("AssessGray(%v): %v", deg, err)
		}
		if math.Abs(got.SkewDegrees-deg) > 0.4 {
			t.Errorf("skew for %v deg page = %.2f", deg, got.SkewDegrees)
		}
		if deg == 7 && got.Tier != constants.TierPoor {
			t.Errorf("7 deg skew should be poor, got %s", got.Tier)
		}
	}
}

func TestAssessNoiseIsFormatError(t *testing.T) {
	a := NewAssessor(testQuality(), nil)
	_, err := a.AssessGray(noisePage(320, 320))
	if err == nil {
		t.Fatal("expected FormatError for an all-noise page")
	}
	if !errors.Is(err, common.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestAssessBlankPageIsPoorNotFormatError(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 300, 400))
	fill(g, 250)
	a := NewAssessor(testQuality(), nil)
	got, err := a.AssessGray(g)
	if err != nil {
		t.Fatalf("blank page rejected: %v", err)
	}
	if got.Noise > testQuality().UnreadableNoise || got.Contrast != 0 {
		t.Errorf("signals = %+v", got)
	}
	if got.Tier != constants.TierPoor {
		t.Errorf("tier = %s, want poor", got.Tier)
	}
}

func TestAssessTinyImageIsFormatError(t *testing.T) {
	a := NewAssessor(testQuality(), nil)
	_, err := a.Assess(image.NewGray(image.Rect(0, 0, 2, 2)))
	if !common.IsFormatError(err) {
		t.Errorf("expected FormatError, got %v", err)
	}
}

func TestTier(t *testing.T) {
	a := NewAssessor(testQuality(), nil)
	tests := []struct {
		name string
		in   Assessment
		want constants.QualityTier
	}{
		{"clean", Assessment{SkewDegrees: 0.3, Noise: 2, Contrast: 0.9}, constants.TierClean},
		{"slight skew", Assessment{SkewDegrees: -2, Noise: 2, Contrast: 0.9}, constants.TierModerate},
		{"heavy skew", Assessment{SkewDegrees: -6, Noise: 2, Contrast: 0.9}, constants.TierPoor},
		{"noisy", Assessment{SkewDegrees: 0, Noise: 16, Contrast: 0.9}, constants.TierPoor},
		{"faded", Assessment{SkewDegrees: 0, Noise: 1, Contrast: 0.2}, constants.TierPoor},
		{"middling contrast", Assessment{SkewDegrees: 0, Noise: 1, Contrast: 0.45}, constants.TierModerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Tier(tt.in); got != tt.want {
				t.Errorf("Tier(%+v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestEstimateNoise(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 50, 50))
	fill(flat, 200)
	if n := EstimateNoise(flat); n != 0 {
		t.Errorf("flat image noise = %v, want 0", n)
	}
	if n := EstimateNoise(noisePage(200, 200)); n < 40 {
		t.Errorf("uniform noise estimate = %v, want well above 40", n)
	}
}

func TestPreprocessNearIdentityOnCleanPage(t *testing.T) {
	cfg := testQuality()
	page := textPage(500, 700, 0)
	a, err := NewAssessor(cfg, nil).AssessGray(page)
	if err != nil {
		t.Fatal(err)
	}
	out, steps := NewPreprocessor(cfg, nil).Process(page, a)

	if out.Bounds() != page.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", page.Bounds(), out.Bounds())
	}
	for _, s := range steps {
		if len(s) >= 6 && s[:6] == "deskew" {
			t.Errorf("clean page should not be rotated, steps=%v", steps)
		}
	}
	maxDiff := 0
	for i := range page.Pix {
		d := int(page.Pix[i]) - int(out.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			maxDiff = d
		}
	}
	if maxDiff > 6 {
		t.Errorf("max pixel difference %d on a clean page, want near identity", maxDiff)
	}
}

func TestPreprocessIsIdempotentOnItsOutput(t *testing.T) {
	cfg := testQuality()
	as := NewAssessor(cfg, nil)
	pre := NewPreprocessor(cfg, nil)

	a1, _ := as.AssessGray(textPage(400, 500, 0))
	first, _ := pre.Process(textPage(400, 500, 0), a1)
	a2, err := as.AssessGray(first)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := pre.Process(first, a2)
	for i := range first.Pix {
		if d := int(first.Pix[i]) - int(second.Pix[i]); d > 2 || d < -2 {
			t.Fatalf("second pass changed pixel %d by %d", i, d)
		}
	}
}

func TestPreprocessDeskewsTiltedPage(t *testing.T) {
	cfg := testQuality()
	page := textPage(700, 900, 4)
	a, err := NewAssessor(cfg, nil).AssessGray(page)
	if err != nil {
		t.Fatal(err)
	}
	out, steps := NewPreprocessor(cfg, nil).Process(page, a)
	if out.Bounds() != page.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", page.Bounds(), out.Bounds())
	}
	if len(steps) == 0 || steps[0][:6] != "deskew" {
		t.Fatalf("expected deskew first, steps=%v", steps)
	}
	if residual := EstimateSkew(out, cfg.MaxSkewSearch); math.Abs(residual) > 0.6 {
		t.Errorf("residual skew after deskew = %.2f", residual)
	}
}

func TestMedianFilterRemovesSpeckles(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 40, 40))
	fill(g, 255)
	for _, p := range []image.Point{{5, 5}, {20, 13}, {33, 30}, {0, 0}, {39, 39}} {
		g.SetGray(p.X, p.Y, color.Gray{Y: 0})
	}
	out := MedianFilter(g, 1)
	for i, v := range out.Pix {
		if v != 255 {
			t.Fatalf("speckle survived at index %d (value %d)", i, v)
		}
	}
}

func TestNormalizeContrastStretchesFadedPage(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			v := uint8(180)
			if y%10 < 3 {
				v = 120
			}
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
	_, _, before := histogramOf(g).spread()
	_, _, after := histogramOf(NormalizeContrast(g, 0)).spread()
	if before > 0.3 || after < 0.95 {
		t.Errorf("spread before=%.2f after=%.2f", before, after)
	}
}
