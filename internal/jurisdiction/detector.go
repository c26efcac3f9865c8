// Package jurisdiction infers the governing jurisdiction of a contract from
// location, legal-citation and currency evidence in its text.
package jurisdiction

import (
	"log/slog"
	"math"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

const maxAlternatives = 2

// Detector scores every jurisdiction of the closed set against a text.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	cfg     common.JurisdictionConfig
	signals []Signal
	logger  *slog.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithSignals replaces the built-in signal table.
func WithSignals(signals []Signal) Option {
	return func(d *Detector) {
		d.signals = signals
	}
}

func NewDetector(cfg common.JurisdictionConfig, logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		cfg:     cfg,
		signals: DefaultSignals(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Score is the aggregated evidence for one jurisdiction.
type Score struct {
	Jurisdiction constants.Jurisdiction
	Total        float64
	Signals      []string
}

func (d *Detector) weight(k Kind) float64 {
	switch k {
	case KindLocation:
		return d.cfg.LocationWeight
	case KindLegal:
		return d.cfg.LegalWeight
	case KindCurrency:
		return d.cfg.CurrencyWeight
	default:
		return 0
	}
}

// Scores returns every jurisdiction with evidence for or against it, best
// first. Ties go to the more specific jurisdiction, then to closed-set order.
func (d *Detector) Scores(text string) []Score {
	text = norm.NFKC.String(text)

	byJurisdiction := make(map[constants.Jurisdiction]*Score)
	get := func(j constants.Jurisdiction) *Score {
		s, ok := byJurisdiction[j]
		if !ok {
			s = &Score{Jurisdiction: j}
			byJurisdiction[j] = s
		}
		return s
	}

	for _, sig := range d.signals {
		if sig.Pattern == nil || !sig.Pattern.MatchString(text) {
			continue
		}
		w := d.weight(sig.Kind)
		for _, j := range sig.Targets {
			s := get(j)
			s.Total += w
			s.Signals = append(s.Signals, sig.Label())
		}
		for _, j := range sig.Penalizes {
			get(j).Total -= d.cfg.NegativeWeight
		}
	}

	out := make([]Score, 0, len(byJurisdiction))
	for _, s := range byJurisdiction {
		sort.Strings(s.Signals)
		out = append(out, *s)
	}
	sort.Slice(out, func(a, b int) bool {
		return ranksBefore(out[a], out[b])
	})
	return out
}

func ranksBefore(a, b Score) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if sa, sb := a.Jurisdiction.Specificity(), b.Jurisdiction.Specificity(); sa != sb {
		return sa > sb
	}
	return a.Jurisdiction.Order() < b.Jurisdiction.Order()
}

// Detect picks the best-supported jurisdiction. Below MinScore the label is
// Unknown with confidence 0, which is not an error.
func (d *Detector) Detect(text string) entity.JurisdictionLabel {
	scores := d.Scores(text)
	if len(scores) == 0 || scores[0].Total < d.cfg.MinScore {
		top := 0.0
		if len(scores) > 0 {
			top = scores[0].Total
		}
		d.logger.Debug("jurisdiction.detect.unknown", "best_score", top, "min_score", d.cfg.MinScore)
		return entity.UnknownJurisdiction()
	}

	best := scores[0]
	runnerUp := 0.0
	if len(scores) > 1 && scores[1].Total > 0 {
		runnerUp = scores[1].Total
	}

	label := entity.JurisdictionLabel{
		Jurisdiction:        best.Jurisdiction,
		Region:              best.Jurisdiction.Region(),
		DetectionConfidence: confidence(best.Total, runnerUp, d.cfg.SaturationScore),
		MatchedSignals:      best.Signals,
		Alternatives:        []constants.Jurisdiction{},
	}
	if sub := best.Jurisdiction.SubJurisdiction(); sub != "" {
		label.SubJurisdiction = &sub
	}
	for _, s := range scores[1:] {
		if len(label.Alternatives) == maxAlternatives || s.Total <= 0 {
			break
		}
		label.Alternatives = append(label.Alternatives, s.Jurisdiction)
	}

	d.logger.Debug("jurisdiction.detect.ok",
		"jurisdiction", label.Jurisdiction,
		"score", best.Total,
		"runner_up", runnerUp,
		"confidence", label.DetectionConfidence,
		"signals", len(label.MatchedSignals),
	)
	return label
}

// confidence is the winner's share of the top two totals, scaled down while
// the winner is below the saturation score.
func confidence(winner, runnerUp, saturation float64) float64 {
	if winner <= 0 {
		return 0
	}
	share := winner / (winner + runnerUp)
	sat := 1.0
	if saturation > 0 {
		sat = math.Min(1, winner/saturation)
	}
	return math.Round(share*sat*100) / 100
}
