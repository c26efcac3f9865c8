package constants

// QualityTier is the coarse legibility class of a page image.
type QualityTier string

const (
	TierClean    QualityTier = "clean"
	TierModerate QualityTier = "moderate"
	TierPoor     QualityTier = "poor"
)

// ExtractionSource records which strategy produced a page's text.
type ExtractionSource string

const (
	SourceVision ExtractionSource = "vision"
	SourceOCR    ExtractionSource = "ocr"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StagePreprocessing Stage = "preprocessing"
	StageExtraction    Stage = "extraction"
	StageJurisdiction  Stage = "jurisdiction"
	StageAnalysis      Stage = "analysis"
)

// RunStatus is stored with metrics and queue outcomes.
type RunStatus string

const (
	RunStatusOK        RunStatus = "OK"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
	RunStatusSkipped   RunStatus = "SKIPPED" // deduplicated inbox file
)

// RiskLevel buckets an integer risk score.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskStandard RiskLevel = "standard"
)

// RiskLevelForScore maps a 1..10 score (or a 0..10 average) onto a level.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 8:
		return RiskCritical
	case score >= 6:
		return RiskHigh
	case score >= 4:
		return RiskMedium
	case score >= 2:
		return RiskLow
	default:
		return RiskStandard
	}
}

// Weight is the emphasis a level gets in the overall risk average.
func (l RiskLevel) Weight() float64 {
	switch l {
	case RiskCritical:
		return 2.0
	case RiskHigh:
		return 1.5
	case RiskMedium:
		return 1.0
	case RiskLow:
		return 0.75
	default:
		return 0.5
	}
}
