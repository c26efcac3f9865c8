package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// JurisdictionLabel is the detected governing jurisdiction of a document.
type JurisdictionLabel struct {
	Jurisdiction        constants.Jurisdiction   `json:"jurisdiction"`
	Region              string                   `json:"region"`
	SubJurisdiction     *string                  `json:"sub_jurisdiction"`
	DetectionConfidence float64                  `json:"detection_confidence"`
	MatchedSignals      []string                 `json:"matched_signals"`
	Alternatives        []constants.Jurisdiction `json:"alternatives"`
}

// UnknownJurisdiction is the label for documents without enough signal.
func UnknownJurisdiction() JurisdictionLabel {
	return JurisdictionLabel{
		Jurisdiction:   constants.JurisdictionUnknown,
		Region:         constants.JurisdictionUnknown.Region(),
		MatchedSignals: []string{},
		Alternatives:   []constants.Jurisdiction{},
	}
}

// IsUnknown reports whether detection found nothing usable.
func (l JurisdictionLabel) IsUnknown() bool {
	return l.Jurisdiction == constants.JurisdictionUnknown || l.Jurisdiction == ""
}

// String renders the label as "Region/Sub" or "Region".
func (l JurisdictionLabel) String() string {
	if l.SubJurisdiction != nil && *l.SubJurisdiction != "" {
		return l.Region + "/" + *l.SubJurisdiction
	}
	return l.Region
}

// ContractMetadata is what the model read off the contract itself.
type ContractMetadata struct {
	ContractType   *string  `json:"contract_type"`
	Parties        []string `json:"parties"`
	EffectiveDate  *string  `json:"effective_date"`
	ExpirationDate *string  `json:"expiration_date"`
	TotalValue     *string  `json:"total_value"`
	GoverningLaw   *string  `json:"governing_law"`
	Jurisdiction   *string  `json:"jurisdiction"`
}

// Clause is one clause as extracted, before scoring.
type Clause struct {
	Type             constants.ClauseType `json:"clause_type"`
	Title            string               `json:"title"`
	Text             string               `json:"text"`
	SectionReference *string              `json:"section_reference"`
}

// ClauseFinding is a scored clause.
type ClauseFinding struct {
	ClauseType       constants.ClauseType     `json:"clause_type"`
	Category         constants.ClauseCategory `json:"category"`
	Title            string                   `json:"title"`
	ExtractedText    string                   `json:"extracted_text"`
	SectionReference *string                  `json:"section_reference"`
	RiskScore        int                      `json:"risk_score"`
	RiskLevel        constants.RiskLevel      `json:"risk_level"`
	Rationale        string                   `json:"rationale"`
	BenchmarkDelta   string                   `json:"benchmark_delta"`
	Findings         []string                 `json:"findings"`
	RedFlags         []string                 `json:"red_flags"`
	Recommendations  []string                 `json:"recommendations"`
}

// NegotiationPoint is a prioritized ask for the counterparty.
type NegotiationPoint struct {
	Priority          int                  `json:"priority"`
	ClauseType        constants.ClauseType `json:"clause_type"`
	RiskScore         int                  `json:"risk_score"`
	Issue             string               `json:"issue"`
	Recommendation    string               `json:"recommendation"`
	SuggestedLanguage string               `json:"suggested_language"`
}

// ExtractionSummary is the extraction part of a report.
type ExtractionSummary struct {
	DocumentType  constants.DocumentType `json:"document_type"`
	Confidence    float64                `json:"confidence"`
	LowConfidence bool                   `json:"low_confidence"`
	Pages         []ExtractionResult     `json:"pages"`
	Notes         []string               `json:"notes"`
}

// AnalysisReport is the pipeline output. It is assembled once and never
// modified afterwards.
type AnalysisReport struct {
	ID                uuid.UUID              `json:"id"`
	DocumentName      string                 `json:"document_name"`
	DocumentType      constants.DocumentType `json:"document_type"`
	PageCount         int                    `json:"page_count"`
	ContentHash       string                 `json:"content_hash,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	Jurisdiction      JurisdictionLabel      `json:"jurisdiction"`
	Metadata          ContractMetadata       `json:"metadata"`
	Findings          []ClauseFinding        `json:"findings"`
	OverallRiskScore  float64                `json:"overall_risk_score"`
	OverallRiskLevel  constants.RiskLevel    `json:"overall_risk_level"`
	ExecutiveSummary  string                 `json:"executive_summary"`
	KeyConcerns       []string               `json:"key_concerns"`
	NegotiationPoints []NegotiationPoint     `json:"negotiation_points"`
	Extraction        ExtractionSummary      `json:"extraction"`
}

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID               uuid.UUID `json:"id"`
	DocumentName     string    `json:"document_name"`
	Jurisdiction     string    `json:"jurisdiction"`
	OverallRiskScore float64   `json:"overall_risk_score"`
	LowConfidence    bool      `json:"low_confidence"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary derives the listing view.
func (r AnalysisReport) Summary() ReportSummary {
	return ReportSummary{
		ID:               r.ID,
		DocumentName:     r.DocumentName,
		Jurisdiction:     r.Jurisdiction.String(),
		OverallRiskScore: r.OverallRiskScore,
		LowConfidence:    r.Extraction.LowConfidence,
		CreatedAt:        r.CreatedAt,
	}
}

// Normalize replaces nil slices with empty ones so JSON never carries null
// lists.
func (r *AnalysisReport) Normalize() {
	if r.Findings == nil {
		r.Findings = []ClauseFinding{}
	}
	for i := range r.Findings {
		f := &r.Findings[i]
		if f.Findings == nil {
			f.Findings = []string{}
		}
		if f.RedFlags == nil {
			f.RedFlags = []string{}
		}
		if f.Recommendations == nil {
			f.Recommendations = []string{}
		}
	}
	if r.KeyConcerns == nil {
		r.KeyConcerns = []string{}
	}
	if r.NegotiationPoints == nil {
		r.NegotiationPoints = []NegotiationPoint{}
	}
	if r.Metadata.Parties == nil {
		r.Metadata.Parties = []string{}
	}
	if r.Jurisdiction.MatchedSignals == nil {
		r.Jurisdiction.MatchedSignals = []string{}
	}
	if r.Jurisdiction.Alternatives == nil {
		r.Jurisdiction.Alternatives = []constants.Jurisdiction{}
	}
	if r.Extraction.Pages == nil {
		r.Extraction.Pages = []ExtractionResult{}
	}
	for i := range r.Extraction.Pages {
		if r.Extraction.Pages[i].Preprocessing == nil {
			r.Extraction.Pages[i].Preprocessing = []string{}
		}
	}
	if r.Extraction.Notes == nil {
		r.Extraction.Notes = []string{}
	}
}
