package entity

import (
	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// DocumentInput is one uploaded contract. It is not modified once ingested.
type DocumentInput struct {
	Name     string                   `json:"name"`
	Data     []byte                   `json:"-"`
	Format   constants.DocumentFormat `json:"format"`
	MIMEType string                   `json:"mime_type"`
}

// ExtractionResult is the text of one page and where it came from.
// Confidence always belongs to the path that produced Text.
type ExtractionResult struct {
	PageIndex     int                        `json:"page_index"`
	Text          string                     `json:"-"`
	Confidence    float64                    `json:"confidence"`
	Source        constants.ExtractionSource `json:"source"`
	Provider      string                     `json:"provider"`
	Tier          constants.QualityTier      `json:"tier"`
	LowConfidence bool                       `json:"low_confidence"`
	Preprocessing []string                   `json:"preprocessing"`
	CharCount     int                        `json:"char_count"`
}

// ExtractedDocument is the re-sequenced result of every page.
type ExtractedDocument struct {
	Name          string                 `json:"name"`
	Type          constants.DocumentType `json:"document_type"`
	Text          string                 `json:"text"`
	Pages         []ExtractionResult     `json:"pages"`
	Confidence    float64                `json:"confidence"`
	LowConfidence bool                   `json:"low_confidence"`
	Notes         []string               `json:"notes"`
}

// PageCount is the number of extracted pages.
func (d ExtractedDocument) PageCount() int {
	return len(d.Pages)
}
