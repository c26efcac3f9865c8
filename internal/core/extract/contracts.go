// Package extract routes each page to vision transcription or OCR and merges
// the pages back into one document.
package extract

import (
	"context"
	"image"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// PageInput is one page handed to a transcriber. Vision models read Raw, the
// page as rendered; OCR reads Processed, the deskewed and cleaned image.
type PageInput struct {
	Index     int
	Raw       []byte
	MIMEType  string
	Processed *image.Gray
	Tier      constants.QualityTier
}

// Transcription is one strategy's reading of a page.
type Transcription struct {
	Text       string
	Confidence float64
	Source     constants.ExtractionSource
	Provider   string
}

// Transcriber turns a page into text.
type Transcriber interface {
	Transcribe(ctx context.Context, page PageInput) (Transcription, error)
}
