package extract

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/ocr"
)

// Recognizer is the OCR engine seen by the adapter.
type Recognizer interface {
	RecognizeImage(ctx context.Context, img image.Image) (ocr.Recognition, error)
}

// OCRTranscriber adapts the tesseract extractor to Transcriber.
type OCRTranscriber struct {
	recognizer Recognizer
	logger     *slog.Logger
}

func NewOCRTranscriber(r Recognizer, l *slog.Logger) *OCRTranscriber {
	if l == nil {
		l = slog.Default()
	}
	return &OCRTranscriber{
		recognizer: r,
		logger:     l,
	}
}

func (a *OCRTranscriber) Transcribe(ctx context.Context, page PageInput) (Transcription, error) {
	if page.Processed == nil {
		return Transcription{}, errors.New("ocr: page has no preprocessed image")
	}
	r, err := a.recognizer.RecognizeImage(ctx, page.Processed)
	if err != nil {
		return Transcription{}, err
	}
	return Transcription{
		Text:       r.Text,
		Confidence: clamp01(r.Confidence),
		Source:     constants.SourceOCR,
		Provider:   "tesseract",
	}, nil
}
