package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/document"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/imaging"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
)

// PageSeparator joins page texts in the document text.
const PageSeparator = "\n\n---PAGE BREAK---\n\n"

// Router assesses, preprocesses and transcribes pages.
//
// Vision is tried first on every tier. When every vision credential is rate
// limited or failing, the page falls back to OCR. A poor page whose vision
// confidence is below LowConfidenceThreshold is also read by OCR and the more
// confident reading wins, vision on ties. Any other vision failure is fatal
// for the page and therefore for the document.
type Router struct {
	assessor     *imaging.Assessor
	preprocessor *imaging.Preprocessor
	vision       Transcriber // nil when no vision provider is configured
	ocr          Transcriber
	cfg          common.ExtractionConfig
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewRouter(
	assessor *imaging.Assessor,
	preprocessor *imaging.Preprocessor,
	vision Transcriber,
	ocr Transcriber,
	cfg common.ExtractionConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 1
	}
	return &Router{
		assessor:     assessor,
		preprocessor: preprocessor,
		vision:       vision,
		ocr:          ocr,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
	}
}

// ExtractPage runs one page through assessment, preprocessing and routing.
// Errors carry the page index.
func (r *Router) ExtractPage(ctx context.Context, page document.Page) (entity.ExtractionResult, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, r.logger).With("page", page.Index+1)

	gray := imaging.ToGray(page.Image)
	a, err := r.assessor.AssessGray(gray)
	if err != nil {
		return entity.ExtractionResult{}, common.AtPage(constants.StagePreprocessing, page.Index, err)
	}
	processed, steps := r.preprocessor.Process(gray, a)

	in := PageInput{
		Index:     page.Index,
		Raw:       page.Raw,
		MIMEType:  page.MIMEType,
		Processed: processed,
		Tier:      a.Tier,
	}

	tr, err := r.route(ctx, in, log)
	if err != nil {
		return entity.ExtractionResult{}, common.AtPage(constants.StageExtraction, page.Index, err)
	}

	res := entity.ExtractionResult{
		PageIndex:     page.Index,
		Text:          tr.Text,
		Confidence:    clamp01(tr.Confidence),
		Source:        tr.Source,
		Provider:      tr.Provider,
		Tier:          a.Tier,
		Preprocessing: steps,
		CharCount:     utf8.RuneCountInString(tr.Text),
	}
	res.LowConfidence = res.Confidence < r.cfg.MinDocumentConfidence
	r.metrics.PageExtracted(string(res.Source), string(res.Tier), res.Confidence)

	log.Info("extract.page.ok",
		"tier", a.Tier,
		"source", res.Source,
		"provider", res.Provider,
		"confidence", res.Confidence,
		"chars", res.CharCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (r *Router) route(ctx context.Context, in PageInput, log *slog.Logger) (Transcription, error) {
	if r.vision == nil {
		return r.runOCR(ctx, in)
	}

	tr, err := r.vision.Transcribe(ctx, in)
	switch {
	case err == nil:
	case common.IsProviderExhausted(err):
		log.Warn("extract.vision.exhausted", "fallback", "ocr", "error", err)
		return r.runOCR(ctx, in)
	default:
		return Transcription{}, err
	}

	if tr.Confidence >= r.cfg.LowConfidenceThreshold || in.Tier != constants.TierPoor || r.ocr == nil {
		return tr, nil
	}

	log.Info("extract.vision.low_confidence", "confidence", tr.Confidence, "tier", in.Tier, "action", "compare_ocr")
	alt, err := r.ocr.Transcribe(ctx, in)
	if err != nil {
		if errors.Is(err, common.ErrCancelled) || ctx.Err() != nil {
			return Transcription{}, errors.Join(common.ErrCancelled, ctx.Err())
		}
		log.Warn("extract.ocr.compare_failed", "error", err)
		return tr, nil
	}
	if alt.Confidence > tr.Confidence {
		return alt, nil
	}
	return tr, nil
}

func (r *Router) runOCR(ctx context.Context, in PageInput) (Transcription, error) {
	if r.ocr == nil {
		return Transcription{}, fmt.Errorf("no ocr fallback configured: %w", common.ErrProviderExhausted)
	}
	tr, err := r.ocr.Transcribe(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return Transcription{}, errors.Join(common.ErrCancelled, ctx.Err())
		}
		return Transcription{}, fmt.Errorf("ocr fallback: %w", err)
	}
	return tr, nil
}

// ExtractDocument extracts every page concurrently, bounded by
// PageConcurrency, and re-sequences the results in page order. The first page
// failure cancels the remaining pages and fails the document.
func (r *Router) ExtractDocument(ctx context.Context, doc *document.Document) (entity.ExtractedDocument, error) {
	start := time.Now()
	results := make([]entity.ExtractionResult, len(doc.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.PageConcurrency)
	for i, page := range doc.Pages {
		g.Go(func() error {
			res, err := r.ExtractPage(gctx, page)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return entity.ExtractedDocument{}, common.AtStage(constants.StageExtraction, errors.Join(common.ErrCancelled, ctx.Err()))
		}
		return entity.ExtractedDocument{}, err
	}

	out := Merge(doc.Name, doc.Type, results, r.cfg.MinDocumentConfidence)
	out.Notes = append(append([]string{}, doc.Notes...), out.Notes...)

	common.LoggerFrom(ctx, r.logger).Info("extract.document.ok",
		"pages", len(results),
		"confidence", out.Confidence,
		"low_confidence", out.LowConfidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Merge joins page results (already in page order) into a document. The
// document confidence is the character-weighted mean of page confidences,
// or the plain mean when every page is empty.
func Merge(name string, docType constants.DocumentType, pages []entity.ExtractionResult, minConfidence float64) entity.ExtractedDocument {
	out := entity.ExtractedDocument{
		Name:  name,
		Type:  docType,
		Pages: pages,
		Notes: []string{},
	}
	if len(pages) == 0 {
		out.Pages = []entity.ExtractionResult{}
		out.LowConfidence = true
		return out
	}

	texts := make([]string, len(pages))
	var weighted, plain float64
	var chars int
	for i, p := range pages {
		texts[i] = p.Text
		weighted += p.Confidence * float64(p.CharCount)
		plain += p.Confidence
		chars += p.CharCount
		if p.Confidence < minConfidence {
			out.Notes = append(out.Notes, fmt.Sprintf("Page %d: Low confidence extraction (%.2f)", p.PageIndex+1, p.Confidence))
		}
	}
	out.Text = strings.Join(texts, PageSeparator)

	if chars > 0 {
		out.Confidence = weighted / float64(chars)
	} else {
		out.Confidence = plain / float64(len(pages))
	}
	out.Confidence = clamp01(out.Confidence)
	out.LowConfidence = out.Confidence < minConfidence
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
