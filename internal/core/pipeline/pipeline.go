package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/analyzer"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/document"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
)

// Loader decodes an input document into page images.
type Loader interface {
	Load(ctx context.Context, in entity.DocumentInput) (*document.Document, error)
}

// Extractor turns page images into re-sequenced text.
type Extractor interface {
	ExtractDocument(ctx context.Context, doc *document.Document) (entity.ExtractedDocument, error)
}

// Detector labels the governing jurisdiction of a text.
type Detector interface {
	Detect(text string) entity.JurisdictionLabel
}

// Analyzer scores the clauses of a contract text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, label entity.JurisdictionLabel) (analyzer.Analysis, error)
}

// Processor runs one document through preprocessing, extraction,
// jurisdiction detection and analysis. A failed run yields no report.
type Processor struct {
	logger   *slog.Logger
	loader   Loader
	extract  Extractor
	detector Detector
	analyzer Analyzer
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewProcessor(loader Loader, extract Extractor, detector Detector, an Analyzer, m *metrics.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:   logger,
		loader:   loader,
		extract:  extract,
		detector: detector,
		analyzer: an,
		metrics:  m,
		now:      time.Now,
	}
}

// Extract runs the first two stages only and returns the merged text.
func (p *Processor) Extract(ctx context.Context, in entity.DocumentInput) (entity.ExtractedDocument, error) {
	ctx = common.WithDocumentName(ctx, in.Name)
	log := common.LoggerFrom(ctx, p.logger)

	doc, err := p.loader.Load(ctx, in)
	if err != nil {
		err = common.AtStage(constants.StagePreprocessing, err)
		log.Error("pipeline.load.failed", "err", err)
		return entity.ExtractedDocument{}, err
	}
	if err := checkpoint(ctx, constants.StageExtraction); err != nil {
		return entity.ExtractedDocument{}, err
	}

	start := time.Now()
	extracted, err := p.extract.ExtractDocument(ctx, doc)
	if err != nil {
		err = common.AtStage(constants.StageExtraction, err)
		log.Error("pipeline.extract.failed", "stage", common.StageOf(err), "err", err)
		return entity.ExtractedDocument{}, err
	}
	log.Info("pipeline.extract.ok",
		"pages", extracted.PageCount(),
		"confidence", extracted.Confidence,
		"low_confidence", extracted.LowConfidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return extracted, nil
}

// Run processes in end to end and assembles the report.
func (p *Processor) Run(ctx context.Context, in entity.DocumentInput) (report entity.AnalysisReport, err error) {
	start := time.Now()
	defer func() {
		p.metrics.PipelineRun(string(runStatus(err)), string(common.StageOf(err)), time.Since(start))
	}()

	if p.analyzer == nil {
		return entity.AnalysisReport{}, common.AtStage(constants.StageAnalysis,
			common.NewAppError(common.CodeConfig, "no text model configured", common.ErrInvalidInput))
	}
	ctx = common.WithDocumentName(ctx, in.Name)
	log := common.LoggerFrom(ctx, p.logger)

	extracted, err := p.Extract(ctx, in)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	if err := checkpoint(ctx, constants.StageJurisdiction); err != nil {
		return entity.AnalysisReport{}, err
	}

	label := p.detector.Detect(extracted.Text)
	log.Info("pipeline.jurisdiction.ok",
		"jurisdiction", label.String(),
		"confidence", label.DetectionConfidence,
	)
	if err := checkpoint(ctx, constants.StageAnalysis); err != nil {
		return entity.AnalysisReport{}, err
	}

	analysis, err := p.analyzer.Analyze(ctx, extracted.Text, label)
	if err != nil {
		err = common.AtStage(constants.StageAnalysis, err)
		log.Error("pipeline.analyze.failed", "err", err)
		return entity.AnalysisReport{}, err
	}
	if err := checkpoint(ctx, constants.StageAnalysis); err != nil {
		return entity.AnalysisReport{}, err
	}

	report = assemble(in, extracted, label, analysis, p.now())
	log.Info("pipeline.run.ok",
		"report_id", report.ID,
		"findings", len(report.Findings),
		"overall_risk", report.OverallRiskScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func assemble(in entity.DocumentInput, ex entity.ExtractedDocument, label entity.JurisdictionLabel, an analyzer.Analysis, now time.Time) entity.AnalysisReport {
	report := entity.AnalysisReport{
		ID:                uuid.New(),
		DocumentName:      in.Name,
		DocumentType:      ex.Type,
		PageCount:         ex.PageCount(),
		ContentHash:       ContentHash(in.Data),
		CreatedAt:         now.UTC(),
		Jurisdiction:      label,
		Metadata:          an.Metadata,
		Findings:          an.Findings,
		OverallRiskScore:  an.OverallRiskScore,
		OverallRiskLevel:  an.OverallRiskLevel,
		ExecutiveSummary:  an.ExecutiveSummary,
		KeyConcerns:       an.KeyConcerns,
		NegotiationPoints: an.NegotiationPoints,
		Extraction: entity.ExtractionSummary{
			DocumentType:  ex.Type,
			Confidence:    ex.Confidence,
			LowConfidence: ex.LowConfidence,
			Pages:         ex.Pages,
			Notes:         ex.Notes,
		},
	}
	report.Normalize()
	return report
}

// ContentHash is the hex sha256 of a document's bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// checkpoint returns a cancellation error labelled with the stage about to run.
func checkpoint(ctx context.Context, next constants.Stage) error {
	if err := ctx.Err(); err != nil {
		return common.AtStage(next, errors.Join(common.ErrCancelled, err))
	}
	return nil
}

func runStatus(err error) constants.RunStatus {
	switch {
	case err == nil:
		return constants.RunStatusOK
	case errors.Is(err, common.ErrCancelled), errors.Is(err, context.Canceled):
		return constants.RunStatusCancelled
	default:
		return constants.RunStatusFailed
	}
}
