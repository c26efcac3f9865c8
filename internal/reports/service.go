// Package reports runs documents through the pipeline and keeps the results.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/pipeline"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/ingest"
	"github.com/joseph-ayodele/contracts-analyzer/internal/repository"
)

// Runner produces a report for one document.
type Runner interface {
	Run(ctx context.Context, in entity.DocumentInput) (entity.AnalysisReport, error)
}

// Archiver copies finished reports to long-term storage.
type Archiver interface {
	Put(ctx context.Context, r entity.AnalysisReport) (string, error)
}

// Exporter renders a report as a workbook.
type Exporter interface {
	ReportXLSX(r entity.AnalysisReport) ([]byte, error)
}

// Service handles report business logic.
type Service struct {
	runner   Runner
	repo     repository.ReportRepository
	archive  Archiver
	exporter Exporter
	maxBytes int64
	logger   *slog.Logger
}

// NewService wires the service. archive may be nil.
func NewService(runner Runner, repo repository.ReportRepository, archive Archiver, exporter Exporter, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:   runner,
		repo:     repo,
		archive:  archive,
		exporter: exporter,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Analyze runs the pipeline, stores the report and archives it. Archive
// failures are logged and do not fail the request.
func (s *Service) Analyze(ctx context.Context, in entity.DocumentInput) (entity.AnalysisReport, error) {
	if len(in.Data) == 0 {
		return entity.AnalysisReport{}, common.NewFormatError("document is empty", nil)
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return entity.AnalysisReport{}, common.NewAppError("TOO_LARGE",
			fmt.Sprintf("document is %d bytes, limit is %d", len(in.Data), s.maxBytes), common.ErrInvalidInput)
	}

	log := common.LoggerFrom(ctx, s.logger)
	report, err := s.runner.Run(ctx, in)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	if err := s.repo.Save(ctx, report); err != nil {
		log.Error("failed to save report", "report_id", report.ID, "error", err)
		return entity.AnalysisReport{}, err
	}
	if s.archive != nil {
		if key, err := s.archive.Put(ctx, report); err != nil {
			log.Warn("report archive failed", "report_id", report.ID, "error", err)
		} else if key != "" {
			log.Debug("report archived", "report_id", report.ID, "key", key)
		}
	}
	log.Info("report stored", "report_id", report.ID, "document", report.DocumentName)
	return report, nil
}

// Get loads a report by its id string.
func (s *Service) Get(ctx context.Context, id string) (entity.AnalysisReport, error) {
	rid, err := parseID(id)
	if err != nil {
		return entity.AnalysisReport{}, err
	}
	return s.repo.Get(ctx, rid)
}

// List returns the newest report summaries.
func (s *Service) List(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}

// ExportXLSX renders a stored report and suggests a download file name.
func (s *Service) ExportXLSX(ctx context.Context, id string) ([]byte, string, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	b, err := s.exporter.ReportXLSX(report)
	if err != nil {
		common.LoggerFrom(ctx, s.logger).Error("export.xlsx.failed", "report_id", id, "error", err)
		return nil, "", fmt.Errorf("export report: %w", err)
	}
	return b, exportName(report), nil
}

// ProcessFile analyzes a file from the inbox. A file whose content hash
// already has a report is skipped.
func (s *Service) ProcessFile(ctx context.Context, path string) (ingest.Result, error) {
	out := ingest.Result{SourcePath: path}
	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := filepath.Ext(abs)
	if !ingest.AllowedExt(ext) {
		return out, common.NewAppError("UNSUPPORTED", fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", abs, err)
	}
	out.HashHex = pipeline.ContentHash(data)

	existing, err := s.repo.FindByHash(ctx, out.HashHex)
	switch {
	case err == nil:
		out.ReportID = existing.ID.String()
		out.Deduplicated = true
		return out, nil
	case !errors.Is(err, common.ErrNotFound):
		return out, err
	}

	ctx = common.WithDocumentName(ctx, filepath.Base(abs))
	report, err := s.Analyze(ctx, entity.DocumentInput{
		Name:   filepath.Base(abs),
		Data:   data,
		Format: constants.MapExtToFormat(ext),
	})
	if err != nil {
		out.Err = err.Error()
		return out, err
	}
	out.ReportID = report.ID.String()
	return out, nil
}

func parseID(id string) (uuid.UUID, error) {
	return common.ParseUUID("id", id)
}

func exportName(r entity.AnalysisReport) string {
	base := strings.TrimSuffix(r.DocumentName, filepath.Ext(r.DocumentName))
	base = strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		default:
			return '_'
		}
	}, base)
	if base == "" {
		base = "report"
	}
	return base + "-" + r.ID.String()[:8] + ".xlsx"
}
