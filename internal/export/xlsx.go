// Package export renders stored reports for download and archiving.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

const (
	SheetSummary     = "Summary"
	SheetFindings    = "Findings"
	SheetNegotiation = "Negotiation"
)

// XLSXContentType is the MIME type of the workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var findingHeaders = []string{
	"Clause Type",
	"Category",
	"Title",
	"Section",
	"Risk Score",
	"Risk Level",
	"Rationale",
	"Benchmark Delta",
	"Red Flags",
	"Recommendations",
	"Extracted Text",
}

var negotiationHeaders = []string{
	"Priority",
	"Clause Type",
	"Risk Score",
	"Issue",
	"Recommendation",
	"Suggested Language",
}

// Writer builds XLSX workbooks from reports.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// ReportXLSX returns a workbook with a summary sheet, one row per finding
// (highest risk first, as stored) and the negotiation points.
func (w *Writer) ReportXLSX(r entity.AnalysisReport) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetFindings, SheetNegotiation} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	if err := writeSummary(f, r); err != nil {
		return nil, err
	}
	if err := writeFindings(f, r.Findings); err != nil {
		return nil, err
	}
	if err := writeNegotiation(f, r.NegotiationPoints); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("export.xlsx.ok",
		"report_id", r.ID.String(),
		"rows", len(r.Findings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, r entity.AnalysisReport) error {
	contractType := ""
	if r.Metadata.ContractType != nil {
		contractType = *r.Metadata.ContractType
	}
	rows := [][2]any{
		{"Report ID", r.ID.String()},
		{"Document", r.DocumentName},
		{"Document Type", string(r.DocumentType)},
		{"Pages", r.PageCount},
		{"Created", r.CreatedAt.UTC().Format(time.RFC3339)},
		{"Contract Type", contractType},
		{"Parties", strings.Join(r.Metadata.Parties, "; ")},
		{"Jurisdiction", r.Jurisdiction.String()},
		{"Jurisdiction Confidence", r.Jurisdiction.DetectionConfidence},
		{"Overall Risk Score", r.OverallRiskScore},
		{"Overall Risk Level", string(r.OverallRiskLevel)},
		{"Extraction Confidence", r.Extraction.Confidence},
		{"Low Confidence", r.Extraction.LowConfidence},
		{"Executive Summary", r.ExecutiveSummary},
		{"Key Concerns", strings.Join(r.KeyConcerns, "\n")},
	}
	for i, kv := range rows {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &[]any{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 24)
	_ = f.SetColWidth(SheetSummary, "B", "B", 90)
	return nil
}

func writeFindings(f *excelize.File, findings []entity.ClauseFinding) error {
	if err := setHeader(f, SheetFindings, findingHeaders); err != nil {
		return err
	}
	for i, c := range findings {
		section := ""
		if c.SectionReference != nil {
			section = *c.SectionReference
		}
		row := []any{
			string(c.ClauseType),
			string(c.Category),
			c.Title,
			section,
			c.RiskScore,
			string(c.RiskLevel),
			c.Rationale,
			c.BenchmarkDelta,
			strings.Join(c.RedFlags, "\n"),
			strings.Join(c.Recommendations, "\n"),
			truncate(c.ExtractedText, 500),
		}
		if err := f.SetSheetRow(SheetFindings, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetFindings, "A", "B", 20)
	_ = f.SetColWidth(SheetFindings, "C", "C", 28)
	_ = f.SetColWidth(SheetFindings, "D", "F", 12)
	_ = f.SetColWidth(SheetFindings, "G", "J", 48)
	_ = f.SetColWidth(SheetFindings, "K", "K", 80)
	return nil
}

func writeNegotiation(f *excelize.File, points []entity.NegotiationPoint) error {
	if err := setHeader(f, SheetNegotiation, negotiationHeaders); err != nil {
		return err
	}
	for i, p := range points {
		row := []any{p.Priority, string(p.ClauseType), p.RiskScore, p.Issue, p.Recommendation, p.SuggestedLanguage}
		if err := f.SetSheetRow(SheetNegotiation, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetNegotiation, "A", "C", 12)
	_ = f.SetColWidth(SheetNegotiation, "D", "F", 60)
	return nil
}

func setHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
