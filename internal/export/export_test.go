package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

func sampleReport() entity.AnalysisReport {
	section := "4.1"
	contractType := "Services Agreement"
	r := entity.AnalysisReport{
		ID:           uuid.MustParse("6f1c1f7e-7d43-4c55-9a43-0f3d1c1e0b2a"),
		DocumentName: "msa.pdf",
		DocumentType: constants.DocumentNativePDF,
		PageCount:    3,
		CreatedAt:    time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
		Jurisdiction: entity.UnknownJurisdiction(),
		Metadata:     entity.ContractMetadata{ContractType: &contractType, Parties: []string{"Acme", "Beta"}},
		Findings: []entity.ClauseFinding{
			{
				ClauseType:       constants.ClauseLiability,
				Category:         constants.CategoryRiskAllocation,
				Title:            "Liability",
				SectionReference: &section,
				RiskScore:        9,
				RiskLevel:        constants.RiskCritical,
				RedFlags:         []string{"Unlimited liability", "No carve-outs"},
				ExtractedText:    strings.Repeat("x", 800),
			},
			{ClauseType: constants.ClausePaymentTerms, Category: constants.CategoryFinancial, RiskScore: 3, RiskLevel: constants.RiskLow},
		},
		OverallRiskScore:  7.1,
		OverallRiskLevel:  constants.RiskHigh,
		NegotiationPoints: []entity.NegotiationPoint{{Priority: 1, ClauseType: constants.ClauseLiability, RiskScore: 9, Issue: "Uncapped"}},
	}
	r.Normalize()
	return r
}

func TestReportXLSX(t *testing.T) {
	b, err := NewWriter(nil).ReportXLSX(sampleReport())
	if err != nil {
		t.Fatalf("ReportXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SheetSummary, SheetFindings, SheetNegotiation}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v", sheets)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d = %s, want %s", i, sheets[i], want[i])
		}
	}

	rows, err := f.GetRows(SheetFindings)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("findings rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "Clause Type" || rows[1][0] != "liability" || rows[2][0] != "payment_terms" {
		t.Errorf("first column = %q, %q, %q", rows[0][0], rows[1][0], rows[2][0])
	}
	if rows[1][3] != "4.1" || rows[1][4] != "9" {
		t.Errorf("section/score = %q/%q", rows[1][3], rows[1][4])
	}
	if got := len([]rune(rows[1][10])); got != 500 {
		t.Errorf("extracted text length = %d, want 500", got)
	}

	jur, err := f.GetCellValue(SheetSummary, "B8")
	if err != nil {
		t.Fatal(err)
	}
	if jur != "Unknown" {
		t.Errorf("jurisdiction cell = %q", jur)
	}

	neg, _ := f.GetRows(SheetNegotiation)
	if len(neg) != 2 || neg[1][3] != "Uncapped" {
		t.Errorf("negotiation rows = %v", neg)
	}
}

func TestObjectKey(t *testing.T) {
	got := ObjectKey(sampleReport())
	want := "reports/2025/03/09/6f1c1f7e-7d43-4c55-9a43-0f3d1c1e0b2a.json"
	if got != want {
		t.Errorf("ObjectKey = %q, want %q", got, want)
	}
}

func TestArchiveDisabledWithoutEndpoint(t *testing.T) {
	a, err := NewArchive(context.Background(), common.StorageConfig{Bucket: "x"}, nil)
	if err != nil || a != nil {
		t.Fatalf("NewArchive = %v, %v; want nil, nil", a, err)
	}
	key, err := a.Put(context.Background(), sampleReport())
	if err != nil || key != "" {
		t.Errorf("nil archive Put = %q, %v", key, err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 4, "abc…"},
		{"héllo wörld", 5, "héll…"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
