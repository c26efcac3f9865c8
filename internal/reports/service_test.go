package reports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/pipeline"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/export"
	"github.com/joseph-ayodele/contracts-analyzer/internal/repository"
)

type fakeRunner struct {
	calls atomic.Int32
	last  entity.DocumentInput
	err   error
}

func (f *fakeRunner) Run(_ context.Context, in entity.DocumentInput) (entity.AnalysisReport, error) {
	f.calls.Add(1)
	f.last = in
	if f.err != nil {
		return entity.AnalysisReport{}, f.err
	}
	r := entity.AnalysisReport{
		ID:               uuid.New(),
		DocumentName:     in.Name,
		DocumentType:     constants.DocumentNativePDF,
		ContentHash:      pipeline.ContentHash(in.Data),
		CreatedAt:        time.Now().UTC(),
		Jurisdiction:     entity.UnknownJurisdiction(),
		OverallRiskScore: 5,
		OverallRiskLevel: constants.RiskMedium,
	}
	r.Normalize()
	return r, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Put(_ context.Context, r entity.AnalysisReport) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := export.ObjectKey(r)
	f.keys = append(f.keys, key)
	return key, nil
}

func newTestService(t *testing.T, runner Runner, archive Archiver) *Service {
	t.Helper()
	db, err := repository.Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	return NewService(runner, repository.NewReportRepository(db, nil), archive, export.NewWriter(nil), 1<<20, nil)
}

func TestAnalyzeStoresAndArchives(t *testing.T) {
	runner := &fakeRunner{}
	archive := &fakeArchive{}
	svc := newTestService(t, runner, archive)
	ctx := context.Background()

	report, err := svc.Analyze(ctx, entity.DocumentInput{Name: "msa.pdf", Data: []byte("%PDF-1.4 test")})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	got, err := svc.Get(ctx, report.ID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != report.ID {
		t.Errorf("stored id = %s, want %s", got.ID, report.ID)
	}
	if len(archive.keys) != 1 || !strings.HasSuffix(archive.keys[0], report.ID.String()+".json") {
		t.Errorf("archive keys = %v", archive.keys)
	}

	list, err := svc.List(ctx, 0)
	if err != nil || len(list) != 1 || list[0].ID != report.ID {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestAnalyzeArchiveFailureIsNotFatal(t *testing.T) {
	svc := newTestService(t, &fakeRunner{}, &fakeArchive{err: errors.New("bucket down")})
	if _, err := svc.Analyze(context.Background(), entity.DocumentInput{Name: "a.pdf", Data: []byte("x")}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
}

func TestAnalyzeRejectsEmptyAndOversized(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(t, runner, nil)

	if _, err := svc.Analyze(context.Background(), entity.DocumentInput{Name: "a.pdf"}); !common.IsFormatError(err) {
		t.Errorf("empty document err = %v, want FormatError", err)
	}
	big := make([]byte, 2<<20)
	if _, err := svc.Analyze(context.Background(), entity.DocumentInput{Name: "a.pdf", Data: big}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("oversized document err = %v, want ErrInvalidInput", err)
	}
	if n := runner.calls.Load(); n != 0 {
		t.Errorf("runner called %d times", n)
	}
}

func TestAnalyzePipelineFailureStoresNothing(t *testing.T) {
	svc := newTestService(t, &fakeRunner{err: common.AtStage(constants.StageAnalysis, common.ErrProviderExhausted)}, nil)
	_, err := svc.Analyze(context.Background(), entity.DocumentInput{Name: "a.pdf", Data: []byte("x")})
	if !common.IsProviderExhausted(err) {
		t.Fatalf("err = %v, want ProviderExhausted", err)
	}
	list, _ := svc.List(context.Background(), 10)
	if len(list) != 0 {
		t.Errorf("failed run stored %d reports", len(list))
	}
}

func TestGetValidatesID(t *testing.T) {
	svc := newTestService(t, &fakeRunner{}, nil)
	for _, id := range []string{"not-a-uuid", "", "   "} {
		_, err := svc.Get(context.Background(), id)
		var appErr *common.AppError
		if !errors.Is(err, common.ErrValidation) || !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Get(%q) err = %v, want VALIDATION_ERROR", id, err)
		}
	}
	id := uuid.New()
	if _, err := svc.Get(context.Background(), " "+id.String()+" "); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("padded id err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), uuid.NewString()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProcessFileDeduplicatesByHash(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(t, runner, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "Master Services.PDF")
	if err := os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := svc.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if first.Deduplicated || first.ReportID == "" || len(first.HashHex) != 64 {
		t.Errorf("first result = %+v", first)
	}
	if runner.last.Format != constants.FormatPDF || runner.last.Name != "Master Services.PDF" {
		t.Errorf("input = %s / %s", runner.last.Name, runner.last.Format)
	}

	copyPath := filepath.Join(dir, "copy.pdf")
	if err := os.WriteFile(copyPath, []byte("%PDF-1.4 body"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := svc.ProcessFile(context.Background(), copyPath)
	if err != nil {
		t.Fatalf("ProcessFile copy: %v", err)
	}
	if !second.Deduplicated || second.ReportID != first.ReportID {
		t.Errorf("second result = %+v, want dedup of %s", second, first.ReportID)
	}
	if n := runner.calls.Load(); n != 1 {
		t.Errorf("runner called %d times, want 1", n)
	}
}

func TestProcessFileRejectsUnsupportedExtension(t *testing.T) {
	svc := newTestService(t, &fakeRunner{}, nil)
	path := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ProcessFile(context.Background(), path); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExportXLSX(t *testing.T) {
	svc := newTestService(t, &fakeRunner{}, nil)
	report, err := svc.Analyze(context.Background(), entity.DocumentInput{Name: "Big Deal (v2).pdf", Data: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	b, name, err := svc.ExportXLSX(context.Background(), report.ID.String())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if len(b) < 4 || string(b[:2]) != "PK" {
		t.Errorf("workbook is not a zip archive")
	}
	if want := "Big_Deal__v2_-" + report.ID.String()[:8] + ".xlsx"; name != want {
		t.Errorf("name = %q, want %q", name, want)
	}
}
