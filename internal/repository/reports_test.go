package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	return db
}

func testReport(name, hash string, created time.Time, score float64) entity.AnalysisReport {
	sub := "Delaware"
	r := entity.AnalysisReport{
		ID:           uuid.New(),
		DocumentName: name,
		DocumentType: constants.DocumentNativePDF,
		PageCount:    2,
		ContentHash:  hash,
		CreatedAt:    created,
		Jurisdiction: entity.JurisdictionLabel{
			Jurisdiction:    constants.JurisdictionUSADelaware,
			Region:          "USA",
			SubJurisdiction: &sub,
		},
		Findings: []entity.ClauseFinding{{
			ClauseType: constants.ClauseLiability,
			Category:   constants.CategoryRiskAllocation,
			RiskScore:  8,
			RiskLevel:  constants.RiskCritical,
		}},
		OverallRiskScore: score,
		OverallRiskLevel: constants.RiskLevelForScore(score),
		Extraction:       entity.ExtractionSummary{LowConfidence: true},
	}
	r.Normalize()
	return r
}

func TestSaveAndGet(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	want := testReport("msa.pdf", "abc", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 7.5)

	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != want.ID || got.DocumentName != want.DocumentName || got.OverallRiskScore != 7.5 {
		t.Errorf("got %+v", got)
	}
	if got.Jurisdiction.String() != "USA/Delaware" {
		t.Errorf("jurisdiction = %s", got.Jurisdiction.String())
	}
	if len(got.Findings) != 1 || got.Findings[0].ClauseType != constants.ClauseLiability {
		t.Errorf("findings = %+v", got.Findings)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, err = repo.FindByHash(context.Background(), "nope")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("FindByHash err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	names := []string{"a.pdf", "b.pdf", "c.pdf"}
	for i, n := range names {
		if err := repo.Save(ctx, testReport(n, n, base.Add(time.Duration(i)*time.Hour), float64(i+1))); err != nil {
			t.Fatalf("Save %s: %v", n, err)
		}
	}

	got, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].DocumentName != "c.pdf" || got[1].DocumentName != "b.pdf" {
		t.Errorf("order = %s, %s", got[0].DocumentName, got[1].DocumentName)
	}
	if got[0].Jurisdiction != "USA/Delaware" || !got[0].LowConfidence || got[0].OverallRiskScore != 3 {
		t.Errorf("summary = %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("created_at = %v", got[0].CreatedAt)
	}
}

func TestFindByHashReturnsNewest(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := testReport("v1.pdf", "same", base, 4)
	newer := testReport("v2.pdf", "same", base.Add(time.Minute), 5)
	for _, r := range []entity.AnalysisReport{older, newer, testReport("x.pdf", "other", base, 1)} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.FindByHash(ctx, "same")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("got %s, want newest %s", got.DocumentName, newer.DocumentName)
	}
}

func TestDuplicateIDIsDatabaseError(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	r := testReport("a.pdf", "h", time.Now().UTC(), 2)
	if err := repo.Save(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	err := repo.Save(context.Background(), r)
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("err = %v, want ErrDatabase", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &reportRepository{db: &DB{Dialect: DialectPostgres}}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &reportRepository{db: &DB{Dialect: DialectSQLite}}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql", DSN: "x"}, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
