package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

// ReportRepository persists finished analysis reports.
type ReportRepository interface {
	Save(ctx context.Context, report entity.AnalysisReport) error
	Get(ctx context.Context, id uuid.UUID) (entity.AnalysisReport, error)
	List(ctx context.Context, limit int) ([]entity.ReportSummary, error)
	// FindByHash returns the newest report for a content hash.
	FindByHash(ctx context.Context, hash string) (entity.AnalysisReport, error)
}

type reportRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewReportRepository(db *DB, logger *slog.Logger) ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportRepository{db: db, logger: logger}
}

// rebind turns ? placeholders into $n for postgres.
func (r *reportRepository) rebind(query string) string {
	if r.db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *reportRepository) Save(ctx context.Context, report entity.AnalysisReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = r.db.SQL.ExecContext(ctx, r.rebind(`
		INSERT INTO reports (id, document_name, jurisdiction, overall_risk_score, low_confidence, content_hash, created_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		report.ID.String(),
		report.DocumentName,
		report.Jurisdiction.String(),
		report.OverallRiskScore,
		report.Extraction.LowConfidence,
		report.ContentHash,
		report.CreatedAt.UnixMilli(),
		string(body),
	)
	if err != nil {
		r.logger.Error("failed to save report", "report_id", report.ID, "error", err)
		return fmt.Errorf("save report: %w", errJoinDB(err))
	}
	r.logger.Debug("report saved", "report_id", report.ID, "document", report.DocumentName)
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (entity.AnalysisReport, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.rebind(`SELECT report FROM reports WHERE id = ?`), id.String())
	return r.scanReport(row, "report_id", id)
}

func (r *reportRepository) FindByHash(ctx context.Context, hash string) (entity.AnalysisReport, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.rebind(`
		SELECT report FROM reports WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`), hash)
	return r.scanReport(row, "content_hash", hash)
}

func (r *reportRepository) scanReport(row *sql.Row, key string, val any) (entity.AnalysisReport, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.AnalysisReport{}, common.ErrNotFound
		}
		r.logger.Error("failed to load report", key, val, "error", err)
		return entity.AnalysisReport{}, fmt.Errorf("load report: %w", errJoinDB(err))
	}
	var report entity.AnalysisReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return entity.AnalysisReport{}, fmt.Errorf("decode report: %w", errJoinDB(err))
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.rebind(`
		SELECT id, document_name, jurisdiction, overall_risk_score, low_confidence, created_at
		FROM reports ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		r.logger.Error("failed to list reports", "error", err)
		return nil, fmt.Errorf("list reports: %w", errJoinDB(err))
	}
	defer rows.Close()

	out := make([]entity.ReportSummary, 0, limit)
	for rows.Next() {
		var (
			s       entity.ReportSummary
			id      string
			created int64
		)
		if err := rows.Scan(&id, &s.DocumentName, &s.Jurisdiction, &s.OverallRiskScore, &s.LowConfidence, &created); err != nil {
			return nil, fmt.Errorf("scan report: %w", errJoinDB(err))
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan report id: %w", errJoinDB(err))
		}
		s.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", errJoinDB(err))
	}
	return out, nil
}

func errJoinDB(err error) error {
	return errors.Join(common.ErrDatabase, err)
}
