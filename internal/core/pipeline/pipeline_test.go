package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/analyzer"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/document"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/extract"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/failover"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/imaging"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/jurisdiction"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
)

const delawareText = `SERVICES AGREEMENT
This Agreement is made between Acme Inc. and Beta LLC.
1. Fees. Client shall pay $120,000 within 90 days of invoice.
2. Liability. Supplier's liability under this Agreement is unlimited.
3. This Agreement shall be governed by the laws of the State of Delaware.`

const clausesJSON = `{"metadata": {"contract_type": "Services Agreement", "parties": ["Acme Inc.", "Beta LLC"],
  "effective_date": null, "expiration_date": null, "total_value": "$120,000", "governing_law": "Delaware", "jurisdiction": null},
 "clauses": [
  {"clause_type": "parties", "title": "Parties", "text": "This Agreement is made between Acme Inc. and Beta LLC.", "section_reference": null},
  {"clause_type": "payment_terms", "title": "Fees", "text": "Client shall pay $120,000 within 90 days of invoice.", "section_reference": "1"},
  {"clause_type": "liability", "title": "Liability", "text": "Supplier's liability under this Agreement is unlimited.", "section_reference": "2"}
 ]}`

// textPNG renders a clean page with dark text-line bars.
func textPNG(t *testing.T) []byte {
	t.Helper()
	g := image.NewGray(image.Rect(0, 0, 600, 800))
	for i := range g.Pix {
		g.Pix[i] = 250
	}
	for y0 := 60; y0 < 740; y0 += 24 {
		for x := 40; x < 560; x++ {
			for dy := 0; dy < 6; dy++ {
				g.SetGray(x, y0+dy, color.Gray{Y: 10})
			}
		}
	}
	return encodePNG(t, g)
}

func noisePNG(t *testing.T) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(11))
	g := image.NewGray(image.Rect(0, 0, 320, 320))
	for i := range g.Pix {
		g.Pix[i] = uint8(r.Intn(256))
	}
	return encodePNG(t, g)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeVision struct {
	calls atomic.Int32
	text  string
}

func (f *fakeVision) Transcribe(context.Context, extract.PageInput) (extract.Transcription, error) {
	f.calls.Add(1)
	return extract.Transcription{Text: f.text, Confidence: 0.9, Source: constants.SourceVision, Provider: "vision-test"}, nil
}

type fakeOCR struct{}

func (fakeOCR) Transcribe(context.Context, extract.PageInput) (extract.Transcription, error) {
	return extract.Transcription{}, errors.New("ocr should not run on a clean page")
}

type fakeModel struct {
	calls atomic.Int32
}

func (*fakeModel) Name() string { return "text-test" }

func (f *fakeModel) Complete(_ context.Context, req llm.CompletionRequest) ([]byte, error) {
	f.calls.Add(1)
	switch {
	case strings.Contains(req.System, "split contracts into clauses"):
		return []byte(clausesJSON), nil
	case strings.Contains(req.System, "scoring clause risk"):
		switch {
		case strings.Contains(req.User, "Clause type: liability\n"):
			return []byte(`{"risk_score": 9, "rationale": "Unlimited liability.", "red_flags": ["Unlimited liability"],
				"recommendations": ["Cap liability at 12 months of fees"]}`), nil
		case strings.Contains(req.User, "Clause type: payment_terms\n"):
			return []byte(`{"risk_score": 6, "rationale": "Net 90 is long.", "recommendations": ["Negotiate Net 30"]}`), nil
		default:
			return []byte(`{"risk_score": 1, "rationale": "Standard."}`), nil
		}
	default:
		return []byte(`{"executive_summary": "Liability exposure is uncapped and payment terms are long."}`), nil
	}
}

type harness struct {
	proc    *Processor
	vision  *fakeVision
	model   *fakeModel
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := common.DefaultConfig()
	h := &harness{
		vision:  &fakeVision{text: delawareText},
		model:   &fakeModel{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	router := extract.NewRouter(
		imaging.NewAssessor(cfg.Quality, nil),
		imaging.NewPreprocessor(cfg.Quality, nil),
		h.vision, fakeOCR{}, cfg.Extraction, h.metrics, nil,
	)
	llmCfg := cfg.LLM
	llmCfg.MaxRetries = 0
	an, err := analyzer.New([]llm.TextModel{h.model}, analyzer.DefaultBenchmarks(), cfg.Analyzer, llmCfg, failover.Options{}, nil)
	if err != nil {
		t.Fatalf("analyzer.New: %v", err)
	}
	h.proc = NewProcessor(
		document.NewLoader(nil, cfg.OCR.MaxPages, nil),
		router,
		jurisdiction.NewDetector(cfg.Jurisdiction, nil),
		an, h.metrics, nil,
	)
	return h
}

func TestRunDelawareContract(t *testing.T) {
	h := newHarness(t)
	data := textPNG(t)

	report, err := h.proc.Run(context.Background(), entity.DocumentInput{Name: "msa.png", Data: data})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Jurisdiction.Jurisdiction != constants.JurisdictionUSADelaware {
		t.Errorf("jurisdiction = %s, want USA/Delaware", report.Jurisdiction.Jurisdiction)
	}
	if report.Jurisdiction.SubJurisdiction == nil || *report.Jurisdiction.SubJurisdiction != "Delaware" {
		t.Errorf("sub_jurisdiction = %v", report.Jurisdiction.SubJurisdiction)
	}

	categories := map[constants.ClauseCategory]bool{}
	for _, f := range report.Findings {
		categories[f.Category] = true
		if f.RiskScore < 1 || f.RiskScore > 10 {
			t.Errorf("%s score %d out of range", f.ClauseType, f.RiskScore)
		}
	}
	if !categories[constants.CategoryCoreTerms] || !categories[constants.CategoryFinancial] {
		t.Errorf("categories = %v, want Core Terms and Financial", categories)
	}
	if report.Findings[0].ClauseType != constants.ClauseLiability {
		t.Errorf("highest risk finding = %s, want liability", report.Findings[0].ClauseType)
	}

	if report.DocumentType != constants.DocumentImage || report.PageCount != 1 {
		t.Errorf("document = %s with %d pages", report.DocumentType, report.PageCount)
	}
	if report.Extraction.Confidence < 0 || report.Extraction.Confidence > 1 {
		t.Errorf("extraction confidence %v out of range", report.Extraction.Confidence)
	}
	if report.Extraction.Pages[0].Source != constants.SourceVision {
		t.Errorf("page source = %s, want vision", report.Extraction.Pages[0].Source)
	}
	if report.ContentHash != ContentHash(data) || len(report.ContentHash) != 64 {
		t.Errorf("content hash = %q", report.ContentHash)
	}
	if report.ExecutiveSummary == "" || len(report.KeyConcerns) == 0 || len(report.NegotiationPoints) == 0 {
		t.Errorf("summary=%q concerns=%v points=%v", report.ExecutiveSummary, report.KeyConcerns, report.NegotiationPoints)
	}
	if report.CreatedAt.IsZero() || report.CreatedAt.Location().String() != "UTC" {
		t.Errorf("created_at = %v", report.CreatedAt)
	}

	if got := testutil.ToFloat64(h.metrics.PipelineRuns.WithLabelValues("OK", "")); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
}

func TestRunReportSerializesWithoutNullLists(t *testing.T) {
	h := newHarness(t)
	report, err := h.proc.Run(context.Background(), entity.DocumentInput{Name: "msa.png", Data: textPNG(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"matched_signals":null`, `"alternatives":null`, `"findings":null`, `"notes":null`} {
		if bytes.Contains(b, []byte(key)) {
			t.Errorf("report JSON contains %s", key)
		}
	}
}

func TestRunUnreadableImageFails(t *testing.T) {
	h := newHarness(t)

	report, err := h.proc.Run(context.Background(), entity.DocumentInput{Name: "noise.png", Data: noisePNG(t)})
	if err == nil {
		t.Fatal("expected a FormatError")
	}
	if !common.IsFormatError(err) {
		t.Errorf("err = %v, want FormatError", err)
	}
	if stage := common.StageOf(err); stage != constants.StagePreprocessing {
		t.Errorf("stage = %q, want preprocessing", stage)
	}
	if report.ID.String() != "00000000-0000-0000-0000-000000000000" {
		t.Errorf("failed run returned a report %v", report.ID)
	}
	if n := h.vision.calls.Load(); n != 0 {
		t.Errorf("vision called %d times for an unreadable page", n)
	}
	if n := h.model.calls.Load(); n != 0 {
		t.Errorf("text model called %d times after extraction failed", n)
	}
	if got := testutil.ToFloat64(h.metrics.PipelineRuns.WithLabelValues("FAILED", "preprocessing")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
}

func TestRunRejectsMismatchedFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.proc.Run(context.Background(), entity.DocumentInput{
		Name:   "contract.pdf",
		Data:   textPNG(t),
		Format: constants.FormatPDF,
	})
	if !common.IsFormatError(err) {
		t.Fatalf("err = %v, want FormatError", err)
	}
	if stage := common.StageOf(err); stage != constants.StagePreprocessing {
		t.Errorf("stage = %q, want preprocessing", stage)
	}
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.proc.Run(ctx, entity.DocumentInput{Name: "msa.png", Data: textPNG(t)})
	if !errors.Is(err, common.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if n := h.model.calls.Load(); n != 0 {
		t.Errorf("text model called %d times after cancellation", n)
	}
	if got := testutil.ToFloat64(h.metrics.PipelineRuns.WithLabelValues("CANCELLED", "extraction")); got != 1 {
		t.Errorf("cancelled runs = %v, want 1", got)
	}
}

func TestExtractOnly(t *testing.T) {
	h := newHarness(t)
	got, err := h.proc.Extract(context.Background(), entity.DocumentInput{Name: "msa.png", Data: textPNG(t)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got.Text, "State of Delaware") {
		t.Errorf("text = %q", got.Text)
	}
	if n := h.model.calls.Load(); n != 0 {
		t.Errorf("extract-only run called the text model %d times", n)
	}
}
