// Package analyzer turns contract text into scored clause findings using a
// failover chain of text models.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/failover"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
)

const (
	defaultMarketStandard = "No specific benchmark available."
	defaultBestPractice   = "Follow industry standards."
)

// Analysis is everything the analyzer contributes to a report.
type Analysis struct {
	Metadata          entity.ContractMetadata
	Findings          []entity.ClauseFinding
	OverallRiskScore  float64
	OverallRiskLevel  constants.RiskLevel
	ExecutiveSummary  string
	KeyConcerns       []string
	NegotiationPoints []entity.NegotiationPoint
}

type clauseReply struct {
	Metadata entity.ContractMetadata `json:"metadata"`
	Clauses  []struct {
		ClauseType       string  `json:"clause_type"`
		Title            *string `json:"title"`
		Text             string  `json:"text"`
		SectionReference *string `json:"section_reference"`
	} `json:"clauses"`
}

type riskReply struct {
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	Rationale       string   `json:"rationale"`
	BenchmarkDelta  string   `json:"benchmark_delta"`
	Findings        []string `json:"findings"`
	RedFlags        []string `json:"red_flags"`
	Recommendations []string `json:"recommendations"`
}

type summaryReply struct {
	ExecutiveSummary string `json:"executive_summary"`
}

var (
	clauseSchema  = llm.MustCompileSchema(llm.ClauseExtractionSchema())
	riskSchema    = llm.MustCompileSchema(llm.RiskAssessmentSchema())
	summarySchema = llm.MustCompileSchema(llm.SummarySchema())
)

// Analyzer runs clause extraction, risk scoring and summarization. It is
// immutable after construction and safe for concurrent use.
type Analyzer struct {
	clauses    *failover.Chain[llm.CompletionRequest, clauseReply]
	risks      *failover.Chain[llm.CompletionRequest, riskReply]
	summaries  *failover.Chain[llm.CompletionRequest, string]
	benchmarks BenchmarkSource
	cfg        common.AnalyzerConfig
	llmCfg     common.LLMConfig
	logger     *slog.Logger
}

// New builds an analyzer over models, tried in order. Timeout, retries and
// backoff default to llmCfg when opts leaves them unset.
func New(
	models []llm.TextModel,
	benchmarks BenchmarkSource,
	cfg common.AnalyzerConfig,
	llmCfg common.LLMConfig,
	opts failover.Options,
	logger *slog.Logger,
) (*Analyzer, error) {
	if len(models) == 0 {
		return nil, common.NewAppError(common.CodeConfig, "analyzer needs at least one text model", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if benchmarks == nil {
		benchmarks = DefaultBenchmarks()
	}
	if cfg.ScoringConcurrency <= 0 {
		cfg.ScoringConcurrency = 1
	}
	if opts.Capability == "" {
		opts.Capability = "text"
	}
	if opts.Timeout == 0 {
		opts.Timeout = llmCfg.Timeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = llmCfg.MaxRetries
	}
	if opts.Backoff == 0 {
		opts.Backoff = llmCfg.RetryBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &Analyzer{
		clauses:    failover.New(providers(models, parseClauses(logger)), opts),
		risks:      failover.New(providers(models, parseRisk(logger)), opts),
		summaries:  failover.New(providers(models, parseSummary), opts),
		benchmarks: benchmarks,
		cfg:        cfg,
		llmCfg:     llmCfg,
		logger:     logger,
	}, nil
}

// providers wraps each model so its reply is parsed inside the attempt.
// Output that fails to parse is a transient failure of that model.
func providers[T any](models []llm.TextModel, parse func([]byte) (T, error)) []failover.Provider[llm.CompletionRequest, T] {
	out := make([]failover.Provider[llm.CompletionRequest, T], 0, len(models))
	for _, m := range models {
		out = append(out, failover.Func[llm.CompletionRequest, T]{
			ProviderName: m.Name(),
			Fn: func(ctx context.Context, req llm.CompletionRequest) (T, error) {
				var zero T
				raw, err := m.Complete(ctx, req)
				if err != nil {
					return zero, err
				}
				v, err := parse(raw)
				if err != nil {
					return zero, llm.Malformed(m.Name(), err)
				}
				return v, nil
			},
		})
	}
	return out
}

func decodeValidated(raw []byte, schema *jsonschema.Schema, v any) error {
	if err := llm.Validate(schema, raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func parseClauses(logger *slog.Logger) func([]byte) (clauseReply, error) {
	return func(content []byte) (clauseReply, error) {
		var out clauseReply
		raw, err := llm.ExtractJSON(content)
		if err != nil {
			return out, err
		}
		raw, _, err = llm.NormalizeClausesJSON(raw, logger)
		if err != nil {
			return out, err
		}
		return out, decodeValidated(raw, clauseSchema, &out)
	}
}

func parseRisk(logger *slog.Logger) func([]byte) (riskReply, error) {
	return func(content []byte) (riskReply, error) {
		var out riskReply
		raw, err := llm.ExtractJSON(content)
		if err != nil {
			return out, err
		}
		raw, _, err = llm.NormalizeRiskJSON(raw, logger)
		if err != nil {
			return out, err
		}
		return out, decodeValidated(raw, riskSchema, &out)
	}
}

// parseSummary accepts the requested JSON object or, failing that, plain prose.
func parseSummary(content []byte) (string, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		text := strings.TrimSpace(string(content))
		if text == "" {
			return "", llm.ErrEmptyResponse
		}
		return text, nil
	}
	var out summaryReply
	if err := decodeValidated(raw, summarySchema, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.ExecutiveSummary), nil
}

func (a *Analyzer) request(system, user string, jsonOut bool) llm.CompletionRequest {
	return llm.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: float32(a.llmCfg.Temperature),
		MaxTokens:   a.llmCfg.MaxTokens,
		JSON:        jsonOut,
	}
}

// Analyze runs the three steps in order. Provider exhaustion or a fatal
// provider error fails the analysis; no partial Analysis is returned.
func (a *Analyzer) Analyze(ctx context.Context, text string, label entity.JurisdictionLabel) (Analysis, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, a.logger)

	jurisdiction := ""
	if !label.IsUnknown() {
		jurisdiction = string(label.Jurisdiction)
	}

	metadata, clauses, err := a.ExtractClauses(ctx, text, jurisdiction)
	if err != nil {
		return Analysis{}, fmt.Errorf("clause extraction: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Analysis{}, errors.Join(common.ErrCancelled, err)
	}

	findings, err := a.ScoreClauses(ctx, clauses, label)
	if err != nil {
		return Analysis{}, fmt.Errorf("risk scoring: %w", err)
	}
	SortFindings(findings)

	out := Analysis{
		Metadata:          metadata,
		Findings:          findings,
		KeyConcerns:       KeyConcerns(findings, a.cfg.KeyConcernLimit),
		NegotiationPoints: NegotiationPoints(findings, a.benchmarks, label.Jurisdiction, a.cfg.NegotiationPointLimit),
	}
	out.OverallRiskScore, out.OverallRiskLevel = OverallRisk(findings)

	if err := ctx.Err(); err != nil {
		return Analysis{}, errors.Join(common.ErrCancelled, err)
	}
	summary, err := a.Summarize(ctx, out, jurisdiction)
	if err != nil {
		return Analysis{}, fmt.Errorf("executive summary: %w", err)
	}
	out.ExecutiveSummary = summary

	log.Info("analyzer.analyze.ok",
		"clauses", len(clauses),
		"findings", len(findings),
		"overall_risk", out.OverallRiskScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ExtractClauses reads metadata and clauses from text in one model call.
// Clauses whose type cannot be mapped onto the taxonomy are dropped.
func (a *Analyzer) ExtractClauses(ctx context.Context, text, jurisdiction string) (entity.ContractMetadata, []entity.Clause, error) {
	log := common.LoggerFrom(ctx, a.logger)
	system, user := llm.BuildClauseExtractionPrompts(truncateRunes(text, a.cfg.MaxTextChars), constants.ClauseTypesAsStrings(), jurisdiction)

	reply, provider, err := a.clauses.Run(ctx, a.request(system, user, true))
	if err != nil {
		return entity.ContractMetadata{}, nil, err
	}

	clauses := make([]entity.Clause, 0, len(reply.Clauses))
	dropped := 0
	for _, c := range reply.Clauses {
		ct, ok := constants.CanonicalizeClause(c.ClauseType)
		if !ok {
			dropped++
			continue
		}
		title := ct.Title()
		if c.Title != nil && strings.TrimSpace(*c.Title) != "" {
			title = strings.TrimSpace(*c.Title)
		}
		clauses = append(clauses, entity.Clause{
			Type:             ct,
			Title:            title,
			Text:             strings.TrimSpace(c.Text),
			SectionReference: nonEmpty(c.SectionReference),
		})
	}
	if dropped > 0 {
		log.Debug("analyzer.clauses.unclassified", "dropped", dropped)
	}
	log.Info("analyzer.clauses.ok", "provider", provider, "clauses", len(clauses), "dropped", dropped)

	md := reply.Metadata
	if md.Parties == nil {
		md.Parties = []string{}
	}
	return md, clauses, nil
}

// ScoreClauses scores every clause concurrently, bounded by
// ScoringConcurrency. Findings keep clause order.
func (a *Analyzer) ScoreClauses(ctx context.Context, clauses []entity.Clause, label entity.JurisdictionLabel) ([]entity.ClauseFinding, error) {
	findings := make([]entity.ClauseFinding, len(clauses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.ScoringConcurrency)
	for i, c := range clauses {
		g.Go(func() error {
			f, err := a.scoreClause(gctx, c, label)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Type, err)
			}
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(common.ErrCancelled, ctx.Err())
		}
		return nil, err
	}
	return findings, nil
}

func (a *Analyzer) scoreClause(ctx context.Context, c entity.Clause, label entity.JurisdictionLabel) (entity.ClauseFinding, error) {
	bench := a.benchmarks.Lookup(c.Type, label.Jurisdiction)
	in := llm.RiskPromptInput{
		ClauseType:        string(c.Type),
		Title:             c.Title,
		Text:              c.Text,
		MarketStandard:    orDefault(bench.MarketStandard, defaultMarketStandard),
		BestPractice:      orDefault(bench.BestPractice, defaultBestPractice),
		RedFlags:          bench.RedFlags,
		JurisdictionNotes: bench.JurisdictionNotes,
	}
	if !label.IsUnknown() {
		in.Jurisdiction = string(label.Jurisdiction)
	}
	system, user := llm.BuildRiskPrompts(in)

	r, _, err := a.risks.Run(ctx, a.request(system, user, true))
	if err != nil {
		return entity.ClauseFinding{}, err
	}
	score := clampScore(r.RiskScore)
	return entity.ClauseFinding{
		ClauseType:       c.Type,
		Category:         c.Type.Category(),
		Title:            c.Title,
		ExtractedText:    c.Text,
		SectionReference: c.SectionReference,
		RiskScore:        score,
		RiskLevel:        constants.RiskLevelForScore(float64(score)),
		Rationale:        strings.TrimSpace(r.Rationale),
		BenchmarkDelta:   strings.TrimSpace(r.BenchmarkDelta),
		Findings:         nonNil(r.Findings),
		RedFlags:         nonNil(r.RedFlags),
		Recommendations:  nonNil(r.Recommendations),
	}, nil
}

// Summarize writes the executive summary from the top findings, bounded to
// SummaryMaxChars and cut on a word boundary.
func (a *Analyzer) Summarize(ctx context.Context, an Analysis, jurisdiction string) (string, error) {
	top := an.Findings
	if len(top) > a.cfg.SummaryTopFindings {
		top = top[:a.cfg.SummaryTopFindings]
	}
	in := make([]llm.SummaryFinding, len(top))
	for i, f := range top {
		in[i] = llm.SummaryFinding{ClauseType: string(f.ClauseType), RiskScore: f.RiskScore, Rationale: f.Rationale}
	}
	contractType := ""
	if an.Metadata.ContractType != nil {
		contractType = *an.Metadata.ContractType
	}
	system, user := llm.BuildSummaryPrompts(jurisdiction, contractType, an.OverallRiskScore, in, a.cfg.SummaryMaxChars)

	summary, _, err := a.summaries.Run(ctx, a.request(system, user, true))
	if err != nil {
		return "", err
	}
	return TruncateWords(summary, a.cfg.SummaryMaxChars), nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func clampScore(s int) int {
	switch {
	case s < 1:
		return 1
	case s > 10:
		return 10
	default:
		return s
	}
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
