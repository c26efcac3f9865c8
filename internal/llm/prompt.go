package llm

import (
	"fmt"
	"strings"
)

// VisionTranscriptionPrompt asks a vision model for a faithful transcription
// plus a self-assessed confidence.
const VisionTranscriptionPrompt = `You are a document OCR specialist. Transcribe ALL text visible on this contract page.
Rules:
- Preserve the original structure: headings, numbered sections, paragraphs and lists.
- Render tables with | separators.
- Mark illegible words as [unclear]. Never guess names, amounts or dates.
- Do not summarize, translate or comment.
Reply with a JSON object: {"text": "<full transcription>", "confidence": <0.0-1.0 estimate of how legible the page was>}.`

// BuildClauseExtractionPrompts composes the clause extraction step. taxonomy is
// the list of allowed clause_type labels.
func BuildClauseExtractionPrompts(text string, taxonomy []string, jurisdiction string) (system, user string) {
	system = "You are a contract analyst. You split contracts into clauses and classify each one. " +
		"You MUST use exactly one of these clause_type labels, or \"other\" when nothing fits: " +
		strings.Join(taxonomy, ", ") + ". " +
		"Quote clause text verbatim (trim to the operative sentences if a clause is very long). " +
		"Respond with JSON only."

	var b strings.Builder
	if jurisdiction != "" {
		fmt.Fprintf(&b, "Detected jurisdiction: %s.\n\n", jurisdiction)
	}
	b.WriteString("Extract contract metadata and every material clause from the contract below.\n")
	b.WriteString(`Return JSON of the form:
{
  "metadata": {"contract_type": str|null, "parties": [str], "effective_date": str|null, "expiration_date": str|null,
               "total_value": str|null, "governing_law": str|null, "jurisdiction": str|null},
  "clauses": [{"clause_type": str, "title": str, "text": str, "section_reference": str|null}]
}`)
	b.WriteString("\n\nCONTRACT:\n")
	b.WriteString(text)
	return system, b.String()
}

// RiskPromptInput carries one clause and its benchmark context.
type RiskPromptInput struct {
	ClauseType        string
	Title             string
	Text              string
	Jurisdiction      string
	MarketStandard    string
	BestPractice      string
	RedFlags          []string
	JurisdictionNotes []string
}

// BuildRiskPrompts composes the per-clause risk scoring step. Benchmark text is
// injected as reference context.
func BuildRiskPrompts(in RiskPromptInput) (system, user string) {
	system = "You are a senior contract lawyer scoring clause risk for the party receiving this contract. " +
		"Scores are integers from 1 (market standard, benign) to 10 (severe, unacceptable). " +
		"Compare the clause with the reference benchmark and explain the difference. Respond with JSON only."

	var b strings.Builder
	fmt.Fprintf(&b, "Clause type: %s\n", in.ClauseType)
	if in.Title != "" {
		fmt.Fprintf(&b, "Clause title: %s\n", in.Title)
	}
	if in.Jurisdiction != "" {
		fmt.Fprintf(&b, "Jurisdiction: %s\n", in.Jurisdiction)
	}
	b.WriteString("\nREFERENCE BENCHMARK:\n")
	if in.MarketStandard != "" {
		fmt.Fprintf(&b, "- Market standard: %s\n", in.MarketStandard)
	}
	if in.BestPractice != "" {
		fmt.Fprintf(&b, "- Best practice: %s\n", in.BestPractice)
	}
	if len(in.RedFlags) > 0 {
		fmt.Fprintf(&b, "- Known red flags: %s\n", strings.Join(in.RedFlags, "; "))
	}
	for _, n := range in.JurisdictionNotes {
		fmt.Fprintf(&b, "- Jurisdiction note: %s\n", n)
	}
	b.WriteString("\nCLAUSE TEXT:\n")
	b.WriteString(in.Text)
	b.WriteString(`

Return JSON of the form:
{"risk_score": int 1-10, "risk_level": "critical"|"high"|"medium"|"low"|"standard",
 "rationale": str, "benchmark_delta": str, "findings": [str], "red_flags": [str], "recommendations": [str]}`)
	return system, b.String()
}

// SummaryFinding is one prioritized finding fed into the executive summary.
type SummaryFinding struct {
	ClauseType string
	RiskScore  int
	Rationale  string
}

// BuildSummaryPrompts composes the executive summary step.
func BuildSummaryPrompts(jurisdiction, contractType string, overall float64, findings []SummaryFinding, maxChars int) (system, user string) {
	system = "You write concise executive summaries of contract risk reviews for business readers. Respond with JSON only."

	var b strings.Builder
	if contractType != "" {
		fmt.Fprintf(&b, "Contract type: %s\n", contractType)
	}
	if jurisdiction != "" {
		fmt.Fprintf(&b, "Jurisdiction: %s\n", jurisdiction)
	}
	fmt.Fprintf(&b, "Overall risk score: %.1f/10\n\nTop findings (highest risk first):\n", overall)
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. %s (risk %d/10): %s\n", i+1, f.ClauseType, f.RiskScore, f.Rationale)
	}
	fmt.Fprintf(&b, "\nWrite a summary of at most %d characters covering the overall posture and the most important issues. ", maxChars)
	b.WriteString(`Return JSON: {"executive_summary": str}`)
	return system, b.String()
}
