package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
)

const fallbackLanguage = "Consult with legal counsel for specific language."

// SortFindings orders findings by descending risk score. At equal score the
// category with the higher negotiation priority goes first (Risk Allocation
// before everything else); remaining ties keep extraction order.
func SortFindings(findings []entity.ClauseFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		return constants.CategoryRank(a.Category) < constants.CategoryRank(b.Category)
	})
}

// OverallRisk is the level-weighted mean of clause scores, rounded to one
// decimal. Without findings the contract is rated 5.0 (medium).
func OverallRisk(findings []entity.ClauseFinding) (float64, constants.RiskLevel) {
	if len(findings) == 0 {
		return 5.0, constants.RiskMedium
	}
	var sum, weights float64
	for _, f := range findings {
		w := f.RiskLevel.Weight()
		sum += float64(f.RiskScore) * w
		weights += w
	}
	score := math.Round(sum/weights*10) / 10
	return score, constants.RiskLevelForScore(score)
}

func isSevere(l constants.RiskLevel) bool {
	return l == constants.RiskCritical || l == constants.RiskHigh
}

// KeyConcerns lists the red flags of high and critical findings as
// "[CLAUSE_TYPE] flag", de-duplicated, at most limit entries.
func KeyConcerns(findings []entity.ClauseFinding, limit int) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, f := range findings {
		if !isSevere(f.RiskLevel) {
			continue
		}
		for _, flag := range f.RedFlags {
			c := fmt.Sprintf("[%s] %s", strings.ToUpper(string(f.ClauseType)), strings.TrimSpace(flag))
			if _, dup := seen[c]; dup {
				continue
			}
			if len(out) >= limit {
				return out
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// NegotiationPoints turns the highest-priority high and critical findings
// that carry a recommendation into numbered asks. findings must already be
// sorted.
func NegotiationPoints(findings []entity.ClauseFinding, benchmarks BenchmarkSource, j constants.Jurisdiction, limit int) []entity.NegotiationPoint {
	out := []entity.NegotiationPoint{}
	for _, f := range findings {
		if len(out) >= limit {
			break
		}
		if !isSevere(f.RiskLevel) || len(f.Recommendations) == 0 {
			continue
		}
		issue := "Risk identified"
		if len(f.Findings) > 0 {
			issue = f.Findings[0]
		}
		language := fallbackLanguage
		if benchmarks != nil {
			if bp := benchmarks.Lookup(f.ClauseType, j).BestPractice; bp != "" {
				language = bp
			}
		}
		out = append(out, entity.NegotiationPoint{
			Priority:          len(out) + 1,
			ClauseType:        f.ClauseType,
			RiskScore:         f.RiskScore,
			Issue:             issue,
			Recommendation:    f.Recommendations[0],
			SuggestedLanguage: language,
		})
	}
	return out
}

// TruncateWords bounds s to max runes, cutting at the last whitespace inside
// the bound when there is one.
func TruncateWords(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)[:max]
	// a cut that lands on a space is already a word boundary
	if unicode.IsSpace([]rune(s)[max]) {
		return strings.TrimSpace(string(r))
	}
	for i := len(r) - 1; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			return strings.TrimRightFunc(string(r[:i]), unicode.IsSpace)
		}
	}
	return string(r)
}
