package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ExtractJSON pulls the JSON document out of a model reply, tolerating code
// fences and chatter around it.
func ExtractJSON(content []byte) ([]byte, error) {
	s := bytes.TrimSpace(content)
	if bytes.HasPrefix(s, []byte("```")) {
		s = bytes.TrimPrefix(s, []byte("```json"))
		s = bytes.TrimPrefix(s, []byte("```"))
		if i := bytes.LastIndex(s, []byte("```")); i >= 0 {
			s = s[:i]
		}
		s = bytes.TrimSpace(s)
	}
	if json.Valid(s) {
		return s, nil
	}

	start := bytes.IndexAny(s, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON found in reply")
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := bytes.LastIndexByte(s, closer)
	if end <= start {
		return nil, fmt.Errorf("unterminated JSON in reply")
	}
	candidate := s[start : end+1]
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("invalid JSON in reply")
	}
	return candidate, nil
}

// NormalizeClausesJSON
// - Wraps a bare array reply as {"clauses": [...]}
// - Accepts "type"/"category" as synonyms of clause_type and "content" of text
// - Coerces numeric section references to strings
// - Drops clauses with no text
// - Turns a null or single-string metadata.parties into a list and drops null metadata
func NormalizeClausesJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		raw = append(append([]byte(`{"clauses":`), raw...), '}')
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	notes := make([]string, 0, 4)

	items, _ := m["clauses"].([]any)
	kept := make([]any, 0, len(items))
	for i, it := range items {
		c, ok := it.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("clauses[%d](type)", i))
			continue
		}
		renameKey(c, "type", "clause_type")
		renameKey(c, "category", "clause_type")
		renameKey(c, "content", "text")
		renameKey(c, "section", "section_reference")

		if v, ok := c["section_reference"].(float64); ok {
			c["section_reference"] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if _, ok := c["clause_type"].(string); !ok {
			c["clause_type"] = ""
		}
		text, _ := c["text"].(string)
		if strings.TrimSpace(text) == "" {
			notes = append(notes, fmt.Sprintf("clauses[%d](empty)", i))
			continue
		}
		kept = append(kept, c)
	}
	m["clauses"] = kept
	notes = normalizeMetadata(m, notes)

	if len(notes) > 0 {
		logger.Debug("llm.sanitize.clauses", "notes", notes)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, notes, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, notes, nil
}

// NormalizeRiskJSON
// - Coerces risk_score to an integer (float/strings like "7/10") and clamps it to 1..10
// - Accepts "reasoning" as rationale and "red_flags_found" as red_flags
// - Turns single strings into one-element lists and drops nulls
func NormalizeRiskJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	notes := make([]string, 0, 4)

	renameKey(m, "reasoning", "rationale")
	renameKey(m, "red_flags_found", "red_flags")
	renameKey(m, "score", "risk_score")

	if v, ok := m["risk_score"]; ok {
		score, ok := coerceScore(v)
		if !ok {
			delete(m, "risk_score")
			notes = append(notes, "risk_score(type)")
		} else {
			clamped := clampScore(score)
			if clamped != score {
				notes = append(notes, fmt.Sprintf("risk_score(clamped %d->%d)", score, clamped))
			}
			m["risk_score"] = clamped
		}
	}

	if v, ok := m["risk_level"].(string); ok {
		m["risk_level"] = strings.ToLower(strings.TrimSpace(v))
	}
	if m["benchmark_delta"] == nil {
		delete(m, "benchmark_delta")
	}

	for _, k := range []string{"findings", "red_flags", "recommendations"} {
		switch t := m[k].(type) {
		case nil:
			delete(m, k)
		case string:
			if strings.TrimSpace(t) == "" {
				delete(m, k)
			} else {
				m[k] = []any{t}
			}
		case []any:
			out := make([]any, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			m[k] = out
		default:
			delete(m, k)
			notes = append(notes, k+"(type)")
		}
	}

	if len(notes) > 0 {
		logger.Debug("llm.sanitize.risk", "notes", notes)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, notes, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, notes, nil
}

func normalizeMetadata(m map[string]any, notes []string) []string {
	raw, ok := m["metadata"]
	if !ok {
		return notes
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		delete(m, "metadata")
		if raw != nil {
			notes = append(notes, "metadata(type)")
		}
		return notes
	}
	switch t := meta["parties"].(type) {
	case nil:
		meta["parties"] = []any{}
	case string:
		if strings.TrimSpace(t) == "" {
			meta["parties"] = []any{}
		} else {
			meta["parties"] = []any{strings.TrimSpace(t)}
		}
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		meta["parties"] = out
	default:
		meta["parties"] = []any{}
		notes = append(notes, "metadata.parties(type)")
	}
	return notes
}

func renameKey(m map[string]any, from, to string) {
	if v, ok := m[from]; ok {
		// don't overwrite existing value if already present
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, from)
	}
}

func coerceScore(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(math.Round(t)), true
	case string:
		s := strings.TrimSpace(t)
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	default:
		return 0, false
	}
}

func clampScore(s int) int {
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}
