package llm

// TranscriptionSchema is the reply shape requested from vision models.
func TranscriptionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"text"},
	}
}

// ClauseExtractionSchema validates the clause extraction step. clause_type is
// left open here; labels are canonicalized against the taxonomy afterwards so
// unclassifiable spans can be dropped instead of failing the whole reply.
func ClauseExtractionSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"contract_type":   nullableString,
					"parties":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"effective_date":  nullableString,
					"expiration_date": nullableString,
					"total_value":     nullableString,
					"governing_law":   nullableString,
					"jurisdiction":    nullableString,
				},
			},
			"clauses": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"clause_type":       map[string]any{"type": "string"},
						"title":             nullableString,
						"text":              map[string]any{"type": "string", "minLength": 1},
						"section_reference": nullableString,
					},
					"required": []string{"clause_type", "text"},
				},
			},
		},
		"required": []string{"clauses"},
	}
}

// RiskAssessmentSchema validates one clause's risk scoring reply after sanitizing.
func RiskAssessmentSchema() map[string]any {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"risk_score":      map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"risk_level":      map[string]any{"type": "string"},
			"rationale":       map[string]any{"type": "string", "minLength": 1},
			"benchmark_delta": map[string]any{"type": "string"},
			"findings":        stringList,
			"red_flags":       stringList,
			"recommendations": stringList,
		},
		"required": []string{"risk_score", "rationale"},
	}
}

// SummarySchema validates the executive summary reply.
func SummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"executive_summary": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"executive_summary"},
	}
}
