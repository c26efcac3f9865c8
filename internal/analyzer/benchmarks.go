package analyzer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

//go:embed benchmarks.yaml
var defaultBenchmarks []byte

// Benchmark is the reference context for scoring one clause.
type Benchmark struct {
	MarketStandard    string
	BestPractice      string
	RedFlags          []string
	JurisdictionNotes []string
}

// BenchmarkSource supplies benchmark text. Unknown jurisdictions and clause
// types without a benchmark yield empty fields, never an error.
type BenchmarkSource interface {
	Lookup(clause constants.ClauseType, j constants.Jurisdiction) Benchmark
}

type clauseBenchmark struct {
	MarketStandard string   `yaml:"market_standard"`
	BestPractice   string   `yaml:"best_practice"`
	RedFlags       []string `yaml:"red_flags"`
}

type jurisdictionNotes struct {
	PrimaryLaw        string            `yaml:"primary_law"`
	KeyConsiderations []string          `yaml:"key_considerations"`
	ClauseNotes       map[string]string `yaml:"clause_notes"`
}

// Benchmarks is a BenchmarkSource backed by a YAML document.
type Benchmarks struct {
	Clauses       map[string]clauseBenchmark   `yaml:"clauses"`
	Jurisdictions map[string]jurisdictionNotes `yaml:"jurisdictions"`
}

// ParseBenchmarks decodes a benchmark document and checks its keys against
// the clause taxonomy and the jurisdiction set.
func ParseBenchmarks(data []byte) (*Benchmarks, error) {
	var b Benchmarks
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse benchmarks: %w", err)
	}
	for key := range b.Clauses {
		if ct, ok := constants.CanonicalizeClause(key); !ok || string(ct) != key {
			return nil, fmt.Errorf("benchmarks: unknown clause type %q", key)
		}
	}
	for key, j := range b.Jurisdictions {
		if _, ok := constants.ParseJurisdiction(key); !ok {
			return nil, fmt.Errorf("benchmarks: unknown jurisdiction %q", key)
		}
		for ck := range j.ClauseNotes {
			if ct, ok := constants.CanonicalizeClause(ck); !ok || string(ct) != ck {
				return nil, fmt.Errorf("benchmarks: %s: unknown clause type %q", key, ck)
			}
		}
	}
	return &b, nil
}

// DefaultBenchmarks returns the embedded benchmark table.
func DefaultBenchmarks() *Benchmarks {
	b, err := ParseBenchmarks(defaultBenchmarks)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Benchmarks) Lookup(clause constants.ClauseType, j constants.Jurisdiction) Benchmark {
	out := Benchmark{RedFlags: []string{}, JurisdictionNotes: []string{}}
	if cb, ok := b.Clauses[string(clause)]; ok {
		out.MarketStandard = cb.MarketStandard
		out.BestPractice = cb.BestPractice
		out.RedFlags = append(out.RedFlags, cb.RedFlags...)
	}
	if jn, ok := b.Jurisdictions[string(j)]; ok {
		if jn.PrimaryLaw != "" {
			out.JurisdictionNotes = append(out.JurisdictionNotes, "Primary law: "+jn.PrimaryLaw)
		}
		if note, ok := jn.ClauseNotes[string(clause)]; ok {
			out.JurisdictionNotes = append(out.JurisdictionNotes, note)
		}
		out.JurisdictionNotes = append(out.JurisdictionNotes, jn.KeyConsiderations...)
	}
	return out
}
