package analyzer

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

func TestDefaultBenchmarks(t *testing.T) {
	b := DefaultBenchmarks()
	for _, ct := range []constants.ClauseType{
		constants.ClauseLiability, constants.ClauseTermination, constants.ClauseIntellectualProperty,
		constants.ClauseIndemnification, constants.ClauseConfidentiality, constants.ClausePaymentTerms,
		constants.ClauseWarranties, constants.ClauseForceMajeure, constants.ClauseDataProtection,
		constants.ClauseDisputeResolution,
	} {
		got := b.Lookup(ct, constants.JurisdictionUnknown)
		if got.MarketStandard == "" || got.BestPractice == "" || len(got.RedFlags) == 0 {
			t.Errorf("%s has an incomplete benchmark: %+v", ct, got)
		}
		if len(got.JurisdictionNotes) != 0 {
			t.Errorf("unknown jurisdiction should add no notes, got %v", got.JurisdictionNotes)
		}
	}
	for _, j := range constants.AllJurisdictions() {
		if got := b.Lookup(constants.ClauseLiability, j); len(got.JurisdictionNotes) == 0 {
			t.Errorf("%s has no jurisdiction notes", j)
		}
	}
}

func TestLookupJurisdictionNotes(t *testing.T) {
	b := DefaultBenchmarks()
	got := b.Lookup(constants.ClauseNonCompete, constants.JurisdictionUSACalifornia)
	if got.MarketStandard != "" {
		t.Errorf("non_compete has no market benchmark, got %q", got.MarketStandard)
	}
	if len(got.JurisdictionNotes) < 2 || !strings.HasPrefix(got.JurisdictionNotes[0], "Primary law: ") {
		t.Fatalf("notes = %v", got.JurisdictionNotes)
	}
	if !strings.Contains(got.JurisdictionNotes[1], "16600") {
		t.Errorf("clause note should follow the primary law, got %v", got.JurisdictionNotes)
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	b := DefaultBenchmarks()
	first := b.Lookup(constants.ClauseLiability, constants.JurisdictionUK)
	first.RedFlags[0] = "changed"
	if again := b.Lookup(constants.ClauseLiability, constants.JurisdictionUK); again.RedFlags[0] == "changed" {
		t.Error("Lookup exposed the shared table")
	}
}

func TestParseBenchmarksRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"clause", "clauses:\n  pancakes:\n    market_standard: x\n"},
		{"synonym instead of label", "clauses:\n  indemnity:\n    market_standard: x\n"},
		{"jurisdiction", "jurisdictions:\n  Atlantis:\n    primary_law: x\n"},
		{"clause note", "jurisdictions:\n  UK:\n    clause_notes:\n      pancakes: x\n"},
		{"not yaml", "clauses: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBenchmarks([]byte(tt.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
