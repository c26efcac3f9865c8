package constants

import "testing"

func TestCanonicalizeClause(t *testing.T) {
	tests := []struct {
		in     string
		want   ClauseType
		wantOK bool
	}{
		{"payment_terms", ClausePaymentTerms, true},
		{"Payment Terms", ClausePaymentTerms, true},
		{"Limitation of Liability", ClauseLiability, true},
		{"indemnity", ClauseIndemnification, true},
		{"Non-Compete", ClauseNonCompete, true},
		{"Representations & Warranties", ClauseWarranties, true},
		{"  GDPR ", ClauseDataProtection, true},
		{"other", "", false},
		{"", "", false},
		{"recipe for pancakes", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalizeClause(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CanonicalizeClause(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEveryClauseTypeHasCategory(t *testing.T) {
	types := AllClauseTypes()
	if len(types) < 20 {
		t.Fatalf("taxonomy has %d leaves, want at least 20", len(types))
	}
	seen := map[ClauseCategory]int{}
	for _, ct := range types {
		cat := ct.Category()
		if cat == "" {
			t.Errorf("%s has no category", ct)
		}
		seen[cat]++
		if got, ok := CanonicalizeClause(string(ct)); !ok || got != ct {
			t.Errorf("label %q does not round-trip through CanonicalizeClause", ct)
		}
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 categories in use, got %d", len(seen))
	}
}

func TestCategoryRankPutsRiskAllocationFirst(t *testing.T) {
	for _, c := range []ClauseCategory{CategoryCoreTerms, CategoryFinancial, CategoryIPData, CategoryExitDisputes, CategoryRestrictions} {
		if CategoryRank(CategoryRiskAllocation) >= CategoryRank(c) {
			t.Errorf("Risk Allocation should rank above %s", c)
		}
	}
}

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{10, RiskCritical},
		{8, RiskCritical},
		{7, RiskHigh},
		{6, RiskHigh},
		{4, RiskMedium},
		{2, RiskLow},
		{1, RiskStandard},
	}
	for _, tt := range tests {
		if got := RiskLevelForScore(tt.score); got != tt.want {
			t.Errorf("RiskLevelForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestJurisdictionLabels(t *testing.T) {
	if JurisdictionUSADelaware.Region() != "USA" || JurisdictionUSADelaware.SubJurisdiction() != "Delaware" {
		t.Errorf("unexpected Delaware parts: %s / %s", JurisdictionUSADelaware.Region(), JurisdictionUSADelaware.SubJurisdiction())
	}
	if JurisdictionUK.SubJurisdiction() != "" {
		t.Errorf("UK should have no sub-jurisdiction")
	}
	if JurisdictionUSADelaware.Specificity() <= JurisdictionUSAGeneral.Specificity() {
		t.Errorf("Delaware must be more specific than USA/General")
	}
	if _, ok := ParseJurisdiction("Mars/Olympus"); ok {
		t.Errorf("unexpected parse success")
	}
}
