package constants

import (
	"strings"
)

// ClauseCategory is the top level of the clause taxonomy.
type ClauseCategory string

const (
	CategoryCoreTerms      ClauseCategory = "Core Terms"
	CategoryFinancial      ClauseCategory = "Financial"
	CategoryRiskAllocation ClauseCategory = "Risk Allocation"
	CategoryIPData         ClauseCategory = "IP & Data"
	CategoryExitDisputes   ClauseCategory = "Exit & Disputes"
	CategoryRestrictions   ClauseCategory = "Restrictions"
)

// ClauseType is a leaf of the clause taxonomy. Values are the snake_case
// labels the analysis prompts ask the model to emit.
type ClauseType string

const (
	ClauseParties              ClauseType = "parties"
	ClauseDefinitions          ClauseType = "definitions"
	ClauseScopeOfWork          ClauseType = "scope_of_work"
	ClauseTermDuration         ClauseType = "term_duration"
	ClauseAmendment            ClauseType = "amendment"
	ClauseNotices              ClauseType = "notices"
	ClausePaymentTerms         ClauseType = "payment_terms"
	ClauseInsurance            ClauseType = "insurance"
	ClauseAuditRights          ClauseType = "audit_rights"
	ClauseLiability            ClauseType = "liability"
	ClauseIndemnification      ClauseType = "indemnification"
	ClauseWarranties           ClauseType = "warranties"
	ClauseForceMajeure         ClauseType = "force_majeure"
	ClauseIntellectualProperty ClauseType = "intellectual_property"
	ClauseConfidentiality      ClauseType = "confidentiality"
	ClauseDataProtection       ClauseType = "data_protection"
	ClauseTermination          ClauseType = "termination"
	ClauseDisputeResolution    ClauseType = "dispute_resolution"
	ClauseGoverningLaw         ClauseType = "governing_law"
	ClauseNonCompete           ClauseType = "non_compete"
	ClauseNonSolicitation      ClauseType = "non_solicitation"
	ClauseAssignment           ClauseType = "assignment"
	ClauseCompliance           ClauseType = "compliance"
)

// allClauseTypes keeps taxonomy order; prompts and exports list types in this order.
var allClauseTypes = []ClauseType{
	ClauseParties,
	ClauseDefinitions,
	ClauseScopeOfWork,
	ClauseTermDuration,
	ClauseAmendment,
	ClauseNotices,
	ClausePaymentTerms,
	ClauseInsurance,
	ClauseAuditRights,
	ClauseLiability,
	ClauseIndemnification,
	ClauseWarranties,
	ClauseForceMajeure,
	ClauseIntellectualProperty,
	ClauseConfidentiality,
	ClauseDataProtection,
	ClauseTermination,
	ClauseDisputeResolution,
	ClauseGoverningLaw,
	ClauseNonCompete,
	ClauseNonSolicitation,
	ClauseAssignment,
	ClauseCompliance,
}

var clauseCategories = map[ClauseType]ClauseCategory{
	ClauseParties:              CategoryCoreTerms,
	ClauseDefinitions:          CategoryCoreTerms,
	ClauseScopeOfWork:          CategoryCoreTerms,
	ClauseTermDuration:         CategoryCoreTerms,
	ClauseAmendment:            CategoryCoreTerms,
	ClauseNotices:              CategoryCoreTerms,
	ClausePaymentTerms:         CategoryFinancial,
	ClauseInsurance:            CategoryFinancial,
	ClauseAuditRights:          CategoryFinancial,
	ClauseLiability:            CategoryRiskAllocation,
	ClauseIndemnification:      CategoryRiskAllocation,
	ClauseWarranties:           CategoryRiskAllocation,
	ClauseForceMajeure:         CategoryRiskAllocation,
	ClauseIntellectualProperty: CategoryIPData,
	ClauseConfidentiality:      CategoryIPData,
	ClauseDataProtection:       CategoryIPData,
	ClauseTermination:          CategoryExitDisputes,
	ClauseDisputeResolution:    CategoryExitDisputes,
	ClauseGoverningLaw:         CategoryExitDisputes,
	ClauseNonCompete:           CategoryRestrictions,
	ClauseNonSolicitation:      CategoryRestrictions,
	ClauseAssignment:           CategoryRestrictions,
	ClauseCompliance:           CategoryRestrictions,
}

// AllClauseTypes returns a copy of the taxonomy leaves in order.
func AllClauseTypes() []ClauseType {
	out := make([]ClauseType, len(allClauseTypes))
	copy(out, allClauseTypes)
	return out
}

// ClauseTypesAsStrings is used when rendering prompts and JSON schema enums.
func ClauseTypesAsStrings() []string {
	result := make([]string, len(allClauseTypes))
	for i, ct := range allClauseTypes {
		result[i] = string(ct)
	}
	return result
}

// Category returns the taxonomy branch of a clause type.
func (c ClauseType) Category() ClauseCategory {
	return clauseCategories[c]
}

// Title is a display form, "payment_terms" -> "Payment Terms".
func (c ClauseType) Title() string {
	parts := strings.Split(string(c), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// CategoryRank orders categories for negotiation priority at equal risk.
// Lower ranks first.
func CategoryRank(c ClauseCategory) int {
	switch c {
	case CategoryRiskAllocation:
		return 0
	case CategoryExitDisputes:
		return 1
	case CategoryIPData:
		return 2
	case CategoryFinancial:
		return 3
	case CategoryRestrictions:
		return 4
	case CategoryCoreTerms:
		return 5
	default:
		return 6
	}
}

// CanonicalizeClause maps a model-produced label onto the taxonomy.
// The boolean is false for labels that cannot be classified ("other", blanks, unknown).
func CanonicalizeClause(input string) (ClauseType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	normalized = strings.NewReplacer("-", " ", "_", " ", "&", " and ").Replace(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")

	// synonyms map
	synonyms := map[string]ClauseType{
		"party":                          ClauseParties,
		"recitals":                       ClauseParties,
		"definition":                     ClauseDefinitions,
		"interpretation":                 ClauseDefinitions,
		"scope":                          ClauseScopeOfWork,
		"services":                       ClauseScopeOfWork,
		"deliverables":                   ClauseScopeOfWork,
		"statement of work":              ClauseScopeOfWork,
		"term":                           ClauseTermDuration,
		"duration":                       ClauseTermDuration,
		"term and renewal":               ClauseTermDuration,
		"amendments":                     ClauseAmendment,
		"variation":                      ClauseAmendment,
		"notice":                         ClauseNotices,
		"payment":                        ClausePaymentTerms,
		"fees":                           ClausePaymentTerms,
		"compensation":                   ClausePaymentTerms,
		"pricing":                        ClausePaymentTerms,
		"invoicing":                      ClausePaymentTerms,
		"audit":                          ClauseAuditRights,
		"records and audit":              ClauseAuditRights,
		"limitation of liability":        ClauseLiability,
		"liability cap":                  ClauseLiability,
		"limitation":                     ClauseLiability,
		"indemnity":                      ClauseIndemnification,
		"indemnities":                    ClauseIndemnification,
		"warranty":                       ClauseWarranties,
		"representations and warranties": ClauseWarranties,
		"force majeure event":            ClauseForceMajeure,
		"ip":                             ClauseIntellectualProperty,
		"intellectual property rights":   ClauseIntellectualProperty,
		"ownership":                      ClauseIntellectualProperty,
		"nda":                            ClauseConfidentiality,
		"non disclosure":                 ClauseConfidentiality,
		"confidential information":       ClauseConfidentiality,
		"privacy":                        ClauseDataProtection,
		"data privacy":                   ClauseDataProtection,
		"gdpr":                           ClauseDataProtection,
		"personal data":                  ClauseDataProtection,
		"termination for convenience":    ClauseTermination,
		"exit":                           ClauseTermination,
		"arbitration":                    ClauseDisputeResolution,
		"disputes":                       ClauseDisputeResolution,
		"jurisdiction":                   ClauseGoverningLaw,
		"choice of law":                  ClauseGoverningLaw,
		"applicable law":                 ClauseGoverningLaw,
		"non competition":                ClauseNonCompete,
		"restrictive covenant":           ClauseNonCompete,
		"non solicit":                    ClauseNonSolicitation,
		"no poach":                       ClauseNonSolicitation,
		"assignment and subcontracting":  ClauseAssignment,
		"subcontracting":                 ClauseAssignment,
		"anti bribery":                   ClauseCompliance,
		"regulatory compliance":          ClauseCompliance,
		"compliance with laws":           ClauseCompliance,
	}

	if ct, ok := synonyms[normalized]; ok {
		return ct, true
	}

	// check if it matches any clause type label
	for _, ct := range allClauseTypes {
		if normalized == strings.ReplaceAll(string(ct), "_", " ") {
			return ct, true
		}
	}

	return "", false
}
