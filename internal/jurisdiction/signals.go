package jurisdiction

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// Kind is the extractor a signal belongs to. Each kind votes with its own weight.
type Kind string

const (
	KindLocation Kind = "location"
	KindLegal    Kind = "legal"
	KindCurrency Kind = "currency"
)

// Signal is one piece of evidence. A matched signal votes once for every
// jurisdiction in Targets and against every jurisdiction in Penalizes, no
// matter how often it occurs in the text.
type Signal struct {
	Kind      Kind
	Name      string
	Pattern   *regexp.Regexp
	Targets   []constants.Jurisdiction
	Penalizes []constants.Jurisdiction
}

// Label is the form reported in JurisdictionLabel.MatchedSignals.
func (s Signal) Label() string {
	return string(s.Kind) + ":" + s.Name
}

var (
	uaeAll = []constants.Jurisdiction{
		constants.JurisdictionUAEDIFC, constants.JurisdictionUAEADGM, constants.JurisdictionUAEMainland,
	}
	usaAll = []constants.Jurisdiction{
		constants.JurisdictionUSADelaware, constants.JurisdictionUSANewYork, constants.JurisdictionUSACalifornia,
		constants.JurisdictionUSATexas, constants.JurisdictionUSAGeneral,
	}
	euAll = []constants.Jurisdiction{
		constants.JurisdictionEUGermany, constants.JurisdictionEUFrance, constants.JurisdictionEUGeneral,
	}
	mainlandOnly = []constants.Jurisdiction{constants.JurisdictionUAEMainland}
)

// keyword matches a phrase on word boundaries, case-insensitively. Go's \b is
// ASCII-only and fails next to punctuation such as "u.s.", so the boundary is
// spelled out.
func keyword(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(phrase) + `(?:$|[^\p{L}\p{N}])`)
}

func location(name string, targets ...constants.Jurisdiction) Signal {
	return Signal{Kind: KindLocation, Name: name, Pattern: keyword(name), Targets: targets}
}

func legal(name, pattern string, targets ...constants.Jurisdiction) Signal {
	return Signal{Kind: KindLegal, Name: name, Pattern: regexp.MustCompile(pattern), Targets: targets}
}

func currency(code, pattern string, targets []constants.Jurisdiction) Signal {
	return Signal{Kind: KindCurrency, Name: code, Pattern: regexp.MustCompile(pattern), Targets: targets}
}

func locations(j constants.Jurisdiction, names ...string) []Signal {
	out := make([]Signal, len(names))
	for i, n := range names {
		out[i] = location(n, j)
	}
	return out
}

// DefaultSignals is the built-in signal table.
func DefaultSignals() []Signal {
	var s []Signal

	// location
	s = append(s, locations(constants.JurisdictionUAEDIFC, "difc", "dubai international financial centre", "dubai international financial center")...)
	s = append(s, locations(constants.JurisdictionUAEADGM, "adgm", "abu dhabi global market")...)
	s = append(s, locations(constants.JurisdictionUAEMainland, "uae", "united arab emirates", "dubai", "abu dhabi", "sharjah", "emirates")...)
	s = append(s, locations(constants.JurisdictionIndia, "india", "indian", "mumbai", "delhi", "new delhi", "bangalore", "bengaluru", "chennai")...)
	s = append(s, locations(constants.JurisdictionUSADelaware, "delaware", "wilmington")...)
	s = append(s, locations(constants.JurisdictionUSANewYork, "new york", "nyc", "manhattan")...)
	s = append(s, locations(constants.JurisdictionUSACalifornia, "california", "san francisco", "los angeles", "silicon valley", "san jose")...)
	s = append(s, locations(constants.JurisdictionUSATexas, "texas", "houston", "dallas", "austin")...)
	s = append(s, locations(constants.JurisdictionUSAGeneral, "united states", "united states of america", "usa", "u.s.", "american")...)
	s = append(s, locations(constants.JurisdictionEUGermany, "germany", "german", "berlin", "munich", "frankfurt", "hamburg")...)
	s = append(s, locations(constants.JurisdictionEUFrance, "france", "french", "paris", "lyon")...)
	s = append(s, locations(constants.JurisdictionEUGeneral, "european union", "brussels")...)
	s = append(s, locations(constants.JurisdictionUK, "england", "england and wales", "united kingdom", "london", "scotland")...)
	s = append(s, locations(constants.JurisdictionSingapore, "singapore", "singaporean")...)

	// legal references
	s = append(s,
		legal("DIFC Law", `(?i)\bDIFC\s+Law\s+No\.?\s*\d+`, constants.JurisdictionUAEDIFC),
		legal("DIFC Courts", `(?i)\bDIFC\s+Courts?\b`, constants.JurisdictionUAEDIFC),
		legal("ADGM Regulations", `(?i)\bADGM\s+(?:[A-Z][a-z]+\s+)?Regulations\b`, constants.JurisdictionUAEADGM),
		legal("ADGM Courts", `(?i)\bADGM\s+Courts?\b`, constants.JurisdictionUAEADGM),
		legal("UAE Federal Law", `(?i)\bFederal\s+(?:Decree[- ])?Law\s+No\.?\s*\(?\d+\)?\s+of\s+\d{4}`, constants.JurisdictionUAEMainland),
		legal("UAE Civil Code", `(?i)\bUAE\s+Civil\s+(?:Code|Transactions\s+Law)\b`, constants.JurisdictionUAEMainland),
		legal("Indian Contract Act", `(?i)\bIndian\s+Contract\s+Act\b`, constants.JurisdictionIndia),
		legal("Arbitration and Conciliation Act", `(?i)\bArbitration\s+and\s+Conciliation\s+Act\b`, constants.JurisdictionIndia),
		legal("Information Technology Act", `(?i)\bInformation\s+Technology\s+Act,?\s+2000\b`, constants.JurisdictionIndia),
		legal("DGCL", `\bDGCL\b|(?i:\bDelaware\s+General\s+Corporation\s+Law\b)`, constants.JurisdictionUSADelaware),
		legal("Del. C.", `\b\d+\s+Del\.\s*C\.`, constants.JurisdictionUSADelaware),
		legal("Court of Chancery", `(?i)\bCourt\s+of\s+Chancery\b`, constants.JurisdictionUSADelaware),
		legal("NY General Obligations Law", `(?i)\b(?:N\.?\s?Y\.?|New\s+York)\s+Gen(?:eral|\.)?\s+Oblig(?:ations|\.)?\s+Law\b`, constants.JurisdictionUSANewYork),
		legal("California Civil Code", `(?i)\bCal(?:ifornia|\.)?\s+Civ(?:il|\.)?\s+Code\b`, constants.JurisdictionUSACalifornia),
		legal("Cal. Bus. & Prof. Code 16600", `(?i)\bSection\s+16600\b`, constants.JurisdictionUSACalifornia),
		legal("CCPA", `\bC[CP]PA\b`, constants.JurisdictionUSACalifornia),
		legal("Texas Business and Commerce Code", `(?i)\bTex(?:as|\.)?\s+Bus(?:iness|\.)?\s+(?:&|and)\s+Com(?:merce|\.)?\s+Code\b`, constants.JurisdictionUSATexas),
		legal("UCC", `\bU\.?C\.?C\.?(?:$|[^\w])|(?i:\bUniform\s+Commercial\s+Code\b)`, constants.JurisdictionUSAGeneral),
		legal("Federal Arbitration Act", `(?i)\bFederal\s+Arbitration\s+Act\b`, constants.JurisdictionUSAGeneral),
		legal("U.S.C.", `\b\d+\s+U\.S\.C\.`, constants.JurisdictionUSAGeneral),
		legal("BGB", `\bBGB\b|(?i:\bBürgerliches\s+Gesetzbuch\b)`, constants.JurisdictionEUGermany),
		legal("HGB", `\bHGB\b|(?i:\bHandelsgesetzbuch\b)`, constants.JurisdictionEUGermany),
		legal("Code civil", `(?i)\bCode\s+civil\b`, constants.JurisdictionEUFrance),
		legal("Code de commerce", `(?i)\bCode\s+de\s+commerce\b`, constants.JurisdictionEUFrance),
		legal("GDPR", `\bGDPR\b|(?i:\bGeneral\s+Data\s+Protection\s+Regulation\b)`, constants.JurisdictionEUGeneral),
		legal("EU Regulation", `(?i)\bRegulation\s+\((?:EU|EC)\)\s+(?:No\.?\s*)?\d+/\d+`, constants.JurisdictionEUGeneral),
		legal("Rome I", `(?i)\bRome\s+I\s+Regulation\b`, constants.JurisdictionEUGeneral),
		legal("Sale of Goods Act 1979", `(?i)\bSale\s+of\s+Goods\s+Act\s+1979\b`, constants.JurisdictionUK),
		legal("Arbitration Act 1996", `(?i)\bArbitration\s+Act\s+1996\b`, constants.JurisdictionUK),
		legal("Companies Act 2006", `(?i)\bCompanies\s+Act\s+2006\b`, constants.JurisdictionUK),
		legal("Contracts (Rights of Third Parties) Act 1999", `(?i)\bContracts\s+\(Rights\s+of\s+Third\s+Parties\)\s+Act\b`, constants.JurisdictionUK),
		legal("PDPA", `\bPDPA\b|(?i:\bPersonal\s+Data\s+Protection\s+Act\s+2012\b)`, constants.JurisdictionSingapore),
		legal("SIAC", `\bSIAC\b|(?i:\bSingapore\s+International\s+Arbitration\b)`, constants.JurisdictionSingapore),
	)

	// currency; a currency votes for every member of its region
	s = append(s,
		currency("USD", `(?:^|[^A-Za-z])(?:US)?\$|\bUSD\b`, usaAll),
		currency("EUR", `€|\bEUR\b|(?i:\beuros?\b)`, euAll),
		currency("GBP", `£|\bGBP\b|(?i:\bpounds?\s+sterling\b)`, []constants.Jurisdiction{constants.JurisdictionUK}),
		currency("INR", `₹|\bINR\b|\bRs\.|(?i:\brupees?\b)`, []constants.Jurisdiction{constants.JurisdictionIndia}),
		currency("AED", `\bAED\b|(?i:\bdirhams?\b)`, uaeAll),
		currency("SGD", `\bSGD\b|\bS\$`, []constants.Jurisdiction{constants.JurisdictionSingapore}),
	)

	for i := range s {
		if s[i].Kind == KindLocation {
			s[i].Name = strings.ToLower(s[i].Name)
		}
		if isFreeZone(s[i]) {
			s[i].Penalizes = mainlandOnly
		}
	}
	return s
}

// isFreeZone marks DIFC and ADGM evidence. Those free zones run their own
// courts and common law, so their mentions count against UAE/Mainland.
func isFreeZone(s Signal) bool {
	for _, t := range s.Targets {
		if t == constants.JurisdictionUAEDIFC || t == constants.JurisdictionUAEADGM {
			return true
		}
	}
	return false
}
