package constants

// Jurisdiction is one label from the closed set the detector can emit.
type Jurisdiction string

const (
	JurisdictionUAEDIFC       Jurisdiction = "UAE/DIFC"
	JurisdictionUAEADGM       Jurisdiction = "UAE/ADGM"
	JurisdictionUAEMainland   Jurisdiction = "UAE/Mainland"
	JurisdictionIndia         Jurisdiction = "India"
	JurisdictionUSADelaware   Jurisdiction = "USA/Delaware"
	JurisdictionUSANewYork    Jurisdiction = "USA/NewYork"
	JurisdictionUSACalifornia Jurisdiction = "USA/California"
	JurisdictionUSATexas      Jurisdiction = "USA/Texas"
	JurisdictionUSAGeneral    Jurisdiction = "USA/General"
	JurisdictionEUGermany     Jurisdiction = "EU/Germany"
	JurisdictionEUFrance      Jurisdiction = "EU/France"
	JurisdictionEUGeneral     Jurisdiction = "EU/General"
	JurisdictionUK            Jurisdiction = "UK"
	JurisdictionSingapore     Jurisdiction = "Singapore"
	JurisdictionUnknown       Jurisdiction = "Unknown"
)

type jurisdictionInfo struct {
	region      string
	sub         string
	specificity int
}

// Order matters: it is the last-resort tie-break for the detector.
var allJurisdictions = []Jurisdiction{
	JurisdictionUAEDIFC,
	JurisdictionUAEADGM,
	JurisdictionUAEMainland,
	JurisdictionIndia,
	JurisdictionUSADelaware,
	JurisdictionUSANewYork,
	JurisdictionUSACalifornia,
	JurisdictionUSATexas,
	JurisdictionUSAGeneral,
	JurisdictionEUGermany,
	JurisdictionEUFrance,
	JurisdictionEUGeneral,
	JurisdictionUK,
	JurisdictionSingapore,
}

var jurisdictionInfos = map[Jurisdiction]jurisdictionInfo{
	JurisdictionUAEDIFC:       {region: "UAE", sub: "DIFC", specificity: 2},
	JurisdictionUAEADGM:       {region: "UAE", sub: "ADGM", specificity: 2},
	JurisdictionUAEMainland:   {region: "UAE", sub: "Mainland", specificity: 2},
	JurisdictionIndia:         {region: "India", specificity: 1},
	JurisdictionUSADelaware:   {region: "USA", sub: "Delaware", specificity: 2},
	JurisdictionUSANewYork:    {region: "USA", sub: "New York", specificity: 2},
	JurisdictionUSACalifornia: {region: "USA", sub: "California", specificity: 2},
	JurisdictionUSATexas:      {region: "USA", sub: "Texas", specificity: 2},
	JurisdictionUSAGeneral:    {region: "USA", specificity: 1},
	JurisdictionEUGermany:     {region: "EU", sub: "Germany", specificity: 2},
	JurisdictionEUFrance:      {region: "EU", sub: "France", specificity: 2},
	JurisdictionEUGeneral:     {region: "EU", specificity: 1},
	JurisdictionUK:            {region: "UK", specificity: 1},
	JurisdictionSingapore:     {region: "Singapore", specificity: 1},
	JurisdictionUnknown:       {region: "Unknown", specificity: 0},
}

// AllJurisdictions lists every detectable jurisdiction; Unknown is not included.
func AllJurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, len(allJurisdictions))
	copy(out, allJurisdictions)
	return out
}

// Region returns the top-level region ("USA" for USA/Delaware).
func (j Jurisdiction) Region() string {
	if info, ok := jurisdictionInfos[j]; ok {
		return info.region
	}
	return "Unknown"
}

// SubJurisdiction returns the sub-region, or "" for region-level labels.
func (j Jurisdiction) SubJurisdiction() string {
	return jurisdictionInfos[j].sub
}

// Specificity ranks how narrow a label is: 2 for a sub-jurisdiction, 1 for a
// region-wide or national label, 0 for Unknown.
func (j Jurisdiction) Specificity() int {
	return jurisdictionInfos[j].specificity
}

// Order is the position in the closed set, used to keep ties deterministic.
func (j Jurisdiction) Order() int {
	for i, cand := range allJurisdictions {
		if cand == j {
			return i
		}
	}
	return len(allJurisdictions)
}

// IsValid reports whether j belongs to the closed set (Unknown included).
func (j Jurisdiction) IsValid() bool {
	_, ok := jurisdictionInfos[j]
	return ok
}

// ParseJurisdiction accepts the canonical label, case-sensitively.
func ParseJurisdiction(s string) (Jurisdiction, bool) {
	j := Jurisdiction(s)
	if j.IsValid() {
		return j, true
	}
	return JurisdictionUnknown, false
}
