package edgar

import "strings"

// OverrideEntry is a curated alias → CIK mapping for well-known filers
// whose names collide with unrelated registrants or who are missing from
// the public ticker directory (institutional managers mostly file 13F
// without a listed ticker).
type OverrideEntry struct {
	CanonicalID string
	DisplayName string
}

// knownEntityOverrides maps lowercase name aliases, including multi-word
// phrases, to verified CIKs. Consulted before any network search. The CIKs
// were verified against EDGAR by hand; keep entries sorted by alias.
var knownEntityOverrides = map[string]OverrideEntry{
	"appaloosa":                {"1656456", "Appaloosa LP"},
	"appaloosa management":     {"1656456", "Appaloosa LP"},
	"ark invest":               {"1697748", "ARK Investment Management LLC"},
	"ark investment":           {"1697748", "ARK Investment Management LLC"},
	"baupost":                  {"1061768", "Baupost Group LLC"},
	"baupost group":            {"1061768", "Baupost Group LLC"},
	"berkshire":                {"1067983", "Berkshire Hathaway Inc"},
	"berkshire hathaway":       {"1067983", "Berkshire Hathaway Inc"},
	"blackrock":                {"1364742", "BlackRock Inc."},
	"blackrock inc":            {"1364742", "BlackRock Inc."},
	"bridgewater":              {"1350694", "Bridgewater Associates LP"},
	"bridgewater associates":   {"1350694", "Bridgewater Associates LP"},
	"citadel":                  {"1423053", "Citadel Advisors LLC"},
	"citadel advisors":         {"1423053", "Citadel Advisors LLC"},
	"duquesne":                 {"1536411", "Duquesne Family Office LLC"},
	"duquesne family office":   {"1536411", "Duquesne Family Office LLC"},
	"elliott":                  {"1791786", "Elliott Investment Management LP"},
	"elliott management":       {"1791786", "Elliott Investment Management LP"},
	"fidelity":                 {"315066", "FMR LLC"},
	"fmr":                      {"315066", "FMR LLC"},
	"geode":                    {"1214717", "Geode Capital Management LLC"},
	"geode capital":            {"1214717", "Geode Capital Management LLC"},
	"goldman sachs":            {"886982", "Goldman Sachs Group Inc"},
	"greenlight":               {"1079114", "Greenlight Capital Inc"},
	"greenlight capital":       {"1079114", "Greenlight Capital Inc"},
	"jane street":              {"1595888", "Jane Street Group LLC"},
	"jpmorgan":                 {"19617", "JPMorgan Chase & Co"},
	"jpmorgan chase":           {"19617", "JPMorgan Chase & Co"},
	"lone pine":                {"1061165", "Lone Pine Capital LLC"},
	"lone pine capital":        {"1061165", "Lone Pine Capital LLC"},
	"millennium":               {"1273087", "Millennium Management LLC"},
	"millennium management":    {"1273087", "Millennium Management LLC"},
	"morgan stanley":           {"895421", "Morgan Stanley"},
	"pershing square":          {"1336528", "Pershing Square Capital Management LP"},
	"point72":                  {"1603466", "Point72 Asset Management LP"},
	"renaissance":              {"1037389", "Renaissance Technologies LLC"},
	"renaissance technologies": {"1037389", "Renaissance Technologies LLC"},
	"scion":                    {"1649339", "Scion Asset Management LLC"},
	"scion asset management":   {"1649339", "Scion Asset Management LLC"},
	"soros":                    {"1029160", "Soros Fund Management LLC"},
	"soros fund management":    {"1029160", "Soros Fund Management LLC"},
	"state street":             {"93751", "State Street Corp"},
	"t rowe price":             {"1113169", "T. Rowe Price Group Inc"},
	"t. rowe price":            {"1113169", "T. Rowe Price Group Inc"},
	"third point":              {"1040273", "Third Point LLC"},
	"tiger global":             {"1167483", "Tiger Global Management LLC"},
	"two sigma":                {"1179392", "Two Sigma Investments LP"},
	"two sigma investments":    {"1179392", "Two Sigma Investments LP"},
	"vanguard":                 {"102909", "Vanguard Group Inc"},
	"vanguard group":           {"102909", "Vanguard Group Inc"},
	"vanguard group inc":       {"102909", "Vanguard Group Inc"},
	"viking global":            {"1103804", "Viking Global Investors LP"},
	"wellington":               {"902219", "Wellington Management Group LLP"},
	"wellington management":    {"902219", "Wellington Management Group LLP"},
}

// lookupOverride matches name against the curated table. The exact
// lowercase form is tried first; on a miss, trailing whitespace-delimited
// words are dropped one at a time (longest prefix first), so an input like
// "vanguard group inc latest holdings" still lands on the
// "vanguard group inc" alias.
func lookupOverride(name string) (OverrideEntry, bool) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for end := len(words); end > 0; end-- {
		candidate := strings.Join(words[:end], " ")
		if entry, ok := knownEntityOverrides[candidate]; ok {
			return entry, true
		}
	}
	return OverrideEntry{}, false
}
