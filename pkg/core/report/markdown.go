// Package report renders resolved filings into Markdown digests for the
// conversational caller.
package report

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"sec_filings/pkg/models"
)

// sectionPreviewLimit keeps the digest readable; full section text stays
// available on the structured response.
const sectionPreviewLimit = 1500

var sectionTitles = map[string]string{
	"business":             "Business",
	"risk_factors":         "Risk Factors",
	"legal_proceedings":    "Legal Proceedings",
	"mda":                  "Management's Discussion and Analysis",
	"financial_statements": "Financial Statements",
}

// RenderMarkdown produces a Markdown digest of a resolved filing:
// metadata header, section previews, and a holdings table when present.
func RenderMarkdown(filing *models.ResolvedFiling) (string, error) {
	var b strings.Builder
	meta := filing.Metadata

	fmt.Fprintf(&b, "# %s (%s)\n\n", meta.CompanyName, meta.FormType)
	fmt.Fprintf(&b, "- CIK: %s\n", meta.CanonicalID)
	if meta.Ticker != "" {
		fmt.Fprintf(&b, "- Ticker: %s\n", meta.Ticker)
	}
	fmt.Fprintf(&b, "- Accession: %s\n", meta.AccessionID)
	fmt.Fprintf(&b, "- Filed: %s\n", meta.FilingDate)
	if meta.ReportDate != "" {
		fmt.Fprintf(&b, "- Period: %s\n", meta.ReportDate)
	}
	fmt.Fprintf(&b, "- Document: %s\n", meta.PrimaryDocumentURL)
	if meta.Cached {
		b.WriteString("- Served from cache\n")
	}
	b.WriteString("\n")

	for _, key := range orderedSectionKeys(filing.Sections) {
		title := sectionTitles[key]
		if title == "" {
			title = key
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, truncate(filing.Sections[key], sectionPreviewLimit))
	}

	if len(filing.Holdings) > 0 {
		b.WriteString("## Holdings\n\n")
		if filing.HoldingsStats != nil {
			fmt.Fprintf(&b, "%d positions, $%.2fM reported value.\n\n",
				filing.HoldingsStats.TotalPositions, filing.HoldingsStats.TotalValueMillions)
		}
		b.WriteString("| Issuer | Class | Value ($K) | Shares |\n")
		b.WriteString("|---|---|---:|---:|\n")
		for _, h := range filing.Holdings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				h.IssuerName, h.ClassTitle, formatNumber(h.Value), formatNumber(h.Shares))
		}
		b.WriteString("\n")
	} else if filing.DegradedReason != "" {
		fmt.Fprintf(&b, "## Holdings\n\nHoldings unavailable: %s\n\n", filing.DegradedReason)
	}

	digest := strings.TrimSpace(b.String()) + "\n"
	if !validMarkdown(digest) {
		return "", fmt.Errorf("rendered digest failed markdown validation")
	}
	return digest, nil
}

// validMarkdown checks the digest parses. Goldmark is permissive, so this
// is a basic structural guard, same as the upstream renderer uses.
func validMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	return parser.Parse(text.NewReader([]byte(input))) != nil
}

func orderedSectionKeys(sections map[string]string) []string {
	ordered := []string{"business", "risk_factors", "legal_proceedings", "mda", "financial_statements"}
	keys := make([]string, 0, len(sections))
	for _, key := range ordered {
		if _, ok := sections[key]; ok {
			keys = append(keys, key)
		}
	}
	for key := range sections {
		if sectionTitles[key] == "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.TrimSpace(s[:limit]) + "..."
}

func formatNumber(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}
