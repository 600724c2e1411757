package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Form types this engine understands. 10-K is the narrative annual report;
// 13F-HR is the quarterly institutional holdings report. A request for the
// base form also matches its /A amendment.
const (
	Form10K = "10-K"
	Form13F = "13F-HR"
)

// Submissions is the per-entity submission history from
// data.sec.gov/submissions/CIK{padded}.json. The recent-filings block is
// columnar: parallel arrays indexed together.
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

// RecentFilings holds the columnar filing arrays.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// FilingEntry is one row of an entity's submission history.
type FilingEntry struct {
	FormType            string
	AccessionID         string
	FilingDate          string
	ReportDate          string
	PrimaryDocumentName string
}

// FetchSubmissions pulls the full submission history for a CIK.
func (c *Client) FetchSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBase, PadCIK(cik))
	body, err := c.Fetch(ctx, url, AcceptJSON)
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", cik, err)
	}

	var subs Submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("parse submissions for CIK %s: %w", cik, err)
	}
	return &subs, nil
}

// matchesFormFamily reports whether a filing's form string satisfies a
// requested form. The base form matches itself and its /A amendment.
func matchesFormFamily(filed, requested string) bool {
	return filed == requested || filed == requested+"/A"
}

// SelectFiling picks exactly one filing from a submission history.
// filingDate, when non-empty, must equal the entry's date portion (first
// 10 characters). filingYear, when non-zero, accepts an entry whose
// filing-date year OR report-date year equals it. All filters are ANDed.
// Selection is stable: the first match in upstream order wins, so
// identical inputs always yield the same entry.
func SelectFiling(subs *Submissions, formType, filingDate string, filingYear int) *FilingEntry {
	if subs == nil {
		return nil
	}
	recent := subs.Filings.Recent
	if len(recent.Form) == 0 {
		return nil
	}

	wantDate := ""
	if filingDate != "" {
		wantDate = truncateDate(filingDate)
	}

	for i, form := range recent.Form {
		if !matchesFormFamily(form, formType) {
			continue
		}
		entry := FilingEntry{
			FormType:    form,
			AccessionID: at(recent.AccessionNumber, i),
			FilingDate:  at(recent.FilingDate, i),
			ReportDate:  at(recent.ReportDate, i),
		}
		entry.PrimaryDocumentName = at(recent.PrimaryDocument, i)

		if wantDate != "" && truncateDate(entry.FilingDate) != wantDate {
			continue
		}
		if filingYear != 0 &&
			dateYear(entry.FilingDate) != filingYear &&
			dateYear(entry.ReportDate) != filingYear {
			continue
		}
		return &entry
	}
	return nil
}

// HasFormType reports whether any historical filing's form string starts
// with the requested type. Used to verify search candidates actually file
// the form the caller asked about.
func HasFormType(subs *Submissions, formType string) bool {
	if subs == nil {
		return false
	}
	for _, form := range subs.Filings.Recent.Form {
		if strings.HasPrefix(form, formType) {
			return true
		}
	}
	return false
}

// PadCIK normalizes a CIK to the 10-digit zero-padded form the
// submissions endpoint expects.
func PadCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	return fmt.Sprintf("%010s", cik)
}

// StripCIK removes leading zeros, yielding the canonical id form used in
// archive URLs and cache keys.
func StripCIK(cik string) string {
	stripped := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

func truncateDate(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}

func dateYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	fmt.Sscanf(date[:4], "%d", &year)
	return year
}

func at(xs []string, i int) string {
	if i < len(xs) {
		return xs[i]
	}
	return ""
}
