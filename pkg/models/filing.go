// Package models holds the shared response shapes of the filing engine.
package models

import (
	"time"

	"sec_filings/pkg/core/extract"
)

// FilingMetadata identifies one resolved filing and where its documents
// live.
type FilingMetadata struct {
	CompanyName         string `json:"companyName"`
	Ticker              string `json:"ticker,omitempty"`
	CanonicalID         string `json:"cik"`
	FormType            string `json:"formType"`
	AccessionID         string `json:"accessionNumber"`
	FilingDate          string `json:"filingDate"`
	ReportDate          string `json:"reportDate,omitempty"`
	PrimaryDocumentURL  string `json:"primaryDocumentUrl"`
	InformationTableURL string `json:"informationTableUrl,omitempty"`
	Cached              bool   `json:"cached"`
	CachePath           string `json:"cachePath,omitempty"`
}

// ResolvedFiling is the unit of caching and the unit returned to callers.
// Sections holds narrative text keyed by section key; Holdings and
// HoldingsStats are present only for tabular filings that parsed.
type ResolvedFiling struct {
	Metadata      FilingMetadata          `json:"metadata"`
	Sections      map[string]string       `json:"sections,omitempty"`
	Holdings      []extract.HoldingRecord `json:"holdings,omitempty"`
	HoldingsStats *extract.HoldingsStats  `json:"holdingsStats,omitempty"`

	// DegradedReason explains why holdings are absent from a tabular
	// filing whose narrative portion still succeeded.
	DegradedReason string `json:"degradedReason,omitempty"`
}

// StoredSummary is the on-disk/in-DB cache payload: the maximal resolved
// filing plus the fetch timestamp, which live responses don't carry.
type StoredSummary struct {
	ResolvedFiling
	FetchedAt time.Time `json:"fetchedAt"`
}
