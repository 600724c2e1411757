// Package summary orchestrates the full filing pipeline: resolve the
// entity, pick a filing from its history, serve from cache or fetch and
// extract, then persist the maximal result.
package summary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sec_filings/pkg/core/cache"
	"sec_filings/pkg/core/edgar"
	"sec_filings/pkg/core/extract"
	"sec_filings/pkg/models"
)

// DefaultHoldingsLimit caps returned holdings when the caller doesn't say.
const DefaultHoldingsLimit = 25

// Request is the single inbound shape from the orchestration layer. Any
// of Ticker, CIK, CompanyName may identify the entity.
type Request struct {
	Ticker          string   `json:"ticker,omitempty"`
	CIK             string   `json:"cik,omitempty"`
	CompanyName     string   `json:"companyName,omitempty"`
	FormType        string   `json:"formType,omitempty"` // "10-K" or "13F-HR"
	FilingDate      string   `json:"filingDate,omitempty"`
	FilingYear      int      `json:"filingYear,omitempty"`
	IncludeSections []string `json:"includeSections,omitempty"`
	LimitHoldings   int      `json:"limitHoldings,omitempty"`
}

// NoFilingError means the entity resolved but no submission matched the
// form/date/year filters. The message names the entity and filters so a
// caller can tell a structural miss from a transient one.
type NoFilingError struct {
	CompanyName string
	CanonicalID string
	FormType    string
	FilingDate  string
	FilingYear  int
}

func (e *NoFilingError) Error() string {
	msg := fmt.Sprintf("no %s filing found for %s (CIK %s)", e.FormType, e.CompanyName, e.CanonicalID)
	if e.FilingDate != "" {
		msg += fmt.Sprintf(" filed on %s", e.FilingDate)
	}
	if e.FilingYear != 0 {
		msg += fmt.Sprintf(" for year %d", e.FilingYear)
	}
	return msg + "; this entity may simply not file this form, so retrying the same request will not help"
}

// HoldingsOutcome is the result of the tabular sub-path. Exactly one of
// Holdings or DegradedReason is meaningful: a populated DegradedReason
// means the sub-path failed and the response degrades to narrative and
// metadata only.
type HoldingsOutcome struct {
	Holdings       []extract.HoldingRecord
	Stats          *extract.HoldingsStats
	TableURL       string
	DegradedReason string
}

// Service composes the resolver, fetcher, extractors and cache into the
// public entry point.
type Service struct {
	client   *edgar.Client
	resolver *edgar.Resolver
	store    *cache.FilingCache
	log      *zap.Logger
}

// NewService wires a summary service. All collaborators are required
// except log, which defaults to a no-op logger.
func NewService(client *edgar.Client, resolver *edgar.Resolver, store *cache.FilingCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, resolver: resolver, store: store, log: log}
}

// Summarize resolves the request to exactly one filing and returns its
// extracted content. Repeat requests for the same filing are served from
// the cache, narrowed to the requested sections and holdings limit.
func (s *Service) Summarize(ctx context.Context, req Request) (*models.ResolvedFiling, error) {
	formType := req.FormType
	if formType == "" {
		formType = edgar.Form10K
	}
	limit := req.LimitHoldings
	if limit <= 0 {
		limit = DefaultHoldingsLimit
	}

	identity, err := s.resolver.Resolve(ctx, edgar.Query{
		Ticker:      req.Ticker,
		CIK:         req.CIK,
		CompanyName: req.CompanyName,
	}, formType)
	if err != nil {
		return nil, err
	}

	subs, err := s.client.FetchSubmissions(ctx, identity.CanonicalID)
	if err != nil {
		return nil, err
	}

	entry := edgar.SelectFiling(subs, formType, req.FilingDate, req.FilingYear)
	if entry == nil {
		return nil, &NoFilingError{
			CompanyName: companyName(identity, subs),
			CanonicalID: identity.CanonicalID,
			FormType:    formType,
			FilingDate:  req.FilingDate,
			FilingYear:  req.FilingYear,
		}
	}

	key := cache.Key(identity.CanonicalID, entry.AccessionID)
	if stored, ok := s.store.Read(ctx, key); ok {
		s.log.Info("serving filing from cache", zap.String("key", key))
		view := cache.NarrowView(stored, req.IncludeSections, limit)
		view.Metadata.Cached = true
		view.Metadata.CachePath = s.store.Path(key)
		return view, nil
	}

	stored, err := s.fetchAndExtract(ctx, identity, subs, entry, formType)
	if err != nil {
		return nil, err
	}

	// A degraded result is not maximal, so it never enters the cache;
	// the next request for this filing retries the holdings sub-path.
	if stored.DegradedReason != "" {
		s.log.Info("skipping cache write for degraded result", zap.String("key", key))
		return cache.NarrowView(stored, req.IncludeSections, limit), nil
	}

	path, err := s.store.Write(ctx, key, stored)
	if err != nil {
		s.log.Warn("filing cache write failed", zap.String("key", key), zap.Error(err))
	} else if path != "" {
		stored.Metadata.CachePath = path
	}

	return cache.NarrowView(stored, req.IncludeSections, limit), nil
}

// fetchAndExtract builds the maximal resolved filing: every extractable
// section, the full sorted holdings list. Narrowing to the request
// happens afterwards so the cache keeps the complete result.
func (s *Service) fetchAndExtract(ctx context.Context, identity edgar.Identity, subs *edgar.Submissions, entry *edgar.FilingEntry, formType string) (*models.StoredSummary, error) {
	primaryURL := s.client.ArchiveURL(identity.CanonicalID, entry.AccessionID, entry.PrimaryDocumentName)

	metadata := models.FilingMetadata{
		CompanyName:        companyName(identity, subs),
		Ticker:             ticker(identity, subs),
		CanonicalID:        identity.CanonicalID,
		FormType:           entry.FormType,
		AccessionID:        entry.AccessionID,
		FilingDate:         entry.FilingDate,
		ReportDate:         entry.ReportDate,
		PrimaryDocumentURL: primaryURL,
	}

	body, err := s.client.Fetch(ctx, primaryURL, edgar.AcceptHTML)
	if err != nil {
		return nil, err
	}
	sections := extract.ExtractSections(string(body), nil)

	filing := models.ResolvedFiling{Metadata: metadata, Sections: sections}

	if isHoldingsForm(formType) {
		outcome := s.fetchHoldings(ctx, identity.CanonicalID, entry)
		if outcome.DegradedReason != "" {
			s.log.Warn("holdings extraction degraded",
				zap.String("cik", identity.CanonicalID),
				zap.String("accession", entry.AccessionID),
				zap.String("reason", outcome.DegradedReason),
			)
			filing.DegradedReason = outcome.DegradedReason
		} else {
			filing.Holdings = outcome.Holdings
			filing.HoldingsStats = outcome.Stats
			filing.Metadata.InformationTableURL = outcome.TableURL
		}
	}

	return &models.StoredSummary{ResolvedFiling: filing, FetchedAt: time.Now().UTC()}, nil
}

// fetchHoldings runs the tabular sub-path. Every failure inside it is
// caught and reported as a degraded outcome instead of failing the whole
// request.
func (s *Service) fetchHoldings(ctx context.Context, cik string, entry *edgar.FilingEntry) HoldingsOutcome {
	docs, err := s.client.FetchFilingIndex(ctx, cik, entry.AccessionID)
	if err != nil {
		return HoldingsOutcome{DegradedReason: fmt.Sprintf("filing index unavailable: %v", err)}
	}

	table := edgar.SelectInformationTable(docs, entry.PrimaryDocumentName)
	if table == nil {
		return HoldingsOutcome{DegradedReason: "no information table found in filing index"}
	}

	xmlBody, err := s.client.Fetch(ctx, table.URL, edgar.AcceptXML)
	if err != nil {
		return HoldingsOutcome{DegradedReason: fmt.Sprintf("information table fetch failed: %v", err)}
	}

	holdings, err := extract.ParseHoldings(xmlBody)
	if err != nil {
		return HoldingsOutcome{DegradedReason: fmt.Sprintf("information table parse failed: %v", err)}
	}

	// Holdings are always stored sorted descending by value; the request
	// limit is applied on the way out, never here.
	extract.SortHoldingsByValue(holdings)
	stats := extract.ComputeHoldingsStats(holdings)
	return HoldingsOutcome{Holdings: holdings, Stats: &stats, TableURL: table.URL}
}

func isHoldingsForm(formType string) bool {
	return formType == edgar.Form13F || formType == edgar.Form13F+"/A"
}

func companyName(identity edgar.Identity, subs *edgar.Submissions) string {
	if subs != nil && subs.Name != "" {
		return subs.Name
	}
	return identity.CompanyName
}

func ticker(identity edgar.Identity, subs *edgar.Submissions) string {
	if identity.Ticker != "" {
		return identity.Ticker
	}
	if subs != nil && len(subs.Tickers) > 0 {
		return subs.Tickers[0]
	}
	return ""
}
