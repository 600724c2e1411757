package summary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"sec_filings/pkg/core/cache"
	"sec_filings/pkg/core/edgar"
)

type noWait struct{}

func (noWait) Wait(context.Context) error { return nil }

const appleSubmissions = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"tickers": ["AAPL"],
	"filings": {
		"recent": {
			"accessionNumber": ["0000320193-24-000123"],
			"filingDate": ["2024-11-01"],
			"reportDate": ["2024-09-28"],
			"form": ["10-K"],
			"primaryDocument": ["aapl-10k.htm"]
		}
	}
}`

const annualReportDoc = `<html><body>
<p>Item 1. Business</p>
<p>We design consumer electronics.</p>
<p>Item 1A. Risk Factors</p>
<p>Demand may fall.</p>
<p>Item 2. Properties</p>
<p>Offices in Cupertino.</p>
</body></html>`

const berkshireSubmissions = `{
	"cik": "1067983",
	"name": "BERKSHIRE HATHAWAY INC",
	"tickers": ["BRK-B"],
	"filings": {
		"recent": {
			"accessionNumber": ["0000950123-24-008740"],
			"filingDate": ["2024-08-14"],
			"reportDate": ["2024-06-30"],
			"form": ["13F-HR"],
			"primaryDocument": ["primary_doc.xml"]
		}
	}
}`

const holdingsIndex = `{
	"directory": {
		"item": [
			{"name": "primary_doc.xml", "type": "text.xml", "size": "2000"},
			{"name": "infotable.xml", "type": "text.xml", "size": "9000"}
		]
	}
}`

const holdingsTable = `<informationTable>
  <infoTable>
    <nameOfIssuer>APPLE INC</nameOfIssuer>
    <cusip>037833100</cusip>
    <value>5000</value>
  </infoTable>
  <infoTable>
    <nameOfIssuer>COCA COLA CO</nameOfIssuer>
    <cusip>191216100</cusip>
    <value>50000</value>
  </infoTable>
  <infoTable>
    <nameOfIssuer>BANK AMER CORP</nameOfIssuer>
    <cusip>060505104</cusip>
    <value>10000</value>
  </infoTable>
</informationTable>`

// newTestService wires a full service against a single test server, with
// a file cache rooted in a fresh temp dir.
func newTestService(t *testing.T, mux *http.ServeMux) (*Service, *httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := edgar.NewClient(
		edgar.WithBaseURLs(server.URL, server.URL, server.URL),
		edgar.WithLimiter(noWait{}),
		edgar.WithUserAgent("test-agent test@example.com"),
	)
	resolver := edgar.NewResolver(client, nil, nil)
	dir := t.TempDir()
	store := cache.New(dir, true, nil, nil)
	return NewService(client, resolver, store, nil), server, dir
}

func TestSummarizeAnnualReport(t *testing.T) {
	docFetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(appleSubmissions))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019324000123/aapl-10k.htm", func(w http.ResponseWriter, r *http.Request) {
		docFetches++
		w.Write([]byte(annualReportDoc))
	})

	svc, server, cacheDir := newTestService(t, mux)

	filing, err := svc.Summarize(context.Background(), Request{
		CIK:             "0000320193",
		IncludeSections: []string{"risk_factors"},
	})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	md := filing.Metadata
	if md.CompanyName != "Apple Inc." || md.Ticker != "AAPL" {
		t.Errorf("identity fields = %q / %q", md.CompanyName, md.Ticker)
	}
	if md.CanonicalID != "320193" || md.AccessionID != "0000320193-24-000123" {
		t.Errorf("filing identifiers = %q / %q", md.CanonicalID, md.AccessionID)
	}
	if md.FormType != "10-K" || md.FilingDate != "2024-11-01" {
		t.Errorf("form/date = %q / %q", md.FormType, md.FilingDate)
	}
	wantURL := server.URL + "/Archives/edgar/data/320193/000032019324000123/aapl-10k.htm"
	if md.PrimaryDocumentURL != wantURL {
		t.Errorf("primaryDocumentUrl = %q, want %q", md.PrimaryDocumentURL, wantURL)
	}
	if md.Cached {
		t.Error("first request reported as cached")
	}

	if len(filing.Sections) != 1 {
		t.Fatalf("sections = %v, want only risk_factors", filing.Sections)
	}
	if risk := filing.Sections["risk_factors"]; risk == "" {
		t.Error("risk_factors section empty")
	}

	// The maximal result must be on disk even though only one section
	// was requested.
	key := cache.Key("320193", "0000320193-24-000123")
	if _, err := os.Stat(cacheDir + "/" + key + ".json"); err != nil {
		t.Errorf("cached file missing: %v", err)
	}

	// Second identical request is served from cache: no second document
	// fetch, and a different section can still be narrowed out.
	again, err := svc.Summarize(context.Background(), Request{
		CIK:             "320193",
		IncludeSections: []string{"business"},
	})
	if err != nil {
		t.Fatalf("second summarize failed: %v", err)
	}
	if !again.Metadata.Cached {
		t.Error("second request not served from cache")
	}
	if again.Metadata.CachePath == "" {
		t.Error("cached response missing cache path")
	}
	if docFetches != 1 {
		t.Errorf("primary document fetched %d times, want 1", docFetches)
	}
	if _, ok := again.Sections["business"]; !ok {
		t.Errorf("business section missing from cached response: %v", again.Sections)
	}
}

func TestSummarizeHoldings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0001067983.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(berkshireSubmissions))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/primary_doc.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>13F-HR cover page</body></html>`))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(holdingsIndex))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/infotable.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(holdingsTable))
	})

	svc, server, _ := newTestService(t, mux)

	filing, err := svc.Summarize(context.Background(), Request{
		CIK:           "1067983",
		FormType:      edgar.Form13F,
		LimitHoldings: 2,
	})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if filing.DegradedReason != "" {
		t.Fatalf("unexpected degradation: %s", filing.DegradedReason)
	}
	if len(filing.Holdings) != 2 {
		t.Fatalf("got %d holdings, want 2 (limit applied): %+v", len(filing.Holdings), filing.Holdings)
	}
	if filing.Holdings[0].IssuerName != "COCA COLA CO" || filing.Holdings[1].IssuerName != "BANK AMER CORP" {
		t.Errorf("holdings not sorted by value: %+v", filing.Holdings)
	}

	// Stats cover the full table, not the limited slice.
	if filing.HoldingsStats == nil {
		t.Fatal("holdings stats missing")
	}
	if filing.HoldingsStats.TotalPositions != 3 {
		t.Errorf("TotalPositions = %d, want 3", filing.HoldingsStats.TotalPositions)
	}
	if filing.HoldingsStats.TotalValueMillions != 65.0 {
		t.Errorf("TotalValueMillions = %v, want 65.0", filing.HoldingsStats.TotalValueMillions)
	}

	wantTable := server.URL + "/Archives/edgar/data/1067983/000095012324008740/infotable.xml"
	if filing.Metadata.InformationTableURL != wantTable {
		t.Errorf("informationTableUrl = %q, want %q", filing.Metadata.InformationTableURL, wantTable)
	}
}

func TestSummarizeHoldingsDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0001067983.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(berkshireSubmissions))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/primary_doc.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>13F-HR cover page</body></html>`))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(holdingsIndex))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/infotable.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<informationTable></informationTable>`))
	})

	svc, _, _ := newTestService(t, mux)

	filing, err := svc.Summarize(context.Background(), Request{
		CIK:      "1067983",
		FormType: edgar.Form13F,
	})
	if err != nil {
		t.Fatalf("holdings failure must degrade, not fail: %v", err)
	}
	if filing.DegradedReason == "" {
		t.Fatal("expected a degraded reason")
	}
	if len(filing.Holdings) != 0 || filing.HoldingsStats != nil {
		t.Errorf("degraded response still carries holdings: %+v", filing)
	}
	// Metadata survives degradation.
	if filing.Metadata.AccessionID != "0000950123-24-008740" {
		t.Errorf("metadata lost in degraded response: %+v", filing.Metadata)
	}
}

func TestSummarizeDegradedResultNotCached(t *testing.T) {
	tableFetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0001067983.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(berkshireSubmissions))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/primary_doc.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>13F-HR cover page</body></html>`))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(holdingsIndex))
	})
	mux.HandleFunc("/Archives/edgar/data/1067983/000095012324008740/infotable.xml", func(w http.ResponseWriter, r *http.Request) {
		tableFetches++
		if tableFetches == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(holdingsTable))
	})

	svc, _, _ := newTestService(t, mux)
	req := Request{CIK: "1067983", FormType: edgar.Form13F}

	first, err := svc.Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("first summarize failed: %v", err)
	}
	if first.DegradedReason == "" {
		t.Fatal("first request should have degraded on the table outage")
	}
	if first.Metadata.CachePath != "" {
		t.Errorf("degraded result reported a cache path: %q", first.Metadata.CachePath)
	}

	// The outage was transient; the next request must retry the sub-path
	// instead of replaying the degraded result from cache.
	second, err := svc.Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("second summarize failed: %v", err)
	}
	if second.Metadata.Cached {
		t.Error("second request served the degraded result from cache")
	}
	if second.DegradedReason != "" {
		t.Errorf("second request still degraded: %s", second.DegradedReason)
	}
	if len(second.Holdings) == 0 || second.HoldingsStats == nil {
		t.Fatalf("second request missing holdings: %+v", second)
	}
	if tableFetches != 2 {
		t.Errorf("information table fetched %d times, want 2", tableFetches)
	}

	// Once the maximal result exists it is cached normally.
	third, err := svc.Summarize(context.Background(), req)
	if err != nil {
		t.Fatalf("third summarize failed: %v", err)
	}
	if !third.Metadata.Cached {
		t.Error("healthy result was not cached")
	}
	if tableFetches != 2 {
		t.Errorf("cached request refetched the table: %d fetches", tableFetches)
	}
}

func TestSummarizeNoFilingFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(appleSubmissions))
	})

	svc, _, _ := newTestService(t, mux)

	_, err := svc.Summarize(context.Background(), Request{
		CIK:      "320193",
		FormType: edgar.Form13F,
	})
	if err == nil {
		t.Fatal("expected NoFilingError for a form this entity never files")
	}
	var noFiling *NoFilingError
	if !errors.As(err, &noFiling) {
		t.Fatalf("expected *NoFilingError, got %T: %v", err, err)
	}
	if noFiling.FormType != edgar.Form13F || noFiling.CanonicalID != "320193" {
		t.Errorf("error fields = %+v", noFiling)
	}

	// Year filter with no match is also a structural miss.
	_, err = svc.Summarize(context.Background(), Request{CIK: "320193", FilingYear: 1999})
	if !errors.As(err, &noFiling) {
		t.Fatalf("expected *NoFilingError for unmatched year, got %v", err)
	}
	if noFiling.FilingYear != 1999 {
		t.Errorf("FilingYear = %d, want 1999", noFiling.FilingYear)
	}
}

func TestSummarizeFetchFailurePropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(appleSubmissions))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/000032019324000123/aapl-10k.htm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	svc, _, _ := newTestService(t, mux)

	_, err := svc.Summarize(context.Background(), Request{CIK: "320193"})
	var fetchErr *edgar.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *edgar.FetchError for primary document failure, got %T: %v", err, err)
	}
	if fetchErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", fetchErr.Status)
	}
}
