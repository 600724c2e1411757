package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Query is a loose identifier for a filer. Any combination of fields may
// be set; resolution tries them in authority order.
type Query struct {
	Ticker      string
	CIK         string
	CompanyName string
}

// Identity is a resolved filer.
type Identity struct {
	CanonicalID string
	Ticker      string
	CompanyName string
}

// ResolutionError reports that no strategy produced a canonical id. It
// carries the original query term for user-facing diagnosis.
type ResolutionError struct {
	Query string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q to an SEC registrant; check the spelling or supply a ticker or CIK", e.Query)
}

// fuzzyMatchThreshold guards against one- or two-letter spurious
// substring matches in directory title scans.
const fuzzyMatchThreshold = 3

// Resolver turns loose identifiers into canonical CIKs using, in order:
// direct CIK, ticker directory lookup, curated overrides, directory fuzzy
// title match, and upstream free-text search.
type Resolver struct {
	client    *Client
	directory *Directory
	log       *zap.Logger
}

// NewResolver creates a resolver over the given client and directory.
func NewResolver(client *Client, directory *Directory, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{client: client, directory: directory, log: log}
}

// Resolve produces a canonical identity for q. formType, when non-empty,
// scopes the override table and lets the network search verify that the
// candidate actually files the requested form. First strategy to succeed
// wins; a supplied CIK is authoritative and skips all search.
func (r *Resolver) Resolve(ctx context.Context, q Query, formType string) (Identity, error) {
	if strings.TrimSpace(q.CIK) != "" {
		return Identity{
			CanonicalID: StripCIK(q.CIK),
			Ticker:      strings.ToUpper(strings.TrimSpace(q.Ticker)),
			CompanyName: q.CompanyName,
		}, nil
	}

	if strings.TrimSpace(q.Ticker) != "" {
		rec, ok, err := r.directory.Lookup(ctx, q.Ticker)
		if err != nil {
			r.log.Warn("ticker directory unavailable", zap.Error(err))
		} else if ok {
			return Identity{CanonicalID: rec.CanonicalID, Ticker: rec.Ticker, CompanyName: rec.Title}, nil
		}
	}

	// Name search: explicit company name first, unresolved ticker as a
	// last-resort search term.
	name := strings.TrimSpace(q.CompanyName)
	if name == "" {
		name = strings.TrimSpace(q.Ticker)
	}
	if name != "" {
		if id := r.searchByName(ctx, name, formType); id != nil {
			return *id, nil
		}
	}

	term := q.CompanyName
	if term == "" {
		term = q.Ticker
	}
	return Identity{}, &ResolutionError{Query: term}
}

// searchByName runs the name sub-pipeline: curated overrides, directory
// fuzzy title match, then upstream free-text search. A nil return is the
// normal exhausted outcome, not a failure; only Resolve converts it into
// a ResolutionError.
func (r *Resolver) searchByName(ctx context.Context, name, formType string) *Identity {
	// Overrides are curated for institutional 13F filers; skip them when
	// the caller asked for a different form.
	if formType == "" || strings.HasPrefix(formType, Form13F) {
		if entry, ok := lookupOverride(name); ok {
			r.log.Debug("resolved via override table",
				zap.String("name", name),
				zap.String("cik", entry.CanonicalID),
			)
			return &Identity{CanonicalID: entry.CanonicalID, CompanyName: entry.DisplayName}
		}
	}

	if id := r.fuzzyDirectoryMatch(ctx, name); id != nil {
		return id
	}

	return r.upstreamSearch(ctx, name, formType)
}

// fuzzyDirectoryMatch scans every directory title for the best overlap
// with the query. Exact case-insensitive equality short-circuits the scan;
// otherwise the score is the length of the contained string when either
// contains the other. A match needs a score of at least
// fuzzyMatchThreshold, and ties keep the first-encountered entry.
func (r *Resolver) fuzzyDirectoryMatch(ctx context.Context, name string) *Identity {
	dir, err := r.directory.Load(ctx)
	if err != nil {
		r.log.Warn("skipping fuzzy directory match", zap.Error(err))
		return nil
	}

	query := strings.ToLower(strings.TrimSpace(name))
	var best *EntityRecord
	bestScore := 0

	for ticker := range dir {
		rec := dir[ticker]
		title := strings.ToLower(rec.Title)

		if title == query {
			return &Identity{CanonicalID: rec.CanonicalID, Ticker: rec.Ticker, CompanyName: rec.Title}
		}

		score := 0
		if strings.Contains(title, query) {
			score = len(query)
		} else if strings.Contains(query, title) {
			score = len(title)
		}
		if score >= fuzzyMatchThreshold && score > bestScore {
			bestScore = score
			best = &rec
		}
	}

	if best == nil {
		return nil
	}
	return &Identity{CanonicalID: best.CanonicalID, Ticker: best.Ticker, CompanyName: best.Title}
}

var (
	displayNameCIKRe = regexp.MustCompile(`CIK (\d{1,10})`)
	accessionCIKRe   = regexp.MustCompile(`^(\d{10})-\d{2}-\d{6}`)
	nonDigitRe       = regexp.MustCompile(`\D`)
	browseCIKRe      = regexp.MustCompile(`(?i)CIK=(\d{1,10})|<CIK>(\d{1,10})</CIK>`)
)

// eftsResponse is the shape of a full-text search hit list from
// efts.sec.gov.
type eftsResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				DisplayNames []string `json:"display_names"`
				CIK          string   `json:"cik"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// upstreamSearch queries the EDGAR full-text search endpoint, falling
// back to the legacy company-browse endpoint. When formType is set, the
// candidate's submission history is fetched to confirm at least one
// historical filing of that type; if the verification fetch itself fails,
// the unverified candidate is accepted as best-effort.
func (r *Resolver) upstreamSearch(ctx context.Context, name, formType string) *Identity {
	if id := r.fullTextSearch(ctx, name, formType); id != nil {
		if r.verifyFormType(ctx, id, formType) {
			return id
		}
	}
	if id := r.companyBrowse(ctx, name, formType); id != nil {
		if r.verifyFormType(ctx, id, formType) {
			return id
		}
	}
	return nil
}

func (r *Resolver) fullTextSearch(ctx context.Context, name, formType string) *Identity {
	searchURL := fmt.Sprintf("%s/LATEST/search-index?q=%s",
		r.client.eftsBase, url.QueryEscape(`"`+name+`"`))
	if formType != "" {
		searchURL += "&forms=" + url.QueryEscape(formType)
	}

	body, err := r.client.Fetch(ctx, searchURL, AcceptJSON)
	if err != nil {
		r.log.Warn("full-text search unavailable", zap.String("name", name), zap.Error(err))
		return nil
	}

	var resp eftsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		r.log.Warn("full-text search returned unparseable payload", zap.Error(err))
		return nil
	}

	for _, hit := range resp.Hits.Hits {
		// Preference order: CIK embedded in a display name, CIK prefix of
		// an accession-style _id, then the raw cik field.
		for _, display := range hit.Source.DisplayNames {
			if m := displayNameCIKRe.FindStringSubmatch(display); m != nil {
				return &Identity{CanonicalID: StripCIK(m[1]), CompanyName: displayBaseName(display)}
			}
		}
		if m := accessionCIKRe.FindStringSubmatch(hit.ID); m != nil {
			return &Identity{CanonicalID: StripCIK(m[1]), CompanyName: name}
		}
		if cik := StripCIK(nonDigitRe.ReplaceAllString(hit.Source.CIK, "")); cik != "0" {
			return &Identity{CanonicalID: cik, CompanyName: name}
		}
	}
	return nil
}

// companyBrowse hits the legacy browse-edgar endpoint, which answers with
// an XML-ish company page; the CIK is scraped out of it.
func (r *Resolver) companyBrowse(ctx context.Context, name, formType string) *Identity {
	browseURL := fmt.Sprintf(
		"%s/cgi-bin/browse-edgar?action=getcompany&company=%s&type=%s&output=atom&count=10",
		r.client.wwwBase, url.QueryEscape(name), url.QueryEscape(formType))

	body, err := r.client.Fetch(ctx, browseURL, AcceptXML)
	if err != nil {
		r.log.Warn("company browse unavailable", zap.String("name", name), zap.Error(err))
		return nil
	}

	if m := browseCIKRe.FindSubmatch(body); m != nil {
		cik := string(m[1])
		if cik == "" {
			cik = string(m[2])
		}
		return &Identity{CanonicalID: StripCIK(cik), CompanyName: name}
	}
	return nil
}

// verifyFormType confirms the candidate files the requested form type.
// Returns true when formType is empty, when the history confirms it, or
// when the verification fetch fails (best-effort acceptance).
func (r *Resolver) verifyFormType(ctx context.Context, id *Identity, formType string) bool {
	if formType == "" {
		return true
	}
	subs, err := r.client.FetchSubmissions(ctx, id.CanonicalID)
	if err != nil {
		r.log.Warn("accepting unverified search candidate",
			zap.String("cik", id.CanonicalID),
			zap.Error(err),
		)
		return true
	}
	if !HasFormType(subs, formType) {
		r.log.Debug("search candidate rejected: no filings of requested type",
			zap.String("cik", id.CanonicalID),
			zap.String("form", formType),
		)
		return false
	}
	if subs.Name != "" {
		id.CompanyName = subs.Name
	}
	return true
}

// displayBaseName strips the trailing "(TICK) (CIK 0000...)" decorations
// from an EDGAR display name.
func displayBaseName(display string) string {
	if i := strings.Index(display, "("); i > 0 {
		return strings.TrimSpace(display[:i])
	}
	return strings.TrimSpace(display)
}
