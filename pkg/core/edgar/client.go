// Package edgar resolves loose company identifiers against SEC EDGAR and
// locates filings in an entity's submission history.
//
// This package uses the following external libraries:
//   - golang.org/x/time/rate: global request spacing against the SEC hosts
//   - go.uber.org/zap: structured logging
package edgar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	dataBaseURL = "https://data.sec.gov"
	wwwBaseURL  = "https://www.sec.gov"
	eftsBaseURL = "https://efts.sec.gov"

	// SEC fair-access policy asks automated clients to identify themselves
	// and keep request rates modest. One request per 150ms is well inside
	// the published 10 req/s ceiling.
	minRequestInterval = 150 * time.Millisecond

	defaultUserAgent = "FilingDesk admin@filingdesk.io"
	userAgentEnvVar  = "SEC_USER_AGENT"

	bodyPreviewLimit = 512
)

// Accept header values for the payload types EDGAR serves.
const (
	AcceptJSON = "application/json"
	AcceptHTML = "text/html"
	AcceptXML  = "application/xml, text/xml"
)

// FetchError is returned when an upstream host answers with a non-2xx
// status. BodyPreview holds at most the first 512 bytes of the response.
type FetchError struct {
	URL         string
	Status      int
	BodyPreview string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("edgar fetch %s: HTTP %d: %s", e.URL, e.Status, e.BodyPreview)
}

// HTTPDoer performs HTTP requests. *http.Client implements it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Limiter gates outbound requests. *rate.Limiter implements it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Client is a rate-limited HTTP client for the SEC EDGAR hosts. The limiter
// is a single process-wide gate: all requests issued through one Client are
// spaced by at least minRequestInterval in dispatch order, no matter how
// many goroutines call into it.
type Client struct {
	http      HTTPDoer
	limiter   Limiter
	userAgent string
	log       *zap.Logger

	// Overridable for tests.
	dataBase string
	wwwBase  string
	eftsBase string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) { c.http = doer }
}

// WithLimiter replaces the rate gate. Useful to make tests instant.
func WithLimiter(l Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithUserAgent overrides the identification header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithBaseURLs points the client at alternate hosts. Tests use this to
// route all three endpoint families at a single httptest server.
func WithBaseURLs(data, www, efts string) ClientOption {
	return func(c *Client) {
		c.dataBase = data
		c.wwwBase = www
		c.eftsBase = efts
	}
}

// NewClient creates an EDGAR client. The identification header comes from
// the SEC_USER_AGENT environment variable when set.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(minRequestInterval), 1),
		userAgent: defaultUserAgent,
		log:       zap.NewNop(),
		dataBase:  dataBaseURL,
		wwwBase:   wwwBaseURL,
		eftsBase:  eftsBaseURL,
	}
	if ua := os.Getenv(userAgentEnvVar); ua != "" {
		c.userAgent = ua
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a single rate-limited GET. accept selects the Accept
// header (AcceptJSON when empty). Non-2xx responses return a *FetchError
// carrying the status and a truncated body preview. No retries happen at
// this layer; retry policy belongs to callers.
func (c *Client) Fetch(ctx context.Context, url string, accept string) ([]byte, error) {
	if accept == "" {
		accept = AcceptJSON
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create GET request for %q: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit GET %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit))
		c.log.Warn("upstream rejected request",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &FetchError{URL: url, Status: resp.StatusCode, BodyPreview: string(preview)}
	}

	return io.ReadAll(resp.Body)
}
