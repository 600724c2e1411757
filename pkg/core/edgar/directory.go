package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sec_filings/pkg/core/utils"
)

const tickerSnapshotFile = "company_tickers.json"

// EntityRecord is one row of the public ticker directory. CanonicalID is
// the registrant's CIK with leading zeros stripped.
type EntityRecord struct {
	CanonicalID string `json:"cik"`
	Ticker      string `json:"ticker"`
	Title       string `json:"title"`
}

// Directory loads and indexes the full SEC ticker directory, keyed by
// uppercased ticker. The load is memoized for the process lifetime: once
// populated the map is never refreshed or mutated.
type Directory struct {
	client  *Client
	dataDir string
	persist bool
	log     *zap.Logger

	mu       sync.Mutex
	byTicker map[string]EntityRecord
}

// NewDirectory creates a directory backed by client. When persist is true
// a JSON snapshot is kept under dataDir so later process starts skip the
// network fetch.
func NewDirectory(client *Client, dataDir string, persist bool, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{client: client, dataDir: dataDir, persist: persist, log: log}
}

// Load returns the ticker → EntityRecord map, fetching it on first use.
// A readable snapshot is preferred over the network; a corrupt snapshot is
// discarded silently and triggers a refetch. Callers must treat the
// returned map as read-only.
func (d *Directory) Load(ctx context.Context) (map[string]EntityRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.byTicker != nil {
		return d.byTicker, nil
	}

	if d.persist {
		if m := d.loadSnapshot(); m != nil {
			d.byTicker = m
			return d.byTicker, nil
		}
	}

	m, err := d.fetchDirectory(ctx)
	if err != nil {
		return nil, err
	}
	d.byTicker = m

	if d.persist {
		d.writeSnapshot(m)
	}
	return d.byTicker, nil
}

// Lookup resolves a ticker to its directory record, uppercasing the input.
func (d *Directory) Lookup(ctx context.Context, ticker string) (EntityRecord, bool, error) {
	m, err := d.Load(ctx)
	if err != nil {
		return EntityRecord{}, false, err
	}
	rec, ok := m[strings.ToUpper(strings.TrimSpace(ticker))]
	return rec, ok, nil
}

func (d *Directory) snapshotPath() string {
	return filepath.Join(d.dataDir, tickerSnapshotFile)
}

func (d *Directory) loadSnapshot() map[string]EntityRecord {
	data, err := os.ReadFile(d.snapshotPath())
	if err != nil {
		return nil
	}
	var m map[string]EntityRecord
	if err := utils.DecodeTolerant(data, &m); err != nil || len(m) == 0 {
		d.log.Warn("discarding unreadable ticker snapshot", zap.String("path", d.snapshotPath()))
		return nil
	}
	d.log.Info("loaded ticker directory from snapshot", zap.Int("tickers", len(m)))
	return m
}

func (d *Directory) writeSnapshot(m map[string]EntityRecord) {
	if err := os.MkdirAll(d.dataDir, 0755); err != nil {
		d.log.Warn("cannot create data dir for ticker snapshot", zap.Error(err))
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := os.WriteFile(d.snapshotPath(), data, 0644); err != nil {
		d.log.Warn("cannot write ticker snapshot", zap.Error(err))
	}
}

// fetchDirectory pulls the full registry from the SEC and reduces it to a
// ticker-keyed map. Upstream format is an object with numeric string keys:
// {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func (d *Directory) fetchDirectory(ctx context.Context) (map[string]EntityRecord, error) {
	url := d.client.wwwBase + "/files/company_tickers.json"
	body, err := d.client.Fetch(ctx, url, AcceptJSON)
	if err != nil {
		return nil, fmt.Errorf("fetch company tickers: %w", err)
	}

	type tickerEntry struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	var raw map[string]tickerEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse company tickers: %w", err)
	}

	m := make(map[string]EntityRecord, len(raw))
	for _, entry := range raw {
		if entry.Ticker == "" {
			continue
		}
		m[strings.ToUpper(entry.Ticker)] = EntityRecord{
			CanonicalID: strconv.Itoa(entry.CIK),
			Ticker:      strings.ToUpper(entry.Ticker),
			Title:       entry.Title,
		}
	}

	d.log.Info("loaded ticker directory from SEC", zap.Int("tickers", len(m)))
	return m, nil
}
