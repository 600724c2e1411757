// Package cache persists resolved filings so repeat requests skip the
// fetch and parse work. Storage is a hybrid vault: a Postgres table when a
// pool is configured, JSON files under the data directory always. With
// the self-hosted capability off the cache is a no-op in both directions.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sec_filings/pkg/core/utils"
	"sec_filings/pkg/models"
)

// Key derives the cache key for a filing. It depends only on the
// canonical id (leading zeros stripped) and the accession id (dashes
// stripped), so every identifier that resolves to the same filing hits
// the same entry.
func Key(cik, accession string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if cik == "" {
		cik = "0"
	}
	return fmt.Sprintf("%s-%s", cik, strings.ReplaceAll(accession, "-", ""))
}

// FilingCache is a read-through/write-through store of maximal resolved
// filings. Reads narrow the stored payload per request; the stored copy
// is never rewritten.
type FilingCache struct {
	enabled bool
	dir     string
	pool    *pgxpool.Pool
	log     *zap.Logger
}

// New creates a filing cache rooted at dir. enabled is the self-hosted
// capability gate: when false, Read always misses and Write does nothing.
// pool may be nil for file-only operation.
func New(dir string, enabled bool, pool *pgxpool.Pool, log *zap.Logger) *FilingCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &FilingCache{enabled: enabled, dir: dir, pool: pool, log: log}
}

// EnsureSchema creates the backing table. No-op without a pool.
func (c *FilingCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS filing_summaries (
			key        TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure filing_summaries schema: %w", err)
	}
	return nil
}

// Read returns the stored summary for key, or absent. Corrupt stored
// content is treated as a miss, never an error.
func (c *FilingCache) Read(ctx context.Context, key string) (*models.StoredSummary, bool) {
	if !c.enabled {
		return nil, false
	}

	if c.pool != nil {
		if stored := c.readDB(ctx, key); stored != nil {
			return stored, true
		}
	}

	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		return nil, false
	}
	var stored models.StoredSummary
	if err := utils.DecodeTolerant(data, &stored); err != nil || stored.Metadata.AccessionID == "" {
		c.log.Warn("discarding corrupt cached filing", zap.String("key", key))
		return nil, false
	}
	return &stored, true
}

// Write persists the maximal summary under key and returns the file path
// it landed at. A disabled cache does nothing and returns an empty path.
func (c *FilingCache) Write(ctx context.Context, key string, stored *models.StoredSummary) (string, error) {
	if !c.enabled {
		return "", nil
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cached filing %s: %w", key, err)
	}

	if c.pool != nil {
		if err := c.writeDB(ctx, key, data, stored); err != nil {
			c.log.Warn("db cache write failed, file tier still applies", zap.Error(err))
		}
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	path := c.filePath(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write cached filing %s: %w", key, err)
	}
	return path, nil
}

func (c *FilingCache) filePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Path reports where a key lives on disk. Empty when caching is disabled.
func (c *FilingCache) Path(key string) string {
	if !c.enabled {
		return ""
	}
	return c.filePath(key)
}

func (c *FilingCache) readDB(ctx context.Context, key string) *models.StoredSummary {
	var payload []byte
	err := c.pool.QueryRow(ctx,
		`SELECT payload FROM filing_summaries WHERE key = $1`, key).Scan(&payload)
	if err != nil {
		return nil
	}
	var stored models.StoredSummary
	if err := json.Unmarshal(payload, &stored); err != nil {
		c.log.Warn("discarding corrupt db cache row", zap.String("key", key))
		return nil
	}
	return &stored
}

func (c *FilingCache) writeDB(ctx context.Context, key string, payload []byte, stored *models.StoredSummary) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO filing_summaries (key, payload, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET payload = $2, fetched_at = $3`,
		key, payload, stored.FetchedAt)
	return err
}

// NarrowView produces a per-request view over a stored summary: sections
// filtered to the requested subset, holdings re-sliced to the requested
// limit. The stored payload itself is never mutated; the cache always
// keeps the maximal result and narrows per request.
func NarrowView(stored *models.StoredSummary, includeSections []string, limitHoldings int) *models.ResolvedFiling {
	view := stored.ResolvedFiling

	if len(includeSections) > 0 && len(view.Sections) > 0 {
		filtered := make(map[string]string, len(includeSections))
		for _, key := range includeSections {
			if text, ok := view.Sections[key]; ok {
				filtered[key] = text
			}
		}
		view.Sections = filtered
	}

	if limitHoldings > 0 && len(view.Holdings) > limitHoldings {
		view.Holdings = view.Holdings[:limitHoldings]
	}

	return &view
}
