// Package metadata reconciles caller-supplied video metadata with what the source reports.
package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/vidvault/internal/extractor"
)

const infoKeyPrefix = "info:"

// Cache keeps recently analyzed source documents in the state database so a
// save shortly after an analyze does not query the source again.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCache creates a cache over db. The metadata_cache table must exist.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

// PutInfo remembers the document analyzed for url. Formats are dropped; only
// descriptive fields are ever reused.
func (c *Cache) PutInfo(ctx context.Context, url string, info *extractor.Info, ttl time.Duration) error {
	if info == nil || url == "" {
		return nil
	}
	doc := *info
	doc.Formats = nil

	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	return c.put(ctx, infoKeyPrefix+url, data, ttl)
}

// Info returns the cached document for url, if one is still fresh.
// Unreadable rows count as misses.
func (c *Cache) Info(ctx context.Context, url string) (*extractor.Info, bool) {
	data, err := c.get(ctx, infoKeyPrefix+url)
	if err != nil {
		return nil, false
	}
	var info extractor.Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, false
	}
	return &info, true
}

// Forget drops the cached document for url.
func (c *Cache) Forget(ctx context.Context, url string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM metadata_cache WHERE key = ?", infoKeyPrefix+url); err != nil {
		return fmt.Errorf("cache forget: %w", err)
	}
	return nil
}

// Prune deletes expired rows and reports how many went.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM metadata_cache WHERE expires_at < ?", c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

var errMiss = errors.New("cache miss")

func (c *Cache) get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     string
		expiresAt time.Time
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM metadata_cache WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errMiss
	case err != nil:
		return nil, fmt.Errorf("cache get: %w", err)
	case c.now().After(expiresAt):
		return nil, errMiss
	}
	return []byte(value), nil
}

func (c *Cache) put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO metadata_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(value), c.now().Add(ttl).UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
