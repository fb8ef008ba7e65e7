package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PageCache is a SQLite-backed cache for fetched exercise pages.
type PageCache struct {
	db *sql.DB
}

// NewPageCache creates a page cache on an opened state database.
func NewPageCache(db *sql.DB) *PageCache {
	return &PageCache{db: db}
}

// Get retrieves a cached page by key.
// Returns nil, false if not found or expired.
func (c *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM page_cache WHERE key = ?", key,
	).Scan(&value, &expiresAt)

	if err != nil || time.Now().After(expiresAt) {
		return nil, false
	}

	return value, true
}

// Set stores a page with the given TTL.
func (c *PageCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UTC()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO page_cache (key, value, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached page.
func (c *PageCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM page_cache WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Prune removes all expired entries and returns how many were removed.
func (c *PageCache) Prune(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM page_cache WHERE expires_at < ?", time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return result.RowsAffected()
}
