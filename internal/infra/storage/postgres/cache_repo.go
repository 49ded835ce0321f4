package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/profilecache/internal/infra/storage"
)

// CacheRepo implements storage.Backend on the cache_entries table. It backs
// the durable tier.
type CacheRepo struct {
	db     *DB
	prefix string
}

var (
	_ storage.Backend = (*CacheRepo)(nil)
	_ storage.Scanner = (*CacheRepo)(nil)
)

// NewCacheRepo creates a durable tier backend namespaced by prefix.
func NewCacheRepo(db *DB, prefix string) *CacheRepo {
	return &CacheRepo{db: db, prefix: prefix}
}

func (r *CacheRepo) key(k string) string {
	return r.prefix + k
}

// Get returns the stored value if present and not past its row deadline.
func (r *CacheRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value,
		`SELECT value FROM cache_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		r.key(key))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, true, nil
}

// Set upserts the value. A positive ttl sets a row deadline.
func (r *CacheRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES (:key, :value, :expires_at, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		map[string]any{
			"key":        r.key(key),
			"value":      value,
			"expires_at": expiresAt,
		})
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepo) Remove(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, r.key(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key LIKE $1`, escapeLike(r.prefix)+"%"); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

// Keys returns the unprefixed keys of live rows.
func (r *CacheRepo) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.SelectContext(ctx, &keys,
		`SELECT key FROM cache_entries WHERE key LIKE $1 AND (expires_at IS NULL OR expires_at > now()) ORDER BY key`,
		escapeLike(r.prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, r.prefix)
	}
	return keys, nil
}

// DeleteExpired removes rows past their deadline and returns how many went.
func (r *CacheRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key LIKE $1 AND expires_at IS NOT NULL AND expires_at <= now()`,
		escapeLike(r.prefix)+"%")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}
	return res.RowsAffected()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
