package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQuotaExceeded is returned by a backend that refuses a write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is a string key-value store backing one cache tier. Any method may
// fail; callers in the cache layer swallow and count those failures.
type Backend interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A ttl <= 0 means the backend keeps the
	// value until it is removed.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear removes every key owned by this backend.
	Clear(ctx context.Context) error
}

// Scanner is implemented by backends that can enumerate their keys.
type Scanner interface {
	Keys(ctx context.Context) ([]string, error)
}
