package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SessionInspector reads raw session blobs written by the auth layer.
type SessionInspector struct {
	client  *Client
	pattern string
	limit   int
}

// NewSessionInspector creates an inspector that reads keys matching pattern,
// at most limit blobs per call (0 = unlimited).
func NewSessionInspector(client *Client, pattern string, limit int) *SessionInspector {
	return &SessionInspector{client: client, pattern: pattern, limit: limit}
}

// Blobs returns the raw session values currently stored.
func (s *SessionInspector) Blobs(ctx context.Context) ([]string, error) {
	keys, err := s.client.scan(ctx, s.pattern)
	if err != nil {
		return nil, err
	}
	if s.limit > 0 && len(keys) > s.limit {
		keys = keys[:s.limit]
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	blobs := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			blobs = append(blobs, str)
		}
	}
	return blobs, nil
}
