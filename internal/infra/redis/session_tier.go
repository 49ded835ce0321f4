package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/profilecache/internal/infra/storage"
)

// TierBackend stores cache entries in Redis under a key prefix. It backs
// the session tier, shared by every process pointed at the same server.
type TierBackend struct {
	client *Client
	prefix string
}

var (
	_ storage.Backend = (*TierBackend)(nil)
	_ storage.Scanner = (*TierBackend)(nil)
)

// NewTierBackend creates a Redis tier backend namespaced by prefix.
func NewTierBackend(client *Client, prefix string) *TierBackend {
	return &TierBackend{client: client, prefix: prefix}
}

func (b *TierBackend) key(k string) string {
	return b.prefix + k
}

func (b *TierBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.rdb.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

func (b *TierBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.rdb.Set(ctx, b.key(key), value, ttl).Err(); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

func (b *TierBackend) Remove(ctx context.Context, key string) error {
	if err := b.client.rdb.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

func (b *TierBackend) Clear(ctx context.Context) error {
	keys, err := b.client.scan(ctx, b.prefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Keys returns the unprefixed keys held by this tier.
func (b *TierBackend) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.client.scan(ctx, b.prefix+"*")
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, b.prefix)
	}
	return keys, nil
}

// classifyWriteError maps Redis OOM replies onto storage.ErrQuotaExceeded.
func classifyWriteError(err error) error {
	if strings.HasPrefix(err.Error(), "OOM") {
		return fmt.Errorf("set failed: %w: %v", storage.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("set failed: %w", err)
}
