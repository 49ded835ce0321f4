package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// These tests need a live server; set REDIS_TEST_URL to run them.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	c, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTierBackend_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	b := NewTierBackend(c, "profilecache:test:")
	t.Cleanup(func() { _ = b.Clear(ctx) })

	if err := b.Set(ctx, "u1", `{"payload":1}`, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := b.Get(ctx, "u1")
	if err != nil || !ok || v != `{"payload":1}` {
		t.Fatalf("get = (%q, %v, %v)", v, ok, err)
	}

	keys, err := b.Keys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "u1" {
		t.Errorf("keys = %v, %v", keys, err)
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "u1"); ok {
		t.Error("expected key cleared")
	}
}

func TestSessionInspector_Blobs(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sessions := NewTierBackend(c, "profilecache:test-session:")
	t.Cleanup(func() { _ = sessions.Clear(ctx) })

	_ = sessions.Set(ctx, "a", `{"user":{"id":"u1"}}`, time.Minute)

	inspector := NewSessionInspector(c, "profilecache:test-session:*", 10)
	blobs, err := inspector.Blobs(ctx)
	if err != nil {
		t.Fatalf("blobs: %v", err)
	}
	if len(blobs) != 1 {
		t.Errorf("expected 1 blob, got %d", len(blobs))
	}
}

func TestNewClientFrom(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	c := NewClientFrom(redis.NewClient(opts))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	b := NewTierBackend(c, "profilecache:test-from:")
	t.Cleanup(func() { _ = b.Clear(ctx) })
	if err := b.Set(ctx, "u1", "blob", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := b.Get(ctx, "u1"); err != nil || !ok || v != "blob" {
		t.Errorf("get = (%q, %v, %v)", v, ok, err)
	}
}
