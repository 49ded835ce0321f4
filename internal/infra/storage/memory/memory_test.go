package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/profilecache/internal/infra/storage"
)

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || v != "1" {
		t.Fatalf("expected (1, true, nil), got (%q, %v, %v)", v, ok, err)
	}

	_ = s.Remove(ctx, "a")
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("expected key removed")
	}
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	s := NewStore(WithClock(func() time.Time { return now }))

	_ = s.Set(ctx, "a", "1", time.Second)
	now = now.Add(2 * time.Second)

	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("expected expired key to be absent")
	}
	if s.Len() != 0 {
		t.Errorf("expected expired key dropped on read, len=%d", s.Len())
	}
}

func TestStore_ExpiredReadKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	var s *Store
	raced := false
	s = NewStore(WithClock(func() time.Time {
		// The expiry check on Get is the first clock read after the stale
		// write below; land a fresh write right there.
		if !raced && now.After(time.Unix(1000, 0)) {
			raced = true
			_ = s.Set(ctx, "k", "fresh", 0)
		}
		return now
	}))

	_ = s.Set(ctx, "k", "old", time.Second)
	now = now.Add(2 * time.Second)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected the expired read to miss")
	}
	v, ok, _ := s.Get(ctx, "k")
	if !ok || v != "fresh" {
		t.Errorf("expected concurrent write kept, got (%q, %v)", v, ok)
	}
}

func TestStore_Quota(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithMaxItems(1))

	if err := s.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	if err := s.Set(ctx, "b", "2", 0); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Errorf("expected quota error, got %v", err)
	}
	// Overwriting an existing key is always allowed.
	if err := s.Set(ctx, "a", "3", 0); err != nil {
		t.Errorf("overwrite failed: %v", err)
	}
}

func TestStore_KeysAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.Set(ctx, "b", "2", 0)
	_ = s.Set(ctx, "a", "1", 0)

	keys, _ := s.Keys(ctx)
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	_ = s.Clear(ctx)
	if s.Len() != 0 {
		t.Errorf("expected empty store after clear, len=%d", s.Len())
	}
}
