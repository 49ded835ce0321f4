package cache

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
)

func TestSweep_EvictsExpiredMemoryEntries(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.store.Set(ctx, "old", testProfile{Name: "old"}, domain.OriginAuthoritative)
	h.clock.Advance(memoryTTL + time.Second)
	h.store.Set(ctx, "new", testProfile{Name: "new"}, domain.OriginAuthoritative)

	n, ran := h.store.Sweep(ctx)
	if !ran {
		t.Fatal("expected sweep to run")
	}
	if n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if h.raw(t, h.memory, "old") != nil {
		t.Error("expected old entry swept from memory")
	}
	if h.raw(t, h.memory, "new") == nil {
		t.Error("expected fresh entry kept")
	}
	// Slower tiers are left for lazy expiry.
	if h.raw(t, h.session, "old") == nil {
		t.Error("sweep must only touch the memory tier")
	}
}

func TestSweep_SkipsWhenAlreadyRunning(t *testing.T) {
	h := newHarness(t, nil)
	h.store.sweeping.Store(true)

	if _, ran := h.store.Sweep(context.Background()); ran {
		t.Error("expected overlapping sweep to be skipped")
	}

	h.store.sweeping.Store(false)
	if _, ran := h.store.Sweep(context.Background()); !ran {
		t.Error("expected sweep to run once the prior run finished")
	}
}

func TestSweep_RepopulateAfterEviction(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.store.Set(ctx, "u1", testProfile{Name: "v1"}, domain.OriginAuthoritative)
	h.clock.Advance(memoryTTL + time.Second)
	h.store.Sweep(ctx)

	h.store.Set(ctx, "u1", testProfile{Name: "v2"}, domain.OriginAuthoritative)
	got, tier, ok := h.store.GetEntry(ctx, "u1")
	if !ok || tier != domain.TierMemory || got.Payload.Name != "v2" {
		t.Errorf("expected fresh memory hit, got %v %s %v", got, tier, ok)
	}
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.store.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
