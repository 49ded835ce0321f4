package cache

import (
	"context"
	"time"

	"github.com/vietddude/profilecache/internal/infra/storage"
)

// Sweep evicts expired entries from every swept tier whose backend can list
// its keys. It returns the number of evicted entries and false when another
// sweep was already running, in which case nothing is done.
//
// Sweep is not synchronized with Set: a key re-populated after eviction is
// simply a fresh entry.
func (s *Store[T]) Sweep(ctx context.Context) (int, bool) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return 0, false
	}
	defer s.sweeping.Store(false)

	now := s.clock.Now()
	evicted := 0

	for i, t := range s.tiers {
		if !t.Swept {
			continue
		}
		scanner, ok := t.Backend.(storage.Scanner)
		if !ok {
			continue
		}

		keys, err := scanner.Keys(ctx)
		if err != nil {
			s.fail(i, "keys", "*", err)
			continue
		}

		for _, key := range keys {
			if ctx.Err() != nil {
				return evicted, true
			}
			entry, ok := s.readRaw(ctx, i, key)
			if !ok || !entry.Expired(now) {
				continue
			}
			s.stale.put(key, entry)
			if err := t.Backend.Remove(ctx, key); err != nil {
				s.fail(i, "remove", key, err)
				continue
			}
			s.stats.evictions.Add(1)
			evicted++
		}
	}

	return evicted, true
}

// RunSweeper sweeps every interval until ctx is done. It blocks; run it in
// its own goroutine.
func (s *Store[T]) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, ran := s.Sweep(ctx); ran && n > 0 {
				s.log.Debug("Swept expired entries", "count", n)
			}
		}
	}
}
