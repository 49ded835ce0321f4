package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// DefaultStaleCapacity bounds the number of expired entries kept for reuse.
const DefaultStaleCapacity = 1024

// Options configures a Store.
type Options[T any] struct {
	// SchemaVersion is stamped on every entry; entries carrying another
	// version read as misses.
	SchemaVersion string

	// Eligible decides whether an authoritative payload may be written to
	// durable tiers. Nil admits every authoritative payload.
	Eligible func(key string, payload T) bool

	// StaleGrace extends the backend deadline of non-swept tiers past the
	// logical expiry so expired entries remain readable for stale reuse.
	StaleGrace time.Duration

	// StaleCapacity bounds the in-process set of expired entries. Zero uses
	// DefaultStaleCapacity; negative disables it.
	StaleCapacity int

	Clock  Clock
	Logger *slog.Logger
}

// Store is a tiered cache of subject records. It is safe for concurrent use.
type Store[T any] struct {
	tiers         []Tier
	schemaVersion string
	eligible      func(string, T) bool
	staleGrace    time.Duration
	clock         Clock
	log           *slog.Logger

	stats    counters
	stale    *staleSet[T]
	sweeping atomic.Bool
}

// New creates a Store over tiers ordered fastest first. TTLs must strictly
// increase along the list.
func New[T any](tiers []Tier, opts Options[T]) (*Store[T], error) {
	if err := validateTiers(tiers); err != nil {
		return nil, fmt.Errorf("invalid tiers: %w", err)
	}

	staleCap := opts.StaleCapacity
	if staleCap == 0 {
		staleCap = DefaultStaleCapacity
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Store[T]{
		tiers:         append([]Tier(nil), tiers...),
		schemaVersion: opts.SchemaVersion,
		eligible:      opts.Eligible,
		staleGrace:    opts.StaleGrace,
		clock:         clock,
		log:           log.With("component", "cache"),
		stale:         newStaleSet[T](staleCap),
	}
	s.stats.tiers = make([]tierCounters, len(tiers))
	return s, nil
}

// Tiers returns the configured tiers in lookup order.
func (s *Store[T]) Tiers() []Tier {
	return append([]Tier(nil), s.tiers...)
}

// Get returns the cached payload for key.
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	entry, _, ok := s.GetEntry(ctx, key)
	if !ok {
		var zero T
		return zero, false
	}
	return entry.Payload, true
}

// GetEntry returns the first valid entry for key together with the tier that
// served it. Each tier consulted records exactly one hit or miss.
func (s *Store[T]) GetEntry(ctx context.Context, key string) (*domain.Entry[T], domain.Tier, bool) {
	now := s.clock.Now()

	for i := range s.tiers {
		entry, ok := s.readValid(ctx, i, key, now)
		if !ok {
			s.stats.tiers[i].misses.Add(1)
			continue
		}
		s.stats.tiers[i].hits.Add(1)
		if i > 0 {
			s.promote(ctx, key, entry, i, now)
		}
		return entry, s.tiers[i].Name, true
	}
	return nil, "", false
}

// Set stores payload under key in every tier that accepts it. Failures are
// counted and logged, never returned.
func (s *Store[T]) Set(ctx context.Context, key string, payload T, origin domain.Origin) {
	now := s.clock.Now()
	entry := &domain.Entry[T]{
		Payload:       payload,
		CreatedAt:     now,
		SchemaVersion: s.schemaVersion,
		Origin:        origin,
	}

	for i, t := range s.tiers {
		if t.Durable && !s.durableEligible(key, entry) {
			continue
		}
		s.write(ctx, i, key, entry.WithExpiry(now.Add(t.TTL)))
	}
}

// Invalidate removes key from every tier and from the stale set.
func (s *Store[T]) Invalidate(ctx context.Context, key string) {
	s.stale.remove(key)
	for i, t := range s.tiers {
		if err := t.Backend.Remove(ctx, key); err != nil {
			s.fail(i, "remove", key, err)
		}
	}
}

// InvalidateAll empties every tier and the stale set.
func (s *Store[T]) InvalidateAll(ctx context.Context) {
	s.stale.clear()
	for i, t := range s.tiers {
		if err := t.Backend.Clear(ctx); err != nil {
			s.fail(i, "clear", "*", err)
		}
	}
}

// Stats returns a snapshot of the store counters.
func (s *Store[T]) Stats() Stats {
	return s.stats.snapshot(s.tiers)
}

// Stale returns the most recent entry known for key, ignoring expiry. It does
// not touch hit/miss counters and never promotes.
func (s *Store[T]) Stale(ctx context.Context, key string) (*domain.Entry[T], bool) {
	best, found := s.stale.get(key)

	for i := range s.tiers {
		entry, ok := s.readRaw(ctx, i, key)
		if !ok || entry.SchemaVersion != s.schemaVersion {
			continue
		}
		if !found || entry.CreatedAt.After(best.CreatedAt) {
			best, found = entry, true
		}
	}

	if found {
		s.stats.staleReads.Add(1)
	}
	return best, found
}

// readValid reads and validates the entry in tier i. Expired or foreign
// schema entries are removed from the tier.
func (s *Store[T]) readValid(ctx context.Context, i int, key string, now time.Time) (*domain.Entry[T], bool) {
	entry, ok := s.readRaw(ctx, i, key)
	if !ok {
		return nil, false
	}

	if entry.SchemaVersion != s.schemaVersion {
		s.log.Debug("Schema version mismatch",
			"tier", s.tiers[i].Name, "key", key,
			"have", entry.SchemaVersion, "want", s.schemaVersion)
		s.evict(ctx, i, key)
		return nil, false
	}

	if entry.Expired(now) {
		s.stale.put(key, entry)
		s.evict(ctx, i, key)
		return nil, false
	}

	return entry, true
}

func (s *Store[T]) readRaw(ctx context.Context, i int, key string) (*domain.Entry[T], bool) {
	blob, ok, err := s.tiers[i].Backend.Get(ctx, key)
	if err != nil {
		s.fail(i, "get", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	entry, err := decode[T](blob)
	if err != nil {
		s.fail(i, "decode", key, err)
		s.evict(ctx, i, key)
		return nil, false
	}
	return entry, true
}

// promote copies entry into every tier faster than tier hit. CreatedAt is
// kept; ExpiresAt follows the destination tier's TTL.
func (s *Store[T]) promote(ctx context.Context, key string, entry *domain.Entry[T], hit int, now time.Time) {
	for j := 0; j < hit; j++ {
		t := s.tiers[j]
		if t.Durable && !s.durableEligible(key, entry) {
			continue
		}
		if s.write(ctx, j, key, entry.WithExpiry(now.Add(t.TTL))) {
			s.stats.promotions.Add(1)
		}
	}
}

func (s *Store[T]) write(ctx context.Context, i int, key string, entry *domain.Entry[T]) bool {
	blob, err := encode(entry)
	if err != nil {
		s.fail(i, "encode", key, err)
		return false
	}

	t := s.tiers[i]
	var ttl time.Duration
	if !t.Swept {
		ttl = t.TTL + s.staleGrace
	}

	if err := t.Backend.Set(ctx, key, blob, ttl); err != nil {
		s.fail(i, "set", key, err)
		return false
	}
	s.stats.writes.Add(1)
	return true
}

func (s *Store[T]) evict(ctx context.Context, i int, key string) {
	if err := s.tiers[i].Backend.Remove(ctx, key); err != nil {
		s.fail(i, "remove", key, err)
		return
	}
	s.stats.evictions.Add(1)
}

func (s *Store[T]) durableEligible(key string, entry *domain.Entry[T]) bool {
	if entry.Origin != domain.OriginAuthoritative {
		return false
	}
	return s.eligible == nil || s.eligible(key, entry.Payload)
}

func (s *Store[T]) fail(i int, op, key string, err error) {
	s.stats.tiers[i].errors.Add(1)
	s.log.Warn("Cache storage failure",
		"tier", s.tiers[i].Name, "op", op, "key", key, "error", err)
}
