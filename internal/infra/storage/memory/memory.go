package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/profilecache/internal/infra/storage"
)

type item struct {
	value    string
	deadline time.Time
}

// Store is a process-local backend. It also serves as the session and
// durable tier when Redis or PostgreSQL are not configured.
type Store struct {
	mu       sync.RWMutex
	items    map[string]item
	maxItems int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxItems caps the number of stored keys; writes of new keys beyond the
// cap fail with storage.ErrQuotaExceeded.
func WithMaxItems(n int) Option {
	return func(s *Store) { s.maxItems = n }
}

// WithClock overrides the time source used for ttl bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty memory backend.
func NewStore(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]item),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	_ storage.Backend = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !it.deadline.IsZero() && !s.now().Before(it.deadline) {
		s.mu.Lock()
		// A Set may have replaced the item since the read lock was released.
		if cur, ok := s.items[key]; ok && cur.deadline.Equal(it.deadline) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return it.value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists && s.maxItems > 0 && len(s.items) >= s.maxItems {
		return storage.ErrQuotaExceeded
	}

	it := item{value: value}
	if ttl > 0 {
		it.deadline = s.now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]item)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys, including ones not yet detected as expired.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
