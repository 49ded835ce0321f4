package cache

import (
	"container/list"
	"sync"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// staleSet keeps the most recently expired entries per key so that an
// expired record can still be served as a last resort. Bounded, LRU order.
type staleSet[T any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type staleItem[T any] struct {
	key   string
	entry *domain.Entry[T]
}

func newStaleSet[T any](capacity int) *staleSet[T] {
	return &staleSet[T]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// put remembers entry for key unless a newer one is already held.
func (s *staleSet[T]) put(key string, entry *domain.Entry[T]) {
	if s.capacity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		item := el.Value.(*staleItem[T])
		if entry.CreatedAt.After(item.entry.CreatedAt) || entry.CreatedAt.Equal(item.entry.CreatedAt) {
			item.entry = entry
		}
		s.order.MoveToFront(el)
		return
	}

	s.items[key] = s.order.PushFront(&staleItem[T]{key: key, entry: entry})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*staleItem[T]).key)
	}
}

func (s *staleSet[T]) get(key string) (*domain.Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*staleItem[T]).entry, true
}

func (s *staleSet[T]) remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		s.order.Remove(el)
		delete(s.items, key)
	}
}

func (s *staleSet[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order.Init()
	s.items = make(map[string]*list.Element)
}
