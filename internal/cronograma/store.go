package cronograma

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists schedule items. Every mutation leaves orders dense 1..N.
type Store interface {
	Create(ctx context.Context, item *Item) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	Replace(ctx context.Context, id string, item *Item) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) ([]Item, error)
}

// MemoryStore keeps items in process memory for the life of the process
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Item), now: time.Now}
}

// Create appends item at the end. item.ID must already be set.
func (s *MemoryStore) Create(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item.Order = len(s.items) + 1
	item.CreatedAt, item.UpdatedAt = now, now
	s.items[item.ID] = *item
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

// Replace overwrites the editable fields of id, keeping its position
func (s *MemoryStore) Replace(_ context.Context, id string, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	item.ID = id
	item.Order = current.Order
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = s.now()
	s.items[id] = *item
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	for i, item := range s.sorted() {
		item.Order = i + 1
		s.items[item.ID] = item
	}
	return nil
}

func (s *MemoryStore) Reorder(_ context.Context, ids []string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkPermutation(ids, len(s.items), func(id string) bool {
		_, ok := s.items[id]
		return ok
	}); err != nil {
		return nil, err
	}

	now := s.now()
	for i, id := range ids {
		item := s.items[id]
		item.Order = i + 1
		item.UpdatedAt = now
		s.items[id] = item
	}
	return s.sorted(), nil
}

func (s *MemoryStore) sorted() []Item {
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sortByOrder(out)
	return out
}

func sortByOrder(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].ID < items[j].ID
	})
}

// checkPermutation reports ErrInvalidOrder unless ids names each of the n
// existing items exactly once
func checkPermutation(ids []string, n int, exists func(string) bool) error {
	if len(ids) != n {
		return ErrInvalidOrder
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !exists(id) {
			return ErrInvalidOrder
		}
		seen[id] = true
	}
	return nil
}
