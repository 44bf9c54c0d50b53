package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryResultStore implements ResultStore for testing and for runs that
// should not touch disk.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

// NewInMemoryResultStore creates a new in-memory store.
func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{
		results: make(map[string]Result),
	}
}

// Get retrieves a result by key. Returns nil if not found.
func (s *InMemoryResultStore) Get(ctx context.Context, key string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Put stores a result.
func (s *InMemoryResultStore) Put(ctx context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Key == "" {
		return fmt.Errorf("result key is required")
	}
	s.results[r.Key] = r
	return nil
}

// List returns results newest first.
func (s *InMemoryResultStore) List(ctx context.Context, limit int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.results))
	for _, r := range s.results {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].ComputedAt.Equal(results[j].ComputedAt) {
			return results[i].ComputedAt.After(results[j].ComputedAt)
		}
		return results[i].Key < results[j].Key
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Clear removes every result.
func (s *InMemoryResultStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.results)
	s.results = make(map[string]Result)
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryResultStore) Close() error {
	return nil
}
