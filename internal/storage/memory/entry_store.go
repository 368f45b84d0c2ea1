package memory

import (
	"context"
	"slices"
	"sync"

	"farcaster-tv/internal/storage"
)

// EntryStore is an in-memory implementation of storage.EntryStore.
type EntryStore struct {
	mu   sync.RWMutex
	data map[string]*storage.Entry // keyed by entry key
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		data: make(map[string]*storage.Entry),
	}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

// Get retrieves an entry by key. Returns ErrNotFound if not exists.
func (s *EntryStore) Get(_ context.Context, key string) (*storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyEntry(e), nil
}

// Put inserts or replaces an entry.
func (s *EntryStore) Put(_ context.Context, e *storage.Entry) error {
	if !storage.ValidEntry(e) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[e.Key] = copyEntry(e)
	return nil
}

// DeleteByTag removes every entry carrying tag.
func (s *EntryStore) DeleteByTag(_ context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.data {
		if slices.Contains(e.Tags, tag) {
			delete(s.data, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyEntry(e *storage.Entry) *storage.Entry {
	c := *e
	c.Value = slices.Clone(e.Value)
	c.Tags = slices.Clone(e.Tags)
	return &c
}
