package memory

import (
	"context"
	"sync"
)

// inMemoryStore implements Store using a map guarded by a mutex. Used in
// tests and single-process deployments.
type inMemoryStore struct {
	mu     sync.RWMutex
	scopes map[Scope]map[string]string
}

// NewInMemoryStore creates an in-process memory store.
func NewInMemoryStore() Store {
	return &inMemoryStore{
		scopes: make(map[Scope]map[string]string),
	}
}

// Put implements Store.
func (s *inMemoryStore) Put(ctx context.Context, scope Scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.scopes[scope]
	if !ok {
		entries = make(map[string]string)
		s.scopes[scope] = entries
	}
	entries[key] = value
	return nil
}

// Get implements Store.
func (s *inMemoryStore) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.scopes[scope]
	if !ok {
		return "", false, nil
	}
	value, ok := entries[key]
	return value, ok, nil
}

// List implements Store.
func (s *inMemoryStore) List(ctx context.Context, scope Scope) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[string]string, len(s.scopes[scope]))
	for k, v := range s.scopes[scope] {
		entries[k] = v
	}
	return entries, nil
}

// Purge implements Store.
func (s *inMemoryStore) Purge(ctx context.Context, scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scopes, scope)
	return nil
}

// Close implements Store.
func (s *inMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes = nil
	return nil
}
