package state

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. Used by tests and local
// single-instance deployments.
type MemoryStore struct {
	mu        sync.Mutex
	full      map[string]bool
	indexing  map[string]bool
	urls      map[string]map[string]bool
	errorURLs map[string]map[string]bool
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		full:      make(map[string]bool),
		indexing:  make(map[string]bool),
		urls:      make(map[string]map[string]bool),
		errorURLs: make(map[string]map[string]bool),
	}
}

func (s *MemoryStore) IsFullyIndexed(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full[userID], nil
}

func (s *MemoryStore) IsIndexing(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexing[userID], nil
}

func (s *MemoryStore) TryMarkIndexing(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexing[userID] {
		return false, nil
	}
	s.indexing[userID] = true
	return true, nil
}

func (s *MemoryStore) MarkFullyIndexed(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full[userID] = true
	delete(s.indexing, userID)
	return nil
}

func (s *MemoryStore) ClearIndexing(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexing, userID)
	return nil
}

func (s *MemoryStore) AddURL(ctx context.Context, userID, url string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.urls[userID] == nil {
		s.urls[userID] = make(map[string]bool)
	}
	s.urls[userID][url] = true
	return int64(len(s.urls[userID])), nil
}

func (s *MemoryStore) URLCount(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.urls[userID])), nil
}

func (s *MemoryStore) URLExists(ctx context.Context, userID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urls[userID][url], nil
}

func (s *MemoryStore) AddErrorURL(ctx context.Context, userID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errorURLs[userID] == nil {
		s.errorURLs[userID] = make(map[string]bool)
	}
	s.errorURLs[userID][url] = true
	return nil
}

// ErrorURLs lists the URLs recorded as failed for a user.
func (s *MemoryStore) ErrorURLs(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for u := range s.errorURLs[userID] {
		out = append(out, u)
	}
	return out
}
