// Package memory provides an in-memory Store implementation used by tests
// and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openrecall/vectord/internal/store"
	"github.com/openrecall/vectord/pkg/models"
)

// Store keeps each user's collection in a map. Collections appear on first
// append, matching the lazy-creation semantics of the real engines.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]models.Record
	compactions map[string]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string][]models.Record),
		compactions: make(map[string]int),
	}
}

func (s *Store) Append(ctx context.Context, userID string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[userID] = append(s.collections[userID], records...)
	return nil
}

func (s *Store) Search(ctx context.Context, userID string, vector []float32, opts store.SearchOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	collection, ok := s.collections[userID]
	if !ok {
		return []models.Record{}, nil
	}

	type scored struct {
		rec   models.Record
		score float64
	}
	var matches []scored
	for _, r := range collection {
		if !store.MatchesFilter(r, opts.Filter) {
			continue
		}
		matches = append(matches, scored{rec: r, score: store.CosineSimilarity(vector, r.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]models.Record, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, store.Project(matches[i].rec, opts.SelectFields))
	}
	return out, nil
}

func (s *Store) SearchDetail(ctx context.Context, userID string, opts store.DetailOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	collection, ok := s.collections[userID]
	if !ok {
		return []models.Record{}, nil
	}

	var matches []models.Record
	for _, r := range collection {
		if store.MatchesFilter(r, opts.Filter) {
			matches = append(matches, r)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreateTime > matches[j].CreateTime })

	out := []models.Record{}
	for i := opts.Offset; i < len(matches) && len(out) < limit; i++ {
		out = append(out, store.Project(matches[i], opts.SelectFields))
	}
	return out, nil
}

func (s *Store) DeleteURLs(ctx context.Context, userID string, urls []string) error {
	doomed := make(map[string]bool, len(urls))
	for _, u := range urls {
		doomed[u] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	collection, ok := s.collections[userID]
	if !ok {
		return nil
	}
	kept := collection[:0]
	for _, r := range collection {
		if !doomed[r.URL] {
			kept = append(kept, r)
		}
	}
	s.collections[userID] = kept
	return nil
}

func (s *Store) Compact(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compactions[userID]++
	return nil
}

// Compactions reports how many times Compact ran for a user.
func (s *Store) Compactions(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compactions[userID]
}

// Count reports the number of stored records for a user.
func (s *Store) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[userID])
}
