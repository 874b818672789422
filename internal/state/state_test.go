package state

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryStore_GuardExclusivity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TryMarkIndexing(ctx, "u1")
			if err != nil {
				t.Errorf("TryMarkIndexing() error = %v", err)
			}
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("got %d winning transitions, want exactly 1", winners.Load())
	}
	indexing, _ := s.IsIndexing(ctx, "u1")
	if !indexing {
		t.Error("user should be indexing after winning transition")
	}
}

func TestMemoryStore_ClearAllowsRetry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if ok, _ := s.TryMarkIndexing(ctx, "u1"); !ok {
		t.Fatal("first transition should win")
	}
	if ok, _ := s.TryMarkIndexing(ctx, "u1"); ok {
		t.Fatal("second transition should lose while indexing")
	}
	if err := s.ClearIndexing(ctx, "u1"); err != nil {
		t.Fatalf("ClearIndexing() error = %v", err)
	}
	if ok, _ := s.TryMarkIndexing(ctx, "u1"); !ok {
		t.Error("transition after clear should win again")
	}
}

func TestMemoryStore_FullyIndexedClearsIndexing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.TryMarkIndexing(ctx, "u1")
	if err := s.MarkFullyIndexed(ctx, "u1"); err != nil {
		t.Fatalf("MarkFullyIndexed() error = %v", err)
	}

	full, _ := s.IsFullyIndexed(ctx, "u1")
	indexing, _ := s.IsIndexing(ctx, "u1")
	if !full {
		t.Error("user should be fully indexed")
	}
	if indexing {
		t.Error("indexing and fully indexed must never both hold")
	}
}

func TestMemoryStore_URLTracking(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.AddURL(ctx, "u1", "https://a.example")
	if err != nil || n != 1 {
		t.Fatalf("AddURL() = %d, %v, want 1, nil", n, err)
	}
	// Re-adding the same URL does not grow the set.
	if n, _ = s.AddURL(ctx, "u1", "https://a.example"); n != 1 {
		t.Errorf("AddURL(duplicate) count = %d, want 1", n)
	}
	if n, _ = s.AddURL(ctx, "u1", "https://b.example"); n != 2 {
		t.Errorf("AddURL(second) count = %d, want 2", n)
	}

	if ok, _ := s.URLExists(ctx, "u1", "https://a.example"); !ok {
		t.Error("URLExists() should report indexed URL")
	}
	if ok, _ := s.URLExists(ctx, "u2", "https://a.example"); ok {
		t.Error("URLExists() must be scoped per user")
	}

	if err := s.AddErrorURL(ctx, "u1", "https://bad.example"); err != nil {
		t.Fatalf("AddErrorURL() error = %v", err)
	}
	if got := s.ErrorURLs("u1"); len(got) != 1 || got[0] != "https://bad.example" {
		t.Errorf("ErrorURLs() = %v", got)
	}
}
