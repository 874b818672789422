// Package store defines the per-user vector collection facade. Every
// operation is scoped to one user's collection; a collection that does not
// exist yet is treated as empty by all read operations.
package store

import (
	"context"
	"math"

	"github.com/openrecall/vectord/pkg/models"
)

// Filter is a structured exact-match predicate compiled by each adapter.
// Filters are never built by interpolating values into query strings.
type Filter struct {
	Field  string
	Equals string
}

// SearchOptions controls semantic nearest-neighbor search.
type SearchOptions struct {
	Limit        int
	SelectFields []string
	Filter       *Filter
}

// DetailOptions controls non-semantic listing/pagination.
type DetailOptions struct {
	Limit        int
	Offset       int
	SelectFields []string
	Filter       *Filter
}

// DefaultLimit applies when a caller does not bound a read.
const DefaultLimit = 10

// Store is the per-user collection facade. Append creates the collection
// lazily; a single Append persists all records or fails entirely.
type Store interface {
	Append(ctx context.Context, userID string, records []models.Record) error
	Search(ctx context.Context, userID string, vector []float32, opts SearchOptions) ([]models.Record, error)
	SearchDetail(ctx context.Context, userID string, opts DetailOptions) ([]models.Record, error)
	DeleteURLs(ctx context.Context, userID string, urls []string) error
	Compact(ctx context.Context, userID string) error
}

// CosineSimilarity computes the cosine similarity of two vectors. Vectors of
// different lengths score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MatchesFilter reports whether a record satisfies an exact-match filter.
// A nil filter matches everything.
func MatchesFilter(r models.Record, f *Filter) bool {
	if f == nil {
		return true
	}
	switch f.Field {
	case "url":
		return r.URL == f.Equals
	case "title":
		return r.Title == f.Equals
	case "id":
		return r.ID == f.Equals
	default:
		return false
	}
}

// Project returns a copy of the record carrying only the selected fields.
// An empty field list keeps everything except the vector, which is only
// returned when explicitly requested.
func Project(r models.Record, fields []string) models.Record {
	if len(fields) == 0 {
		r.Vector = nil
		return r
	}
	out := models.Record{}
	for _, f := range fields {
		switch f {
		case "id":
			out.ID = r.ID
		case "create_time":
			out.CreateTime = r.CreateTime
		case "title":
			out.Title = r.Title
		case "url":
			out.URL = r.URL
		case "image":
			out.Image = r.Image
		case "text":
			out.Text = r.Text
		case "vector":
			out.Vector = r.Vector
		}
	}
	return out
}
