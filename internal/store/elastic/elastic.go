// Package elastic implements the store facade on Elasticsearch. Each user
// owns one index, created lazily on first append.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/openrecall/vectord/internal/store"
	"github.com/openrecall/vectord/pkg/models"
)

// Config holds Elasticsearch connection configuration.
type Config struct {
	Addresses   []string
	IndexPrefix string // per-user index name is "{prefix}-{userID}"
	Username    string
	Password    string
	Dimensions  int // dense_vector dims for new indices
}

// Store is the Elasticsearch-backed vector store.
type Store struct {
	es     *elasticsearch.Client
	prefix string
	dims   int
}

// New creates a new Elasticsearch-backed store.
func New(config Config) (*Store, error) {
	if config.IndexPrefix == "" {
		return nil, fmt.Errorf("index prefix is required")
	}
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions are required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	return &Store{es: es, prefix: config.IndexPrefix, dims: config.Dimensions}, nil
}

// Ping checks if Elasticsearch is available.
func (s *Store) Ping(ctx context.Context) bool {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexName builds the per-user index name. ES index names must be
// lowercase, so the user ID is folded.
func (s *Store) indexName(userID string) string {
	return s.prefix + "-" + strings.ToLower(userID)
}

func (s *Store) mapping() string {
	return fmt.Sprintf(`{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"create_time": { "type": "date", "format": "epoch_millis" },
			"title": { "type": "text" },
			"url": { "type": "keyword" },
			"image": { "type": "keyword" },
			"text": { "type": "text" },
			"vector": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`, s.dims)
}

// ensureIndex creates the user's index with the record mapping if missing.
func (s *Store) ensureIndex(ctx context.Context, userID string) error {
	index := s.indexName(userID)
	res, err := s.es.Indices.Exists([]string{index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = s.es.Indices.Create(
		index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(s.mapping())),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("error creating index %s: %s", index, res.String())
	}
	return nil
}

// Append bulk-indexes all records into the user's collection. Any rejected
// item fails the whole call.
func (s *Store) Append(ctx context.Context, userID string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureIndex(ctx, userID); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, r := range records {
		meta := map[string]map[string]string{"index": {"_id": r.ID}}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(r); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}

	res, err := s.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(s.indexName(userID)),
		s.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk append failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk append error: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if op.Status >= 300 {
					return fmt.Errorf("bulk append rejected (status %d): %s", op.Status, string(op.Error))
				}
			}
		}
		return fmt.Errorf("bulk append reported errors")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// filterClause compiles a structured filter into an ES term query.
func filterClause(f *store.Filter) map[string]any {
	return map[string]any{
		"term": map[string]any{f.Field: f.Equals},
	}
}

// sourceFields translates select-field options into an ES _source clause.
// The vector is heavy, so it is excluded unless explicitly requested.
func sourceFields(fields []string) any {
	if len(fields) == 0 {
		return map[string]any{"excludes": []string{"vector"}}
	}
	return fields
}

// Search runs a kNN query against the user's collection. A missing index is
// an empty result, not an error.
func (s *Store) Search(ctx context.Context, userID string, vector []float32, opts store.SearchOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	knn := map[string]any{
		"field":          "vector",
		"query_vector":   vector,
		"k":              limit,
		"num_candidates": limit * 4,
	}
	if opts.Filter != nil {
		knn["filter"] = filterClause(opts.Filter)
	}
	query := map[string]any{
		"knn":     knn,
		"size":    limit,
		"_source": sourceFields(opts.SelectFields),
	}
	return s.runSearch(ctx, userID, query)
}

// SearchDetail lists the user's records without a query vector, newest
// first, with offset/limit pagination.
func (s *Store) SearchDetail(ctx context.Context, userID string, opts store.DetailOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	var q map[string]any
	if opts.Filter != nil {
		q = map[string]any{"bool": map[string]any{"filter": filterClause(opts.Filter)}}
	} else {
		q = map[string]any{"match_all": map[string]any{}}
	}
	query := map[string]any{
		"query":   q,
		"from":    opts.Offset,
		"size":    limit,
		"sort":    []map[string]string{{"create_time": "desc"}},
		"_source": sourceFields(opts.SelectFields),
	}
	return s.runSearch(ctx, userID, query)
}

func (s *Store) runSearch(ctx context.Context, userID string, query map[string]any) ([]models.Record, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.indexName(userID)),
		s.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		// Collection does not exist yet: a user with no indexed content.
		return []models.Record{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	records := make([]models.Record, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		records[i] = hit.Source
	}
	return records, nil
}

// DeleteURLs removes every record whose URL is in urls. Missing collections
// are a no-op.
func (s *Store) DeleteURLs(ctx context.Context, userID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	body := map[string]any{
		"query": map[string]any{
			"terms": map[string]any{"url": urls},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal delete query: %w", err)
	}

	res, err := s.es.DeleteByQuery(
		[]string{s.indexName(userID)},
		bytes.NewReader(data),
		s.es.DeleteByQuery.WithContext(ctx),
		s.es.DeleteByQuery.WithRefresh(true),
		s.es.DeleteByQuery.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete by url failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by url error: %s", res.String())
	}
	return nil
}

// Compact force-merges the user's index segments. Safe to run concurrently
// with reads; ES serializes merges per index.
func (s *Store) Compact(ctx context.Context, userID string) error {
	res, err := s.es.Indices.Forcemerge(
		s.es.Indices.Forcemerge.WithContext(ctx),
		s.es.Indices.Forcemerge.WithIndex(s.indexName(userID)),
		s.es.Indices.Forcemerge.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("compact error: %s", res.String())
	}
	return nil
}

// DeleteCollection drops the user's index entirely (test/cleanup helper).
func (s *Store) DeleteCollection(ctx context.Context, userID string) error {
	res, err := s.es.Indices.Delete(
		[]string{s.indexName(userID)},
		s.es.Indices.Delete.WithContext(ctx),
		s.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}
