package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/openrecall/vectord/internal/store/memory"
	"github.com/openrecall/vectord/pkg/models"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcplib.CallToolResult) string {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error result: %+v", res.Content)
	}
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	s, err := NewServer(Config{Name: "vectord", Version: "1.0.0", UserID: "user-1"}, st, fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s, st
}

func TestServer_RequiresUserID(t *testing.T) {
	if _, err := NewServer(Config{Name: "vectord", Version: "1.0.0"}, memory.New(), fakeEmbedder{}); err == nil {
		t.Error("NewServer() without user id should fail")
	}
}

func TestServer_VectorSearch(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	err := st.Append(ctx, "user-1", []models.Record{
		{ID: "r1", Title: "nearest", URL: "https://a", Text: "alpha", Vector: []float32{1, 0}},
		{ID: "r2", Title: "farther", URL: "https://b", Text: "beta", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	res, err := s.searchHandler(ctx, callRequest("vector_search", map[string]any{
		"query": "alpha things",
		"limit": 1,
	}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}

	var records []models.Record
	if err := json.Unmarshal([]byte(resultText(t, res)), &records); err != nil {
		t.Fatalf("result is not a record list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r1" {
		t.Errorf("records = %+v, want the single nearest record r1", records)
	}
}

func TestServer_VectorSearch_MissingQuery(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.searchHandler(context.Background(), callRequest("vector_search", map[string]any{}))
	if err != nil {
		t.Fatalf("searchHandler() error = %v", err)
	}
	if !res.IsError {
		t.Error("missing query should produce an error result")
	}
}

func TestServer_DetailSearch_URLFilter(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	err := st.Append(ctx, "user-1", []models.Record{
		{ID: "r1", CreateTime: 1000, URL: "https://a", Text: "alpha", Vector: []float32{1, 0}},
		{ID: "r2", CreateTime: 1001, URL: "https://b", Text: "beta", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	res, err := s.detailHandler(ctx, callRequest("detail_search", map[string]any{
		"url": "https://b",
	}))
	if err != nil {
		t.Fatalf("detailHandler() error = %v", err)
	}

	var records []models.Record
	if err := json.Unmarshal([]byte(resultText(t, res)), &records); err != nil {
		t.Fatalf("result is not a record list: %v", err)
	}
	if len(records) != 1 || records[0].URL != "https://b" {
		t.Errorf("records = %+v, want only the filtered record", records)
	}
}

func TestServer_ScopedToConfiguredUser(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	err := st.Append(ctx, "someone-else", []models.Record{
		{ID: "r1", URL: "https://a", Text: "alpha", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	res, err := s.detailHandler(ctx, callRequest("detail_search", map[string]any{}))
	if err != nil {
		t.Fatalf("detailHandler() error = %v", err)
	}
	var records []models.Record
	if err := json.Unmarshal([]byte(resultText(t, res)), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from another user's collection, want 0", len(records))
	}
}
