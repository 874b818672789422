package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_New(t *testing.T) {
	if _, err := New(Config{Model: "m"}); err == nil {
		t.Error("New() without base URL should fail")
	}
	if _, err := New(Config{BaseURL: "http://localhost"}); err == nil {
		t.Error("New() without model should fail")
	}
	if _, err := New(Config{BaseURL: "http://localhost", Model: "m"}); err != nil {
		t.Errorf("New() error = %v", err)
	}
}

func TestClient_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		resp := map[string]any{"data": []map[string]any{}}
		data := make([]map[string]any, len(req.Input))
		// Return out of order to verify index-based reassembly.
		for i := range req.Input {
			data[i] = map[string]any{
				"index":     len(req.Input) - 1 - i,
				"embedding": []float32{float32(len(req.Input) - 1 - i), 0.5},
			}
		}
		resp["data"] = data
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float32(i) {
			t.Errorf("vector %d not reassembled by index: got %v", i, v)
		}
	}
}

func TestClient_EmbedEmptyBatch(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost:1", Model: "m"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	vectors, err := client.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) error = %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Embed(nil) = %v, want empty", vectors)
	}
}

func TestClient_EmbedBatchMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Model: "m"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("Embed() should fail on batch length mismatch")
	}
}
