package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openrecall/vectord/internal/state"
	"github.com/openrecall/vectord/internal/store/memory"
)

// fakeEmbedder returns a deterministic vector per text and counts calls.
type fakeEmbedder struct {
	calls    int
	batchErr error
	short    bool // return one vector too few
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func newTestPipeline(emb *fakeEmbedder) (*Pipeline, *memory.Store, *state.MemoryStore) {
	st := memory.New()
	us := state.NewMemoryStore()
	return New(st, us, emb, nil, nil, nil), st, us
}

func TestAssemble_EmptyChunksSkipsEmbedder(t *testing.T) {
	emb := &fakeEmbedder{}
	p, _, _ := newTestPipeline(emb)

	records, err := p.Assemble(context.Background(), "", "t", "https://a.example", nil, time.Time{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Assemble(empty) = %v, want empty", records)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for empty batch, want 0", emb.calls)
	}
}

func TestAssemble_BatchIntegrity(t *testing.T) {
	emb := &fakeEmbedder{}
	p, _, _ := newTestPipeline(emb)

	chunks := []string{"first chunk of text", "second chunk of text", "third chunk of text"}
	records, err := p.Assemble(context.Background(), "", "Title", "https://a.example", chunks, time.Time{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want exactly 1 batch call", emb.calls)
	}
	if len(records) != len(chunks) {
		t.Fatalf("got %d records, want %d", len(records), len(chunks))
	}
	for i, r := range records {
		if r.Text != chunks[i] {
			t.Errorf("records[%d].Text = %q, want %q", i, r.Text, chunks[i])
		}
		if len(r.Vector) == 0 {
			t.Errorf("records[%d] has no vector", i)
		}
		if r.ID == "" {
			t.Errorf("records[%d] has no ID", i)
		}
	}
}

func TestAssemble_VectorCountMismatchIsFatal(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeEmbedder{short: true})
	_, err := p.Assemble(context.Background(), "", "t", "https://a.example", []string{"one chunk", "two chunk"}, time.Time{})
	if err == nil {
		t.Error("Assemble() should fail when the embedder breaks the 1:1 contract")
	}
}

func TestAssemble_EmbedderErrorPropagates(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeEmbedder{batchErr: errors.New("backend down")})
	_, err := p.Assemble(context.Background(), "", "t", "https://a.example", []string{"some chunk"}, time.Time{})
	if err == nil {
		t.Error("Assemble() should propagate embedder errors")
	}
}

func TestAssemble_PerChunkImageOverride(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeEmbedder{})
	chunks := []string{
		"plain chunk without any image reference",
		"chunk with its own ![pic](https://example.com/local.png) illustration",
	}
	records, err := p.Assemble(context.Background(), "https://example.com/default.png", "t", "https://a.example", chunks, time.Time{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if records[0].Image != "https://example.com/default.png" {
		t.Errorf("records[0].Image = %q, want caller default", records[0].Image)
	}
	if records[1].Image != "https://example.com/local.png" {
		t.Errorf("records[1].Image = %q, want chunk-local image", records[1].Image)
	}
}

func TestAssemble_NoImageExtractionWithoutCallerImage(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeEmbedder{})
	records, err := p.Assemble(context.Background(), "", "t", "https://a.example",
		[]string{"chunk with ![pic](https://example.com/x.png) inside"}, time.Time{})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if records[0].Image != "" {
		t.Errorf("Image = %q, want empty when caller supplied none", records[0].Image)
	}
}

func TestAssemble_BatchUniformTimestamp(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeEmbedder{})
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records, err := p.Assemble(context.Background(), "", "t", "https://a.example",
		[]string{"first chunk text", "second chunk text"}, at)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	want := at.UnixMilli()
	for i, r := range records {
		if r.CreateTime != want {
			t.Errorf("records[%d].CreateTime = %d, want %d", i, r.CreateTime, want)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	md := "Title: Hello World\n\nSome body text."
	if got := ExtractTitle(md); got != "Hello World" {
		t.Errorf("ExtractTitle() = %q, want \"Hello World\"", got)
	}
	if got := ExtractTitle("no marker here"); got != "" {
		t.Errorf("ExtractTitle(no marker) = %q, want empty", got)
	}
}

func TestExtractImage(t *testing.T) {
	md := "intro\n![alt text](https://example.com/i.png)\n![second](https://example.com/j.png)"
	if got := ExtractImage(md); got != "https://example.com/i.png" {
		t.Errorf("ExtractImage() = %q, want first image", got)
	}
	if got := ExtractImage("no images"); got != "" {
		t.Errorf("ExtractImage(none) = %q, want empty", got)
	}
}
