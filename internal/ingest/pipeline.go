// Package ingest implements the content ingestion pipeline: fetch/parse,
// chunk, embed, assemble, persist. All entry shapes (URL, raw markdown,
// extracted text, JSONL batches) converge on the same assemble+append path.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/openrecall/vectord/internal/chunk"
	"github.com/openrecall/vectord/internal/embeddings"
	"github.com/openrecall/vectord/internal/fetch"
	"github.com/openrecall/vectord/internal/state"
	"github.com/openrecall/vectord/internal/store"
	"github.com/openrecall/vectord/pkg/models"
)

// compactEvery is the indexed-URL count interval at which a local-file
// ingestion triggers a store compaction.
const compactEvery = 50

// PageFetcher downloads one page and normalizes it to markdown.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// ObjectGetter reads archived objects (JSONL batches) by their s3:// URL.
type ObjectGetter interface {
	GetObject(ctx context.Context, objectURL string) ([]byte, error)
}

// Pipeline wires the ingestion flow. All dependencies are injected at
// startup; the pipeline holds no global state.
type Pipeline struct {
	store       store.Store
	state       state.Store
	embedder    embeddings.Embedder
	fetcher     PageFetcher
	objects     ObjectGetter // nil when object storage is not configured
	isObjectURL func(string) bool
	httpClient  *http.Client
	md          *chunk.Splitter
	plain       *chunk.Splitter
}

// New creates an ingestion pipeline. objects may be nil; s3:// JSONL
// sources then fail with a configuration error.
func New(st store.Store, us state.Store, emb embeddings.Embedder, fetcher PageFetcher, objects ObjectGetter, isObjectURL func(string) bool) *Pipeline {
	if isObjectURL == nil {
		isObjectURL = func(string) bool { return false }
	}
	return &Pipeline{
		store:       st,
		state:       us,
		embedder:    emb,
		fetcher:     fetcher,
		objects:     objects,
		isObjectURL: isObjectURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		md:          chunk.NewMarkdown(),
		plain:       chunk.NewPlain(),
	}
}

// IndexURL fetches a page and indexes it for the user. The title comes
// from the page's "Title:" marker, then the HTML title, then the URL; the
// image from the first markdown image, then the tweet extractor for
// social-media posts.
func (p *Pipeline) IndexURL(ctx context.Context, userID, pageURL string) error {
	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	title := ExtractTitle(page.Markdown)
	if title == "" {
		title = page.Title
	}
	if title == "" {
		title = pageURL
	}

	image := ExtractImage(page.Markdown)
	if image == "" {
		if tweetImg, err := fetch.TweetImage(ctx, pageURL); err != nil {
			slog.Warn("tweet image lookup failed", "url", pageURL, "error", err)
		} else {
			image = tweetImg
		}
	}

	slog.Info("indexing url", "user", userID, "url", pageURL, "title", title, "size", len(page.Markdown))
	return p.indexMarkdown(ctx, userID, pageURL, title, image, page.Markdown)
}

// IndexMarkdown indexes caller-supplied markdown under the given URL.
func (p *Pipeline) IndexMarkdown(ctx context.Context, userID, url, title, md string) error {
	image := ExtractImage(md)
	if image == "" {
		if tweetImg, err := fetch.TweetImage(ctx, url); err == nil {
			image = tweetImg
		}
	}
	return p.indexMarkdown(ctx, userID, url, title, image, md)
}

func (p *Pipeline) indexMarkdown(ctx context.Context, userID, url, title, image, md string) error {
	chunks := p.md.Split(md)
	records, err := p.Assemble(ctx, image, title, url, chunks, time.Time{})
	if err != nil {
		return err
	}
	return p.replaceAndAppend(ctx, userID, url, records)
}

// IndexText indexes already-extracted plain text (documents, chat
// transcripts). No markdown structure or image extraction applies.
func (p *Pipeline) IndexText(ctx context.Context, userID, url, title, text string) error {
	chunks := p.plain.Split(text)
	records, err := p.Assemble(ctx, "", title, url, chunks, time.Time{})
	if err != nil {
		return err
	}
	return p.replaceAndAppend(ctx, userID, url, records)
}

// IndexJSONL appends a batch of pre-embedded records read from a JSONL
// file. Lines are full Record objects; vectors are already present, so the
// embedder is not involved.
func (p *Pipeline) IndexJSONL(ctx context.Context, userID, fileURL string) error {
	body, err := p.readSource(ctx, fileURL)
	if err != nil {
		return err
	}

	var records []models.Record
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r models.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("invalid record on line %d of %s: %w", line, fileURL, err)
		}
		if r.ID == "" {
			r.ID = models.NewRecordID()
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", fileURL, err)
	}

	slog.Info("indexing jsonl batch", "user", userID, "url", fileURL, "records", len(records))
	return p.store.Append(ctx, userID, records)
}

func (p *Pipeline) readSource(ctx context.Context, fileURL string) (io.Reader, error) {
	if p.isObjectURL(fileURL) {
		if p.objects == nil {
			return nil, fmt.Errorf("object storage not configured for %s", fileURL)
		}
		data, err := p.objects.GetObject(ctx, fileURL)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", fileURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", fileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileURL, err)
	}
	return bytes.NewReader(data), nil
}

// replaceAndAppend implements idempotent re-indexing: if records for the
// URL are already live, delete them before the append so exactly one
// generation exists at a time. The delete completes before the append
// begins.
func (p *Pipeline) replaceAndAppend(ctx context.Context, userID, url string, records []models.Record) error {
	exists, err := p.state.URLExists(ctx, userID, url)
	if err != nil {
		return fmt.Errorf("failed to check url state: %w", err)
	}
	if exists {
		if err := p.store.DeleteURLs(ctx, userID, []string{url}); err != nil {
			return fmt.Errorf("failed to delete prior records for %s: %w", url, err)
		}
		slog.Info("replaced prior records", "user", userID, "url", url)
	}

	if err := p.store.Append(ctx, userID, records); err != nil {
		return err
	}
	if _, err := p.state.AddURL(ctx, userID, url); err != nil {
		return fmt.Errorf("failed to record indexed url: %w", err)
	}
	return nil
}

// MaybeCompact triggers a synchronous store compaction when the user's
// cumulative indexed-URL count reaches a multiple of compactEvery. Called
// after local-file ingestion to amortize compaction cost across writes.
func (p *Pipeline) MaybeCompact(ctx context.Context, userID string) error {
	count, err := p.state.URLCount(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 && count%compactEvery == 0 {
		slog.Info("compacting collection", "user", userID, "indexed_urls", count)
		return p.store.Compact(ctx, userID)
	}
	return nil
}
