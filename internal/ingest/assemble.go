package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/openrecall/vectord/pkg/models"
)

var (
	imagePattern = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)
	titlePattern = regexp.MustCompile(`(?m)^Title: (.+)$`)
)

// ExtractImage returns the first markdown image reference in the text, or
// "" if there is none.
func ExtractImage(md string) string {
	if m := imagePattern.FindStringSubmatch(md); m != nil {
		return m[1]
	}
	return ""
}

// ExtractTitle returns the text of the first "Title: ..." line, or "" if
// the markdown carries no title marker.
func ExtractTitle(md string) string {
	if m := titlePattern.FindStringSubmatch(md); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Assemble joins chunks with their embeddings and shared metadata into
// persistable records. An empty chunk list returns an empty batch without
// calling the embedder. The embedder must return exactly one vector per
// chunk; a mismatch is a contract violation, not a recoverable condition.
//
// When the caller supplies an image, each chunk may override it with an
// image reference found in its own text, so long documents can carry a
// different illustration per chunk.
func (p *Pipeline) Assemble(ctx context.Context, image, title, url string, chunks []string, at time.Time) ([]models.Record, error) {
	if len(chunks) == 0 {
		return []models.Record{}, nil
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks for %s: %w", len(chunks), url, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if at.IsZero() {
		at = time.Now()
	}
	createTime := models.TimeMillis(at)

	records := make([]models.Record, len(chunks))
	for i, text := range chunks {
		img := image
		if image != "" {
			if local := ExtractImage(text); local != "" {
				img = local
			}
		}
		records[i] = models.Record{
			ID:         models.NewRecordID(),
			CreateTime: createTime,
			Title:      title,
			URL:        url,
			Image:      img,
			Text:       text,
			Vector:     vectors[i],
		}
	}
	return records, nil
}
