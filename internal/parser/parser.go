// Package parser turns uploaded files into markdown/plain text for the
// ingestion pipeline. Binary document formats are delegated to an external
// text extractor; this package only routes by type.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedType marks file types the service does not index. Handlers
// map it to a validation error, not a server error.
var ErrUnsupportedType = errors.New("unsupported file type")

// TextExtractor extracts plain text from binary document formats
// (PDF/DOCX/PPTX). The concrete extraction engine lives outside this
// service.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// Content is a parsed upload ready for ingestion.
type Content struct {
	Type     string // "md", "pdf", "docx", "pptx"
	Markdown string // markdown for md files, extracted plain text otherwise
}

// Parser routes uploads by file type.
type Parser struct {
	extractor TextExtractor // nil if no extractor is configured
}

// New creates a parser. The extractor may be nil, in which case binary
// formats are rejected.
func New(extractor TextExtractor) *Parser {
	return &Parser{extractor: extractor}
}

// FileType returns the canonical type for a filename, or "" if the type is
// not indexable.
func FileType(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "md", "markdown":
		return "md"
	case "pdf":
		return "pdf"
	case "docx":
		return "docx"
	case "pptx":
		return "pptx"
	default:
		return ""
	}
}

// Parse converts an uploaded file into ingestible content.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) (*Content, error) {
	fileType := FileType(filename)
	switch fileType {
	case "md":
		return &Content{Type: "md", Markdown: string(data)}, nil
	case "pdf", "docx", "pptx":
		if p.extractor == nil {
			return nil, fmt.Errorf("%w: no text extractor configured for %s", ErrUnsupportedType, fileType)
		}
		text, err := p.extractor.Extract(ctx, filename, data)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from %s: %w", filename, err)
		}
		return &Content{Type: fileType, Markdown: text}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
}
