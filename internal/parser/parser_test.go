package parser

import (
	"context"
	"errors"
	"testing"
)

type staticExtractor struct {
	text string
	err  error
}

func (e *staticExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	return e.text, e.err
}

func TestFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"notes.md", "md"},
		{"notes.markdown", "md"},
		{"Report.PDF", "pdf"},
		{"slides.pptx", "pptx"},
		{"doc.docx", "docx"},
		{"image.png", ""},
		{"noextension", ""},
	}
	for _, tt := range tests {
		if got := FileType(tt.filename); got != tt.want {
			t.Errorf("FileType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestParse_MarkdownPassthrough(t *testing.T) {
	p := New(nil)
	content, err := p.Parse(context.Background(), "notes.md", []byte("# Notes\n\nbody"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if content.Type != "md" || content.Markdown != "# Notes\n\nbody" {
		t.Errorf("Parse() = %+v", content)
	}
}

func TestParse_DelegatesToExtractor(t *testing.T) {
	p := New(&staticExtractor{text: "extracted body text"})
	content, err := p.Parse(context.Background(), "report.pdf", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if content.Type != "pdf" || content.Markdown != "extracted body text" {
		t.Errorf("Parse() = %+v", content)
	}
}

func TestParse_UnsupportedType(t *testing.T) {
	p := New(&staticExtractor{})
	if _, err := p.Parse(context.Background(), "image.png", nil); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Parse(png) error = %v, want ErrUnsupportedType", err)
	}
	// Binary formats without an extractor are also a validation failure.
	bare := New(nil)
	if _, err := bare.Parse(context.Background(), "report.pdf", nil); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Parse(pdf, no extractor) error = %v, want ErrUnsupportedType", err)
	}
}
