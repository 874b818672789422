package markdown

import "testing"

func TestContentTypeIsMarkdown(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/markdown", true},
		{"text/markdown; charset=utf-8", true},
		{"text/x-markdown", true},
		{"text/html", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ContentTypeIsMarkdown(tt.contentType); got != tt.want {
			t.Errorf("ContentTypeIsMarkdown(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestURLIsMarkdown(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/README.md", true},
		{"https://example.com/doc.markdown", true},
		{"https://example.com/page.html", false},
		{"https://example.com/md/page", false},
	}
	for _, tt := range tests {
		if got := URLIsMarkdown(tt.url); got != tt.want {
			t.Errorf("URLIsMarkdown(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestLooksLikeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"heading", "# Title\n\nSome text", true},
		{"list", "intro\n- one\n- two", true},
		{"link", "see [docs](https://example.com)", true},
		{"html document", "<!DOCTYPE html><html><body>hi</body></html>", false},
		{"plain prose", "Just a plain sentence without structure.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeMarkdown(tt.content); got != tt.want {
				t.Errorf("LooksLikeMarkdown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariants(t *testing.T) {
	got := Variants("https://github.com/user/repo/blob/main/README.md")
	if len(got) != 1 || got[0] != "https://raw.githubusercontent.com/user/repo/main/README.md" {
		t.Errorf("Variants(github blob) = %v", got)
	}
	if got := Variants("https://example.com/doc.md"); len(got) != 0 {
		t.Errorf("Variants(already markdown) = %v, want none", got)
	}
	got = Variants("https://example.com/docs/intro/")
	if len(got) != 1 || got[0] != "https://example.com/docs/intro.md" {
		t.Errorf("Variants(html page) = %v", got)
	}
}
