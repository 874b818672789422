// Package markdown detects whether fetched content is already markdown and
// suggests markdown variants of page URLs.
package markdown

import (
	"regexp"
	"strings"
)

// ContentTypeIsMarkdown checks the Content-Type header.
func ContentTypeIsMarkdown(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/markdown") || strings.HasPrefix(ct, "text/x-markdown")
}

// URLIsMarkdown checks the URL extension.
func URLIsMarkdown(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPattern    = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
	linkPattern    = regexp.MustCompile(`\[.+?\]\(.+?\)`)
)

// LooksLikeMarkdown applies content heuristics: not HTML, and at least one
// common markdown construct.
func LooksLikeMarkdown(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, tag := range []string{"<!doctype", "<html", "<head", "<body"} {
		if strings.HasPrefix(lower, tag) {
			return false
		}
	}
	return headingPattern.MatchString(trimmed) ||
		listPattern.MatchString(trimmed) ||
		linkPattern.MatchString(trimmed)
}

// Detect reports whether the fetched page is markdown, checking the
// Content-Type header, the URL, then content heuristics.
func Detect(url, contentType, content string) bool {
	if ContentTypeIsMarkdown(contentType) {
		return true
	}
	if URLIsMarkdown(url) {
		return true
	}
	return LooksLikeMarkdown(content)
}

// Variants returns candidate markdown URLs to probe before falling back to
// the HTML page. GitHub blob pages map to their raw form; other pages get a
// ".md" suffix probe.
func Variants(url string) []string {
	if strings.Contains(url, "github.com") && strings.Contains(url, "/blob/") {
		raw := strings.Replace(url, "github.com", "raw.githubusercontent.com", 1)
		raw = strings.Replace(raw, "/blob/", "/", 1)
		return []string{raw}
	}
	if URLIsMarkdown(url) {
		return nil
	}
	return []string{strings.TrimSuffix(url, "/") + ".md"}
}
