// Package fetch retrieves a single web page and normalizes it to markdown
// for the ingestion pipeline.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/openrecall/vectord/internal/markdown"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	MarkdownFirst bool // probe markdown variants of the URL before using HTML
}

// Page is a fetched page normalized to markdown.
type Page struct {
	URL         string
	Markdown    string
	Title       string // HTML <title> when available, otherwise empty
	ContentType string
}

// Fetcher downloads one page per call. It never follows links.
type Fetcher struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Fetcher.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "vectord/1.0"
	}
	return &Fetcher{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Fetch downloads pageURL and returns its markdown form. HTML pages are
// converted; markdown pages pass through.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	content, contentType, err := f.download(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if f.config.MarkdownFirst && !markdown.ContentTypeIsMarkdown(contentType) {
		if mdContent, mdType, ok := f.tryMarkdownVariants(ctx, pageURL); ok {
			slog.Debug("using markdown variant", "url", pageURL)
			content, contentType = mdContent, mdType
		}
	}

	page := &Page{URL: pageURL, ContentType: contentType}
	if markdown.Detect(pageURL, contentType, content) {
		page.Markdown = content
		return page, nil
	}

	page.Title = extractHTMLTitle(content)
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert page to markdown: %w", err)
	}
	page.Markdown = strings.TrimSpace(md)
	return page, nil
}

// download fetches the page body with colly, depth 1, no link following.
func (f *Fetcher) download(ctx context.Context, pageURL string) (string, string, error) {
	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(f.config.UserAgent),
	)
	c.SetRequestTimeout(f.config.Timeout)

	var content, contentType string
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			fetchErr = ctx.Err()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 {
			fetchErr = fmt.Errorf("fetch %s: status %d", pageURL, r.StatusCode)
			return
		}
		content = string(r.Body)
		contentType = r.Headers.Get("Content-Type")
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", pageURL, err)
	})

	if err := c.Visit(pageURL); err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", "", fetchErr
	}
	if content == "" {
		return "", "", fmt.Errorf("fetch %s: empty response", pageURL)
	}
	slog.Debug("fetched page", "url", pageURL, "content_type", contentType, "size", len(content))
	return content, contentType, nil
}

// tryMarkdownVariants probes markdown forms of the URL with a plain GET.
func (f *Fetcher) tryMarkdownVariants(ctx context.Context, pageURL string) (string, string, bool) {
	for _, variant := range markdown.Variants(pageURL) {
		req, err := http.NewRequestWithContext(ctx, "GET", variant, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", f.config.UserAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}

		content := string(body)
		contentType := resp.Header.Get("Content-Type")
		if markdown.Detect(variant, contentType, content) {
			return content, contentType, true
		}
	}
	return "", "", false
}

// extractHTMLTitle pulls the <title> text out of an HTML document.
func extractHTMLTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(title)
}
