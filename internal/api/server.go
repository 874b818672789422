// Package api exposes the HTTP gateway: vector search, record management,
// the ingestion entry points, and the history backfill trigger. All
// dependencies are injected at construction.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openrecall/vectord/internal/auth"
	"github.com/openrecall/vectord/internal/backfill"
	"github.com/openrecall/vectord/internal/embeddings"
	"github.com/openrecall/vectord/internal/parser"
	"github.com/openrecall/vectord/internal/state"
	"github.com/openrecall/vectord/internal/store"
)

// Ingestor is the slice of the ingestion pipeline the gateway drives.
type Ingestor interface {
	IndexURL(ctx context.Context, userID, url string) error
	IndexMarkdown(ctx context.Context, userID, url, title, md string) error
	IndexText(ctx context.Context, userID, url, title, text string) error
	IndexJSONL(ctx context.Context, userID, fileURL string) error
	MaybeCompact(ctx context.Context, userID string) error
}

// Backfiller triggers full-history indexing jobs.
type Backfiller interface {
	Trigger(ctx context.Context, userID string) (backfill.Status, error)
}

// Uploader archives uploaded files and returns their addressable URLs.
type Uploader interface {
	PutUpload(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
}

// Deps are the gateway's collaborators. Uploads may be nil when object
// storage is not configured; local-file uploads then fail with 500.
type Deps struct {
	Auth           *auth.Auth
	Store          store.Store
	Embedder       embeddings.Embedder
	Ingest         Ingestor
	Backfill       Backfiller
	State          state.Store
	Parser         *parser.Parser
	Uploads        Uploader
	AllowedOrigins []string
}

// Server is the HTTP gateway.
type Server struct {
	deps    Deps
	origins map[string]bool
	httpSrv *http.Server
}

// New creates a gateway listening on addr.
func New(addr string, deps Deps) *Server {
	origins := make(map[string]bool, len(deps.AllowedOrigins))
	for _, o := range deps.AllowedOrigins {
		origins[o] = true
	}
	s := &Server{deps: deps, origins: origins}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can drive
// the gateway through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleWelcome)

	mux.Handle("POST /api/vector/search", s.requireAPIToken(s.handleSearch))
	mux.Handle("POST /api/detail/search", s.requireAPIToken(s.handleDetailSearch))
	mux.Handle("POST /api/vector/delete", s.requireAPIToken(s.handleDelete))
	mux.Handle("POST /api/vector/compact", s.requireAPIToken(s.handleCompact))
	mux.Handle("POST /api/index/url", s.requireAPIToken(s.handleIndexURL))
	mux.Handle("POST /api/index/file", s.requireAPIToken(s.handleIndexFile))
	mux.Handle("POST /api/index/md", s.requireAPIToken(s.handleIndexMarkdown))
	mux.Handle("POST /api/index/jsonl", s.requireAPIToken(s.handleIndexJSONL))
	mux.Handle("POST /api/history/full", s.requireAPIToken(s.handleHistoryFull))
	mux.Handle("POST /api/history/single", s.requireAPIToken(s.handleHistorySingle))

	// Authenticated by the user's own upload token, not the API token.
	mux.HandleFunc("POST /api/index/local-file", s.handleLocalFile)

	return s.cors(mux)
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	slog.Info("gateway listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requireAPIToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Auth.CheckAPIToken(r) {
			writeJSON(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	})
}
