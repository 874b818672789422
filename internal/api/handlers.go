package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/openrecall/vectord/internal/backfill"
	"github.com/openrecall/vectord/internal/parser"
	"github.com/openrecall/vectord/internal/store"
)

// maxUploadBytes bounds multipart upload memory.
const maxUploadBytes = 50 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// validHTTPURL accepts absolute http(s) URLs only.
func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func urlFilter(u string) *store.Filter {
	if u == "" {
		return nil
	}
	return &store.Filter{Field: "url", Equals: u}
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Welcome to the vector service")
}

type searchRequest struct {
	Query        string   `json:"query"`
	UserID       string   `json:"userId"`
	SelectFields []string `json:"selectFields"`
	Limit        int      `json:"limit"`
	URL          string   `json:"url"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vectors, err := s.deps.Embedder.Embed(r.Context(), []string{req.Query})
	if err != nil || len(vectors) != 1 {
		slog.Error("query embedding failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to search")
		return
	}

	records, err := s.deps.Store.Search(r.Context(), req.UserID, vectors[0], store.SearchOptions{
		Limit:        req.Limit,
		SelectFields: req.SelectFields,
		Filter:       urlFilter(req.URL),
	})
	if err != nil {
		slog.Error("vector search failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to search")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type detailRequest struct {
	UserID       string   `json:"userId"`
	SelectFields []string `json:"selectFields"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
	URL          string   `json:"url"`
}

func (s *Server) handleDetailSearch(w http.ResponseWriter, r *http.Request) {
	var req detailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	records, err := s.deps.Store.SearchDetail(r.Context(), req.UserID, store.DetailOptions{
		Limit:        req.Limit,
		Offset:       req.Offset,
		SelectFields: req.SelectFields,
		Filter:       urlFilter(req.URL),
	})
	if err != nil {
		slog.Error("detail search failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to search")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type deleteRequest struct {
	URLs   []string `json:"urls"`
	UserID string   `json:"userId"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.deps.Store.DeleteURLs(r.Context(), req.UserID, req.URLs); err != nil {
		slog.Error("delete failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to delete")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type compactRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	var req compactRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.deps.Store.Compact(r.Context(), req.UserID); err != nil {
		slog.Error("compact failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to compact")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type indexURLRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

func (s *Server) handleIndexURL(w http.ResponseWriter, r *http.Request) {
	var req indexURLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || !validHTTPURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	if err := s.deps.Ingest.IndexURL(r.Context(), req.UserID, req.URL); err != nil {
		slog.Error("url indexing failed", "user", req.UserID, "url", req.URL, "error", err)
		if stateErr := s.deps.State.AddErrorURL(r.Context(), req.UserID, req.URL); stateErr != nil {
			slog.Error("failed to record error url", "user", req.UserID, "url", req.URL, "error", stateErr)
		}
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type indexMarkdownRequest struct {
	URL      string `json:"url"`
	UserID   string `json:"userId"`
	Markdown string `json:"markdown"`
	Title    string `json:"title"`
}

func (s *Server) handleIndexMarkdown(w http.ResponseWriter, r *http.Request) {
	var req indexMarkdownRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Markdown == "" || req.Title == "" || !validHTTPURL(req.URL) {
		writeJSON(w, http.StatusBadRequest, "Invalid parameters")
		return
	}

	if err := s.deps.Ingest.IndexMarkdown(r.Context(), req.UserID, req.URL, req.Title, req.Markdown); err != nil {
		slog.Error("markdown indexing failed", "user", req.UserID, "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type indexFileRequest struct {
	URL      string `json:"url"`
	UserID   string `json:"userId"`
	Markdown string `json:"markdown"`
	Title    string `json:"title"`
	Type     string `json:"type"`
}

var indexableFileTypes = map[string]bool{"md": true, "pdf": true, "docx": true, "pptx": true}

func (s *Server) handleIndexFile(w http.ResponseWriter, r *http.Request) {
	var req indexFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.URL == "" || req.Markdown == "" || req.Title == "" || !indexableFileTypes[req.Type] {
		writeJSON(w, http.StatusBadRequest, "Invalid parameters")
		return
	}

	var err error
	if req.Type == "md" {
		err = s.deps.Ingest.IndexMarkdown(r.Context(), req.UserID, req.URL, req.Title, req.Markdown)
	} else {
		err = s.deps.Ingest.IndexText(r.Context(), req.UserID, req.URL, req.Title, req.Markdown)
	}
	if err != nil {
		slog.Error("file indexing failed", "user", req.UserID, "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type indexJSONLRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

func (s *Server) handleIndexJSONL(w http.ResponseWriter, r *http.Request) {
	var req indexJSONLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || (!validHTTPURL(req.URL) && !strings.HasPrefix(req.URL, "s3://")) {
		writeJSON(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	if err := s.deps.Ingest.IndexJSONL(r.Context(), req.UserID, req.URL); err != nil {
		slog.Error("jsonl indexing failed", "user", req.UserID, "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type historyFullRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleHistoryFull(w http.ResponseWriter, r *http.Request) {
	var req historyFullRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, "Missing userId")
		return
	}

	status, err := s.deps.Backfill.Trigger(r.Context(), req.UserID)
	if err != nil {
		slog.Error("history backfill trigger failed", "user", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	switch status {
	case backfill.Started:
		writeJSON(w, http.StatusOK, "Success")
	case backfill.AlreadyIndexed:
		writeJSON(w, http.StatusOK, "Already indexed")
	default:
		writeJSON(w, http.StatusConflict, "Indexing in progress")
	}
}

type historySingleRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
	Title  string `json:"title"`
}

func (s *Server) handleHistorySingle(w http.ResponseWriter, r *http.Request) {
	var req historySingleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.URL == "" || req.Text == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, "Missing parameters")
		return
	}

	if err := s.deps.Ingest.IndexText(r.Context(), req.UserID, req.URL, req.Title, req.Text); err != nil {
		slog.Error("history item indexing failed", "user", req.UserID, "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, "Failed to index")
		return
	}
	writeJSON(w, http.StatusOK, "Success")
}

type uploadedFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleLocalFile(w http.ResponseWriter, r *http.Request) {
	permissiveCORS(w)

	userID, err := s.deps.Auth.ResolveUploadToken(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, "No file provided")
		return
	}

	results := make([]uploadedFile, 0, len(files))
	for _, header := range files {
		result, err := s.ingestUpload(r, userID, header)
		if err != nil {
			if errors.Is(err, parser.ErrUnsupportedType) {
				writeJSON(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("upload indexing failed", "user", userID, "file", header.Filename, "error", err)
			writeJSON(w, http.StatusInternalServerError, "Failed to index")
			return
		}
		results = append(results, *result)

		// Compact after each file so the interval check sees every URL count.
		if err := s.deps.Ingest.MaybeCompact(r.Context(), userID); err != nil {
			slog.Warn("compaction after upload failed", "user", userID, "file", header.Filename, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) ingestUpload(r *http.Request, userID string, header *multipart.FileHeader) (*uploadedFile, error) {
	if s.deps.Uploads == nil {
		return nil, fmt.Errorf("object storage not configured")
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	content, err := s.deps.Parser.Parse(r.Context(), header.Filename, data)
	if err != nil {
		return nil, err
	}

	objectURL, err := s.deps.Uploads.PutUpload(r.Context(), userID, header.Filename,
		data, header.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to archive upload: %w", err)
	}

	if content.Type == "md" {
		err = s.deps.Ingest.IndexMarkdown(r.Context(), userID, objectURL, header.Filename, content.Markdown)
	} else {
		err = s.deps.Ingest.IndexText(r.Context(), userID, objectURL, header.Filename, content.Markdown)
	}
	if err != nil {
		return nil, err
	}

	return &uploadedFile{URL: objectURL, Name: header.Filename, Type: content.Type}, nil
}
