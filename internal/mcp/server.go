// Package mcp exposes the user's indexed content to MCP clients over stdio.
// The server is bound to a single configured user; tools never take a user
// parameter from the client.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openrecall/vectord/internal/embeddings"
	"github.com/openrecall/vectord/internal/store"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	UserID  string
}

// Server wraps the MCP server around the vector store.
type Server struct {
	mcpServer *server.MCPServer
	store     store.Store
	embedder  embeddings.Embedder
	userID    string
}

// NewServer creates an MCP server with retrieval tools bound to the
// configured user's collection.
func NewServer(config Config, st store.Store, emb embeddings.Embedder) (*Server, error) {
	if config.UserID == "" {
		return nil, fmt.Errorf("mcp server requires a user id")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     st,
		embedder:  emb,
		userID:    config.UserID,
	}

	searchTool := mcp.NewTool("vector_search",
		mcp.WithDescription("Semantically search the user's indexed content. Returns matching text chunks with title, url and timestamp."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	detailTool := mcp.NewTool("detail_search",
		mcp.WithDescription("List the user's indexed records newest first, optionally filtered by source url."),
		mcp.WithString("url",
			mcp.Description("Only return records from this source url"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of records to skip for pagination"),
		),
	)
	mcpServer.AddTool(detailTool, s.detailHandler)

	return s, nil
}

// searchHandler handles the vector_search tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	limit := req.GetInt("limit", store.DefaultLimit)

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		return mcp.NewToolResultError(fmt.Sprintf("failed to embed query: %v", err)), nil
	}

	records, err := s.store.Search(ctx, s.userID, vectors[0], store.SearchOptions{Limit: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(records)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// detailHandler handles the detail_search tool call.
func (s *Server) detailHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := store.DetailOptions{
		Limit:  req.GetInt("limit", store.DefaultLimit),
		Offset: req.GetInt("offset", 0),
	}
	if u := req.GetString("url", ""); u != "" {
		opts.Filter = &store.Filter{Field: "url", Equals: u}
	}

	records, err := s.store.SearchDetail(ctx, s.userID, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detail search failed: %v", err)), nil
	}

	result, err := json.Marshal(records)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
