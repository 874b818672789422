package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openrecall/vectord/internal/embeddings"
	"github.com/openrecall/vectord/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP retrieval server",
	Long: `Start the MCP server over stdio, bound to one user's collection.

The server provides two tools:
  - vector_search: semantic search over the user's indexed content
  - detail_search: list indexed records, newest first

Example:
  VECTORD_MCP_USER_ID=user-1 vectord mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	embedder, err := embeddings.New(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("failed to create embeddings client: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
		UserID:  cfg.MCP.UserID,
	}, st, embedder)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
