package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/openrecall/vectord/internal/api"
	"github.com/openrecall/vectord/internal/auth"
	"github.com/openrecall/vectord/internal/backfill"
	"github.com/openrecall/vectord/internal/config"
	"github.com/openrecall/vectord/internal/embeddings"
	"github.com/openrecall/vectord/internal/fetch"
	"github.com/openrecall/vectord/internal/history"
	"github.com/openrecall/vectord/internal/ingest"
	"github.com/openrecall/vectord/internal/parser"
	"github.com/openrecall/vectord/internal/state"
	"github.com/openrecall/vectord/internal/storage"
	"github.com/openrecall/vectord/internal/store"
	"github.com/openrecall/vectord/internal/store/elastic"
	"github.com/openrecall/vectord/internal/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the HTTP gateway serving vector search, record management,
the ingestion entry points and the history backfill trigger.

Example:
  vectord serve --config ./config/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Engine {
	case "elasticsearch":
		return elastic.New(elastic.Config{
			Addresses:   cfg.Elasticsearch.Addresses,
			IndexPrefix: cfg.Elasticsearch.IndexPrefix,
			Username:    cfg.Elasticsearch.Username,
			Password:    cfg.Elasticsearch.Password,
			Dimensions:  cfg.Embeddings.Dimensions,
		})
	case "sqlite":
		return sqlite.Open(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store engine %q", cfg.Store.Engine)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if cfg.Server.APIToken == "" {
		return fmt.Errorf("server.api_token must be configured")
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	userState := state.NewRedisStore(redisClient)
	historySource := history.NewRedisSource(redisClient)

	embedder, err := embeddings.New(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("failed to create embeddings client: %w", err)
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:       cfg.Fetcher.Timeout,
		UserAgent:     cfg.Fetcher.UserAgent,
		MarkdownFirst: cfg.Fetcher.TryMarkdownFirst,
	})

	var objects *storage.Client
	if cfg.Storage.Enabled {
		objects, err = storage.New(storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to create object storage client: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		err = objects.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare upload bucket: %w", err)
		}
	}

	var pipeline *ingest.Pipeline
	if objects != nil {
		pipeline = ingest.New(st, userState, embedder, fetcher, objects, storage.IsObjectURL)
	} else {
		pipeline = ingest.New(st, userState, embedder, fetcher, nil, nil)
	}

	runner := backfill.New(userState, historySource, pipeline)

	deps := api.Deps{
		Auth:           auth.New(cfg.Server.APIToken, []byte(cfg.Server.UploadSecret)),
		Store:          st,
		Embedder:       embedder,
		Ingest:         pipeline,
		Backfill:       runner,
		State:          userState,
		Parser:         parser.New(nil),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if objects != nil {
		deps.Uploads = objects
	}

	server := api.New(fmt.Sprintf(":%d", cfg.Server.Port), deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("gateway shutdown incomplete", "error", err)
	}
	runner.Wait()
	return nil
}
