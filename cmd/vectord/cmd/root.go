package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openrecall/vectord/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "vectord",
	Short: "vectord: a per-user content indexing and retrieval service",
	Long: `vectord chunks and embeds web pages, documents and browsing history
into per-user vector collections, and serves semantic search over them.

Commands:
  serve   Start the HTTP gateway
  mcp     Start the MCP retrieval server for one user`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/vectord")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// VECTORD_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("VECTORD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("server.port", "VECTORD_SERVER_PORT")
	viper.BindEnv("server.api_token", "VECTORD_SERVER_API_TOKEN")
	viper.BindEnv("server.upload_secret", "VECTORD_SERVER_UPLOAD_SECRET")
	viper.BindEnv("store.engine", "VECTORD_STORE_ENGINE")
	viper.BindEnv("elasticsearch.addresses", "VECTORD_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index_prefix", "VECTORD_ELASTICSEARCH_INDEX_PREFIX")
	viper.BindEnv("elasticsearch.username", "VECTORD_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "VECTORD_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("sqlite.path", "VECTORD_SQLITE_PATH")
	viper.BindEnv("embeddings.base_url", "VECTORD_EMBEDDINGS_BASE_URL")
	viper.BindEnv("embeddings.api_key", "VECTORD_EMBEDDINGS_API_KEY")
	viper.BindEnv("embeddings.model", "VECTORD_EMBEDDINGS_MODEL")
	viper.BindEnv("embeddings.dimensions", "VECTORD_EMBEDDINGS_DIMENSIONS")
	viper.BindEnv("redis.addr", "VECTORD_REDIS_ADDR")
	viper.BindEnv("redis.password", "VECTORD_REDIS_PASSWORD")
	viper.BindEnv("storage.enabled", "VECTORD_STORAGE_ENABLED")
	viper.BindEnv("storage.endpoint", "VECTORD_STORAGE_ENDPOINT")
	viper.BindEnv("storage.access_key_id", "VECTORD_STORAGE_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "VECTORD_STORAGE_SECRET_ACCESS_KEY")
	viper.BindEnv("mcp.user_id", "VECTORD_MCP_USER_ID")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: list values as comma-separated strings from env
	if addrs := os.Getenv("VECTORD_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
	if origins := os.Getenv("VECTORD_SERVER_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
}
