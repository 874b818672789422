package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server        Server        `mapstructure:"server"`
	Store         Store         `mapstructure:"store"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	SQLite        SQLite        `mapstructure:"sqlite"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Redis         Redis         `mapstructure:"redis"`
	Storage       Storage       `mapstructure:"storage"`
	Fetcher       Fetcher       `mapstructure:"fetcher"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Server holds HTTP gateway configuration.
type Server struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	APIToken       string   `mapstructure:"api_token"`
	UploadSecret   string   `mapstructure:"upload_secret"`
}

// Store selects the vector store engine.
type Store struct {
	Engine string `mapstructure:"engine"` // "elasticsearch" or "sqlite"
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses   []string `mapstructure:"addresses"`
	IndexPrefix string   `mapstructure:"index_prefix"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
}

// SQLite holds the embedded store configuration.
type SQLite struct {
	Path string `mapstructure:"path"`
}

// Embeddings holds embedding backend configuration.
type Embeddings struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// Redis holds connection settings for user state and browsing history.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Storage holds S3/MinIO upload archive configuration.
type Storage struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Fetcher holds page download configuration.
type Fetcher struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	TryMarkdownFirst bool          `mapstructure:"try_markdown_first"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	UserID  string `mapstructure:"user_id"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:           3000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Store: Store{
			Engine: "elasticsearch",
		},
		Elasticsearch: Elasticsearch{
			Addresses:   []string{"http://localhost:9200"},
			IndexPrefix: "vectord",
		},
		SQLite: SQLite{
			Path: "vectord.db",
		},
		Embeddings: Embeddings{
			BaseURL: "http://localhost:8080/v1",
			Model:   "text-embedding-3-small",
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Storage: Storage{
			Enabled:         false, // uploads rejected until object storage is configured
			Endpoint:        "localhost:9002",
			Bucket:          "vectord",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Fetcher: Fetcher{
			Timeout:          30 * time.Second,
			UserAgent:        "vectord/1.0",
			TryMarkdownFirst: true,
		},
		MCP: MCP{
			Name:    "vectord",
			Version: "1.0.0",
		},
	}
}
