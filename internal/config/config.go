// Package config provides application configuration management using koanf
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates levels, e.g. PDFRAG_VECTOR_STORE__INDEX_NAME.
const EnvPrefix = "PDFRAG_"

// Supported vector store providers.
const (
	ProviderPinecone = "pinecone"
	ProviderSQLite   = "sqlite"
	ProviderMemory   = "memory"
)

// Supported model providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all configuration for the application. It is loaded once at
// startup and must be treated as read-only afterwards.
type Config struct {
	// Server configuration
	Server ServerConfig `koanf:"server"`

	// Vector database configuration
	VectorStore VectorStoreConfig `koanf:"vector_store"`

	// External model services
	Services ServicesConfig `koanf:"services"`

	// Retrieval settings
	RAG RAGConfig `koanf:"rag"`

	// Application settings
	App AppConfig `koanf:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
}

// VectorStoreConfig selects and configures the vector database backend.
type VectorStoreConfig struct {
	Provider  string         `koanf:"provider"` // "pinecone", "sqlite" or "memory"
	IndexName string         `koanf:"index_name"`
	Dimension int            `koanf:"dimension"`
	Metric    string         `koanf:"metric"` // "cosine", "dotproduct" or "euclidean"
	BatchSize int            `koanf:"batch_size"`
	Pinecone  PineconeConfig `koanf:"pinecone"`
	SQLite    SQLiteConfig   `koanf:"sqlite"`
}

// PineconeConfig holds managed index settings. Cloud and region are explicit;
// nothing is inferred from the region string.
type PineconeConfig struct {
	APIKey string `koanf:"api_key"`
	Cloud  string `koanf:"cloud"` // "aws", "gcp" or "azure"
	Region string `koanf:"region"`
}

// SQLiteConfig holds the local sqlite-vec backend settings
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ServicesConfig holds external service configuration
type ServicesConfig struct {
	Embeddings ProviderConfig `koanf:"embeddings"`
	LLM        ProviderConfig `koanf:"llm"`
	OpenAI     OpenAIConfig   `koanf:"openai"`
	Ollama     OllamaConfig   `koanf:"ollama"`
}

// ProviderConfig picks which model service backs a concern
type ProviderConfig struct {
	Provider string `koanf:"provider"` // "openai" or "ollama"
}

// OpenAIConfig holds OpenAI service configuration
type OpenAIConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
	ChatModel      string `koanf:"chat_model"`
}

// OllamaConfig holds Ollama service configuration
type OllamaConfig struct {
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
	LLMModel       string `koanf:"llm_model"`
	Timeout        int    `koanf:"timeout"` // seconds
}

// RAGConfig holds retrieval and generation settings
type RAGConfig struct {
	TopK        int     `koanf:"top_k"`
	Temperature float64 `koanf:"temperature"`
}

// AppConfig holds general application settings
type AppConfig struct {
	Environment string `koanf:"environment"` // "development", "staging", "production"
	LogLevel    string `koanf:"log_level"`   // "debug", "info", "warn", "error"
	LogFormat   string `koanf:"log_format"`  // "console" or "json"
}

// envAliases maps conventional variable names onto config keys.
var envAliases = map[string]string{
	"PINECONE_API_KEY":    "vector_store.pinecone.api_key",
	"PINECONE_INDEX_NAME": "vector_store.index_name",
	"PINECONE_CLOUD":      "vector_store.pinecone.cloud",
	"PINECONE_REGION":     "vector_store.pinecone.region",
	"OPENAI_API_KEY":      "services.openai.api_key",
}

// Load loads configuration from multiple sources with precedence:
// 1. defaults
// 2. config.yaml / config.json in the working directory, or the file at path
// 3. Environment variables (highest precedence)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	setDefaults(k)

	if err := loadConfigFiles(k, path); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: aliasKey}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment aliases: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: prefixedKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func aliasKey(k, v string) (string, any) {
	if v == "" {
		return "", nil
	}
	return envAliases[k], v
}

func prefixedKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), v
}

// setDefaults sets default configuration values
func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"server.host":          "localhost",
		"server.port":          8000,
		"server.read_timeout":  30,
		"server.write_timeout": 120,

		"vector_store.provider":        ProviderPinecone,
		"vector_store.index_name":      "pdf-chat",
		"vector_store.dimension":       1536,
		"vector_store.metric":          "cosine",
		"vector_store.batch_size":      100,
		"vector_store.pinecone.cloud":  "aws",
		"vector_store.pinecone.region": "us-east-1",
		"vector_store.sqlite.path":     "vector_store.db",

		"services.embeddings.provider":    ProviderOpenAI,
		"services.llm.provider":           ProviderOpenAI,
		"services.openai.embedding_model": "text-embedding-3-small",
		"services.openai.chat_model":      "gpt-4o-mini",
		"services.ollama.base_url":        "http://localhost:11434",
		"services.ollama.embedding_model": "nomic-embed-text",
		"services.ollama.llm_model":       "llama3",
		"services.ollama.timeout":         60,

		"rag.top_k":       5,
		"rag.temperature": 0.1,

		"app.environment": "development",
		"app.log_level":   "info",
		"app.log_format":  "console",
	}

	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

// loadConfigFiles loads an explicit file when path is set, otherwise the
// optional config.yaml and config.json from the working directory.
func loadConfigFiles(k *koanf.Koanf, path string) error {
	if path != "" {
		parser := koanf.Parser(yaml.Parser())
		if strings.HasSuffix(path, ".json") {
			parser = json.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return fmt.Errorf("error loading config file %s: %w", path, err)
		}
		return nil
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			return fmt.Errorf("error loading config.yaml: %w", err)
		}
	}

	if _, err := os.Stat("config.json"); err == nil {
		if err := k.Load(file.Provider("config.json"), json.Parser()); err != nil {
			return fmt.Errorf("error loading config.json: %w", err)
		}
	}
	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	vs := cfg.VectorStore
	switch vs.Provider {
	case ProviderPinecone:
		if vs.Pinecone.APIKey == "" {
			return fmt.Errorf("pinecone api key is required when provider is pinecone")
		}
		switch vs.Pinecone.Cloud {
		case "aws", "gcp", "azure":
		default:
			return fmt.Errorf("unsupported pinecone cloud %q", vs.Pinecone.Cloud)
		}
		if vs.Pinecone.Region == "" {
			return fmt.Errorf("pinecone region is required")
		}
	case ProviderSQLite:
		if vs.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required when provider is sqlite")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("unsupported vector store provider %q", vs.Provider)
	}

	if vs.IndexName == "" {
		return fmt.Errorf("vector store index name is required")
	}
	if vs.Dimension <= 0 {
		return fmt.Errorf("vector store dimension must be positive, got %d", vs.Dimension)
	}
	switch vs.Metric {
	case "cosine", "dotproduct", "euclidean":
	default:
		return fmt.Errorf("unsupported similarity metric %q", vs.Metric)
	}

	for name, p := range map[string]string{
		"embeddings": cfg.Services.Embeddings.Provider,
		"llm":        cfg.Services.LLM.Provider,
	} {
		switch p {
		case ProviderOpenAI:
			if cfg.Services.OpenAI.APIKey == "" {
				return fmt.Errorf("openai api key is required for %s provider", name)
			}
		case ProviderOllama:
			if cfg.Services.Ollama.BaseURL == "" {
				return fmt.Errorf("ollama base url is required for %s provider", name)
			}
		default:
			return fmt.Errorf("unsupported %s provider %q", name, p)
		}
	}

	if cfg.RAG.TopK <= 0 {
		return fmt.Errorf("rag top_k must be positive, got %d", cfg.RAG.TopK)
	}

	return nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ReadTimeout returns the server read timeout
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// WriteTimeout returns the server write timeout
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// OllamaTimeout returns the per-request timeout for Ollama calls
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Services.Ollama.Timeout) * time.Second
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
