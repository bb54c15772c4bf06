package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PINECONE_API_KEY", "pc-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderPinecone, cfg.VectorStore.Provider)
	assert.Equal(t, "pdf-chat", cfg.VectorStore.IndexName)
	assert.Equal(t, 1536, cfg.VectorStore.Dimension)
	assert.Equal(t, "cosine", cfg.VectorStore.Metric)
	assert.Equal(t, 100, cfg.VectorStore.BatchSize)
	assert.Equal(t, "aws", cfg.VectorStore.Pinecone.Cloud)
	assert.Equal(t, "us-east-1", cfg.VectorStore.Pinecone.Region)
	assert.Equal(t, "pc-test", cfg.VectorStore.Pinecone.APIKey)
	assert.Equal(t, "sk-test", cfg.Services.OpenAI.APIKey)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "localhost:8000", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadPrefixedEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("PDFRAG_VECTOR_STORE__PINECONE__CLOUD", "gcp")
	t.Setenv("PDFRAG_VECTOR_STORE__PINECONE__REGION", "europe-west4")
	t.Setenv("PDFRAG_SERVER__PORT", "9090")
	t.Setenv("PDFRAG_APP__LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gcp", cfg.VectorStore.Pinecone.Cloud)
	assert.Equal(t, "europe-west4", cfg.VectorStore.Pinecone.Region)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "json", cfg.App.LogFormat)
}

func TestLoadExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte(`
vector_store:
  provider: sqlite
  index_name: local-docs
  dimension: 768
  sqlite:
    path: /tmp/local.db
services:
  embeddings:
    provider: ollama
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderSQLite, cfg.VectorStore.Provider)
	assert.Equal(t, "local-docs", cfg.VectorStore.IndexName)
	assert.Equal(t, 768, cfg.VectorStore.Dimension)
	assert.Equal(t, "/tmp/local.db", cfg.VectorStore.SQLite.Path)
	assert.Equal(t, ProviderOllama, cfg.Services.Embeddings.Provider)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing pinecone key",
			env:     map[string]string{"OPENAI_API_KEY": "sk-test"},
			wantErr: "pinecone api key is required",
		},
		{
			name: "unknown cloud",
			env: map[string]string{
				"PINECONE_API_KEY": "pc-test",
				"OPENAI_API_KEY":   "sk-test",
				"PINECONE_CLOUD":   "on-prem",
			},
			wantErr: `unsupported pinecone cloud "on-prem"`,
		},
		{
			name: "unknown metric",
			env: map[string]string{
				"PINECONE_API_KEY":            "pc-test",
				"OPENAI_API_KEY":              "sk-test",
				"PDFRAG_VECTOR_STORE__METRIC": "manhattan",
			},
			wantErr: `unsupported similarity metric "manhattan"`,
		},
		{
			name: "missing openai key",
			env: map[string]string{
				"PINECONE_API_KEY": "pc-test",
			},
			wantErr: "openai api key is required",
		},
		{
			name: "unknown provider",
			env: map[string]string{
				"OPENAI_API_KEY":                "sk-test",
				"PDFRAG_VECTOR_STORE__PROVIDER": "qdrant",
			},
			wantErr: `unsupported vector store provider "qdrant"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			// Clear aliases that may leak in from the host environment.
			for alias := range envAliases {
				t.Setenv(alias, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMemoryProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PINECONE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PDFRAG_VECTOR_STORE__PROVIDER", "memory")
	t.Setenv("PDFRAG_SERVICES__EMBEDDINGS__PROVIDER", "ollama")
	t.Setenv("PDFRAG_SERVICES__LLM__PROVIDER", "ollama")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderMemory, cfg.VectorStore.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Services.Ollama.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.OllamaTimeout())
}
