package embeddings

import (
	"fmt"

	"pdf-rag-chat/internal/config"
)

// New builds the embedder selected by services.embeddings.provider
func New(cfg *config.Config) (Embedder, error) {
	switch cfg.Services.Embeddings.Provider {
	case config.ProviderOpenAI:
		oa := cfg.Services.OpenAI
		return NewOpenAIEmbedder(oa.APIKey, oa.BaseURL, oa.EmbeddingModel, cfg.VectorStore.Dimension), nil
	case config.ProviderOllama:
		ol := cfg.Services.Ollama
		return NewOllamaEmbedder(ol.BaseURL, ol.EmbeddingModel, cfg.OllamaTimeout())
	default:
		return nil, fmt.Errorf("unsupported embeddings provider %q", cfg.Services.Embeddings.Provider)
	}
}
