package llm

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag-chat/internal/config"
)

// New builds a Generator backed by the model selected by services.llm.provider
func New(cfg *config.Config) (*Generator, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Services.LLM.Provider {
	case config.ProviderOpenAI:
		oa := cfg.Services.OpenAI
		opts := []openai.Option{
			openai.WithToken(oa.APIKey),
			openai.WithModel(oa.ChatModel),
		}
		if oa.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(oa.BaseURL))
		}
		model, err = openai.New(opts...)
	case config.ProviderOllama:
		ol := cfg.Services.Ollama
		model, err = ollama.New(
			ollama.WithServerURL(ol.BaseURL),
			ollama.WithModel(ol.LLMModel),
			ollama.WithHTTPClient(&http.Client{Timeout: cfg.OllamaTimeout()}),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Services.LLM.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Services.LLM.Provider, err)
	}

	return NewGenerator(model, cfg.RAG.Temperature), nil
}
