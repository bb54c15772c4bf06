package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdf-rag-chat/internal/api"
	"pdf-rag-chat/internal/llm"
	"pdf-rag-chat/internal/rag"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the chat and document HTTP API until interrupted.

Examples:
  # Serve with config.yaml from the working directory
  pdfrag serve

  # Serve against a local sqlite-vec database
  PDFRAG_VECTOR_STORE__PROVIDER=sqlite pdfrag serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	generator, err := llm.New(a.cfg)
	if err != nil {
		return err
	}

	ragService := rag.NewService(a.vectorStore, a.embedder, generator, a.logger, a.metrics)
	server := api.NewServer(a.vectorStore, ragService, a.logger, a.metrics, a.cfg.VectorStore.BatchSize)

	a.logger.Info("Starting pdfrag",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("vector_store", a.cfg.VectorStore.Provider),
		zap.String("index", a.cfg.VectorStore.IndexName),
		zap.String("embeddings", a.cfg.Services.Embeddings.Provider),
		zap.String("llm", a.cfg.Services.LLM.Provider))

	return server.Run(ctx, a.cfg)
}
