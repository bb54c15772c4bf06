package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"pdf-rag-chat/internal/config"
	"pdf-rag-chat/internal/embeddings"
	"pdf-rag-chat/internal/logging"
	"pdf-rag-chat/internal/metrics"
	"pdf-rag-chat/internal/storage"
	"pdf-rag-chat/internal/vectorstore"
)

// app holds the long-lived dependencies shared by the commands
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	metrics     *metrics.Metrics
	embedder    embeddings.Embedder
	vectorStore *vectorstore.Service
	closers     []io.Closer
}

// newApp loads configuration and connects the vector store. The caller must
// call close when done.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.App)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	a.embedder, err = embeddings.New(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	client, err := storage.NewClient(cfg.VectorStore)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to vector store: %w", err)
	}
	if c, ok := client.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.vectorStore = vectorstore.NewService(client, a.embedder, cfg.VectorStore, logger, a.metrics)
	if err := a.vectorStore.Initialize(ctx); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("Error closing vector store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
