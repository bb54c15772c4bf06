// Package vectorstore owns the connection to the vector database and the
// lifecycle of the document index. Every uploaded document is stored in its
// own namespace.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"pdf-rag-chat/internal/config"
	"pdf-rag-chat/internal/embeddings"
	apperrors "pdf-rag-chat/internal/errors"
	"pdf-rag-chat/internal/metrics"
	"pdf-rag-chat/internal/models"
	"pdf-rag-chat/internal/storage"
)

// DefaultBatchSize is used when AddDocuments is given a non-positive batch size
const DefaultBatchSize = 100

// Service indexes document chunks and manages namespaces. Initialize must
// complete before the service is shared between goroutines.
type Service struct {
	client   storage.Client
	embedder embeddings.Embedder
	cfg      config.VectorStoreConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics

	index storage.Index
}

func NewService(client storage.Client, embedder embeddings.Embedder, cfg config.VectorStoreConfig, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.Named("vectorstore"),
		metrics:  m,
	}
}

// Initialize ensures the configured index exists and opens it. On failure the
// service stays uninitialized and every operation reports ErrNotInitialized.
func (s *Service) Initialize(ctx context.Context) error {
	names, err := s.client.ListIndexes(ctx)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to initialize vector store", err)
	}

	if !slices.Contains(names, s.cfg.IndexName) {
		spec := storage.IndexSpec{
			Name:      s.cfg.IndexName,
			Dimension: s.cfg.Dimension,
			Metric:    s.cfg.Metric,
			Cloud:     s.cfg.Pinecone.Cloud,
			Region:    s.cfg.Pinecone.Region,
		}
		s.logger.Info("Creating vector index",
			zap.String("index", spec.Name),
			zap.Int("dimension", spec.Dimension),
			zap.String("metric", spec.Metric),
			zap.String("cloud", spec.Cloud),
			zap.String("region", spec.Region))

		if err := s.client.CreateIndex(ctx, spec); err != nil {
			return apperrors.NewVectorStoreError("failed to initialize vector store", err)
		}
	}

	index, err := s.client.Index(ctx, s.cfg.IndexName)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to initialize vector store", err)
	}
	s.index = index

	s.logger.Info("Vector store initialized", zap.String("index", s.cfg.IndexName))
	return nil
}

// Store returns the initialized index handle
func (s *Service) Store() (storage.Index, error) {
	if s.index == nil {
		return nil, apperrors.NewVectorStoreError("", apperrors.ErrNotInitialized)
	}
	return s.index, nil
}

// AddDocuments embeds chunks and writes them to namespace. Chunk i is stored
// under the id "{namespace}_{i}", or "chunk_{i}" when namespace is empty, so
// re-adding a document overwrites its previous chunks position by position.
func (s *Service) AddDocuments(ctx context.Context, chunks []models.DocumentChunk, namespace string, batchSize int) ([]string, error) {
	index, err := s.Store()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		ids[i] = chunkID(namespace, i)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("failed to add documents", fmt.Errorf("embedding chunks: %w", err))
	}
	if len(vectors) != len(chunks) {
		return nil, apperrors.NewVectorStoreError("failed to add documents",
			fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)))
	}

	records := make([]storage.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = storage.Record{
			ID:       ids[i],
			Values:   vectors[i],
			Metadata: chunkMetadata(chunk),
		}
	}

	start := time.Now()
	err = index.Upsert(ctx, namespace, records, batchSize)
	s.metrics.RecordVectorStoreOp("upsert", time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("failed to add documents", err)
	}
	s.metrics.AddChunksIndexed(len(records))

	s.logger.Info("Added chunks to vector store",
		zap.Int("count", len(ids)),
		zap.String("namespace", namespace))
	return ids, nil
}

// DeleteDocuments removes the given chunk ids from namespace
func (s *Service) DeleteDocuments(ctx context.Context, ids []string, namespace string) error {
	index, err := s.Store()
	if err != nil {
		return err
	}

	start := time.Now()
	err = index.DeleteByID(ctx, namespace, ids)
	s.metrics.RecordVectorStoreOp("delete", time.Since(start), err)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to delete documents", err)
	}

	s.logger.Info("Deleted chunks from vector store",
		zap.Int("count", len(ids)),
		zap.String("namespace", namespace))
	return nil
}

// ClearNamespace removes every vector in namespace. Clearing a namespace that
// holds nothing succeeds.
func (s *Service) ClearNamespace(ctx context.Context, namespace string) error {
	index, err := s.Store()
	if err != nil {
		return err
	}

	start := time.Now()
	err = index.DeleteNamespace(ctx, namespace)
	if errors.Is(err, storage.ErrNamespaceNotFound) {
		s.logger.Info("Namespace already empty", zap.String("namespace", namespace))
		err = nil
	}
	s.metrics.RecordVectorStoreOp("clear_namespace", time.Since(start), err)
	if err != nil {
		return apperrors.NewVectorStoreError("failed to clear namespace", err)
	}

	s.logger.Info("Cleared namespace", zap.String("namespace", namespace))
	return nil
}

// Stats describes the index and the vector count of every namespace
func (s *Service) Stats(ctx context.Context) (*storage.IndexStats, error) {
	index, err := s.Store()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats, err := index.DescribeStats(ctx)
	s.metrics.RecordVectorStoreOp("describe_stats", time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewVectorStoreError("failed to describe index", err)
	}
	return stats, nil
}

// NamespaceVectorCount reports how many vectors namespace holds and whether it
// exists at all.
func (s *Service) NamespaceVectorCount(ctx context.Context, namespace string) (int, bool, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, false, err
	}
	count, found := stats.Namespaces[namespace]
	return count, found, nil
}

func chunkID(namespace string, i int) string {
	if namespace == "" {
		return fmt.Sprintf("chunk_%d", i)
	}
	return fmt.Sprintf("%s_%d", namespace, i)
}

// chunkMetadata layers the structural fields over the caller's metadata
func chunkMetadata(chunk models.DocumentChunk) map[string]interface{} {
	metadata := make(map[string]interface{}, len(chunk.Metadata)+3)
	maps.Copy(metadata, chunk.Metadata)
	metadata["page_number"] = chunk.PageNumber
	metadata["chunk_index"] = chunk.ChunkIndex
	metadata[storage.MetadataTextKey] = chunk.Text
	return metadata
}
