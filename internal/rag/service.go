// Package rag answers questions about an uploaded document by retrieving its
// most similar chunks and generating an answer grounded in them.
package rag

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"go.uber.org/zap"

	"pdf-rag-chat/internal/embeddings"
	apperrors "pdf-rag-chat/internal/errors"
	"pdf-rag-chat/internal/metrics"
	"pdf-rag-chat/internal/models"
	"pdf-rag-chat/internal/storage"
)

const (
	NoMatchAnswer  = "I couldn't find any relevant information in the uploaded document to answer this question."
	NoMatchMessage = "No relevant content found in document"

	// maxSourceTextRunes caps the passage text returned to clients
	maxSourceTextRunes = 500
)

// IndexProvider hands out the initialized vector index
type IndexProvider interface {
	Store() (storage.Index, error)
}

// Generator writes an answer from a question and its supporting passages
type Generator interface {
	Generate(ctx context.Context, question string, sources []models.Source) (string, error)
}

type Service struct {
	store     IndexProvider
	embedder  embeddings.Embedder
	generator Generator
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewService(store IndexProvider, embedder embeddings.Embedder, generator Generator, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		generator: generator,
		logger:    logger.Named("rag"),
		metrics:   m,
	}
}

// Query answers question from the topK chunks of namespace most similar to it
func (s *Service) Query(ctx context.Context, question string, topK int, namespace string) (*models.QueryResult, error) {
	result, err := s.query(ctx, question, topK, namespace)
	if err != nil {
		s.metrics.RecordRAGQuery("error")
		return nil, err
	}
	return result, nil
}

func (s *Service) query(ctx context.Context, question string, topK int, namespace string) (*models.QueryResult, error) {
	index, err := s.store.Store()
	if err != nil {
		return nil, apperrors.NewRAGServiceError("failed to query document", err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, apperrors.NewRAGServiceError("failed to embed question", err)
	}

	matches, err := index.Query(ctx, namespace, vector, topK)
	if err != nil {
		return nil, apperrors.NewRAGServiceError("failed to search document", err)
	}

	if len(matches) == 0 {
		s.logger.Info("No relevant chunks found", zap.String("namespace", namespace))
		s.metrics.RecordRAGQuery("no_match")
		return &models.QueryResult{
			Answer:       NoMatchAnswer,
			Sources:      []models.Source{},
			FromDocument: models.BoolPtr(false),
			Message:      models.StringPtr(NoMatchMessage),
		}, nil
	}

	sources := make([]models.Source, len(matches))
	for i, m := range matches {
		sources[i] = sourceFromMatch(m)
	}

	answer, err := s.generator.Generate(ctx, question, sources)
	if err != nil {
		return nil, apperrors.NewRAGServiceError("failed to generate answer", err)
	}

	s.logger.Info("Answered question",
		zap.String("namespace", namespace),
		zap.Int("sources", len(sources)))
	s.metrics.RecordRAGQuery("answered")

	for i := range sources {
		sources[i].Text = truncate(sources[i].Text, maxSourceTextRunes)
	}
	return &models.QueryResult{
		Answer:       answer,
		Sources:      sources,
		FromDocument: models.BoolPtr(true),
	}, nil
}

// sourceFromMatch lifts the structural fields out of a match's metadata.
// Numbers come back from the backends as float64.
func sourceFromMatch(m storage.Match) models.Source {
	src := models.Source{ID: m.ID, Score: m.Score}

	metadata := maps.Clone(m.Metadata)
	if text, ok := metadata[storage.MetadataTextKey].(string); ok {
		src.Text = text
	}
	src.PageNumber = toInt(metadata["page_number"])
	src.ChunkIndex = toInt(metadata["chunk_index"])

	delete(metadata, storage.MetadataTextKey)
	delete(metadata, "page_number")
	delete(metadata, "chunk_index")
	if len(metadata) > 0 {
		src.Metadata = metadata
	}
	return src
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &i); err == nil {
			return i
		}
	}
	return 0
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
