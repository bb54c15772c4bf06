// Package api exposes the chat and document endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ory/herodot"
	"go.uber.org/zap"

	"pdf-rag-chat/internal/config"
	apperrors "pdf-rag-chat/internal/errors"
	"pdf-rag-chat/internal/metrics"
	"pdf-rag-chat/internal/models"
)

// Interfaces for dependency injection
type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []models.DocumentChunk, namespace string, batchSize int) ([]string, error)
	ClearNamespace(ctx context.Context, namespace string) error
	NamespaceVectorCount(ctx context.Context, namespace string) (int, bool, error)
}

type RAGQuerier interface {
	Query(ctx context.Context, question string, topK int, namespace string) (*models.QueryResult, error)
}

type Server struct {
	mux         *http.ServeMux
	vectorStore VectorStore
	rag         RAGQuerier
	writer      *herodot.JSONWriter
	errors      *apperrors.ErrorHandler
	validate    *validator.Validate
	logger      *zap.Logger
	metrics     *metrics.Metrics
	batchSize   int
}

func NewServer(vectorStore VectorStore, rag RAGQuerier, logger *zap.Logger, m *metrics.Metrics, batchSize int) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		vectorStore: vectorStore,
		rag:         rag,
		writer:      herodot.NewJSONWriter(nil),
		errors:      apperrors.NewErrorHandler(logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
		metrics:     m,
		batchSize:   batchSize,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /chat", s.chat)
	s.mux.HandleFunc("POST /chat/{$}", s.chat)
	s.mux.HandleFunc("POST /documents", s.uploadDocument)
	s.mux.HandleFunc("POST /documents/{$}", s.uploadDocument)
	s.mux.HandleFunc("GET /documents/{document_id}", s.documentStatus)
	s.mux.HandleFunc("DELETE /documents/{document_id}", s.deleteDocument)
	s.mux.HandleFunc("GET /health", s.healthCheck)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routes wrapped in the request middleware
func (s *Server) Handler() http.Handler {
	return requestIDMiddleware(s.loggingMiddleware(s.recoverMiddleware(s.unmatchedMiddleware(s.mux))))
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, cfg *config.Config) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{Status: "healthy"}
	s.writer.Write(w, r, response)
}
