package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ory/herodot"
	"go.uber.org/zap"

	apperrors "pdf-rag-chat/internal/errors"
	"pdf-rag-chat/internal/models"
)

// chatTopK is the number of chunks retrieved per question
const chatTopK = 5

const (
	uploadedMaterialsMessage = "Information about uploaded materials"
	noFilenamePlaceholder    = "No filename provided"
)

// uploadedMaterialsPhrases mark a question about what was uploaded rather
// than about the document's content.
var uploadedMaterialsPhrases = []string{
	"what materials",
	"what documents",
	"what files",
	"what pdfs",
	"what have i uploaded",
	"what did i upload",
	"list my files",
	"list my documents",
	"show my files",
	"show my documents",
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errors.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	response, err := s.answer(r.Context(), &req)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	s.writer.Write(w, r, response)
}

func (s *Server) answer(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, herodot.ErrBadRequest.WithReason("Question cannot be empty")
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, herodot.ErrBadRequest.WithReason("Document ID is required. Please upload a PDF first.")
	}

	s.checkNamespace(ctx, req.DocumentID)

	if asksAboutUploads(req.Question) {
		filename := noFilenamePlaceholder
		if req.Filename != nil && *req.Filename != "" {
			filename = *req.Filename
		}
		return &models.ChatResponse{
			Answer:       fmt.Sprintf("You have uploaded: **%s**\n\nAsk questions about this document.", filename),
			Sources:      []models.Source{},
			FromDocument: false,
			Message:      models.StringPtr(uploadedMaterialsMessage),
			Filename:     req.Filename,
		}, nil
	}

	result, err := s.rag.Query(ctx, req.Question, chatTopK, req.DocumentID)
	if err != nil {
		if apperrors.IsRAGServiceError(err) {
			return nil, herodot.ErrInternalServerError.WithReason("RAG query failed: " + err.Error())
		}
		return nil, err
	}

	response := &models.ChatResponse{
		Answer:       result.Answer,
		Sources:      result.Sources,
		FromDocument: true,
		Message:      result.Message,
		Filename:     req.Filename,
	}
	if response.Sources == nil {
		response.Sources = []models.Source{}
	}
	if result.FromDocument != nil {
		response.FromDocument = *result.FromDocument
	}
	return response, nil
}

// checkNamespace logs whether the document has been indexed. It never fails
// the request: an unknown or unreachable namespace still gets an answer.
func (s *Server) checkNamespace(ctx context.Context, documentID string) {
	count, found, err := s.vectorStore.NamespaceVectorCount(ctx, documentID)
	switch {
	case err != nil:
		s.logger.Warn("Could not validate document_id",
			zap.String("document_id", documentID),
			zap.Error(err))
	case found:
		s.logger.Info("Document found in index",
			zap.String("document_id", documentID),
			zap.Int("vector_count", count))
	default:
		s.logger.Warn("Document ID not found in index", zap.String("document_id", documentID))
	}
}

func asksAboutUploads(question string) bool {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, phrase := range uploadedMaterialsPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}
