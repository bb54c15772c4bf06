package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ory/herodot"
	"go.uber.org/zap"

	"pdf-rag-chat/internal/models"
)

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	var req models.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errors.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.errors.WriteError(w, r, herodot.ErrBadRequest.WithReason(validationReason(err)))
		return
	}

	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		documentID = uuid.NewString()
	}

	if req.Replace {
		if err := s.vectorStore.ClearNamespace(r.Context(), documentID); err != nil {
			s.errors.WriteError(w, r, herodot.ErrInternalServerError.WithReason(err.Error()))
			return
		}
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = s.batchSize
	}

	ids, err := s.vectorStore.AddDocuments(r.Context(), req.Chunks, documentID, batchSize)
	if err != nil {
		s.errors.WriteError(w, r, herodot.ErrInternalServerError.WithReason(err.Error()))
		return
	}

	s.logger.Info("Indexed document",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(ids)),
		zap.Bool("replace", req.Replace))

	response := &models.UploadResponse{
		DocumentID: documentID,
		Filename:   req.Filename,
		ChunkIDs:   ids,
		ChunkCount: len(ids),
		Message:    "Document indexed successfully",
	}
	s.writer.WriteCreated(w, r, "/documents/"+documentID, response)
}

func (s *Server) documentStatus(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	count, found, err := s.vectorStore.NamespaceVectorCount(r.Context(), documentID)
	if err != nil {
		s.errors.WriteError(w, r, herodot.ErrInternalServerError.WithReason(err.Error()))
		return
	}

	response := &models.DocumentStatusResponse{
		DocumentID:  documentID,
		VectorCount: count,
		Exists:      found,
	}
	s.writer.Write(w, r, response)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	if err := s.vectorStore.ClearNamespace(r.Context(), documentID); err != nil {
		s.errors.WriteError(w, r, herodot.ErrInternalServerError.WithReason(err.Error()))
		return
	}

	response := &models.DocumentDeletedResponse{
		DocumentID: documentID,
		Message:    "Document deleted successfully",
	}
	s.writer.Write(w, r, response)
}

// validationReason renders the first failed rule as a client-facing message
func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "UploadRequest.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
