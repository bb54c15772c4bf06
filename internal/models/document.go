package models

// DocumentChunk is one extracted span of an uploaded PDF, ready for indexing.
type DocumentChunk struct {
	Text       string                 `json:"text" validate:"required"`
	PageNumber int                    `json:"page_number" validate:"gte=0"`
	ChunkIndex int                    `json:"chunk_index" validate:"gte=0"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Source describes a retrieved passage that supports an answer.
type Source struct {
	ID         string                 `json:"id"`
	Text       string                 `json:"text"`
	PageNumber int                    `json:"page_number"`
	ChunkIndex int                    `json:"chunk_index"`
	Score      float32                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// QueryResult is what the RAG service returns for a question. A nil
// FromDocument means the answer was grounded in retrieved content.
type QueryResult struct {
	Answer       string
	Sources      []Source
	FromDocument *bool
	Message      *string
}

type ChatRequest struct {
	Question   string  `json:"question"`
	DocumentID string  `json:"document_id"`
	Filename   *string `json:"filename,omitempty"`
}

type ChatResponse struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	FromDocument bool     `json:"from_document"`
	Message      *string  `json:"message,omitempty"`
	Filename     *string  `json:"filename,omitempty"`
}

// UploadRequest indexes pre-extracted chunks under one document namespace.
type UploadRequest struct {
	DocumentID string          `json:"document_id"`
	Filename   *string         `json:"filename,omitempty"`
	Replace    bool            `json:"replace"`
	BatchSize  int             `json:"batch_size" validate:"gte=0,lte=1000"`
	Chunks     []DocumentChunk `json:"chunks" validate:"required,min=1,dive"`
}

type UploadResponse struct {
	DocumentID string   `json:"document_id"`
	Filename   *string  `json:"filename,omitempty"`
	ChunkIDs   []string `json:"chunk_ids"`
	ChunkCount int      `json:"chunk_count"`
	Message    string   `json:"message"`
}

type DocumentStatusResponse struct {
	DocumentID  string `json:"document_id"`
	VectorCount int    `json:"vector_count"`
	Exists      bool   `json:"exists"`
}

type DocumentDeletedResponse struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
