package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "pdf-rag-chat/internal/errors"
	"pdf-rag-chat/internal/metrics"
	"pdf-rag-chat/internal/models"
)

// Mock implementations for testing

type MockVectorStore struct {
	namespaces map[string]int
	statsErr   error
	addErr     error
	clearErr   error

	addCalls   int
	clearCalls int
	statsCalls int
	lastChunks []models.DocumentChunk
	lastBatch  int
}

func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{namespaces: make(map[string]int)}
}

func (m *MockVectorStore) AddDocuments(_ context.Context, chunks []models.DocumentChunk, namespace string, batchSize int) ([]string, error) {
	m.addCalls++
	m.lastChunks = chunks
	m.lastBatch = batchSize
	if m.addErr != nil {
		return nil, m.addErr
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s_%d", namespace, i)
	}
	if len(chunks) > m.namespaces[namespace] {
		m.namespaces[namespace] = len(chunks)
	}
	return ids, nil
}

func (m *MockVectorStore) ClearNamespace(_ context.Context, namespace string) error {
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.namespaces, namespace)
	return nil
}

func (m *MockVectorStore) NamespaceVectorCount(_ context.Context, namespace string) (int, bool, error) {
	m.statsCalls++
	if m.statsErr != nil {
		return 0, false, m.statsErr
	}
	count, ok := m.namespaces[namespace]
	return count, ok, nil
}

type MockRAG struct {
	result   *models.QueryResult
	err      error
	panicMsg string

	calls     int
	question  string
	topK      int
	namespace string
}

func (m *MockRAG) Query(_ context.Context, question string, topK int, namespace string) (*models.QueryResult, error) {
	m.calls++
	m.question = question
	m.topK = topK
	m.namespace = namespace
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.result, m.err
}

// Helper function to create a test server
func createTestServer() (*Server, *MockVectorStore, *MockRAG, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	vectorStore := NewMockVectorStore()
	rag := &MockRAG{result: &models.QueryResult{Answer: "mock answer"}}

	server := NewServer(vectorStore, rag, zap.New(core), metrics.New(), 100)
	return server, vectorStore, rag, logs
}

func doJSON(server *Server, method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	return body.Detail
}

// Unit Tests

func TestHealthCheck(t *testing.T) {
	server, _, _, _ := createTestServer()

	w := doJSON(server, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response["status"])
	}
}

func TestHealthCheckInvalidMethod(t *testing.T) {
	server, _, _, _ := createTestServer()

	w := doJSON(server, http.MethodPost, "/health", nil)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestUnmatchedRoutesReturnJSONDetail(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		wantStatus int
		wantDetail string
		wantAllow  string
	}{
		{"get chat", http.MethodGet, "/chat/", http.StatusMethodNotAllowed, "Method Not Allowed", "POST"},
		{"put health", http.MethodPut, "/health", http.StatusMethodNotAllowed, "Method Not Allowed", "GET"},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound, "Not Found", ""},
		{"unknown chat subpath", http.MethodPost, "/chat/extra", http.StatusNotFound, "Not Found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, rag, _ := createTestServer()

			w := doJSON(server, tt.method, tt.url, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Expected a JSON content type, got %q", ct)
			}
			if detail := decodeDetail(t, w); detail != tt.wantDetail {
				t.Errorf("Expected detail %q, got %q", tt.wantDetail, detail)
			}
			if tt.wantAllow != "" && !strings.Contains(w.Header().Get("Allow"), tt.wantAllow) {
				t.Errorf("Expected Allow to contain %q, got %q", tt.wantAllow, w.Header().Get("Allow"))
			}
			if rag.calls != 0 {
				t.Errorf("Expected no RAG calls, got %d", rag.calls)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	server, _, _, _ := createTestServer()

	w := doJSON(server, http.MethodGet, "/health", nil)
	if w.Header().Get(apperrors.RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(apperrors.RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(apperrors.RequestIDHeader); got != "req-123" {
		t.Errorf("Expected incoming request id to be echoed, got %q", got)
	}
}

func TestAccessLogAndMetrics(t *testing.T) {
	server, _, _, logs := createTestServer()

	doJSON(server, http.MethodGet, "/health", nil)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/health" || fields["status"] != int64(http.StatusOK) {
		t.Errorf("Unexpected access log fields: %v", fields)
	}

	w := doJSON(server, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected metrics endpoint to respond 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `pdfrag_http_requests_total{method="GET",route="GET /health",status="200"} 1`) {
		t.Errorf("Expected request counter for /health in metrics output")
	}
}

func TestPanicBecomesInternalServerError(t *testing.T) {
	server, _, rag, logs := createTestServer()
	rag.panicMsg = "nil map write"

	w := doJSON(server, http.MethodPost, "/chat/", map[string]string{
		"question":    "What is this about?",
		"document_id": "doc-1",
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if detail := decodeDetail(t, w); detail != "Internal server error: nil map write" {
		t.Errorf("Unexpected detail %q", detail)
	}
	if logs.FilterMessage("unexpected error").Len() != 1 {
		t.Error("Expected the panic to be logged at error level")
	}
}

func TestUnexpectedErrorBecomesInternalServerError(t *testing.T) {
	server, _, rag, _ := createTestServer()
	rag.err = errors.New("connection reset")

	w := doJSON(server, http.MethodPost, "/chat/", map[string]string{
		"question":    "What is this about?",
		"document_id": "doc-1",
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if detail := decodeDetail(t, w); detail != "Internal server error: connection reset" {
		t.Errorf("Unexpected detail %q", detail)
	}
}
