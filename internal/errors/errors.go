// Package errors provides the typed service errors and HTTP error translation
package errors

import (
	stderrors "errors"
)

// ErrNotInitialized is returned by every vector store operation after a
// failed initialization.
var ErrNotInitialized = stderrors.New("vector store not initialized")

// VectorStoreError reports a failure talking to the vector database
type VectorStoreError struct {
	Op  string
	Err error
}

// NewVectorStoreError wraps err as a failure of op
func NewVectorStoreError(op string, err error) *VectorStoreError {
	return &VectorStoreError{Op: op, Err: err}
}

// Error implements the error interface
func (e *VectorStoreError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause
func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// RAGServiceError reports a failure answering a question
type RAGServiceError struct {
	Op  string
	Err error
}

// NewRAGServiceError wraps err as a failure of op
func NewRAGServiceError(op string, err error) *RAGServiceError {
	return &RAGServiceError{Op: op, Err: err}
}

// Error implements the error interface
func (e *RAGServiceError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause
func (e *RAGServiceError) Unwrap() error {
	return e.Err
}

// IsVectorStoreError reports whether err is or wraps a VectorStoreError
func IsVectorStoreError(err error) bool {
	var vsErr *VectorStoreError
	return stderrors.As(err, &vsErr)
}

// IsRAGServiceError reports whether err is or wraps a RAGServiceError
func IsRAGServiceError(err error) bool {
	var ragErr *RAGServiceError
	return stderrors.As(err, &ragErr)
}
