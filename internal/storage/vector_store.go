// Package storage provides the vector database backends used to index
// document chunks. Every backend partitions its vectors by namespace.
package storage

import (
	"context"
	"errors"
)

// MetadataTextKey is the metadata key holding a chunk's text.
const MetadataTextKey = "text"

var (
	// ErrIndexNotFound is returned when opening an index that does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrNamespaceNotFound is returned by backends that reject operations
	// on namespaces holding no vectors.
	ErrNamespaceNotFound = errors.New("namespace not found")
)

// IndexSpec describes an index to create.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string // "cosine", "dotproduct" or "euclidean"
	Cloud     string
	Region    string
}

// Record is a vector to upsert together with its metadata.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// Match is a query hit. Higher scores are more similar.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// IndexStats summarises an index. Namespaces maps each namespace to its
// vector count.
type IndexStats struct {
	Dimension        int
	TotalVectorCount int
	Namespaces       map[string]int
}

// Client manages indexes on a vector database.
type Client interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
	Index(ctx context.Context, name string) (Index, error)
}

// Index is a handle on one index. Every data operation is scoped to a single
// namespace; the empty namespace is the backend's default partition.
type Index interface {
	// Upsert writes records, replacing any with the same id. batchSize caps
	// how many records go in one backend request.
	Upsert(ctx context.Context, namespace string, records []Record, batchSize int) error
	DeleteByID(ctx context.Context, namespace string, ids []string) error
	DeleteNamespace(ctx context.Context, namespace string) error
	DescribeStats(ctx context.Context) (*IndexStats, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
