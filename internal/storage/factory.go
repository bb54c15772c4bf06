package storage

import (
	"fmt"

	"pdf-rag-chat/internal/config"
)

// NewClient opens the backend selected by vector_store.provider. The caller
// owns the returned client and should close it if it implements io.Closer.
func NewClient(cfg config.VectorStoreConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderPinecone:
		return NewPineconeClient(cfg.Pinecone.APIKey)
	case config.ProviderSQLite:
		return NewSQLiteClient(cfg.SQLite.Path)
	case config.ProviderMemory:
		return NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider %q", cfg.Provider)
	}
}
