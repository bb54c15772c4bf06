package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) *SQLiteClient {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_vector_store.db")

	client, err := NewSQLiteClient(dbPath)
	require.NoError(t, err, "failed to create SQLite client")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func setupTestIndex(t *testing.T, client *SQLiteClient) Index {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, client.CreateIndex(ctx, IndexSpec{Name: "pdf-chat", Dimension: 3, Metric: "cosine"}))
	idx, err := client.Index(ctx, "pdf-chat")
	require.NoError(t, err)
	return idx
}

func TestSQLiteClientIndexLifecycle(t *testing.T) {
	ctx := context.Background()
	client := setupTestClient(t)

	names, err := client.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = client.Index(ctx, "pdf-chat")
	assert.ErrorIs(t, err, ErrIndexNotFound)

	require.NoError(t, client.CreateIndex(ctx, IndexSpec{Name: "pdf-chat", Dimension: 3, Metric: "cosine"}))

	names, err = client.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf-chat"}, names)

	err = client.CreateIndex(ctx, IndexSpec{Name: "other", Dimension: 3, Metric: "dotproduct"})
	assert.ErrorContains(t, err, "does not support metric")
}

func TestSQLiteIndexNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t, setupTestClient(t))

	require.NoError(t, idx.Upsert(ctx, "doc1", []Record{
		{ID: "doc1_0", Values: []float32{1, 0, 0}, Metadata: map[string]interface{}{"text": "alpha", "page_number": 1}},
		{ID: "doc1_1", Values: []float32{0, 1, 0}, Metadata: map[string]interface{}{"text": "beta", "page_number": 2}},
	}, 100))
	require.NoError(t, idx.Upsert(ctx, "doc2", []Record{
		{ID: "doc2_0", Values: []float32{1, 0, 0}, Metadata: map[string]interface{}{"text": "gamma"}},
	}, 100))

	matches, err := idx.Query(ctx, "doc1", []float32{0.9, 0.1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc1_0", matches[0].ID)
	assert.Equal(t, "alpha", matches[0].Metadata["text"])
	assert.Greater(t, matches[0].Score, matches[1].Score)

	stats, err := idx.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVectorCount)
	assert.Equal(t, map[string]int{"doc1": 2, "doc2": 1}, stats.Namespaces)
}

func TestSQLiteIndexUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t, setupTestClient(t))

	require.NoError(t, idx.Upsert(ctx, "doc1", []Record{
		{ID: "doc1_0", Values: []float32{1, 0, 0}, Metadata: map[string]interface{}{"text": "old"}},
	}, 100))
	require.NoError(t, idx.Upsert(ctx, "doc1", []Record{
		{ID: "doc1_0", Values: []float32{0, 0, 1}, Metadata: map[string]interface{}{"text": "new"}},
	}, 100))

	matches, err := idx.Query(ctx, "doc1", []float32{0, 0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Metadata["text"])
}

func TestSQLiteIndexDeletes(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t, setupTestClient(t))

	require.NoError(t, idx.Upsert(ctx, "doc1", []Record{
		{ID: "doc1_0", Values: []float32{1, 0, 0}},
		{ID: "doc1_1", Values: []float32{0, 1, 0}},
	}, 100))

	require.NoError(t, idx.DeleteByID(ctx, "doc1", []string{"doc1_0", "missing"}))
	stats, err := idx.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Namespaces["doc1"])

	require.NoError(t, idx.DeleteNamespace(ctx, "doc1"))
	require.NoError(t, idx.DeleteNamespace(ctx, "doc1"), "clearing an empty namespace must succeed")

	stats, err = idx.DescribeStats(ctx)
	require.NoError(t, err)
	assert.NotContains(t, stats.Namespaces, "doc1")
}

func TestSQLiteIndexDimensionMismatch(t *testing.T) {
	idx := setupTestIndex(t, setupTestClient(t))

	err := idx.Upsert(context.Background(), "doc1", []Record{{ID: "x", Values: []float32{1, 2}}}, 100)
	assert.ErrorContains(t, err, "expects 3")
}

func TestVecTableName(t *testing.T) {
	assert.Regexp(t, `^vec_pdf_chat_[0-9a-f]{8}$`, vecTableName("pdf-chat"))
	assert.Regexp(t, `^vec_a_b_c_[0-9a-f]{8}$`, vecTableName("a.b;c"))
	assert.Equal(t, vecTableName("pdf-chat"), vecTableName("pdf-chat"))

	assert.NotEqual(t, vecTableName("pdf-chat"), vecTableName("pdf_chat"))
	assert.NotEqual(t, vecTableName("pdf-chat"), vecTableName("PDF-chat"))
}

func TestSQLiteClientSimilarIndexNames(t *testing.T) {
	ctx := context.Background()
	client := setupTestClient(t)

	require.NoError(t, client.CreateIndex(ctx, IndexSpec{Name: "pdf-chat", Dimension: 3, Metric: "cosine"}))
	require.NoError(t, client.CreateIndex(ctx, IndexSpec{Name: "pdf_chat", Dimension: 3, Metric: "cosine"}))

	dash, err := client.Index(ctx, "pdf-chat")
	require.NoError(t, err)
	underscore, err := client.Index(ctx, "pdf_chat")
	require.NoError(t, err)

	require.NoError(t, dash.Upsert(ctx, "doc1", []Record{
		{ID: "doc1_0", Values: []float32{1, 0, 0}, Metadata: map[string]interface{}{"text": "alpha"}},
	}, 100))

	stats, err := underscore.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVectorCount)

	stats, err = dash.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectorCount)
}
