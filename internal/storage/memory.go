package storage

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"
)

// MemoryClient is an in-process vector database. It is meant for local
// development and tests; nothing survives a restart.
type MemoryClient struct {
	mu      sync.RWMutex
	indexes map[string]*MemoryIndex
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{indexes: make(map[string]*MemoryIndex)}
}

func (c *MemoryClient) ListIndexes(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.indexes))
	for name := range c.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *MemoryClient) CreateIndex(_ context.Context, spec IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.indexes[spec.Name]; exists {
		return fmt.Errorf("index %s already exists", spec.Name)
	}
	c.indexes[spec.Name] = &MemoryIndex{
		spec:       spec,
		namespaces: make(map[string]map[string]Record),
	}
	return nil
}

func (c *MemoryClient) Index(_ context.Context, name string) (Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return idx, nil
}

// MemoryIndex holds vectors grouped by namespace.
type MemoryIndex struct {
	spec       IndexSpec
	namespaces map[string]map[string]Record
	mu         sync.RWMutex
}

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, records []Record, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if len(r.Values) != m.spec.Dimension {
			return fmt.Errorf("vector %s has dimension %d, index expects %d", r.ID, len(r.Values), m.spec.Dimension)
		}
	}

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]Record)
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = Record{ID: r.ID, Values: r.Values, Metadata: maps.Clone(r.Metadata)}
	}
	return nil
}

func (m *MemoryIndex) DeleteByID(_ context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	if len(ns) == 0 {
		delete(m.namespaces, namespace)
	}
	return nil
}

func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) DescribeStats(_ context.Context) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &IndexStats{
		Dimension:  m.spec.Dimension,
		Namespaces: make(map[string]int, len(m.namespaces)),
	}
	for name, ns := range m.namespaces {
		stats.Namespaces[name] = len(ns)
		stats.TotalVectorCount += len(ns)
	}
	return stats, nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.namespaces[namespace]
	if len(ns) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	scores := make([]Match, 0, len(ns))
	for _, r := range ns {
		scores = append(scores, Match{
			ID:       r.ID,
			Score:    m.score(vector, r.Values),
			Metadata: maps.Clone(r.Metadata),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].ID < scores[j].ID
		}
		return scores[i].Score > scores[j].Score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	return scores[:topK], nil
}

func (m *MemoryIndex) score(a, b []float32) float32 {
	switch m.spec.Metric {
	case "dotproduct":
		return dotProduct(a, b)
	case "euclidean":
		return -euclideanDistance(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func dotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func euclideanDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
