package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeClient talks to a managed Pinecone project.
type PineconeClient struct {
	client *pinecone.Client
}

// NewPineconeClient creates a client scoped to apiKey
func NewPineconeClient(apiKey string) (*PineconeClient, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return &PineconeClient{client: pc}, nil
}

func (c *PineconeClient) ListIndexes(ctx context.Context) ([]string, error) {
	indexes, err := c.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}
	return names, nil
}

// CreateIndex creates a serverless index in the requested cloud and region
func (c *PineconeClient) CreateIndex(ctx context.Context, spec IndexSpec) error {
	dimension := int32(spec.Dimension)
	metric := pinecone.IndexMetric(spec.Metric)

	_, err := c.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      spec.Name,
		Dimension: &dimension,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(spec.Cloud),
		Region:    spec.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", spec.Name, err)
	}
	return nil
}

func (c *PineconeClient) Index(ctx context.Context, name string) (Index, error) {
	desc, err := c.client.DescribeIndex(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrIndexNotFound, name, err)
		}
		return nil, fmt.Errorf("failed to describe index %s: %w", name, err)
	}
	return &pineconeIndex{client: c.client, host: desc.Host}, nil
}

// pineconeIndex opens a data-plane connection per call, bound to the
// namespace of that call.
type pineconeIndex struct {
	client *pinecone.Client
	host   string
}

func (p *pineconeIndex) connect(namespace string) (*pinecone.IndexConnection, error) {
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: p.host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index host %s: %w", p.host, err)
	}
	return conn, nil
}

// Upsert sends records in requests of at most batchSize vectors
func (p *pineconeIndex) Upsert(ctx context.Context, namespace string, records []Record, batchSize int) error {
	vectors, err := toPineconeVectors(records)
	if err != nil {
		return err
	}

	conn, err := p.connect(namespace)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	for _, b := range batchBounds(len(vectors), batchSize) {
		if _, err := conn.UpsertVectors(ctx, vectors[b[0]:b[1]]); err != nil {
			return fmt.Errorf("failed to upsert vectors %d-%d: %w", b[0], b[1]-1, err)
		}
	}
	return nil
}

func toPineconeVectors(records []Record) ([]*pinecone.Vector, error) {
	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		metadata, err := structpb.NewStruct(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
		}
		values := r.Values
		vectors = append(vectors, &pinecone.Vector{
			Id:       r.ID,
			Values:   &values,
			Metadata: metadata,
		})
	}
	return vectors, nil
}

// batchBounds splits n items into [start, end) ranges of at most size items.
// A size of zero or less means one batch.
func batchBounds(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var bounds [][2]int
	for start := 0; start < n; start += size {
		bounds = append(bounds, [2]int{start, min(start+size, n)})
	}
	return bounds
}

func (p *pineconeIndex) DeleteByID(ctx context.Context, namespace string, ids []string) error {
	conn, err := p.connect(namespace)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

func (p *pineconeIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	conn, err := p.connect(namespace)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.DeleteAllVectorsInNamespace(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s: %v", ErrNamespaceNotFound, namespace, err)
		}
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

func (p *pineconeIndex) DescribeStats(ctx context.Context) (*IndexStats, error) {
	conn, err := p.connect("")
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	res, err := conn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index stats: %w", err)
	}

	stats := &IndexStats{
		TotalVectorCount: int(res.TotalVectorCount),
		Namespaces:       make(map[string]int, len(res.Namespaces)),
	}
	if res.Dimension != nil {
		stats.Dimension = int(*res.Dimension)
	}
	for name, summary := range res.Namespaces {
		if summary == nil {
			continue
		}
		stats.Namespaces[name] = int(summary.VectorCount)
	}
	return stats, nil
}

func (p *pineconeIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}

	conn, err := p.connect(namespace)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query namespace %s: %w", namespace, err)
	}

	matches := make([]Match, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := Match{ID: m.Vector.Id, Score: m.Score}
		if m.Vector.Metadata != nil {
			match.Metadata = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// restNotFound matches the status field of a REST control-plane error body.
var restNotFound = regexp.MustCompile(`"status(_code)?"\s*:\s*404\b`)

// isNotFound recognises not-found failures from the gRPC data plane and the
// REST control plane. Free text mentioning 404 does not count.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.NotFound {
		return true
	}
	return restNotFound.MatchString(err.Error())
}
