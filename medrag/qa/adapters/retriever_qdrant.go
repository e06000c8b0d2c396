package adapters

import (
	"context"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// QdrantRetriever implements Retriever against a Qdrant collection of
// pre-ingested document chunks. Queries are embedded through the Embedder
// port and matched by vector similarity; an empty or missing corpus yields
// an empty result, not an error.
type QdrantRetriever struct {
	points     qdrantclient.PointsClient
	embedder   ports.Embedder
	collection string
}

// NewQdrantRetriever connects to the Qdrant gRPC endpoint.
func NewQdrantRetriever(addr, collection string, embedder ports.Embedder) (*QdrantRetriever, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", addr, err)
	}
	return &QdrantRetriever{
		points:     qdrantclient.NewPointsClient(conn),
		embedder:   embedder,
		collection: collection,
	}, nil
}

func (r *QdrantRetriever) Search(ctx context.Context, query string, k int, filter map[string]any) ([]ports.Chunk, error) {
	if k <= 0 {
		k = 3
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	resp, err := r.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching qdrant collection %s: %w", r.collection, err)
	}

	chunks := make([]ports.Chunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		var content string
		metadata := make(map[string]any, len(point.GetPayload()))
		for key, value := range point.GetPayload() {
			if key == "text" {
				content = value.GetStringValue()
				continue
			}
			metadata[key] = value.GetStringValue()
		}
		score := float64(point.GetScore())
		chunks = append(chunks, ports.Chunk{
			Content:    content,
			Metadata:   metadata,
			Similarity: &score,
		})
	}
	return chunks, nil
}

var _ ports.Retriever = (*QdrantRetriever)(nil)
