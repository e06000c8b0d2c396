package qaports

import "context"

// Chunk is one retrieved passage with provenance and an optional similarity
// score. Chunks live for a single query and are never persisted by the core.
type Chunk struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity *float64       `json:"similarity"`
}

// Retriever returns passages relevant to a query, ranked by descending
// similarity. An empty corpus yields an empty slice, not an error.
type Retriever interface {
	Search(ctx context.Context, query string, k int, filter map[string]any) ([]Chunk, error)
}
