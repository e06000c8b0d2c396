package qaports

import "context"

// Generator is the abstraction for the answer-generation backend (LLM
// inference hidden behind this port). Both calls may fail; callers treat a
// failure as "no answer" and continue through their fallback paths.
type Generator interface {
	// Complete produces text for a prompt, bounded by maxTokens.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)

	// CompleteVision produces text for a prompt plus raw image bytes.
	CompleteVision(ctx context.Context, prompt string, image []byte) (string, error)
}

// Embedder turns text into a vector for similarity search. Consumed by
// retriever adapters that front a remote vector index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
