package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// OllamaGenerator implements Generator against a local or remote Ollama
// server. Text completions use the configured model; vision completions use
// a separate multimodal model.
type OllamaGenerator struct {
	client      *api.Client
	model       string
	visionModel string
}

// NewOllamaGenerator builds a generator for the given Ollama host URL.
func NewOllamaGenerator(host, model, visionModel string) (*OllamaGenerator, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	httpClient := &http.Client{Timeout: 5 * time.Minute}
	return &OllamaGenerator{
		client:      api.NewClient(base, httpClient),
		model:       model,
		visionModel: visionModel,
	}, nil
}

func (g *OllamaGenerator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return g.generate(ctx, g.model, prompt, maxTokens, nil)
}

func (g *OllamaGenerator) CompleteVision(ctx context.Context, prompt string, image []byte) (string, error) {
	model := g.visionModel
	if model == "" {
		model = g.model
	}
	return g.generate(ctx, model, prompt, 0, []api.ImageData{image})
}

func (g *OllamaGenerator) generate(ctx context.Context, model, prompt string, maxTokens int, images []api.ImageData) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
		Images: images,
	}
	if maxTokens > 0 {
		req.Options = map[string]any{"num_predict": maxTokens}
	}

	var sb strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

var _ ports.Generator = (*OllamaGenerator)(nil)
