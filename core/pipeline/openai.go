package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder is a remote embedding backend using the OpenAI API.
// Useful when no local model can be shipped with the process.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	dim     int
	timeout time.Duration
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder.
// Supported models: text-embedding-3-small (1536) and
// text-embedding-3-large (3072).
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	dim := 1536
	if model == string(openai.LargeEmbedding3) {
		dim = 3072
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(apiKey),
		model:   openai.EmbeddingModel(model),
		dim:     dim,
		timeout: 30 * time.Second,
	}, nil
}

// Embed generates an embedding for a single text
func (e *OpenAIEmbedder) Embed(text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}
	embeddings, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call
func (e *OpenAIEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		l2normalize(vec)
		embeddings[d.Index] = vec
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns the model identifier used for embedding-space checks
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + string(e.model)
}
