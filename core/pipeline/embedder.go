package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/knights-analytics/hugot"

	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/model"
)

// LocalEmbedder runs a sentence transformer model locally through hugot.
// The default model is all-MiniLM-L6-v2 with 384-dimensional embeddings.
type LocalEmbedder struct {
	run   func(texts []string) ([][]float32, error)
	model string
	dim   int
}

// NewLocalEmbedder downloads the model if needed and initializes a hugot
// feature extraction pipeline for it. The embedding dimension is probed
// with a single inference at construction time.
func NewLocalEmbedder(modelName string) (*LocalEmbedder, error) {
	modelPath, err := helper.PrepareModel(modelName)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "docrag-embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	run := func(texts []string) ([][]float32, error) {
		result, err := sentencePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
		}
		return result.Embeddings, nil
	}

	probe, err := run([]string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}

	return &LocalEmbedder{
		run:   run,
		model: modelName,
		dim:   len(probe[0]),
	}, nil
}

// Embed generates the embedding for a single text
func (e *LocalEmbedder) Embed(text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	embeddings, err := e.run([]string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one inference call
func (e *LocalEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.run(texts)
}

// Dimension returns the embedding dimension
func (e *LocalEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns the model identifier used for embedding-space checks
func (e *LocalEmbedder) ModelInfo() string {
	return "local-" + e.model
}

// NewDefaultEmbedder returns the primary local transformer embedder, or the
// feature-hashing fallback when the primary backend cannot be initialized.
// The choice is made once and holds for the process lifetime.
func NewDefaultEmbedder(cfg *model.Config, logger *slog.Logger) Embedder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	local, err := NewLocalEmbedder(cfg.EmbeddingModel)
	if err != nil {
		logger.Warn("Local embedding backend unavailable, falling back to feature hashing",
			slog.String("model", cfg.EmbeddingModel),
			slog.String("error", err.Error()))
		return NewHashingEmbedder(DefaultHashingDimension)
	}

	logger.Info("Using local embedding backend",
		slog.String("model", cfg.EmbeddingModel),
		slog.Int("dimension", local.Dimension()))
	return local
}
