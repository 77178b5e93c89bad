package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oran-nephio/docrag/model"
)

// Window is one chunk-sized slice of a document's cleaned text.
// Positions are rune offsets into the cleaned content.
type Window struct {
	Text  string
	Start int
	End   int
	Index int
}

// ChunkFunc splits cleaned text into overlapping windows
type ChunkFunc func(text string) ([]Window, error)

// Embedder maps texts to fixed-dimension vectors. Implementations must be
// deterministic for the same input and report a stable model identifier so
// the index can reject mixed embedding spaces.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// Pipeline combines the chunking and embedding stages
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder Embedder
	log      *slog.Logger
}

// NewPipeline creates a processing pipeline
func NewPipeline(chunker ChunkFunc, embedder Embedder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
		log:      logger,
	}
}

// Process chunks a validated document and embeds every chunk.
// A per-chunk embedding failure is isolated: the failed chunk is dropped
// and reported in the joined error while the rest of the batch proceeds.
// The returned chunks carry deterministic ids and inherit the document
// metadata.
func (p *Pipeline) Process(doc *model.ProcessedDocument) ([]*model.Chunk, error) {
	windows, err := p.Chunker(doc.CleanedContent)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", doc.SourceURL)
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}

	// Batch first for throughput, fall back to per-text embedding so a
	// single bad text cannot take down the whole document.
	embeddings, batchErr := p.Embedder.EmbedBatch(texts)
	if batchErr == nil && len(embeddings) != len(texts) {
		batchErr = fmt.Errorf("embedding count mismatch: got %d for %d texts", len(embeddings), len(texts))
	}

	var failures []error
	chunks := make([]*model.Chunk, 0, len(windows))
	now := time.Now().UTC()

	for i, w := range windows {
		var embedding []float32
		if batchErr == nil {
			embedding = embeddings[i]
		} else {
			var embedErr error
			embedding, embedErr = p.Embedder.Embed(w.Text)
			if embedErr != nil {
				failures = append(failures, fmt.Errorf("chunk %d: %w", w.Index, embedErr))
				p.log.Warn("Skipping chunk after embedding failure",
					slog.String("source_url", doc.SourceURL),
					slog.Int("chunk_index", w.Index),
					slog.String("error", embedErr.Error()))
				continue
			}
		}

		metadata := doc.Metadata.Clone()
		metadata["chunk_index"] = w.Index

		chunks = append(chunks, &model.Chunk{
			ID:         model.ChunkID(doc.SourceURL, w.Index),
			SourceURL:  doc.SourceURL,
			Text:       w.Text,
			Embedding:  embedding,
			ChunkIndex: w.Index,
			StartPos:   w.Start,
			EndPos:     w.End,
			Metadata:   metadata,
			CreatedAt:  now,
		})
	}

	if len(chunks) == 0 {
		failures = append(failures, fmt.Errorf("all %d chunks of %s failed to embed", len(windows), doc.SourceURL))
		return nil, errors.Join(failures...)
	}

	return chunks, errors.Join(failures...)
}
