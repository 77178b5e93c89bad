package index

import (
	"context"
	"errors"
	"math"

	"github.com/oran-nephio/docrag/model"
)

var (
	// ErrEmptyIndex is returned when searching an index with no entries
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrModelMismatch is returned when the embedder's model or dimension
	// differs from the one the index was built with
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// ModelTag pins the embedding space an index was built with. Mixing
// embedders across ingestion and query produces undefined similarity, so
// the tag is persisted and checked at startup.
type ModelTag struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// Store is the persistence backend for (vector, chunk, metadata) tuples.
// Implementations must keep a single Upsert atomic with respect to readers
// and survive process restarts.
type Store interface {
	// Upsert writes the chunks, overwriting entries sharing a chunk id,
	// and returns the count written
	Upsert(ctx context.Context, chunks []*model.Chunk) (int, error)
	// DeleteBySource removes all chunks of one source URL and returns
	// the number removed
	DeleteBySource(ctx context.Context, sourceURL string) (int, error)
	// Nearest returns the k nearest chunks by cosine similarity, best
	// first, with embeddings attached
	Nearest(ctx context.Context, query []float32, k int) ([]*model.ScoredChunk, error)
	// Count returns the total number of stored chunks
	Count(ctx context.Context) (int, error)

	// SourceState returns the sync bookkeeping for a source, nil when
	// the source has never been indexed
	SourceState(ctx context.Context, sourceURL string) (*model.SourceState, error)
	// SetSourceState records the sync bookkeeping for a source
	SetSourceState(ctx context.Context, state *model.SourceState) error

	// Tag returns the persisted embedding-space tag, nil when unset
	Tag(ctx context.Context) (*ModelTag, error)
	// SetTag persists the embedding-space tag
	SetTag(ctx context.Context, tag ModelTag) error

	Close() error
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched dimensions or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float64(dotProduct) / (math.Sqrt(float64(normA)) * math.Sqrt(float64(normB)))
}
