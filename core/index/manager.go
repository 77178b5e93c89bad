package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/model"
)

// Manager is the single mutable shared resource of the ingestion pipeline.
// It wraps a Store with per-source write serialization, embedding-space
// consistency checks and the diversified (MMR) search used by the
// retriever. Reads stay concurrent at all times, including during a sync.
type Manager struct {
	store Store
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager over the given store
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store: store,
		log:   logger,
		locks: make(map[string]*sync.Mutex),
	}
}

// EnsureModel verifies that the store was built with the given embedding
// model and dimension, recording the tag on first use. A mismatch is fatal
// for the process: mixed embedding spaces produce undefined similarity.
func (m *Manager) EnsureModel(ctx context.Context, modelInfo string, dimension int) error {
	tag, err := m.store.Tag(ctx)
	if err != nil {
		return helper.NewError("read index model tag", err)
	}
	if tag == nil {
		return m.store.SetTag(ctx, ModelTag{Model: modelInfo, Dimension: dimension})
	}
	if tag.Model != modelInfo || tag.Dimension != dimension {
		return fmt.Errorf("%w: index built with %s (dim %d), embedder is %s (dim %d)",
			ErrModelMismatch, tag.Model, tag.Dimension, modelInfo, dimension)
	}
	return nil
}

// Replace atomically swaps all chunks of one source for the given set and
// records the new source state. Writes for the same source are serialized;
// different sources may replace concurrently.
func (m *Manager) Replace(ctx context.Context, sourceURL string, chunks []*model.Chunk, state *model.SourceState) (int, error) {
	lock := m.sourceLock(sourceURL)
	lock.Lock()
	defer lock.Unlock()

	removed, err := m.store.DeleteBySource(ctx, sourceURL)
	if err != nil {
		return 0, helper.NewError("delete chunks by source", err)
	}

	written, err := m.store.Upsert(ctx, chunks)
	if err != nil {
		return 0, helper.NewError("upsert chunks", err)
	}

	if err := m.store.SetSourceState(ctx, state); err != nil {
		return written, helper.NewError("record source state", err)
	}

	m.log.Info("Replaced source chunks",
		slog.String("source_url", sourceURL),
		slog.Int("removed", removed),
		slog.Int("written", written))

	return written, nil
}

// Search retrieves fetchK nearest neighbors for the query vector and
// re-ranks them with Maximal Marginal Relevance, returning k results.
// lambda trades relevance (towards 1.0) against diversity (towards 0.0).
// Ties are broken by original similarity rank, then by ascending source
// priority. Deterministic for a fixed index state.
func (m *Manager) Search(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if fetchK < k {
		fetchK = k
	}

	candidates, err := m.store.Nearest(ctx, query, fetchK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyIndex
	}

	return mmrSelect(candidates, k, lambda), nil
}

// SourceState exposes the store's per-source bookkeeping
func (m *Manager) SourceState(ctx context.Context, sourceURL string) (*model.SourceState, error) {
	return m.store.SourceState(ctx, sourceURL)
}

// Count returns the total number of indexed chunks
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Tag returns the persisted embedding-space tag
func (m *Manager) Tag(ctx context.Context) (*ModelTag, error) {
	return m.store.Tag(ctx)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) sourceLock(sourceURL string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[sourceURL]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sourceURL] = lock
	}
	return lock
}

// mmrSelect iteratively picks k candidates maximizing
// lambda*relevance - (1-lambda)*max similarity to the already selected set.
// Candidates arrive ordered by similarity rank (priority-tie-broken by the
// store), so a strictly-greater comparison preserves that order for equal
// MMR scores.
func mmrSelect(candidates []*model.ScoredChunk, k int, lambda float64) []*model.ScoredChunk {
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]*model.ScoredChunk, 0, k)
	remaining := make([]*model.ScoredChunk, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)
		for i := 1; i < len(remaining); i++ {
			if score := mmrScore(remaining[i], selected, lambda); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func mmrScore(candidate *model.ScoredChunk, selected []*model.ScoredChunk, lambda float64) float64 {
	maxRedundancy := 0.0
	for _, sel := range selected {
		if sim := CosineSimilarity(candidate.Chunk.Embedding, sel.Chunk.Embedding); sim > maxRedundancy {
			maxRedundancy = sim
		}
	}
	return lambda*candidate.Similarity - (1-lambda)*maxRedundancy
}
