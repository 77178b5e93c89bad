package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oran-nephio/docrag/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	return NewManager(store, nil)
}

func TestManagerEnsureModel(t *testing.T) {
	ctx := context.Background()

	t.Run("First use records the tag", func(t *testing.T) {
		m := newTestManager(t)
		require.NoError(t, m.EnsureModel(ctx, "feature-hashing-v1-d384", 384))

		tag, err := m.Tag(ctx)
		require.NoError(t, err)
		require.NotNil(t, tag)
		assert.Equal(t, "feature-hashing-v1-d384", tag.Model)
		assert.Equal(t, 384, tag.Dimension)
	})

	t.Run("Same model passes again", func(t *testing.T) {
		m := newTestManager(t)
		require.NoError(t, m.EnsureModel(ctx, "local-minilm", 384))
		assert.NoError(t, m.EnsureModel(ctx, "local-minilm", 384))
	})

	t.Run("Different model rejected", func(t *testing.T) {
		m := newTestManager(t)
		require.NoError(t, m.EnsureModel(ctx, "local-minilm", 384))

		err := m.EnsureModel(ctx, "openai-text-embedding-3-small", 1536)
		assert.ErrorIs(t, err, ErrModelMismatch)

		err = m.EnsureModel(ctx, "local-minilm", 512)
		assert.ErrorIs(t, err, ErrModelMismatch)
	})
}

func TestManagerReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("Replace swaps all chunks of a source", func(t *testing.T) {
		m := newTestManager(t)

		first := []*model.Chunk{
			testChunk("https://a.example/", 0, 1, []float32{1, 0}),
			testChunk("https://a.example/", 1, 1, []float32{0, 1}),
			testChunk("https://a.example/", 2, 1, []float32{1, 1}),
		}
		written, err := m.Replace(ctx, "https://a.example/", first, &model.SourceState{
			URL: "https://a.example/", ContentHash: "v1", ChunkCount: 3, SyncedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, written)

		// Shrinking rebuild must not leave stale chunks behind
		second := []*model.Chunk{
			testChunk("https://a.example/", 0, 1, []float32{1, 0}),
		}
		written, err = m.Replace(ctx, "https://a.example/", second, &model.SourceState{
			URL: "https://a.example/", ContentHash: "v2", ChunkCount: 1, SyncedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, written)

		count, err := m.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		state, err := m.SourceState(ctx, "https://a.example/")
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, "v2", state.ContentHash)
	})

	t.Run("Replace leaves other sources alone", func(t *testing.T) {
		m := newTestManager(t)

		_, err := m.Replace(ctx, "https://a.example/", []*model.Chunk{
			testChunk("https://a.example/", 0, 1, []float32{1, 0}),
		}, &model.SourceState{URL: "https://a.example/", ContentHash: "a", ChunkCount: 1, SyncedAt: time.Now().UTC()})
		require.NoError(t, err)

		_, err = m.Replace(ctx, "https://b.example/", []*model.Chunk{
			testChunk("https://b.example/", 0, 1, []float32{0, 1}),
		}, &model.SourceState{URL: "https://b.example/", ContentHash: "b", ChunkCount: 1, SyncedAt: time.Now().UTC()})
		require.NoError(t, err)

		count, err := m.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestManagerSearch(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *Manager {
		m := newTestManager(t)
		chunks := []*model.Chunk{
			// two near-duplicates close to the query, one orthogonal
			testChunk("https://a.example/", 0, 1, []float32{0.95, 0.1, 0}),
			testChunk("https://a.example/", 1, 1, []float32{0.94, 0.12, 0}),
			testChunk("https://b.example/", 0, 2, []float32{0, 1, 0}),
		}
		_, err := m.Replace(ctx, "seed", chunks, &model.SourceState{URL: "seed", ContentHash: "x", ChunkCount: 3, SyncedAt: time.Now().UTC()})
		require.NoError(t, err)
		return m
	}

	query := []float32{1, 0, 0}

	t.Run("Pure relevance at lambda one", func(t *testing.T) {
		m := seed(t)
		results, err := m.Search(ctx, query, 3, 10, 1.0)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 0, results[0].Rank)
		assert.Equal(t, 1, results[1].Rank)
		assert.Equal(t, 2, results[2].Rank)
	})

	t.Run("Low lambda demotes near-duplicates", func(t *testing.T) {
		m := seed(t)
		results, err := m.Search(ctx, query, 2, 10, 0.3)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// the most similar chunk first, then the diverse one instead of its twin
		assert.Equal(t, 0, results[0].Chunk.ChunkIndex)
		assert.Equal(t, "https://a.example/", results[0].Chunk.SourceURL)
		assert.Equal(t, "https://b.example/", results[1].Chunk.SourceURL)
	})

	t.Run("Deterministic across runs", func(t *testing.T) {
		m := seed(t)
		a, err := m.Search(ctx, query, 3, 10, 0.7)
		require.NoError(t, err)
		b, err := m.Search(ctx, query, 3, 10, 0.7)
		require.NoError(t, err)
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, a[i].Chunk.ID, b[i].Chunk.ID)
		}
	})

	t.Run("k larger than index returns everything", func(t *testing.T) {
		m := seed(t)
		results, err := m.Search(ctx, query, 10, 20, 0.7)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("fetchK below k is raised to k", func(t *testing.T) {
		m := seed(t)
		results, err := m.Search(ctx, query, 3, 1, 0.7)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("Invalid k", func(t *testing.T) {
		m := seed(t)
		_, err := m.Search(ctx, query, 0, 10, 0.7)
		assert.Error(t, err)
	})

	t.Run("Empty index", func(t *testing.T) {
		m := newTestManager(t)
		_, err := m.Search(ctx, query, 3, 10, 0.7)
		assert.ErrorIs(t, err, ErrEmptyIndex)
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("Identical direction", func(t *testing.T) {
		assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 0.0001)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0001)
	})

	t.Run("Opposite", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 0.0001)
	})

	t.Run("Mismatched or zero vectors", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1}))
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	})
}
