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

func testChunk(sourceURL string, idx int, priority int, embedding []float32) *model.Chunk {
	return &model.Chunk{
		ID:         model.ChunkID(sourceURL, idx),
		SourceURL:  sourceURL,
		Text:       "chunk text",
		Embedding:  embedding,
		ChunkIndex: idx,
		Metadata:   model.Metadata{"priority": priority},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert and count", func(t *testing.T) {
		store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		written, err := store.Upsert(ctx, []*model.Chunk{
			testChunk("https://a.example/", 0, 1, []float32{1, 0}),
			testChunk("https://a.example/", 1, 1, []float32{0, 1}),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, written)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Upsert overwrites same id", func(t *testing.T) {
		store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		first := testChunk("https://a.example/", 0, 1, []float32{1, 0})
		_, err = store.Upsert(ctx, []*model.Chunk{first})
		require.NoError(t, err)

		updated := testChunk("https://a.example/", 0, 1, []float32{0, 1})
		updated.Text = "updated text"
		_, err = store.Upsert(ctx, []*model.Chunk{updated})
		require.NoError(t, err)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := store.Nearest(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		assert.Equal(t, "updated text", results[0].Chunk.Text)
	})
}

func TestMemoryStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	store, err := NewMemoryStore(path)
	require.NoError(t, err)

	_, err = store.Upsert(ctx, []*model.Chunk{
		testChunk("https://a.example/", 0, 1, []float32{1, 0}),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetTag(ctx, ModelTag{Model: "feature-hashing-v1-d2", Dimension: 2}))
	require.NoError(t, store.SetSourceState(ctx, &model.SourceState{
		URL:         "https://a.example/",
		ContentHash: "abc",
		ChunkCount:  1,
		SyncedAt:    time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	t.Run("State survives reopen", func(t *testing.T) {
		reopened, err := NewMemoryStore(path)
		require.NoError(t, err)

		count, err := reopened.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		tag, err := reopened.Tag(ctx)
		require.NoError(t, err)
		require.NotNil(t, tag)
		assert.Equal(t, "feature-hashing-v1-d2", tag.Model)
		assert.Equal(t, 2, tag.Dimension)

		state, err := reopened.SourceState(ctx, "https://a.example/")
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, "abc", state.ContentHash)
	})

	t.Run("Unknown source state is nil", func(t *testing.T) {
		reopened, err := NewMemoryStore(path)
		require.NoError(t, err)

		state, err := reopened.SourceState(ctx, "https://missing.example/")
		require.NoError(t, err)
		assert.Nil(t, state)
	})
}

func TestMemoryStoreDeleteBySource(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)

	_, err = store.Upsert(ctx, []*model.Chunk{
		testChunk("https://a.example/", 0, 1, []float32{1, 0}),
		testChunk("https://a.example/", 1, 1, []float32{0, 1}),
		testChunk("https://b.example/", 0, 2, []float32{1, 1}),
	})
	require.NoError(t, err)

	removed, err := store.DeleteBySource(ctx, "https://a.example/")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err = store.DeleteBySource(ctx, "https://a.example/")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestMemoryStoreNearest(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty index", func(t *testing.T) {
		store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		_, err = store.Nearest(ctx, []float32{1, 0}, 3)
		assert.ErrorIs(t, err, ErrEmptyIndex)
	})

	t.Run("Ordered by similarity", func(t *testing.T) {
		store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		_, err = store.Upsert(ctx, []*model.Chunk{
			testChunk("https://a.example/", 0, 1, []float32{1, 0}),
			testChunk("https://a.example/", 1, 1, []float32{0.9, 0.1}),
			testChunk("https://a.example/", 2, 1, []float32{0, 1}),
		})
		require.NoError(t, err)

		results, err := store.Nearest(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 0, results[0].Chunk.ChunkIndex)
		assert.Equal(t, 1, results[1].Chunk.ChunkIndex)
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
		assert.Equal(t, 0, results[0].Rank)
		assert.Equal(t, 1, results[1].Rank)
	})

	t.Run("Equal similarity breaks ties by priority", func(t *testing.T) {
		store, err := NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		_, err = store.Upsert(ctx, []*model.Chunk{
			testChunk("https://low.example/", 0, 4, []float32{1, 0}),
			testChunk("https://high.example/", 0, 1, []float32{1, 0}),
		})
		require.NoError(t, err)

		results, err := store.Nearest(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "https://high.example/", results[0].Chunk.SourceURL)
		assert.Equal(t, "https://low.example/", results[1].Chunk.SourceURL)
	})
}
