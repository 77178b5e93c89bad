package docrag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oran-nephio/docrag/core/index"
	"github.com/oran-nephio/docrag/core/pipeline"
	"github.com/oran-nephio/docrag/core/registry"
	"github.com/oran-nephio/docrag/llm"
	"github.com/oran-nephio/docrag/model"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.ChunkSize = 500
	cfg.ChunkOverlap = 100
	cfg.MaxRetries = 0
	cfg.RetryDelayBase = time.Millisecond
	cfg.MaxRetryDelay = 2 * time.Millisecond
	cfg.MinContentLength = 100
	cfg.MinExtractedContentLength = 50
	cfg.MinKeywordCount = 1
	cfg.RetrieverK = 4
	cfg.RetrieverFetchK = 10
	return cfg
}

// nephioPage and oranPage are sized so each produces at least two chunks
// with a 500-rune window
func nephioPage() string {
	body := strings.Repeat("Nephio automates network function deployment across Kubernetes clusters. "+
		"GitOps pipelines reconcile kpt packages into cluster intent. ", 10)
	return "<html><head><title>Nephio Automation</title></head><body><p>" + body + "</p></body></html>"
}

func oranPage() string {
	body := strings.Repeat("The O-RAN architecture separates the near-RT RIC from the non-RT RIC. "+
		"xApps run on the near-RT RIC to control the radio access network. ", 10)
	return "<html><head><title>O-RAN Architecture</title></head><body><p>" + body + "</p></body></html>"
}

func newTestRAG(t *testing.T, urls map[string]int) *RAG {
	t.Helper()

	reg := registry.NewRegistry(nil)
	for url, priority := range urls {
		require.NoError(t, reg.Add(&model.DocumentSource{
			URL:      url,
			Type:     model.SourceTypeCustom,
			Priority: priority,
			Enabled:  true,
		}))
	}

	store, err := index.NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)

	cfg := testConfig()
	rag, err := New(cfg, reg, store)
	require.NoError(t, err)

	embedder := pipeline.NewHashingEmbedder(pipeline.DefaultHashingDimension)
	require.NoError(t, rag.SetPipeline(embedder, pipeline.WindowChunker(cfg.ChunkSize, cfg.ChunkOverlap)))

	return rag
}

func TestRAGEndToEnd(t *testing.T) {
	nephio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nephioPage()))
	}))
	defer nephio.Close()
	oran := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(oranPage()))
	}))
	defer oran.Close()

	ctx := context.Background()
	rag := newTestRAG(t, map[string]int{nephio.URL: 1, oran.URL: 2})
	defer rag.Close()

	report, err := rag.Sync(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Succeeded, 2)
	require.Empty(t, report.Failed)

	t.Run("Each source yields at least two chunks", func(t *testing.T) {
		for _, url := range []string{nephio.URL, oran.URL} {
			state, err := rag.Index.SourceState(ctx, url)
			require.NoError(t, err)
			require.NotNil(t, state)
			assert.GreaterOrEqual(t, state.ChunkCount, 2, "source %s", url)
		}
		assert.Equal(t, report.TotalChunks, sumChunks(t, ctx, rag, nephio.URL, oran.URL))
	})

	t.Run("Topical query retrieves the right source first", func(t *testing.T) {
		result, err := rag.Retrieve(ctx, "how does nephio automate kubernetes deployment with gitops", 4)
		require.NoError(t, err)
		require.NotEmpty(t, result.Results)
		assert.Equal(t, nephio.URL, result.Results[0].Chunk.SourceURL)

		result, err = rag.Retrieve(ctx, "what runs xapps in the near-rt ric radio network", 4)
		require.NoError(t, err)
		require.NotEmpty(t, result.Results)
		assert.Equal(t, oran.URL, result.Results[0].Chunk.SourceURL)
	})

	t.Run("Second sync skips unchanged sources", func(t *testing.T) {
		second, err := rag.Sync(ctx, false)
		require.NoError(t, err)
		assert.Len(t, second.Skipped, 2)
		assert.Equal(t, report.TotalChunks, second.TotalChunks)
	})

	t.Run("Answer cites retrieved context through the backend", func(t *testing.T) {
		rag.SetBackend(&llm.MockBackend{})
		answer, result, err := rag.Answer(ctx, "how does nephio deploy network functions")
		require.NoError(t, err)
		assert.NotEmpty(t, answer)
		require.NotNil(t, result)
		assert.NotEmpty(t, result.Results)
	})

	t.Run("Status reflects the synced index", func(t *testing.T) {
		status, err := rag.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, report.TotalChunks, status.TotalChunks)
		assert.Len(t, status.Sources, 2)
		require.NotNil(t, status.EmbeddingTag)
		assert.Equal(t, pipeline.DefaultHashingDimension, status.EmbeddingTag.Dimension)
	})
}

func sumChunks(t *testing.T, ctx context.Context, rag *RAG, urls ...string) int {
	t.Helper()
	total := 0
	for _, url := range urls {
		state, err := rag.Index.SourceState(ctx, url)
		require.NoError(t, err)
		require.NotNil(t, state)
		total += state.ChunkCount
	}
	return total
}

func TestRAGGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("Sync before pipeline setup", func(t *testing.T) {
		store, err := index.NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)
		rag, err := New(testConfig(), registry.NewRegistry(nil), store)
		require.NoError(t, err)

		_, err = rag.Sync(ctx, false)
		assert.Error(t, err)
		_, err = rag.Retrieve(ctx, "q", 1)
		assert.Error(t, err)
	})

	t.Run("Retrieve on empty index", func(t *testing.T) {
		rag := newTestRAG(t, nil)
		_, err := rag.Retrieve(ctx, "anything", 3)
		assert.ErrorIs(t, err, index.ErrEmptyIndex)
	})

	t.Run("Nil store rejected", func(t *testing.T) {
		_, err := New(testConfig(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("Invalid configuration rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.ChunkOverlap = cfg.ChunkSize
		store, err := index.NewMemoryStore(filepath.Join(t.TempDir(), "index.json"))
		require.NoError(t, err)

		_, err = New(cfg, nil, store)
		assert.Error(t, err)
	})

	t.Run("Pipeline change to another model rejected", func(t *testing.T) {
		rag := newTestRAG(t, nil)
		err := rag.SetPipeline(pipeline.NewHashingEmbedder(64),
			pipeline.WindowChunker(500, 100))
		assert.ErrorIs(t, err, index.ErrModelMismatch)
	})
}
