package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oran-nephio/docrag/core/index"
	"github.com/oran-nephio/docrag/core/pipeline"
	"github.com/oran-nephio/docrag/model"
)

// EmbeddingError wraps a query embedding failure so callers can tell it
// apart from index errors
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("query embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Retriever answers queries against the vector index. It embeds the query
// with the same embedder used at ingestion time and delegates ranking to
// the index manager's diversified search.
type Retriever struct {
	index    *index.Manager
	embedder pipeline.Embedder
	cfg      *model.Config
	log      *slog.Logger
}

// NewRetriever creates a retriever over the given index and embedder
func NewRetriever(idx *index.Manager, embedder pipeline.Embedder, cfg *model.Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{
		index:    idx,
		embedder: embedder,
		cfg:      cfg,
		log:      logger,
	}
}

// Retrieve returns the top-k diversified chunks for the query together
// with citation metadata. k <= 0 uses the configured default. Fails fast
// with index.ErrEmptyIndex on an empty index instead of returning a
// misleading empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*model.QueryResult, error) {
	if k <= 0 {
		k = r.cfg.RetrieverK
	}

	count, err := r.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, index.ErrEmptyIndex
	}

	started := time.Now()

	queryVector, err := r.embedder.Embed(query)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	results, err := r.index.Search(ctx, queryVector, k, r.cfg.RetrieverFetchK, r.cfg.RetrieverLambda)
	if err != nil {
		return nil, err
	}

	took := time.Since(started)
	r.log.Info("Retrieved chunks",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("took", took))

	return &model.QueryResult{
		Query:         query,
		Results:       results,
		RetrievalTime: took,
	}, nil
}
