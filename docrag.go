package docrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oran-nephio/docrag/core/clean"
	"github.com/oran-nephio/docrag/core/fetch"
	"github.com/oran-nephio/docrag/core/index"
	"github.com/oran-nephio/docrag/core/pipeline"
	"github.com/oran-nephio/docrag/core/registry"
	"github.com/oran-nephio/docrag/core/retrieval"
	syncer "github.com/oran-nephio/docrag/core/sync"
	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/llm"
	"github.com/oran-nephio/docrag/model"
)

// RAG provides a unified interface to the documentation ingestion and
// retrieval core: source registry, sync pipeline, vector index and
// question answering.
type RAG struct {
	Config   *model.Config
	Sources  *registry.Registry
	Index    *index.Manager
	Pipeline *pipeline.Pipeline // Optional chunking/embedding pipeline
	// Logging
	log *slog.Logger

	embedder     pipeline.Embedder
	fetcher      *fetch.Fetcher
	processor    *clean.Processor
	retriever    *retrieval.Retriever
	orchestrator *syncer.Orchestrator
	backend      llm.Backend
}

// Status is a snapshot of the index for health and debugging output
type Status struct {
	TotalChunks  int                 `json:"total_chunks"`
	Sources      []model.SourceState `json:"sources"`
	EmbeddingTag *index.ModelTag     `json:"embedding_tag,omitempty"`
}

// New creates a RAG instance over the given store with the given sources.
// The pipeline is not set up yet, call UseDefaultPipeline or SetPipeline
// before syncing or querying.
func New(cfg *model.Config, reg *registry.Registry, store index.Store) (*RAG, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, helper.NewError("validate configuration", err)
	}
	if store == nil {
		return nil, helper.NewError("store validation", fmt.Errorf("store is nil"))
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	if reg == nil {
		var err error
		reg, err = registry.NewDefaultRegistry(logger)
		if err != nil {
			return nil, helper.NewError("create default registry", err)
		}
	}

	return &RAG{
		Config:    cfg,
		Sources:   reg,
		Index:     index.NewManager(store, logger),
		log:       logger,
		fetcher:   fetch.NewFetcher(cfg, logger),
		processor: clean.NewProcessor(cfg),
		backend:   &llm.MockBackend{},
	}, nil
}

// NewWithDefaults creates a RAG instance from environment configuration,
// seeded with the default Nephio and O-RAN SC sources, backed by the
// file-based store at Config.IndexPath.
func NewWithDefaults() (*RAG, error) {
	cfg, err := model.LoadConfig()
	if err != nil {
		return nil, helper.NewError("load configuration", err)
	}

	store, err := index.NewMemoryStore(cfg.IndexPath)
	if err != nil {
		return nil, helper.NewError("open index store", err)
	}

	return New(cfg, nil, store)
}

// UseDefaultPipeline sets up the default chunking and embedding pipeline:
// overlapping windows sized per configuration, embedded with the local
// all-MiniLM-L6-v2 model when available and the deterministic hashing
// fallback otherwise.
func (r *RAG) UseDefaultPipeline() error {
	embedder := pipeline.NewDefaultEmbedder(r.Config, r.log)
	return r.SetPipeline(embedder, pipeline.WindowChunker(r.Config.ChunkSize, r.Config.ChunkOverlap))
}

// SetPipeline wires a custom embedder and chunker. It pins the index to
// the embedder's model and fails when the index was built with another one.
func (r *RAG) SetPipeline(embedder pipeline.Embedder, chunker pipeline.ChunkFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.Config.RequestTimeout)
	defer cancel()

	err := r.Index.EnsureModel(ctx, embedder.ModelInfo(), embedder.Dimension())
	if err != nil {
		return helper.NewError("pin embedding model", err)
	}

	r.embedder = embedder
	r.Pipeline = pipeline.NewPipeline(chunker, embedder, r.log)
	r.retriever = retrieval.NewRetriever(r.Index, embedder, r.Config, r.log)
	r.orchestrator = syncer.NewOrchestrator(r.Sources, r.fetcher, r.processor, r.Pipeline, r.Index, r.Config, r.log)
	return nil
}

// SetBackend replaces the generation backend used by Answer.
// The default is a mock backend that echoes the retrieved context.
func (r *RAG) SetBackend(backend llm.Backend) {
	if backend != nil {
		r.backend = backend
	}
}

// Sync ingests every enabled source whose content changed since the last
// run, or all of them when forceRebuild is set. It always returns a
// report, even if every source failed.
func (r *RAG) Sync(ctx context.Context, forceRebuild bool) (*model.BuildReport, error) {
	if r.orchestrator == nil {
		return nil, helper.NewError("sync", fmt.Errorf("pipeline not set, use UseDefaultPipeline() first"))
	}
	return r.orchestrator.SyncAll(ctx, forceRebuild), nil
}

// Retrieve runs a diversified similarity search for the query. A k of
// zero or less uses the configured default.
func (r *RAG) Retrieve(ctx context.Context, query string, k int) (*model.QueryResult, error) {
	if r.retriever == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("pipeline not set, use UseDefaultPipeline() first"))
	}
	return r.retriever.Retrieve(ctx, query, k)
}

// Answer retrieves context for the question and hands it to the
// generation backend. The retrieval result is returned alongside the
// answer so callers can render citations.
func (r *RAG) Answer(ctx context.Context, question string) (string, *model.QueryResult, error) {
	result, err := r.Retrieve(ctx, question, 0)
	if err != nil {
		return "", nil, err
	}

	answer, err := r.backend.Generate(ctx, question, retrieval.BuildContext(result))
	if err != nil {
		return "", result, helper.NewError("generate answer", err)
	}

	r.log.Info("Answered question",
		slog.String("backend", r.backend.Name()),
		slog.Int("context_chunks", len(result.Results)))

	return answer, result, nil
}

// Status reports the current index size and per-source sync state
func (r *RAG) Status(ctx context.Context) (*Status, error) {
	total, err := r.Index.Count(ctx)
	if err != nil {
		return nil, helper.NewError("count chunks", err)
	}

	tag, err := r.Index.Tag(ctx)
	if err != nil {
		return nil, helper.NewError("read embedding tag", err)
	}

	status := &Status{
		TotalChunks:  total,
		EmbeddingTag: tag,
	}
	for _, src := range r.Sources.ListAll() {
		state, err := r.Index.SourceState(ctx, src.URL)
		if err != nil {
			return nil, helper.NewError("read source state", err)
		}
		if state != nil {
			status.Sources = append(status.Sources, *state)
		}
	}
	return status, nil
}

// Close releases the underlying store
func (r *RAG) Close() error {
	return r.Index.Close()
}
