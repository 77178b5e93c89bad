package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oran-nephio/docrag/core/clean"
	"github.com/oran-nephio/docrag/core/fetch"
	"github.com/oran-nephio/docrag/core/index"
	"github.com/oran-nephio/docrag/core/pipeline"
	"github.com/oran-nephio/docrag/core/registry"
	"github.com/oran-nephio/docrag/model"
)

// Orchestrator drives the full ingestion pipeline over every enabled
// source: fetch, validate, chunk, embed, index. Sources run concurrently
// up to the configured limit, each source's stages strictly in order.
// One source's failure never aborts the run.
type Orchestrator struct {
	registry  *registry.Registry
	fetcher   *fetch.Fetcher
	processor *clean.Processor
	pipeline  *pipeline.Pipeline
	index     *index.Manager
	cfg       *model.Config
	log       *slog.Logger
}

// NewOrchestrator wires the pipeline components together
func NewOrchestrator(
	reg *registry.Registry,
	fetcher *fetch.Fetcher,
	processor *clean.Processor,
	pipe *pipeline.Pipeline,
	idx *index.Manager,
	cfg *model.Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		registry:  reg,
		fetcher:   fetcher,
		processor: processor,
		pipeline:  pipe,
		index:     idx,
		cfg:       cfg,
		log:       logger,
	}
}

// outcome is the terminal result of one source's pipeline run
type outcome struct {
	url    string
	status model.SourceStatus
	stage  model.SourceStatus
	chunks int
	err    error
}

// SyncAll walks the enabled sources and ingests every one whose content
// changed since the last run (or all of them when forceRebuild is set).
// Cancelling the context stops admission of new sources at the next source
// boundary; sources already in flight finish their pipeline so the index
// is never left with a half-rebuilt source. A run always completes with a
// report, even if every source failed.
func (o *Orchestrator) SyncAll(ctx context.Context, forceRebuild bool) *model.BuildReport {
	started := time.Now()
	sources := o.registry.ListEnabled()

	o.log.Info("Starting sync run",
		slog.Int("sources", len(sources)),
		slog.Bool("force_rebuild", forceRebuild),
		slog.Int("concurrency", o.cfg.SyncConcurrency))

	// The admission context additionally carries the soft run deadline;
	// in-flight sources deliberately keep running past both.
	admissionCtx := ctx
	if o.cfg.SyncDeadline > 0 {
		var cancel context.CancelFunc
		admissionCtx, cancel = context.WithDeadline(ctx, started.Add(o.cfg.SyncDeadline))
		defer cancel()
	}

	sem := make(chan struct{}, o.cfg.SyncConcurrency)
	outcomes := make([]outcome, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		admitted := false
		select {
		case <-admissionCtx.Done():
		case sem <- struct{}{}:
			admitted = true
		}
		if !admitted {
			outcomes[i] = outcome{url: src.URL, status: model.StatusCancelled, err: admissionCtx.Err()}
			o.log.Warn("Source not started", slog.String("url", src.URL), slog.String("reason", admissionCtx.Err().Error()))
			continue
		}

		wg.Add(1)
		go func(i int, src *model.DocumentSource) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = o.syncSource(context.WithoutCancel(ctx), src, forceRebuild)
		}(i, src)
	}

	wg.Wait()

	report := &model.BuildReport{
		RunID:     uuid.New(),
		StartedAt: started.UTC(),
	}
	for _, out := range outcomes {
		switch out.status {
		case model.StatusIndexed:
			report.Succeeded = append(report.Succeeded, out.url)
		case model.StatusSkipped:
			report.Skipped = append(report.Skipped, out.url)
		case model.StatusCancelled:
			report.Cancelled = append(report.Cancelled, out.url)
		default:
			report.Failed = append(report.Failed, model.SourceFailure{
				URL:    out.url,
				Stage:  out.stage,
				Reason: failureReason(out.err),
			})
		}
	}

	if total, err := o.index.Count(context.WithoutCancel(ctx)); err == nil {
		report.TotalChunks = total
	}
	report.Duration = time.Since(started)

	o.log.Info("Sync run finished",
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("failed", len(report.Failed)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("cancelled", len(report.Cancelled)),
		slog.Int("total_chunks", report.TotalChunks),
		slog.Duration("took", report.Duration))

	return report
}

// syncSource runs the staged pipeline for one source to a terminal status
func (o *Orchestrator) syncSource(ctx context.Context, src *model.DocumentSource, forceRebuild bool) outcome {
	out := outcome{url: src.URL, stage: model.StatusFetching}

	raw, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		out.status = model.StatusFailed
		out.err = err
		return out
	}

	out.stage = model.StatusValidating
	doc, err := o.processor.Process(raw)
	if err != nil {
		out.status = model.StatusFailed
		out.err = err
		return out
	}

	if !forceRebuild {
		state, stateErr := o.index.SourceState(ctx, src.URL)
		if stateErr == nil && state != nil && state.ContentHash == doc.ContentHash {
			o.log.Info("Source unchanged, skipping", slog.String("url", src.URL))
			out.status = model.StatusSkipped
			return out
		}
	}

	out.stage = model.StatusChunking
	chunks, pipeErr := o.pipeline.Process(doc)
	if len(chunks) == 0 {
		out.status = model.StatusFailed
		out.stage = model.StatusEmbedding
		out.err = pipeErr
		return out
	}
	if pipeErr != nil {
		o.log.Warn("Some chunks dropped during embedding",
			slog.String("url", src.URL),
			slog.String("error", pipeErr.Error()))
	}

	out.stage = model.StatusIndexed
	written, err := o.index.Replace(ctx, src.URL, chunks, &model.SourceState{
		URL:         src.URL,
		Title:       doc.Title,
		ContentHash: doc.ContentHash,
		ChunkCount:  len(chunks),
		SyncedAt:    time.Now().UTC(),
	})
	if err != nil {
		out.status = model.StatusFailed
		out.err = err
		return out
	}

	out.status = model.StatusIndexed
	out.chunks = written
	return out
}

// failureReason maps a pipeline error onto the stable reason string used
// in build reports
func failureReason(err error) string {
	if err == nil {
		return "unknown"
	}
	var validationErr *clean.ValidationError
	if errors.As(err, &validationErr) {
		return string(validationErr.Reason)
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind.String()
	}
	return err.Error()
}
