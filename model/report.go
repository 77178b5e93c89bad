package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceStatus is the per-source ingestion state machine. A source moves
// PENDING -> FETCHING -> VALIDATING -> CHUNKING -> EMBEDDING -> INDEXED,
// or ends in FAILED, SKIPPED or CANCELLED.
type SourceStatus string

const (
	StatusPending    SourceStatus = "PENDING"
	StatusFetching   SourceStatus = "FETCHING"
	StatusValidating SourceStatus = "VALIDATING"
	StatusChunking   SourceStatus = "CHUNKING"
	StatusEmbedding  SourceStatus = "EMBEDDING"
	StatusIndexed    SourceStatus = "INDEXED"
	StatusFailed     SourceStatus = "FAILED"
	StatusSkipped    SourceStatus = "SKIPPED"
	StatusCancelled  SourceStatus = "CANCELLED"
)

// SourceFailure records why a single source did not reach INDEXED
type SourceFailure struct {
	URL    string       `json:"url"`
	Stage  SourceStatus `json:"stage"`
	Reason string       `json:"reason"`
}

// BuildReport aggregates the outcome of one sync run over all enabled
// sources. A run always produces a report, even if every source failed.
type BuildReport struct {
	RunID       uuid.UUID       `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
	Succeeded   []string        `json:"succeeded"`
	Failed      []SourceFailure `json:"failed"`
	Skipped     []string        `json:"skipped"`
	Cancelled   []string        `json:"cancelled"`
	TotalChunks int             `json:"total_chunks"`
}

// Processed returns the number of sources the run accounted for
func (r *BuildReport) Processed() int {
	return len(r.Succeeded) + len(r.Failed) + len(r.Skipped) + len(r.Cancelled)
}

// FailureFor returns the failure record for a URL, or nil
func (r *BuildReport) FailureFor(url string) *SourceFailure {
	for i := range r.Failed {
		if r.Failed[i].URL == url {
			return &r.Failed[i]
		}
	}
	return nil
}
