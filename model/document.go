package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawDocument is the result of one successful fetch attempt.
// It is immutable once created and discarded after validation.
type RawDocument struct {
	Source     *DocumentSource
	FetchedAt  time.Time
	RawContent string
	HTTPStatus int
}

// ProcessedDocument is a cleaned and validated document ready for chunking.
// It is consumed by the chunking pipeline and not persisted standalone.
type ProcessedDocument struct {
	SourceURL      string
	Title          string
	CleanedContent string
	ContentHash    string
	Metadata       Metadata
}

// ContentHash returns the stable hex digest over cleaned text,
// used for change detection between sync runs
func ContentHash(cleaned string) string {
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}

// SourceState is the per-source bookkeeping the index keeps between sync
// runs: the content hash of the last indexed revision and chunk accounting.
type SourceState struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	SyncedAt    time.Time `json:"synced_at"`
}
