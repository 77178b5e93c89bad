package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is the atomic unit stored in and retrieved from the vector index.
// Chunks are immutable; when a source document changes its chunks are
// replaced wholesale, never updated in place.
type Chunk struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"source_url"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	StartPos   int       `json:"start_pos"`
	EndPos     int       `json:"end_pos"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Priority reads the source priority from chunk metadata, falling back to
// the lowest priority when absent or malformed. Used for ranking tie-breaks.
func (c *Chunk) Priority() int {
	if c.Metadata == nil {
		return PriorityLowest
	}
	switch v := c.Metadata["priority"].(type) {
	case int:
		return v
	case float64:
		// JSON round-trips numbers as float64
		return int(v)
	}
	return PriorityLowest
}

// Title reads the document title from chunk metadata
func (c *Chunk) Title() string {
	if c.Metadata == nil {
		return ""
	}
	if t, ok := c.Metadata["title"].(string); ok {
		return t
	}
	return ""
}

// ChunkID derives the deterministic chunk id from its source URL and
// sequence index. Stable across re-ingestion of the same source.
func ChunkID(sourceURL string, index int) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:6]), index)
}
