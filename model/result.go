package model

import "time"

// ScoredChunk pairs a chunk with its similarity to the query
type ScoredChunk struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float64 `json:"similarity"`
	// Rank is the position in the original nearest-neighbor ordering,
	// before any diversification re-ranking.
	Rank int `json:"rank"`
}

// QueryResult is the ephemeral outcome of one retrieval call,
// most relevant chunk first
type QueryResult struct {
	Query         string         `json:"query"`
	Results       []*ScoredChunk `json:"results"`
	RetrievalTime time.Duration  `json:"retrieval_time"`
}
