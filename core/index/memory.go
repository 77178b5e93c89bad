package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/oran-nephio/docrag/model"
)

// memoryStoreState is the JSON persistence layout of the MemoryStore
type memoryStoreState struct {
	Tag     *ModelTag                     `json:"tag,omitempty"`
	Chunks  []*model.Chunk                `json:"chunks"`
	Sources map[string]*model.SourceState `json:"sources"`
}

// MemoryStore is a brute-force cosine-search store held in memory and
// optionally persisted to a JSON file. Suited for small documentation
// corpora and for tests; the Postgres backend covers larger deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	path    string
	chunks  map[string]*model.Chunk
	sources map[string]*model.SourceState
	tag     *ModelTag
}

// NewMemoryStore creates an in-memory store. When path is non-empty the
// store loads existing state from that file and persists every mutation
// back to it with an atomic rename.
func NewMemoryStore(path string) (*MemoryStore, error) {
	s := &MemoryStore{
		path:    path,
		chunks:  make(map[string]*model.Chunk),
		sources: make(map[string]*model.SourceState),
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading index from %s: %w", path, err)
		}
	}
	return s, nil
}

// Upsert writes chunks, overwriting entries with the same id
func (s *MemoryStore) Upsert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return 0, fmt.Errorf("chunk with empty id for source %s", chunk.SourceURL)
		}
		cp := *chunk
		s.chunks[chunk.ID] = &cp
	}

	if err := s.persist(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// DeleteBySource removes all chunks belonging to a source URL
func (s *MemoryStore) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, chunk := range s.chunks {
		if chunk.SourceURL == sourceURL {
			delete(s.chunks, id)
			removed++
		}
	}

	if removed > 0 {
		if err := s.persist(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Nearest returns the k nearest chunks by cosine similarity, best first.
// Equal similarities are ordered by ascending source priority, then by
// chunk id, keeping results deterministic.
func (s *MemoryStore) Nearest(ctx context.Context, query []float32, k int) ([]*model.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, ErrEmptyIndex
	}

	scored := make([]*model.ScoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		cp := *chunk
		scored = append(scored, &model.ScoredChunk{
			Chunk:      &cp,
			Similarity: CosineSimilarity(query, chunk.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if pi, pj := scored[i].Chunk.Priority(), scored[j].Chunk.Priority(); pi != pj {
			return pi < pj
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	for rank, sc := range scored {
		sc.Rank = rank
	}
	return scored, nil
}

// Count returns the number of stored chunks
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// SourceState returns the bookkeeping for one source, nil when unknown
func (s *MemoryStore) SourceState(ctx context.Context, sourceURL string) (*model.SourceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sources[sourceURL]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

// SetSourceState records the bookkeeping for one source
func (s *MemoryStore) SetSourceState(ctx context.Context, state *model.SourceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.sources[state.URL] = &cp
	return s.persist()
}

// Tag returns the persisted embedding-space tag
func (s *MemoryStore) Tag(ctx context.Context) (*ModelTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tag == nil {
		return nil, nil
	}
	cp := *s.tag
	return &cp, nil
}

// SetTag persists the embedding-space tag
func (s *MemoryStore) SetTag(ctx context.Context, tag ModelTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tag = &tag
	return s.persist()
}

// Close persists any outstanding state
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// load reads the JSON state file; a missing file is an empty store
func (s *MemoryStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var state memoryStoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	s.tag = state.Tag
	if state.Sources != nil {
		s.sources = state.Sources
	}
	for _, chunk := range state.Chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// persist writes the full state to a temp file and renames it into place
// so readers of the file never observe a partial write.
// Callers must hold the write lock.
func (s *MemoryStore) persist() error {
	if s.path == "" {
		return nil
	}

	state := memoryStoreState{
		Tag:     s.tag,
		Chunks:  make([]*model.Chunk, 0, len(s.chunks)),
		Sources: s.sources,
	}
	for _, chunk := range s.chunks {
		state.Chunks = append(state.Chunks, chunk)
	}
	sort.Slice(state.Chunks, func(i, j int) bool {
		return state.Chunks[i].ID < state.Chunks[j].ID
	})

	data, err := json.Marshal(&state)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
