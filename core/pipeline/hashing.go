package pipeline

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimension matches the dimension of the primary local model
// so switching backends keeps index layouts comparable in size
const DefaultHashingDimension = 384

// HashingEmbedder is the fallback embedding backend: a deterministic
// term-frequency feature-hashing projection into a fixed-dimension dense
// vector. It needs no model files and never becomes unavailable, at the
// cost of purely lexical similarity.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a feature-hashing embedder
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashingDimension
	}
	return &HashingEmbedder{dim: dimension}
}

// Embed projects the text's term frequencies into the hashed vector space
// and L2-normalizes the result
func (e *HashingEmbedder) Embed(text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec := make([]float32, e.dim)
	for _, term := range tokenize(text) {
		bucket, sign := hashTerm(term, e.dim)
		vec[bucket] += sign
	}

	// Log scaling dampens very frequent terms
	for i, v := range vec {
		if v > 0 {
			vec[i] = float32(1 + math.Log(float64(v)))
		} else if v < 0 {
			vec[i] = -float32(1 + math.Log(float64(-v)))
		}
	}

	l2normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently; individual failures abort the
// batch only for genuinely empty inputs
func (e *HashingEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *HashingEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns the model identifier used for embedding-space checks
func (e *HashingEmbedder) ModelInfo() string {
	return fmt.Sprintf("feature-hashing-v1-d%d", e.dim)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// hashTerm maps a term to a bucket plus a sign, the usual trick to keep
// hash collisions from biasing the vector in one direction
func hashTerm(term string, dim int) (int, float32) {
	h := fnv.New32a()
	h.Write([]byte(term))
	sum := h.Sum32()
	bucket := int(sum % uint32(dim))
	sign := float32(1)
	if sum&0x80000000 != 0 {
		sign = -1
	}
	return bucket, sign
}

func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
