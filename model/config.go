package model

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the immutable configuration for the whole ingestion and
// retrieval core. It is constructed once at process start and passed
// explicitly into every component.
type Config struct {
	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Fetching
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
	MaxRetryDelay  time.Duration
	VerifySSL      bool

	// Validation
	MinContentLength          int
	MinExtractedContentLength int
	MinKeywordCount           int

	// Retrieval
	RetrieverK      int
	RetrieverFetchK int
	RetrieverLambda float64

	// Sync
	SyncConcurrency int
	// SyncDeadline is a soft overall-run deadline after which no new
	// sources are started. Zero means no deadline.
	SyncDeadline time.Duration

	// Embedding
	EmbeddingModel string

	// IndexPath is the persistence location for the file-backed store
	IndexPath string
}

// DefaultConfig returns the documented defaults
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:                 1024,
		ChunkOverlap:              200,
		RequestTimeout:            30 * time.Second,
		MaxRetries:                3,
		RetryDelayBase:            2 * time.Second,
		MaxRetryDelay:             30 * time.Second,
		VerifySSL:                 true,
		MinContentLength:          500,
		MinExtractedContentLength: 100,
		MinKeywordCount:           2,
		RetrieverK:                6,
		RetrieverFetchK:           15,
		RetrieverLambda:           0.7,
		SyncConcurrency:           5,
		SyncDeadline:              0,
		EmbeddingModel:            "sentence-transformers/all-MiniLM-L6-v2",
		IndexPath:                 "vectordb.json",
	}
}

// LoadConfig reads configuration from environment variables on top of the
// defaults and validates the result
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryDelayBase = getEnvDuration("RETRY_DELAY_BASE", cfg.RetryDelayBase)
	cfg.MaxRetryDelay = getEnvDuration("MAX_RETRY_DELAY", cfg.MaxRetryDelay)
	cfg.VerifySSL = getEnvBool("VERIFY_SSL", cfg.VerifySSL)
	cfg.MinContentLength = getEnvInt("MIN_CONTENT_LENGTH", cfg.MinContentLength)
	cfg.MinExtractedContentLength = getEnvInt("MIN_EXTRACTED_CONTENT_LENGTH", cfg.MinExtractedContentLength)
	cfg.MinKeywordCount = getEnvInt("MIN_KEYWORD_COUNT", cfg.MinKeywordCount)
	cfg.RetrieverK = getEnvInt("RETRIEVER_K", cfg.RetrieverK)
	cfg.RetrieverFetchK = getEnvInt("RETRIEVER_FETCH_K", cfg.RetrieverFetchK)
	cfg.RetrieverLambda = getEnvFloat("RETRIEVER_LAMBDA_MULT", cfg.RetrieverLambda)
	cfg.SyncConcurrency = getEnvInt("SYNC_CONCURRENCY", cfg.SyncConcurrency)
	cfg.SyncDeadline = getEnvDuration("SYNC_DEADLINE", cfg.SyncDeadline)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.IndexPath = getEnv("INDEX_PATH", cfg.IndexPath)

	return cfg, cfg.Validate()
}

// Validate rejects out-of-range values at startup
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.RetryDelayBase <= 0 || c.MaxRetryDelay < c.RetryDelayBase {
		return fmt.Errorf("retry delays invalid: base %s, max %s", c.RetryDelayBase, c.MaxRetryDelay)
	}
	if c.MinContentLength <= 0 || c.MinExtractedContentLength <= 0 {
		return fmt.Errorf("minimum content lengths must be positive")
	}
	if c.MinKeywordCount < 0 {
		return fmt.Errorf("MIN_KEYWORD_COUNT must not be negative, got %d", c.MinKeywordCount)
	}
	if c.RetrieverK <= 0 {
		return fmt.Errorf("RETRIEVER_K must be positive, got %d", c.RetrieverK)
	}
	if c.RetrieverFetchK < c.RetrieverK {
		return fmt.Errorf("RETRIEVER_FETCH_K (%d) must be >= RETRIEVER_K (%d)", c.RetrieverFetchK, c.RetrieverK)
	}
	if c.RetrieverLambda < 0 || c.RetrieverLambda > 1 {
		return fmt.Errorf("RETRIEVER_LAMBDA_MULT must be 0-1, got %f", c.RetrieverLambda)
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1, got %d", c.SyncConcurrency)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
