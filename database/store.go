package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/oran-nephio/docrag/core/index"
	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/model"
	loadSql "github.com/oran-nephio/docrag/sql"
)

const (
	metaKeyModel     = "embedding_model"
	metaKeyDimension = "embedding_dimension"
)

// PgStore is the Postgres/pgvector implementation of index.Store.
// All queries go through the SQL functions loaded by the sql package.
type PgStore struct {
	db *helper.Database
}

// Interface guard
var _ index.Store = (*PgStore)(nil)

// NewPgStore creates a new pgvector-backed store.
// It loads the SQL functions and creates the tables for the given embedding
// dimension. If force is true, it reloads the SQL functions even if they
// already exist.
func NewPgStore(db *helper.Database, embeddingDim int, force bool) (*PgStore, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	store := &PgStore{
		db: db,
	}

	err := loadSql.LoadRagSql(store.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load rag sql", err)
	}

	_, err = store.db.Instance.Exec(`SELECT init_rag($1);`, embeddingDim)
	if err != nil {
		return nil, helper.NewError("init rag tables", err)
	}

	db.Logger.Info("Initialized PgStore", "dimension", embeddingDim)

	return store, nil
}

// Upsert writes the chunks in one transaction, overwriting entries sharing
// a chunk id, and returns the count written.
func (s *PgStore) Upsert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx,
			`SELECT upsert_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			chunk.ID,
			chunk.SourceURL,
			chunk.Text,
			chunk.ChunkIndex,
			chunk.StartPos,
			chunk.EndPos,
			pgvector.NewVector(chunk.Embedding),
			chunk.Metadata,
			chunk.CreatedAt,
		)
		if err != nil {
			return 0, helper.NewError(fmt.Sprintf("upsert chunk %s", chunk.ID), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, helper.NewError("commit transaction", err)
	}

	return len(chunks), nil
}

// DeleteBySource removes all chunks of one source URL and returns the
// number removed.
func (s *PgStore) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	var removed int
	err := s.db.Instance.QueryRowContext(ctx,
		`SELECT delete_chunks_by_source($1)`,
		sourceURL,
	).Scan(&removed)
	if err != nil {
		return 0, helper.NewError("delete chunks by source", err)
	}
	return removed, nil
}

// Nearest returns the k nearest chunks by cosine similarity, best first.
// Ties are ordered by source priority, then chunk id, matching MemoryStore.
func (s *PgStore) Nearest(ctx context.Context, query []float32, k int) ([]*model.ScoredChunk, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, index.ErrEmptyIndex
	}

	rows, err := s.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2)`,
		pgvector.NewVector(query),
		k,
	)
	if err != nil {
		return nil, helper.NewError("select chunks by similarity", err)
	}
	defer rows.Close()

	scored := []*model.ScoredChunk{}
	for rows.Next() {
		chunk := &model.Chunk{}
		sc := &model.ScoredChunk{Chunk: chunk}
		err := rows.Scan(
			&chunk.ID,
			&chunk.SourceURL,
			&chunk.Text,
			&chunk.ChunkIndex,
			&chunk.StartPos,
			&chunk.EndPos,
			pq.Array(&chunk.Embedding),
			&chunk.Metadata,
			&chunk.CreatedAt,
			&sc.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		sc.Rank = len(scored)
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate rows", err)
	}

	return scored, nil
}

// Count returns the total number of stored chunks
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Instance.QueryRowContext(ctx, `SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count chunks", err)
	}
	return count, nil
}

// SourceState returns the sync bookkeeping for a source, nil when the
// source has never been indexed.
func (s *PgStore) SourceState(ctx context.Context, sourceURL string) (*model.SourceState, error) {
	state := &model.SourceState{}
	err := s.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_source_state($1)`,
		sourceURL,
	).Scan(
		&state.URL,
		&state.Title,
		&state.ContentHash,
		&state.ChunkCount,
		&state.SyncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("select source state", err)
	}
	return state, nil
}

// SetSourceState records the sync bookkeeping for a source
func (s *PgStore) SetSourceState(ctx context.Context, state *model.SourceState) error {
	_, err := s.db.Instance.ExecContext(ctx,
		`SELECT upsert_source_state($1, $2, $3, $4, $5)`,
		state.URL,
		state.Title,
		state.ContentHash,
		state.ChunkCount,
		state.SyncedAt,
	)
	if err != nil {
		return helper.NewError("upsert source state", err)
	}
	return nil
}

// Tag returns the persisted embedding-space tag, nil when unset
func (s *PgStore) Tag(ctx context.Context) (*index.ModelTag, error) {
	var modelName sql.NullString
	err := s.db.Instance.QueryRowContext(ctx, `SELECT get_meta($1)`, metaKeyModel).Scan(&modelName)
	if err != nil {
		return nil, helper.NewError("get model meta", err)
	}
	if !modelName.Valid {
		return nil, nil
	}

	var dimension sql.NullString
	err = s.db.Instance.QueryRowContext(ctx, `SELECT get_meta($1)`, metaKeyDimension).Scan(&dimension)
	if err != nil {
		return nil, helper.NewError("get dimension meta", err)
	}

	tag := &index.ModelTag{Model: modelName.String}
	if dimension.Valid {
		_, err = fmt.Sscanf(dimension.String, "%d", &tag.Dimension)
		if err != nil {
			return nil, helper.NewError("parse dimension meta", err)
		}
	}
	return tag, nil
}

// SetTag persists the embedding-space tag
func (s *PgStore) SetTag(ctx context.Context, tag index.ModelTag) error {
	_, err := s.db.Instance.ExecContext(ctx, `SELECT set_meta($1, $2)`, metaKeyModel, tag.Model)
	if err != nil {
		return helper.NewError("set model meta", err)
	}
	_, err = s.db.Instance.ExecContext(ctx, `SELECT set_meta($1, $2)`, metaKeyDimension, fmt.Sprintf("%d", tag.Dimension))
	if err != nil {
		return helper.NewError("set dimension meta", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *PgStore) Close() error {
	return s.db.Instance.Close()
}
