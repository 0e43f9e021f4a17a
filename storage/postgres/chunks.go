package postgres

import (
	"context"
	"fmt"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const defaultChunkBatchSize = 100

// CountChunks returns the number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n)
	return n, err
}

// ForEachChunkBatch pages through chunks by ascending ID. Each page is a
// separate query, so fn may write to the store.
func (s *Store) ForEachChunkBatch(ctx context.Context, batchSize int, fn func([]core.Chunk) error) error {
	if batchSize <= 0 {
		batchSize = defaultChunkBatchSize
	}

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.readChunkBatch(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		after = batch[len(batch)-1].ID
		if len(batch) < batchSize {
			return nil
		}
	}
}

func (s *Store) readChunkBatch(ctx context.Context, after int64, limit int) ([]core.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c
		WHERE c.id > $1
		ORDER BY c.id
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batch := make([]core.Chunk, 0, limit)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		batch = append(batch, *chunk)
	}
	return batch, rows.Err()
}

// UpdateChunkEmbeddings replaces embeddings in one transaction.
func (s *Store) UpdateChunkEmbeddings(ctx context.Context, updates []storage.ChunkEmbedding) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if err := s.checkDimensions(u.Embedding); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`UPDATE chunks SET embedding = $2 WHERE id = $1`, u.ChunkID, pgvector.NewVector(u.Embedding))
	}
	results := tx.SendBatch(ctx, batch)
	for _, u := range updates {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return fmt.Errorf("failed to update chunk %d: %w", u.ChunkID, err)
		}
		if tag.RowsAffected() == 0 {
			results.Close()
			return fmt.Errorf("chunk %d: %w", u.ChunkID, storage.ErrNotFound)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
