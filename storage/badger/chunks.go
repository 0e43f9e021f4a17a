package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

const defaultChunkBatchSize = 100

// CountChunks returns the number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.backend.View(func(tx *badger.Txn) error {
		n = len(collectKeys(tx, []byte(chunkPrefix)))
		return nil
	})
	return n, err
}

// ForEachChunkBatch walks chunks in ID order. Each batch is read in its own
// transaction and fn runs outside it, so fn may write to the store.
func (s *Store) ForEachChunkBatch(ctx context.Context, batchSize int, fn func([]core.Chunk) error) error {
	if batchSize <= 0 {
		batchSize = defaultChunkBatchSize
	}

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := s.readChunkBatch(after, batchSize)
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

func (s *Store) readChunkBatch(after int64, limit int) ([]core.Chunk, error) {
	batch := make([]core.Chunk, 0, limit)
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeChunkKey(after + 1)); iter.Valid() && len(batch) < limit; iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				batch = append(batch, *chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return batch, err
}

// UpdateChunkEmbeddings replaces chunk embeddings in one transaction.
func (s *Store) UpdateChunkEmbeddings(ctx context.Context, updates []storage.ChunkEmbedding) error {
	for _, u := range updates {
		if err := s.checkDimensions(u.Embedding); err != nil {
			return err
		}
	}

	return s.backend.Update(func(tx *badger.Txn) error {
		for _, u := range updates {
			key := makeChunkKey(u.ChunkID)
			chunk, err := readValue(tx, key, storage.UnmarshalChunk)
			if err != nil {
				return err
			}
			chunk.Embedding = NormalizeVector(u.Embedding)
			value, err := storage.MarshalChunk(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}
