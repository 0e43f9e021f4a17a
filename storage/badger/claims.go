package badger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/google/uuid"
)

func decodeClaimID(val []byte) (string, error) {
	return string(val), nil
}

// GetClaimState returns the stored fingerprint and chunk count of a claim.
func (s *Store) GetClaimState(ctx context.Context, externalID string) (storage.ClaimState, error) {
	var state storage.ClaimState
	err := s.backend.View(func(tx *badger.Txn) error {
		id, err := readValue(tx, makeClaimExternalKey(externalID), decodeClaimID)
		if err != nil {
			return err
		}
		record, err := readValue(tx, makeClaimKey(id), storage.UnmarshalClaim)
		if err != nil {
			return err
		}
		state.Fingerprint = record.VersionHash
		state.ChunkCount = len(collectKeys(tx, makePartialClaimChunkKey(id)))
		return nil
	})
	return state, err
}

// UpsertClaim replaces a claim and its chunks in one transaction.
// Chunk IDs, ClaimID and metadata ClaimID are written back into chunks.
// A ctx canceled while chunks are written leaves the previous version intact.
func (s *Store) UpsertClaim(ctx context.Context, record *core.ClaimRecord, chunks []core.Chunk) error {
	if record.ExternalID == "" {
		return core.ErrEmptyClaimID
	}
	for i := range chunks {
		if err := s.checkDimensions(chunks[i].Embedding); err != nil {
			return err
		}
	}

	return s.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()

		existing, err := s.lookupClaim(tx, makeClaimExternalKey(record.ExternalID))
		switch {
		case errors.Is(err, storage.ErrNotFound):
			if record.ID == "" {
				record.ID = uuid.NewString()
			}
			record.CreatedAt = now
		case err != nil:
			return err
		default:
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			if existing.ShortID != record.ShortID && existing.ShortID != "" {
				if err := tx.Delete(makeClaimShortKey(existing.ShortID)); err != nil {
					return err
				}
			}
			if err := s.deleteChunks(tx, existing.ID); err != nil {
				return err
			}
		}
		record.UpdatedAt = now
		record.LastSyncedAt = now

		value, err := storage.MarshalClaim(record)
		if err != nil {
			return err
		}
		if err := tx.Set(makeClaimKey(record.ID), value); err != nil {
			return err
		}
		if err := tx.Set(makeClaimExternalKey(record.ExternalID), []byte(record.ID)); err != nil {
			return err
		}
		if record.ShortID != "" {
			if err := tx.Set(makeClaimShortKey(record.ShortID), []byte(record.ID)); err != nil {
				return err
			}
		}

		for i := range chunks {
			// Abandoning here discards the whole transaction, old chunks included.
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.putChunk(tx, record.ID, &chunks[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) putChunk(tx *badger.Txn, claimID string, chunk *core.Chunk) error {
	id, err := s.nextChunkID()
	if err != nil {
		return err
	}
	chunk.ID = id
	chunk.ClaimID = claimID
	chunk.Metadata.ClaimID = claimID

	stored := *chunk
	if len(stored.Embedding) > 0 {
		stored.Embedding = NormalizeVector(stored.Embedding)
	}
	value, err := storage.MarshalChunk(&stored)
	if err != nil {
		return err
	}
	if err := tx.Set(makeChunkKey(id), value); err != nil {
		return err
	}
	return tx.Set(makeClaimChunkKey(claimID, id), nil)
}

func (s *Store) deleteChunks(tx *badger.Txn, claimID string) error {
	for _, key := range collectKeys(tx, makePartialClaimChunkKey(claimID)) {
		chunkID, err := chunkIDFromKey(key)
		if err != nil {
			return err
		}
		if err := tx.Delete(makeChunkKey(chunkID)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// lookupClaim resolves an index key to the claim it points at.
func (s *Store) lookupClaim(tx *badger.Txn, indexKey []byte) (*core.ClaimRecord, error) {
	id, err := readValue(tx, indexKey, decodeClaimID)
	if err != nil {
		return nil, err
	}
	return readValue(tx, makeClaimKey(id), storage.UnmarshalClaim)
}

func (s *Store) claimChunks(tx *badger.Txn, claimID string) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for _, key := range collectKeys(tx, makePartialClaimChunkKey(claimID)) {
		chunkID, err := chunkIDFromKey(key)
		if err != nil {
			return nil, err
		}
		chunk, err := readValue(tx, makeChunkKey(chunkID), storage.UnmarshalChunk)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	sortChunks(chunks)
	return chunks, nil
}

// sortChunks orders chunks overview first, then by fact index, then by ID.
func sortChunks(chunks []core.Chunk) {
	slices.SortStableFunc(chunks, func(a, b core.Chunk) int {
		if a.Type != b.Type {
			if a.Type == core.ChunkTypeOverview {
				return -1
			}
			if b.Type == core.ChunkTypeOverview {
				return 1
			}
		}
		ai, bi := factIndex(a), factIndex(b)
		if ai != bi {
			return ai - bi
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func factIndex(c core.Chunk) int {
	if c.FactIndex == nil {
		return -1
	}
	return *c.FactIndex
}

// GetClaim looks a claim up by external ID, then by short ID.
func (s *Store) GetClaim(ctx context.Context, identifier string) (*core.ClaimWithChunks, error) {
	var result *core.ClaimWithChunks
	err := s.backend.View(func(tx *badger.Txn) error {
		record, err := s.lookupClaim(tx, makeClaimExternalKey(identifier))
		if errors.Is(err, storage.ErrNotFound) {
			record, err = s.lookupClaim(tx, makeClaimShortKey(identifier))
		}
		if err != nil {
			return err
		}
		chunks, err := s.claimChunks(tx, record.ID)
		if err != nil {
			return err
		}
		result = &core.ClaimWithChunks{Claim: record, Chunks: chunks}
		return nil
	})
	return result, err
}

// ListClaims returns one page of claims, most recently updated first.
func (s *Store) ListClaims(ctx context.Context, filter storage.ClaimFilter) (*core.ClaimPage, error) {
	filter = filter.Normalize()

	var matched []*core.ClaimRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(claimPrefix), func(_, val []byte) error {
			record, err := storage.UnmarshalClaim(val)
			if err != nil {
				return err
			}
			if filter.Matches(record) {
				record.RawData = nil
				matched = append(matched, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(matched, func(a, b *core.ClaimRecord) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ExternalID, b.ExternalID)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return storage.NewClaimPage(filter, matched[start:end], total), nil
}
