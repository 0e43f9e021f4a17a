package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

type scoredChunk struct {
	id    int64
	score float64
}

// VectorCandidates scans every embedded chunk and ranks it by cosine similarity.
func (s *Store) VectorCandidates(ctx context.Context, vector []float32, filter storage.SearchFilter, limit int) ([]core.SearchCandidate, error) {
	if limit <= 0 {
		return []core.SearchCandidate{}, nil
	}
	if err := s.checkDimensions(vector); err != nil {
		return nil, err
	}
	query := NormalizeVector(vector)

	scored, err := s.scoreChunks(ctx, filter, func(chunk *core.Chunk) (float64, bool) {
		if len(chunk.Embedding) == 0 {
			return 0, false
		}
		return float64(dotProduct(query, chunk.Embedding)), true
	})
	if err != nil {
		return nil, err
	}

	scored = topN(scored, limit)
	out := make([]core.SearchCandidate, len(scored))
	for i, sc := range scored {
		score := sc.score
		out[i] = core.SearchCandidate{ChunkID: sc.id, VecScore: &score}
	}
	return out, nil
}

// LexicalCandidates ranks chunks containing every query term by term density.
func (s *Store) LexicalCandidates(ctx context.Context, query string, filter storage.SearchFilter, limit int) ([]core.SearchCandidate, error) {
	terms := tokenizeAndFilter(query, s.textSearchConfig)
	if limit <= 0 || len(terms) == 0 {
		return []core.SearchCandidate{}, nil
	}

	scored, err := s.scoreChunks(ctx, filter, func(chunk *core.Chunk) (float64, bool) {
		score := lexicalScore(terms, chunk.Content, s.textSearchConfig)
		return score, score > 0
	})
	if err != nil {
		return nil, err
	}

	scored = topN(scored, limit)
	out := make([]core.SearchCandidate, len(scored))
	for i, sc := range scored {
		score := sc.score
		out[i] = core.SearchCandidate{ChunkID: sc.id, FtsScore: &score}
	}
	return out, nil
}

// scoreChunks applies score to every chunk passing filter and keeps the ones it accepts.
func (s *Store) scoreChunks(ctx context.Context, filter storage.SearchFilter, score func(*core.Chunk) (float64, bool)) ([]scoredChunk, error) {
	var scored []scoredChunk
	err := s.backend.View(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(chunkPrefix), func(_, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			if !filter.Matches(chunk) {
				return nil
			}
			if v, ok := score(chunk); ok {
				scored = append(scored, scoredChunk{id: chunk.ID, score: v})
			}
			return nil
		})
	})
	return scored, err
}

// topN sorts by score descending, ties by ascending chunk ID, and truncates.
func topN(scored []scoredChunk, n int) []scoredChunk {
	slices.SortFunc(scored, func(a, b scoredChunk) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// HydrateChunks loads chunks and their parent claims.
func (s *Store) HydrateChunks(ctx context.Context, ids []int64) (map[int64]*core.HydratedChunk, error) {
	out := make(map[int64]*core.HydratedChunk, len(ids))
	claims := make(map[string]*core.ClaimRecord)

	err := s.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readValue(tx, makeChunkKey(id), storage.UnmarshalChunk)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			claim, ok := claims[chunk.ClaimID]
			if !ok {
				claim, err = readValue(tx, makeClaimKey(chunk.ClaimID), storage.UnmarshalClaim)
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				claim.RawData = nil
				claims[chunk.ClaimID] = claim
			}
			chunk.Embedding = nil
			out[id] = &core.HydratedChunk{Chunk: *chunk, Claim: claim}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
