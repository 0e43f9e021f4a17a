package postgres

import (
	"context"
	"fmt"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// VectorCandidates ranks embedded chunks by cosine similarity using the
// pgvector distance operator.
func (s *Store) VectorCandidates(ctx context.Context, vector []float32, filter storage.SearchFilter, limit int) ([]core.SearchCandidate, error) {
	if limit <= 0 {
		return []core.SearchCandidate{}, nil
	}
	if err := s.checkDimensions(vector); err != nil {
		return nil, err
	}

	where, args := chunkFilterSQL(filter, 3)
	query := fmt.Sprintf(`
		SELECT c.id, 1 - (c.embedding <=> $1) AS vec_score
		FROM chunks c
		JOIN claims cl ON c.claim_id = cl.id
		WHERE c.embedding IS NOT NULL%s
		ORDER BY c.embedding <=> $1
		LIMIT $2`, where)

	rows, err := s.pool.Query(ctx, query, append([]any{pgvector.NewVector(vector), limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("vector candidates: %w", err)
	}
	return collectCandidates(rows, func(c *core.SearchCandidate, score float64) { c.VecScore = &score })
}

// LexicalCandidates ranks chunks matching plainto_tsquery with ts_rank_cd.
// The query uses the configuration fts_vector is generated with.
func (s *Store) LexicalCandidates(ctx context.Context, query string, filter storage.SearchFilter, limit int) ([]core.SearchCandidate, error) {
	if limit <= 0 {
		return []core.SearchCandidate{}, nil
	}

	where, args := chunkFilterSQL(filter, 4)
	sql := fmt.Sprintf(`
		SELECT c.id, ts_rank_cd(c.fts_vector, q) AS fts_score
		FROM chunks c
		JOIN claims cl ON c.claim_id = cl.id,
			plainto_tsquery($1::regconfig, $2) q
		WHERE c.fts_vector @@ q%s
		ORDER BY fts_score DESC, c.id
		LIMIT $3`, where)

	rows, err := s.pool.Query(ctx, sql, append([]any{s.textSearchConfig, query, limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("lexical candidates: %w", err)
	}
	return collectCandidates(rows, func(c *core.SearchCandidate, score float64) { c.FtsScore = &score })
}

func collectCandidates(rows pgx.Rows, set func(*core.SearchCandidate, float64)) ([]core.SearchCandidate, error) {
	defer rows.Close()
	out := []core.SearchCandidate{}
	for rows.Next() {
		var c core.SearchCandidate
		var score float64
		if err := rows.Scan(&c.ChunkID, &score); err != nil {
			return nil, err
		}
		set(&c, score)
		out = append(out, c)
	}
	return out, rows.Err()
}

// HydrateChunks loads chunks with their claims in one query.
func (s *Store) HydrateChunks(ctx context.Context, ids []int64) (map[int64]*core.HydratedChunk, error) {
	out := make(map[int64]*core.HydratedChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`, `+claimColumns+`
		FROM chunks c
		JOIN claims cl ON c.claim_id = cl.id
		WHERE c.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}
	defer rows.Close()

	claims := make(map[string]*core.ClaimRecord)
	for rows.Next() {
		var claim core.ClaimRecord
		var status string
		chunk, err := scanChunk(rows,
			&claim.ID, &claim.ExternalID, &claim.ShortID, &claim.ProcessID, &status, &claim.Synopsis,
			&claim.RatingStatement, &claim.RatingSummary, &claim.RatingLabel, &claim.Categories,
			&claim.PublishingURL, &claim.PublishingDate, &claim.Internal, &claim.Language,
			&claim.VersionHash, &claim.CreatedAt, &claim.UpdatedAt, &claim.LastSyncedAt)
		if err != nil {
			return nil, err
		}
		claim.Status = core.ClaimStatus(status)

		shared, ok := claims[claim.ID]
		if !ok {
			shared = &claim
			claims[claim.ID] = shared
		}
		out[chunk.ID] = &core.HydratedChunk{Chunk: *chunk, Claim: shared}
	}
	return out, rows.Err()
}
