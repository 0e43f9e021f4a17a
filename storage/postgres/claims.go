package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const claimColumns = `cl.id, cl.external_id, cl.short_id, cl.process_id, cl.status, cl.synopsis,
	cl.rating_statement, cl.rating_summary, cl.rating_label, cl.categories, cl.publishing_url,
	cl.publishing_date, cl.internal, cl.language, cl.version_hash, cl.created_at, cl.updated_at,
	cl.last_synced_at`

const chunkColumns = `c.id, c.claim_id, c.chunk_type, c.fact_index, c.content, c.metadata`

// scanClaim reads claimColumns, optionally followed by extra destinations.
func scanClaim(row pgx.Row, extra ...any) (*core.ClaimRecord, error) {
	var r core.ClaimRecord
	var status string
	dest := append([]any{
		&r.ID, &r.ExternalID, &r.ShortID, &r.ProcessID, &status, &r.Synopsis,
		&r.RatingStatement, &r.RatingSummary, &r.RatingLabel, &r.Categories, &r.PublishingURL,
		&r.PublishingDate, &r.Internal, &r.Language, &r.VersionHash, &r.CreatedAt, &r.UpdatedAt,
		&r.LastSyncedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.Status = core.ClaimStatus(status)
	return &r, nil
}

// scanChunk reads chunkColumns, optionally followed by extra destinations.
func scanChunk(row pgx.Row, extra ...any) (*core.Chunk, error) {
	var c core.Chunk
	var chunkType string
	var metadata []byte
	dest := append([]any{&c.ID, &c.ClaimID, &chunkType, &c.FactIndex, &c.Content, &metadata}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	c.Type = core.ChunkType(chunkType)
	if len(metadata) > 0 {
		if err := sonic.ConfigStd.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("%w: chunk %d metadata: %v", storage.ErrSerializationFailed, c.ID, err)
		}
	}
	return &c, nil
}

// GetClaimState returns the stored fingerprint and chunk count of a claim.
func (s *Store) GetClaimState(ctx context.Context, externalID string) (storage.ClaimState, error) {
	var state storage.ClaimState
	err := s.pool.QueryRow(ctx, `
		SELECT cl.version_hash, (SELECT count(*) FROM chunks c WHERE c.claim_id = cl.id)
		FROM claims cl WHERE cl.external_id = $1`, externalID).Scan(&state.Fingerprint, &state.ChunkCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, storage.ErrNotFound
	}
	return state, err
}

// UpsertClaim inserts or updates the claim, then replaces its chunks, all in
// one transaction.
func (s *Store) UpsertClaim(ctx context.Context, record *core.ClaimRecord, chunks []core.Chunk) error {
	if record.ExternalID == "" {
		return core.ErrEmptyClaimID
	}
	for i := range chunks {
		if err := s.checkDimensions(chunks[i].Embedding); err != nil {
			return err
		}
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	categories := record.Categories
	if categories == nil {
		categories = []string{}
	}
	var raw any
	if len(record.RawData) > 0 {
		raw = record.RawData
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO claims (id, external_id, short_id, process_id, status, synopsis, rating_statement,
			rating_summary, rating_label, categories, publishing_url, publishing_date, internal,
			language, version_hash, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (external_id) DO UPDATE SET
			short_id = EXCLUDED.short_id,
			process_id = EXCLUDED.process_id,
			status = EXCLUDED.status,
			synopsis = EXCLUDED.synopsis,
			rating_statement = EXCLUDED.rating_statement,
			rating_summary = EXCLUDED.rating_summary,
			rating_label = EXCLUDED.rating_label,
			categories = EXCLUDED.categories,
			publishing_url = EXCLUDED.publishing_url,
			publishing_date = EXCLUDED.publishing_date,
			internal = EXCLUDED.internal,
			language = EXCLUDED.language,
			version_hash = EXCLUDED.version_hash,
			raw_data = EXCLUDED.raw_data,
			updated_at = now(),
			last_synced_at = now()
		RETURNING id, created_at, updated_at, last_synced_at`,
		record.ID, record.ExternalID, record.ShortID, record.ProcessID, string(record.Status),
		record.Synopsis, record.RatingStatement, record.RatingSummary, record.RatingLabel, categories,
		record.PublishingURL, record.PublishingDate, record.Internal, record.Language,
		record.VersionHash, raw,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt, &record.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert claim %s: %w", record.ExternalID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE claim_id = $1`, record.ID); err != nil {
		return fmt.Errorf("failed to delete chunks of claim %s: %w", record.ExternalID, err)
	}

	if err := insertChunks(ctx, tx, record.ID, chunks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, claimID string, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		chunks[i].ClaimID = claimID
		chunks[i].Metadata.ClaimID = claimID
		metadata, err := sonic.ConfigStd.Marshal(chunks[i].Metadata)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
		}
		batch.Queue(`
			INSERT INTO chunks (claim_id, chunk_type, fact_index, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			claimID, string(chunks[i].Type), chunks[i].FactIndex, chunks[i].Content, metadata,
			embeddingArg(chunks[i].Embedding))
	}

	results := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if err := results.QueryRow().Scan(&chunks[i].ID); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return results.Close()
}

// embeddingArg converts a vector to a query argument; empty vectors become NULL.
func embeddingArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// GetClaim looks a claim up by external ID, falling back to short ID.
func (s *Store) GetClaim(ctx context.Context, identifier string) (*core.ClaimWithChunks, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+claimColumns+`, cl.raw_data
		FROM claims cl
		WHERE cl.external_id = $1 OR cl.short_id = $1
		ORDER BY (cl.external_id = $1) DESC
		LIMIT 1`, identifier)
	var raw []byte
	record, err := scanClaim(row, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	record.RawData = raw

	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`, c.embedding
		FROM chunks c
		WHERE c.claim_id = $1
		ORDER BY (c.chunk_type <> 'overview'), c.fact_index NULLS FIRST, c.id`, record.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []core.Chunk{}
	for rows.Next() {
		var embedding *pgvector.Vector
		chunk, err := scanChunk(rows, &embedding)
		if err != nil {
			return nil, err
		}
		if embedding != nil {
			chunk.Embedding = embedding.Slice()
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &core.ClaimWithChunks{Claim: record, Chunks: chunks}, nil
}

// ListClaims returns one page of claims, most recently updated first.
func (s *Store) ListClaims(ctx context.Context, filter storage.ClaimFilter) (*core.ClaimPage, error) {
	filter = filter.Normalize()
	where, args := claimFilterSQL(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM claims cl`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM claims cl%s
		ORDER BY cl.updated_at DESC, cl.external_id
		LIMIT $%d OFFSET $%d`, claimColumns, where, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []*core.ClaimRecord
	for rows.Next() {
		record, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.NewClaimPage(filter, data, total), nil
}
