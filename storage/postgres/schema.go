package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/jackc/pgx/v5"
)

// hnswMaxDimensions is the largest vector pgvector can index with HNSW.
const hnswMaxDimensions = 2000

// schemaStatements returns the idempotent DDL for claims and chunks.
func schemaStatements(dims int, textSearchConfig string) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS claims (
			id               UUID PRIMARY KEY,
			external_id      TEXT NOT NULL UNIQUE,
			short_id         TEXT NOT NULL DEFAULT '',
			process_id       BIGINT NOT NULL DEFAULT 0,
			status           TEXT NOT NULL,
			synopsis         TEXT,
			rating_statement TEXT,
			rating_summary   TEXT,
			rating_label     TEXT,
			categories       TEXT[] NOT NULL DEFAULT '{}',
			publishing_url   TEXT,
			publishing_date  TIMESTAMPTZ,
			internal         BOOLEAN NOT NULL DEFAULT FALSE,
			language         TEXT NOT NULL DEFAULT '',
			version_hash     TEXT NOT NULL,
			raw_data         JSONB,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_synced_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS claims_short_id_idx ON claims (short_id)`,
		`CREATE INDEX IF NOT EXISTS claims_rating_label_idx ON claims (rating_label)`,
		`CREATE INDEX IF NOT EXISTS claims_categories_idx ON claims USING gin (categories)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id          BIGSERIAL PRIMARY KEY,
			claim_id    UUID NOT NULL REFERENCES claims (id) ON DELETE CASCADE,
			chunk_type  TEXT NOT NULL,
			fact_index  INTEGER,
			content     TEXT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			embedding   vector(%d),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dims),
		// Added separately so that a dropped column is rebuilt under the configured language.
		fmt.Sprintf(`ALTER TABLE chunks ADD COLUMN IF NOT EXISTS fts_vector tsvector
			GENERATED ALWAYS AS (to_tsvector('%s'::regconfig, content)) STORED`, textSearchConfig),
		`CREATE INDEX IF NOT EXISTS chunks_claim_id_idx ON chunks (claim_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_fts_idx ON chunks USING gin (fts_vector)`,
		vectorIndexStatement(dims),
	}
}

// vectorIndexStatement picks HNSW where pgvector supports it and IVFFlat above that.
func vectorIndexStatement(dims int) string {
	if dims <= hnswMaxDimensions {
		return `CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
			USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64)`
	}
	return `CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`
}

// EnsureSchema creates the extension, tables and indexes, migrates the job
// table and checks that existing embedding and fts_vector columns match the
// configured width and text-search configuration.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dimensions, s.textSearchConfig) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	if err := s.checkEmbeddingColumn(ctx); err != nil {
		return err
	}
	if err := s.checkTextSearchColumn(ctx); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&importJobRow{}); err != nil {
		return fmt.Errorf("migrate import_jobs: %w", err)
	}

	index := "hnsw"
	if s.dimensions > hnswMaxDimensions {
		index = "ivfflat"
	}
	s.logger.Info("schema ready", "dimensions", s.dimensions, "textSearchConfig", s.textSearchConfig, "vectorIndex", index)
	return nil
}

// checkEmbeddingColumn compares the declared vector width with the configured one.
// Changing dimensions requires dropping the column and re-embedding.
func (s *Store) checkEmbeddingColumn(ctx context.Context) error {
	var typmod int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'chunks'::regclass AND attname = 'embedding' AND NOT attisdropped`).Scan(&typmod)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ensure schema: chunks.embedding column is missing")
	}
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if typmod > 0 && typmod != s.dimensions {
		return fmt.Errorf("%w: chunks.embedding is vector(%d), configured %d; drop the column and run reembed",
			storage.ErrDimensionMismatch, typmod, s.dimensions)
	}
	return nil
}

var generatedConfig = regexp.MustCompile(`to_tsvector\('([a-z_]+)'::regconfig`)

// checkTextSearchColumn compares the configuration fts_vector is generated
// with against the configured one. Queries always use the configured one, so
// a mismatch would stem query and content differently.
func (s *Store) checkTextSearchColumn(ctx context.Context) error {
	var expr string
	err := s.pool.QueryRow(ctx, `
		SELECT pg_get_expr(d.adbin, d.adrelid)
		FROM pg_attrdef d
		JOIN pg_attribute a ON a.attrelid = d.adrelid AND a.attnum = d.adnum
		WHERE d.adrelid = 'chunks'::regclass AND a.attname = 'fts_vector' AND NOT a.attisdropped`).Scan(&expr)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ensure schema: chunks.fts_vector column is missing")
	}
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return compareTextSearchExpr(expr, s.textSearchConfig)
}

func compareTextSearchExpr(expr, configured string) error {
	m := generatedConfig.FindStringSubmatch(expr)
	if m == nil {
		return fmt.Errorf("ensure schema: unrecognized fts_vector expression %q", expr)
	}
	if m[1] != configured {
		return fmt.Errorf("%w: chunks.fts_vector is built with %s, configured %s; drop the column and run migrate",
			storage.ErrTextSearchMismatch, m[1], configured)
	}
	return nil
}
