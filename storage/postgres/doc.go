// Package postgres implements storage.Store on PostgreSQL with pgvector.
//
// Claims and chunks live in the claims and chunks tables and are accessed
// through a pgx connection pool. Each chunk carries an embedding column of a
// fixed width and a generated fts_vector column for full-text search. Import
// jobs are persisted in import_jobs through gorm, which also migrates that
// table.
//
// Vector candidates use cosine distance (<=>) and report 1 - distance as the
// score. Lexical candidates use ts_rank_cd over plainto_tsquery with the
// requested text-search configuration.
//
// Integration tests run only when CHECKBOT_RAG_TEST_DSN points at a database
// where the vector extension can be created.
package postgres
