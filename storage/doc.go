// Package storage provides the storage abstraction layer for checkbot-rag.
//
// This package defines repository interfaces that decouple storage implementation
// from ingestion and retrieval. Two backends implement Store:
//
//   - postgres: PostgreSQL with the pgvector extension, the production store
//   - badger: an embedded BadgerDB store for local use and tests
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Store interface:
//
//	store, err := postgres.NewStore(ctx, dsn, postgres.WithDimensions(1536))
//	store, err := badger.NewStore("/path/to/db")
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - ClaimRepository: claims and their chunks, replaced atomically per claim
//   - CandidateSearcher: vector and lexical candidate lists plus hydration
//   - ChunkRepository: bulk chunk walks for re-embedding
//   - JobRepository: persistent import job records
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
