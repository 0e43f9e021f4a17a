// Copyright 2025 Faktenforum
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"time"

	"github.com/faktenforum/checkbot-rag/core"
)

// ClaimState is what ingestion needs to know about an already stored claim.
type ClaimState struct {
	Fingerprint string
	ChunkCount  int
}

// ChunkEmbedding assigns a new vector to a stored chunk.
type ChunkEmbedding struct {
	ChunkID   int64
	Embedding []float32
}

type ClaimRepository interface {
	// GetClaimState returns the stored fingerprint and chunk count of the claim
	// with the given external identifier.
	// Returns ErrNotFound if no such claim exists.
	GetClaimState(ctx context.Context, externalID string) (ClaimState, error)

	// UpsertClaim replaces a claim and all of its chunks in one transaction.
	// The claim is matched by ExternalID; its internal ID is kept when it
	// already exists. Chunk IDs are assigned by the store.
	// On return, record.ID holds the internal ID.
	UpsertClaim(ctx context.Context, record *core.ClaimRecord, chunks []core.Chunk) error

	// GetClaim looks a claim up by external identifier or short identifier.
	// Chunks are ordered overview first, then by fact index.
	// Returns ErrNotFound if the claim doesn't exist.
	GetClaim(ctx context.Context, identifier string) (*core.ClaimWithChunks, error)

	// ListClaims returns one page of claims, most recently updated first.
	ListClaims(ctx context.Context, filter ClaimFilter) (*core.ClaimPage, error)

	// Stats aggregates claim and chunk counts.
	Stats(ctx context.Context) (*core.Stats, error)

	// ListCategories returns each category with the number of claims in it,
	// most frequent first.
	ListCategories(ctx context.Context) ([]core.LabelCount, error)

	// ListRatingLabels returns each rating label with its claim count,
	// most frequent first.
	ListRatingLabels(ctx context.Context) ([]core.LabelCount, error)
}

// CandidateSearcher produces ranked candidate lists for hybrid retrieval.
// Both paths apply the same SearchFilter.
type CandidateSearcher interface {
	// VectorCandidates returns up to limit embedded chunks ordered by cosine
	// similarity to vector, highest first. VecScore is set on each candidate.
	VectorCandidates(ctx context.Context, vector []float32, filter SearchFilter, limit int) ([]core.SearchCandidate, error)

	// LexicalCandidates returns up to limit chunks matching query, best match
	// first. The query is parsed with the same text-search configuration the
	// chunks were indexed with. FtsScore is set on each candidate.
	LexicalCandidates(ctx context.Context, query string, filter SearchFilter, limit int) ([]core.SearchCandidate, error)

	// TextSearchConfig names the configuration of the lexical index.
	TextSearchConfig() string

	// HydrateChunks loads the chunks with the given IDs together with their
	// parent claims. Missing IDs are left out of the result.
	HydrateChunks(ctx context.Context, ids []int64) (map[int64]*core.HydratedChunk, error)
}

// ChunkRepository supports bulk maintenance of stored chunks.
type ChunkRepository interface {
	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// ForEachChunkBatch walks all chunks in ascending ID order, calling fn
	// with at most batchSize chunks at a time. Iteration stops at the first
	// error from fn or when ctx is done.
	ForEachChunkBatch(ctx context.Context, batchSize int, fn func([]core.Chunk) error) error

	// UpdateChunkEmbeddings replaces the embeddings of the given chunks.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunkEmbeddings(ctx context.Context, updates []ChunkEmbedding) error
}

// JobRepository persists import jobs. The store is authoritative; in-memory
// job tables are caches of it.
type JobRepository interface {
	// CreateJob stores a new job.
	CreateJob(ctx context.Context, job *core.ImportJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.ImportJob, error)

	// ListJobs returns up to limit jobs, newest first.
	ListJobs(ctx context.Context, limit int) ([]*core.ImportJob, error)

	// UpdateJob writes the full state of an existing job and stamps UpdatedAt.
	// A terminal job keeps its status: a write carrying any other status
	// changes nothing and returns ErrJobFinished.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.ImportJob) error

	// TouchJobs stamps UpdatedAt on those of the given jobs that are still
	// pending or running. Unknown ids are ignored.
	TouchJobs(ctx context.Context, ids []string) error

	// MarkCanceled moves a non-terminal job to canceled and stamps CanceledAt.
	// Jobs already in a terminal state are left untouched.
	// Returns ErrNotFound if the job doesn't exist.
	MarkCanceled(ctx context.Context, id string) error

	// DeleteJob removes a job.
	// Returns ErrNotFound if the job doesn't exist.
	DeleteJob(ctx context.Context, id string) error

	// FailInterrupted marks pending or running jobs last updated before
	// staleBefore as failed with the given message and returns how many
	// were changed.
	FailInterrupted(ctx context.Context, message string, staleBefore time.Time) (int, error)
}

// Store combines every repository backed by one database.
type Store interface {
	ClaimRepository
	CandidateSearcher
	ChunkRepository
	JobRepository

	// EnsureSchema creates or verifies whatever the backend needs before use.
	// It is idempotent.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connections or files.
	Close() error
}
