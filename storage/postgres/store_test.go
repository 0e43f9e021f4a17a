package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to CHECKBOT_RAG_TEST_DSN and empties the tables.
// The database must have the pgvector extension available.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CHECKBOT_RAG_TEST_DSN")
	if dsn == "" {
		t.Skip("CHECKBOT_RAG_TEST_DSN not set")
	}

	ctx := context.Background()
	s, err := newStore(ctx, dsn, WithDimensions(3))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.pool.Exec(ctx, `DROP TABLE IF EXISTS chunks, claims, import_jobs`)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func ptr[T any](v T) *T { return &v }

func testClaim(externalID, label string, categories ...string) (*core.ClaimRecord, []core.Chunk) {
	record := &core.ClaimRecord{
		ExternalID:  externalID,
		ShortID:     "FF-" + externalID,
		Status:      core.ClaimStatusPublished,
		Synopsis:    ptr("Impfung und Autismus"),
		RatingLabel: ptr(label),
		Categories:  categories,
		VersionHash: "v1",
		RawData:     []byte(`{"id":"` + externalID + `"}`),
	}
	meta := core.ChunkMetadata{ExternalID: externalID, RatingLabel: record.RatingLabel, Categories: categories}
	chunks := []core.Chunk{
		{Type: core.ChunkTypeOverview, Content: "Impfung verursacht keinen Autismus.", Metadata: meta, Embedding: []float32{1, 0, 0}},
		{Type: core.ChunkTypeFactDetail, FactIndex: ptr(0), Content: "Studien zeigen keinen Zusammenhang.", Metadata: meta, Embedding: []float32{0, 1, 0}},
	}
	return record, chunks
}

func TestStore_ClaimsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record, chunks := testClaim("a", "Falsch", "health")
	require.NoError(t, s.UpsertClaim(ctx, record, chunks))
	firstID := record.ID

	state, err := s.GetClaimState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, storage.ClaimState{Fingerprint: "v1", ChunkCount: 2}, state)

	record, chunks = testClaim("a", "Richtig", "politics")
	record.VersionHash = "v2"
	require.NoError(t, s.UpsertClaim(ctx, record, chunks[:1]))
	assert.Equal(t, firstID, record.ID)

	got, err := s.GetClaim(ctx, "FF-a")
	require.NoError(t, err)
	assert.Equal(t, "Richtig", *got.Claim.RatingLabel)
	assert.JSONEq(t, `{"id":"a"}`, string(got.Claim.RawData))
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, []float32{1, 0, 0}, got.Chunks[0].Embedding)

	_, err = s.GetClaimState(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.UpsertClaim(ctx, &core.ClaimRecord{ExternalID: "b"}, []core.Chunk{{Embedding: []float32{1}}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestStore_Candidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, chunks := testClaim("a", "Falsch", "health")
	require.NoError(t, s.UpsertClaim(ctx, a, chunks))
	b, chunks := testClaim("b", "Richtig", "politics")
	require.NoError(t, s.UpsertClaim(ctx, b, chunks))

	vec, err := s.VectorCandidates(ctx, []float32{1, 0, 0}, storage.SearchFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, vec, 4)
	assert.InDelta(t, 1.0, *vec[0].VecScore, 1e-6)

	vec, err = s.VectorCandidates(ctx, []float32{1, 0, 0}, storage.SearchFilter{RatingLabel: "Richtig", ChunkType: core.ChunkTypeOverview}, 10)
	require.NoError(t, err)
	require.Len(t, vec, 1)

	fts, err := s.LexicalCandidates(ctx, "Autismus", storage.SearchFilter{Categories: []string{"health"}}, 10)
	require.NoError(t, err)
	require.Len(t, fts, 1)
	assert.NotNil(t, fts[0].FtsScore)

	hydrated, err := s.HydrateChunks(ctx, []int64{fts[0].ChunkID})
	require.NoError(t, err)
	assert.Equal(t, "a", hydrated[fts[0].ChunkID].Claim.ExternalID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Claims.Total)
	assert.Equal(t, 4, stats.Chunks.Embedded)

	var batches int
	err = s.ForEachChunkBatch(ctx, 3, func(batch []core.Chunk) error {
		batches++
		updates := make([]storage.ChunkEmbedding, len(batch))
		for i, c := range batch {
			updates[i] = storage.ChunkEmbedding{ChunkID: c.ID, Embedding: []float32{0, 0, 1}}
		}
		return s.UpdateChunkEmbeddings(ctx, updates)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
}

func TestUpsertClaim_FailedChunkInsertRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record, chunks := testClaim("a", "Falsch", "health")
	require.NoError(t, s.UpsertClaim(ctx, record, chunks))

	updated, broken := testClaim("a", "Richtig", "politics")
	updated.VersionHash = "v2"
	broken[1].Content = "Text mit NUL\x00"
	require.Error(t, s.UpsertClaim(ctx, updated, broken))

	state, err := s.GetClaimState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v1", state.Fingerprint)
	assert.Equal(t, 2, state.ChunkCount)

	got, err := s.GetClaim(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Falsch", *got.Claim.RatingLabel)
	assert.Equal(t, []string{"health"}, got.Claim.Categories)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, chunks[0].Content, got.Chunks[0].Content)
	assert.Equal(t, chunks[1].Content, got.Chunks[1].Content)
}

func TestEnsureSchema_TextSearchMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	assert.Equal(t, "german", s.TextSearchConfig())

	dsn := os.Getenv("CHECKBOT_RAG_TEST_DSN")
	english, err := newStore(ctx, dsn, WithDimensions(3), WithTextSearchConfig("english"))
	require.NoError(t, err)
	defer english.Close()
	assert.ErrorIs(t, english.EnsureSchema(ctx), storage.ErrTextSearchMismatch)

	_, err = s.pool.Exec(ctx, `ALTER TABLE chunks DROP COLUMN fts_vector`)
	require.NoError(t, err)
	require.NoError(t, english.EnsureSchema(ctx), "a dropped column is rebuilt")
}

func TestStore_Jobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &core.ImportJob{ID: uuid.NewString(), Status: core.JobStatusRunning, Source: "test", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateJob(ctx, job))

	job.Processed = 5
	require.NoError(t, s.UpdateJob(ctx, job))
	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Processed)

	before := got.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.TouchJobs(ctx, []string{job.ID}))
	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(before))

	n, err := s.FailInterrupted(ctx, "interrupted", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "recently updated jobs are live")
	n, err = s.FailInterrupted(ctx, "interrupted", time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.MarkCanceled(ctx, job.ID))
	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, got.Status, "terminal jobs are not canceled")

	job.Status = core.JobStatusDone
	job.Processed = 50
	assert.ErrorIs(t, s.UpdateJob(ctx, job), storage.ErrJobFinished)
	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, got.Status)
	assert.Equal(t, 5, got.Processed)

	require.NoError(t, s.DeleteJob(ctx, job.ID))
	_, err = s.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.MarkCanceled(ctx, job.ID), storage.ErrNotFound)
}
