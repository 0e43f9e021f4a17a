package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/faktenforum/checkbot-rag/ai/mock"
	"github.com/faktenforum/checkbot-rag/chunking"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/faktenforum/checkbot-rag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testClaim(id string) *core.Claim {
	return &core.Claim{
		ID:              id,
		Status:          core.ClaimStatusPublished,
		ShortID:         "FF-" + id,
		Synopsis:        ptr("Synopsis of " + id),
		RatingLabelName: ptr("Falsch"),
		RatingSummary:   ptr("Summary of " + id),
		CreatedAt:       "2024-03-01T12:00:00.000Z",
		ClaimCategories: []core.ClaimCategory{{CategoryName: "health"}},
		Facts: []core.Fact{
			{ID: id + "-f0", Index: 0, Text: "Fact text of " + id + ".", Sources: []core.Source{{ID: id + "-s0", Excerpt: ptr("Excerpt.")}}},
		},
	}
}

func testClaims(n int) []*core.Claim {
	claims := make([]*core.Claim, n)
	for i := range claims {
		claims[i] = testClaim(fmt.Sprintf("claim-%02d", i))
	}
	return claims
}

type testEnv struct {
	store    storage.Store
	embedder *mock.MockEmbedder
	importer *Importer
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store, err := badger.NewMemoryStore(badger.WithDimensions(mock.DefaultDimensions))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newTestEnvWithStore(t, store, opts...)
}

func newTestEnvWithStore(t *testing.T, store storage.Store, opts ...Option) *testEnv {
	t.Helper()
	splitter, err := chunking.NewSplitter()
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()

	importer, err := NewImporter(store, splitter, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(importer.Release)

	return &testEnv{store: store, embedder: embedder, importer: importer}
}

// runJob submits claims and waits for the job to finish.
func (e *testEnv) runJob(t *testing.T, claims []*core.Claim) *core.ImportJob {
	t.Helper()
	ctx := context.Background()
	id, err := e.importer.Submit(ctx, claims, "test", nil)
	require.NoError(t, err)
	require.NoError(t, e.importer.Wait(ctx, id))
	job, err := e.importer.Status(ctx, id)
	require.NoError(t, err)
	return job
}

func TestNewImporter_RequiresDependencies(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()
	splitter, err := chunking.NewSplitter()
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()

	_, err = NewImporter(nil, splitter, embedder)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewImporter(store, nil, embedder)
	assert.ErrorIs(t, err, ErrSplitterRequired)
	_, err = NewImporter(store, splitter, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewImporter(store, splitter, embedder, WithLanguage("auto"))
	assert.ErrorIs(t, err, core.ErrAutoLanguage)
	_, err = NewImporter(store, splitter, embedder, WithProgressInterval(0))
	assert.Error(t, err)
}

func TestSubmit_ImportsEligibleClaims(t *testing.T) {
	env := newTestEnv(t)

	internal := testClaim("internal")
	internal.Internal = true
	draft := testClaim("draft")
	draft.Status = core.ClaimStatusSubmitted
	empty := testClaim("empty")
	empty.Synopsis = nil

	claims := append(testClaims(3), internal, draft, empty)
	job := env.runJob(t, claims)

	assert.Equal(t, core.JobStatusDone, job.Status)
	assert.Equal(t, 6, job.Total)
	assert.Equal(t, 3, job.Processed)
	assert.Equal(t, 3, job.Skipped)
	assert.Zero(t, job.Errors)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	stored, err := env.store.GetClaim(context.Background(), "claim-00")
	require.NoError(t, err)
	assert.Equal(t, "de", stored.Claim.Language)
	assert.Equal(t, []string{"health"}, stored.Claim.Categories)
	require.Len(t, stored.Chunks, 2)
	assert.Equal(t, core.ChunkTypeOverview, stored.Chunks[0].Type)

	_, err = env.store.GetClaim(context.Background(), "internal")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	persisted, err := env.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Status, persisted.Status)
	assert.Equal(t, job.Processed, persisted.Processed)
}

func TestSubmit_ReimportIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	claims := testClaims(4)

	first := env.runJob(t, claims)
	assert.Equal(t, 4, first.Processed)
	calls := env.embedder.CallCount()

	second := env.runJob(t, claims)
	assert.Equal(t, core.JobStatusDone, second.Status)
	assert.Zero(t, second.Processed)
	assert.Equal(t, second.Total, second.Skipped)
	assert.Equal(t, calls, env.embedder.CallCount(), "unchanged claims are not embedded again")

	changed := testClaims(4)
	changed[2].Synopsis = ptr("A revised synopsis")
	third := env.runJob(t, changed)
	assert.Equal(t, 1, third.Processed)
	assert.Equal(t, 3, third.Skipped)
}

func TestSubmit_ReimportsClaimWithoutChunks(t *testing.T) {
	env := newTestEnv(t)
	claim := testClaim("bare")

	fingerprint, err := core.Fingerprint(claim)
	require.NoError(t, err)
	record := &core.ClaimRecord{ExternalID: claim.ID, Status: claim.Status, VersionHash: fingerprint}
	require.NoError(t, env.store.UpsertClaim(context.Background(), record, nil))

	job := env.runJob(t, []*core.Claim{claim})
	assert.Equal(t, 1, job.Processed)
}

func TestSubmit_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.importer.Submit(ctx, nil, "test", nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = env.importer.Submit(ctx, testClaims(1), "test", &SubmitOptions{Language: "auto"})
	assert.ErrorIs(t, err, core.ErrAutoLanguage)

	_, err = env.importer.Submit(ctx, testClaims(1), "test", &SubmitOptions{Language: "xx"})
	assert.ErrorIs(t, err, core.ErrUnsupportedLanguage)

	job := env.runJob(t, []*core.Claim{})
	assert.Equal(t, core.JobStatusDone, job.Status)
	assert.Zero(t, job.Total)
}

func TestSubmit_PerClaimErrorsKeepFirstMessage(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "bad-1") {
				return nil, errors.New("provider down for bad-1")
			}
			if strings.Contains(text, "bad-2") {
				return nil, errors.New("provider down for bad-2")
			}
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, mock.DefaultDimensions)
		}
		return out, nil
	}

	claims := []*core.Claim{testClaim("ok-1"), testClaim("bad-1"), testClaim("ok-2"), testClaim("bad-2")}
	job := env.runJob(t, claims)

	assert.Equal(t, core.JobStatusDone, job.Status)
	assert.Equal(t, 2, job.Processed)
	assert.Equal(t, 2, job.Errors)
	assert.Contains(t, job.ErrorMessage, "provider down for bad-1")
	assert.NotContains(t, job.ErrorMessage, "bad-2")
}

func TestSubmit_EmbeddingCountMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{mock.Vector("x", mock.DefaultDimensions)}, nil
	}

	job := env.runJob(t, []*core.Claim{testClaim("a")})
	assert.Equal(t, 1, job.Errors)
	assert.Contains(t, job.ErrorMessage, ErrEmbeddingCountMismatch.Error())
}

func TestCancel_BetweenClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const cancelAt = 3
	var (
		mu    sync.Mutex
		calls int
		jobID string
	)
	ready := make(chan struct{})
	env.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		<-ready
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == cancelAt {
			_, err := env.importer.Cancel(ctx, jobID)
			assert.NoError(t, err)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, mock.DefaultDimensions)
		}
		return out, nil
	}

	id, err := env.importer.Submit(ctx, testClaims(10), "test", nil)
	require.NoError(t, err)
	jobID = id
	close(ready)

	require.NoError(t, env.importer.Wait(ctx, id))
	job, err := env.importer.Status(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, core.JobStatusCanceled, job.Status)
	assert.Equal(t, cancelAt, job.Handled(), "the claim in flight completes")
	assert.Equal(t, cancelAt, job.Processed)
	assert.NotNil(t, job.CanceledAt)
	assert.Empty(t, job.ErrorMessage)

	persisted, err := env.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCanceled, persisted.Status)
	assert.Equal(t, cancelAt, persisted.Handled())
}

func TestCancel_TerminalIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := env.runJob(t, testClaims(2))
	require.Equal(t, core.JobStatusDone, job.Status)

	got, err := env.importer.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, got.Status)
	assert.Nil(t, got.CanceledAt)
}

func TestCancel_UntrackedJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job := &core.ImportJob{ID: "7b1f0e4e-3c55-4a55-9d7c-0a3f8d1b2c3d", Status: core.JobStatusRunning, CreatedAt: time.Now().UTC()}
	require.NoError(t, env.store.CreateJob(ctx, job))

	got, err := env.importer.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCanceled, got.Status)

	_, err = env.importer.Cancel(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrInvalidJobID)
	_, err = env.importer.Cancel(ctx, "00000000-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	release := make(chan struct{})
	env.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		<-release
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, mock.DefaultDimensions)
		}
		return out, nil
	}

	id, err := env.importer.Submit(ctx, testClaims(2), "test", nil)
	require.NoError(t, err)

	err = env.importer.Delete(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotDeletable)
	job, err := env.importer.Status(ctx, id)
	require.NoError(t, err)
	assert.False(t, job.Status.IsTerminal())

	close(release)
	require.NoError(t, env.importer.Wait(ctx, id))
	require.NoError(t, env.importer.Delete(ctx, id))

	_, err = env.importer.Status(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, env.importer.Delete(ctx, id), storage.ErrNotFound)
	assert.ErrorIs(t, env.importer.Delete(ctx, "bogus"), core.ErrInvalidJobID)
}

// recordingStore captures the handled count of every job write.
type recordingStore struct {
	storage.Store
	mu      sync.Mutex
	handled []int
}

func (s *recordingStore) UpdateJob(ctx context.Context, job *core.ImportJob) error {
	s.mu.Lock()
	s.handled = append(s.handled, job.Handled())
	s.mu.Unlock()
	return s.Store.UpdateJob(ctx, job)
}

func TestProgressIsPersistedEveryTenClaims(t *testing.T) {
	inner, err := badger.NewMemoryStore(badger.WithDimensions(mock.DefaultDimensions))
	require.NoError(t, err)
	t.Cleanup(func() { inner.Close() })
	store := &recordingStore{Store: inner}

	env := newTestEnvWithStore(t, store)
	job := env.runJob(t, testClaims(25))
	require.Equal(t, core.JobStatusDone, job.Status)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, []int{0, 10, 20, 25}, store.handled, "start, two checkpoints, final")
}

// failingJobStore fails job writes after the job has started.
type failingJobStore struct {
	storage.Store
	mu     sync.Mutex
	writes int
}

func (s *failingJobStore) UpdateJob(ctx context.Context, job *core.ImportJob) error {
	s.mu.Lock()
	s.writes++
	n := s.writes
	s.mu.Unlock()
	if n == 2 {
		return errors.New("connection lost")
	}
	return s.Store.UpdateJob(ctx, job)
}

func TestBookkeepingFailureFailsJob(t *testing.T) {
	inner, err := badger.NewMemoryStore(badger.WithDimensions(mock.DefaultDimensions))
	require.NoError(t, err)
	t.Cleanup(func() { inner.Close() })

	env := newTestEnvWithStore(t, &failingJobStore{Store: inner}, WithProgressInterval(1))
	job := env.runJob(t, testClaims(3))

	assert.Equal(t, core.JobStatusFailed, job.Status)
	assert.Equal(t, "connection lost", job.ErrorMessage)
	assert.Equal(t, 1, job.Handled())

	persisted, err := inner.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, persisted.Status)
}

func TestListAndRecoverInterrupted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hourAgo := time.Now().UTC().Add(-time.Hour)
	stale := &core.ImportJob{ID: "2c8e6a8e-9f53-4d0e-8a7e-4c7a7e2b5d10", Status: core.JobStatusRunning, CreatedAt: hourAgo, UpdatedAt: hourAgo}
	require.NoError(t, env.store.CreateJob(ctx, stale))

	n, err := env.importer.RecoverInterrupted(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	done := env.runJob(t, testClaims(1))

	jobs, err := env.importer.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, done.ID, jobs[0].ID)
	assert.Equal(t, core.JobStatusFailed, jobs[1].Status)
	assert.Equal(t, InterruptedMessage, jobs[1].ErrorMessage)
}

// gate blocks every embedding call until release is closed. The first call
// is signalled on entered.
func gate(embedder *mock.MockEmbedder) (entered chan struct{}, release chan struct{}) {
	entered = make(chan struct{}, 1)
	release = make(chan struct{})
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, mock.DefaultDimensions)
		}
		return out, nil
	}
	return entered, release
}

func TestCancel_FromAnotherImporter(t *testing.T) {
	owner := newTestEnv(t)
	other := newTestEnvWithStore(t, owner.store)
	ctx := context.Background()
	entered, release := gate(owner.embedder)

	id, err := owner.importer.Submit(ctx, testClaims(5), "test", nil)
	require.NoError(t, err)
	<-entered

	got, err := other.importer.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCanceled, got.Status)

	close(release)
	require.NoError(t, owner.importer.Wait(ctx, id))

	persisted, err := owner.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCanceled, persisted.Status)
	assert.Equal(t, 1, persisted.Handled(), "the claim in flight completes")
	assert.NotNil(t, persisted.CanceledAt)

	job, err := owner.importer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCanceled, job.Status)
}

func TestRecoverInterrupted_SparesLiveJobs(t *testing.T) {
	owner := newTestEnv(t)
	other := newTestEnvWithStore(t, owner.store)
	ctx := context.Background()
	entered, release := gate(owner.embedder)

	id, err := owner.importer.Submit(ctx, testClaims(2), "test", nil)
	require.NoError(t, err)
	<-entered

	hourAgo := time.Now().UTC().Add(-time.Hour)
	abandoned := &core.ImportJob{ID: "5d0c3f0a-6b1e-4c47-9a41-2f6e8c9b7a01", Status: core.JobStatusRunning, CreatedAt: hourAgo, UpdatedAt: hourAgo}
	require.NoError(t, owner.store.CreateJob(ctx, abandoned))

	n, err := other.importer.RecoverInterrupted(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	live, err := owner.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusRunning, live.Status)

	close(release)
	require.NoError(t, owner.importer.Wait(ctx, id))
	job, err := owner.importer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, job.Status)
	assert.Equal(t, 2, job.Processed)

	_, err = other.importer.RecoverInterrupted(ctx, time.Second)
	assert.ErrorIs(t, err, ErrStaleThreshold)
}

func TestRun_AdoptsFailureRecordedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	entered, release := gate(env.embedder)

	id, err := env.importer.Submit(ctx, testClaims(3), "test", nil)
	require.NoError(t, err)
	<-entered

	n, err := env.store.FailInterrupted(ctx, InterruptedMessage, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	close(release)
	require.NoError(t, env.importer.Wait(ctx, id))

	persisted, err := env.store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, persisted.Status, "a terminal job is never reopened")
	assert.Equal(t, InterruptedMessage, persisted.ErrorMessage)

	job, err := env.importer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, job.Status)
}

func TestHeartbeatRefreshesActiveJobs(t *testing.T) {
	env := newTestEnv(t, WithHeartbeatInterval(10*time.Millisecond))
	ctx := context.Background()
	entered, release := gate(env.embedder)
	t.Cleanup(func() { close(release) })

	id, err := env.importer.Submit(ctx, testClaims(1), "test", nil)
	require.NoError(t, err)
	<-entered

	first, err := env.store.GetJob(ctx, id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		job, err := env.store.GetJob(ctx, id)
		return err == nil && job.UpdatedAt.After(first.UpdatedAt)
	}, time.Second, 10*time.Millisecond)

	_, err = NewImporter(env.store, env.importer.processor.splitter, env.embedder, WithHeartbeatInterval(0))
	assert.Error(t, err)
}

func TestFinishedJobsAreForgotten(t *testing.T) {
	env := newTestEnv(t)

	job := env.runJob(t, testClaims(2))
	assert.Equal(t, core.JobStatusDone, job.Status)

	env.importer.mu.Lock()
	tracked := len(env.importer.jobs)
	env.importer.mu.Unlock()
	assert.Zero(t, tracked)
}

func TestDelete_ReturnsWhenContextEnds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &core.ImportJob{ID: "9a4e1c2b-7d3f-4e5a-8b6c-1d2e3f4a5b6c", Status: core.JobStatusDone, CreatedAt: now, CompletedAt: &now}
	require.NoError(t, env.store.CreateJob(ctx, job))

	// The final write of this job never completes.
	env.importer.mu.Lock()
	env.importer.jobs[job.ID] = &trackedJob{job: job.Clone(), cancel: func() {}, done: make(chan struct{})}
	env.importer.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.importer.Delete(waitCtx, job.ID), context.DeadlineExceeded)

	_, err := env.store.GetJob(ctx, job.ID)
	assert.NoError(t, err)
}

func TestNewClaimRecord(t *testing.T) {
	claim := testClaim("rec")
	record, err := newClaimRecord(claim, "fp", "en")
	require.NoError(t, err)

	assert.Equal(t, "rec", record.ExternalID)
	assert.Equal(t, "FF-rec", record.ShortID)
	assert.Equal(t, "fp", record.VersionHash)
	assert.Equal(t, "en", record.Language)
	assert.Equal(t, "Falsch", *record.RatingLabel)
	require.NotNil(t, record.PublishingDate)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *record.PublishingDate)
	assert.Contains(t, string(record.RawData), `"shortId":"FF-rec"`)

	claim.CreatedAt = "yesterday"
	record, err = newClaimRecord(claim, "fp", "en")
	require.NoError(t, err)
	assert.Nil(t, record.PublishingDate)
}
