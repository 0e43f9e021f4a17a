package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/faktenforum/checkbot-rag/ai"
	"github.com/faktenforum/checkbot-rag/chunking"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultProgressInterval is the number of handled claims between progress writes.
	DefaultProgressInterval = 10

	// DefaultListLimit is the number of jobs List returns when no limit is given.
	DefaultListLimit = 20

	// InterruptedMessage is recorded on jobs failed by RecoverInterrupted.
	InterruptedMessage = "interrupted"

	// DefaultHeartbeatInterval is how often the importer refreshes UpdatedAt
	// on the jobs it runs.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultStaleAfter is how long an active job may go without an update
	// before RecoverInterrupted treats its owner as gone.
	DefaultStaleAfter = 5 * time.Minute

	releaseTimeout = 30 * time.Second
)

// Importer runs import jobs on a worker pool.
type Importer struct {
	store            storage.Store
	processor        *claimProcessor
	pool             *ants.Pool
	language         string
	progressInterval int
	heartbeat        time.Duration
	logger           *slog.Logger

	mu   sync.Mutex
	jobs map[string]*trackedJob

	stop        chan struct{}
	stopped     chan struct{}
	releaseOnce sync.Once
}

// trackedJob is a job running in this process. job is guarded by Importer.mu.
type trackedJob struct {
	job    *core.ImportJob
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the number of jobs that may run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(i *Importer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if i.pool != nil {
			i.pool.Release()
		}
		i.pool = pool
		return nil
	}
}

// WithLanguage sets the language recorded on jobs submitted without one.
func WithLanguage(language string) Option {
	return func(i *Importer) error {
		if err := core.ValidateLanguage(language); err != nil {
			return err
		}
		i.language = language
		return nil
	}
}

// WithProgressInterval sets how many handled claims pass between progress writes.
func WithProgressInterval(n int) Option {
	return func(i *Importer) error {
		if n < 1 {
			return fmt.Errorf("progress interval must be positive, got %d", n)
		}
		i.progressInterval = n
		return nil
	}
}

// WithHeartbeatInterval sets how often UpdatedAt is refreshed on running
// and queued jobs. Default is DefaultHeartbeatInterval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(i *Importer) error {
		if d <= 0 {
			return fmt.Errorf("heartbeat interval must be positive, got %s", d)
		}
		i.heartbeat = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewImporter creates an importer writing to store.
func NewImporter(store storage.Store, splitter *chunking.Splitter, embedder ai.Embedder, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	i := &Importer{
		store:            store,
		pool:             pool,
		language:         "de",
		progressInterval: DefaultProgressInterval,
		heartbeat:        DefaultHeartbeatInterval,
		logger:           slog.Default(),
		jobs:             make(map[string]*trackedJob),
		stop:             make(chan struct{}),
		stopped:          make(chan struct{}),
	}
	for _, opt := range opts {
		if optErr := opt(i); optErr != nil {
			i.pool.Release()
			return nil, optErr
		}
	}

	i.logger = i.logger.With("component", "importer")
	i.processor = newClaimProcessor(store, splitter, embedder, i.logger)
	go i.beat()
	return i, nil
}

// SubmitOptions holds optional parameters for a job.
type SubmitOptions struct {
	Language string // Language code recorded on imported claims; importer default if empty
}

// Submit records a pending job for claims and starts it in the background.
// It returns the job id without waiting for any claim to be processed.
func (i *Importer) Submit(ctx context.Context, claims []*core.Claim, source string, opts *SubmitOptions) (string, error) {
	if claims == nil {
		return "", ErrInvalidPayload
	}
	if opts == nil {
		opts = &SubmitOptions{}
	}
	language := opts.Language
	if language == "" {
		language = i.language
	}
	if err := core.ValidateLanguage(language); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	job := &core.ImportJob{
		ID:        uuid.NewString(),
		Status:    core.JobStatusPending,
		Source:    source,
		Language:  language,
		Total:     len(claims),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := i.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("creating job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	t := &trackedJob{job: job, cancel: cancel, done: make(chan struct{})}

	i.mu.Lock()
	i.jobs[job.ID] = t
	i.mu.Unlock()

	// Submit blocks while every worker is busy; the job stays pending until then.
	go func() {
		if err := i.pool.Submit(func() { i.run(jobCtx, t, claims) }); err != nil {
			cancel()
			i.fail(t, fmt.Errorf("scheduling job: %w", err))
			close(t.done)
		}
	}()

	i.logger.Info("import job submitted", "job", job.ID, "source", source, "claims", len(claims))
	return job.ID, nil
}

// Status returns the live snapshot of a job run by this importer, or the
// persisted job otherwise.
func (i *Importer) Status(ctx context.Context, id string) (*core.ImportJob, error) {
	if err := core.ValidateJobID(id); err != nil {
		return nil, err
	}
	if job, ok := i.snapshot(id); ok {
		return job, nil
	}
	return i.store.GetJob(ctx, id)
}

// List returns up to limit jobs, newest first, with live snapshots in place
// of persisted rows for jobs run by this importer.
func (i *Importer) List(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	jobs, err := i.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	for n, job := range jobs {
		if live, ok := i.snapshot(job.ID); ok {
			jobs[n] = live
		}
	}
	return jobs, nil
}

// Cancel requests cancellation of a job. Cancelling a terminal job changes
// nothing and returns its current state. A running job stops before its next
// claim, also when another importer on the same store runs it.
func (i *Importer) Cancel(ctx context.Context, id string) (*core.ImportJob, error) {
	if err := core.ValidateJobID(id); err != nil {
		return nil, err
	}

	i.mu.Lock()
	t, ok := i.jobs[id]
	if ok {
		if t.job.Status.IsTerminal() {
			job := t.job.Clone()
			i.mu.Unlock()
			return job, nil
		}
		now := time.Now().UTC()
		t.job.Status = core.JobStatusCanceled
		t.job.CanceledAt = &now
		t.cancel()
	}
	i.mu.Unlock()

	if err := i.store.MarkCanceled(ctx, id); err != nil {
		return nil, err
	}
	i.logger.Info("import job cancel requested", "job", id)
	return i.Status(ctx, id)
}

// Delete removes a terminal job. Jobs still pending or running yield ErrJobNotDeletable.
func (i *Importer) Delete(ctx context.Context, id string) error {
	job, err := i.Status(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobNotDeletable, id, job.Status)
	}

	i.mu.Lock()
	t, ok := i.jobs[id]
	i.mu.Unlock()
	if ok {
		// The final write follows the in-memory transition.
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := i.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	i.mu.Lock()
	delete(i.jobs, id)
	i.mu.Unlock()
	return nil
}

// Wait blocks until a job run by this importer has finished or ctx is done.
// Jobs not run by this importer return immediately.
func (i *Importer) Wait(ctx context.Context, id string) error {
	i.mu.Lock()
	t, ok := i.jobs[id]
	i.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverInterrupted fails pending or running jobs that have not been
// updated for staleAfter, which means no live importer owns them. Zero
// selects DefaultStaleAfter. staleAfter must exceed the heartbeat interval
// of every importer sharing the store.
func (i *Importer) RecoverInterrupted(ctx context.Context, staleAfter time.Duration) (int, error) {
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}
	if staleAfter <= i.heartbeat {
		return 0, fmt.Errorf("%w: %s does not exceed the heartbeat interval %s", ErrStaleThreshold, staleAfter, i.heartbeat)
	}

	n, err := i.store.FailInterrupted(ctx, InterruptedMessage, time.Now().UTC().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		i.logger.Warn("marked interrupted import jobs as failed", "jobs", n, "stale_after", staleAfter)
	}
	return n, nil
}

// Release stops accepting jobs and waits for running jobs to finish.
// The importer should not be used after calling Release.
func (i *Importer) Release() {
	i.releaseOnce.Do(func() {
		if err := i.pool.ReleaseTimeout(releaseTimeout); err != nil {
			i.logger.Warn("import jobs still running at release", "err", err)
		}
		close(i.stop)
		<-i.stopped
	})
}

// beat refreshes UpdatedAt on every active job this importer owns until Release.
func (i *Importer) beat() {
	defer close(i.stopped)
	ticker := time.NewTicker(i.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
			ids := i.activeIDs()
			if len(ids) == 0 {
				continue
			}
			if err := i.store.TouchJobs(context.Background(), ids); err != nil {
				i.logger.Warn("failed to refresh import job heartbeat", "jobs", len(ids), "err", err)
			}
		}
	}
}

func (i *Importer) activeIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	var ids []string
	for id, t := range i.jobs {
		if !t.job.Status.IsTerminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// forget drops a job whose final state is in the store.
func (i *Importer) forget(t *trackedJob) {
	i.mu.Lock()
	delete(i.jobs, t.job.ID)
	i.mu.Unlock()
}

func (i *Importer) snapshot(id string) (*core.ImportJob, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	t, ok := i.jobs[id]
	if !ok {
		return nil, false
	}
	return t.job.Clone(), true
}

// run is the body of one job. Claims are processed strictly in order.
func (i *Importer) run(ctx context.Context, t *trackedJob, claims []*core.Claim) {
	defer close(t.done)
	defer t.cancel()
	defer func() {
		if r := recover(); r != nil {
			i.fail(t, fmt.Errorf("panic: %v", r))
		}
	}()

	logger := i.logger.With("job", t.job.ID)

	i.mu.Lock()
	canceled := t.job.Status == core.JobStatusCanceled
	if !canceled {
		now := time.Now().UTC()
		t.job.Status = core.JobStatusRunning
		t.job.StartedAt = &now
	}
	started := t.job.Clone()
	i.mu.Unlock()

	if canceled {
		i.finish(t, logger)
		return
	}
	if !i.persist(t, started, logger) {
		return
	}
	logger.Info("import job started", "claims", len(claims))

	// Claim work is never interrupted midway; cancellation is observed between claims.
	work := context.WithoutCancel(ctx)
	language := started.Language

	for _, claim := range claims {
		if ctx.Err() != nil {
			break
		}
		if !i.observe(t, logger) {
			return
		}

		result, err := i.processor.process(work, claim, language)

		i.mu.Lock()
		switch {
		case err != nil:
			t.job.Errors++
			if t.job.ErrorMessage == "" {
				t.job.ErrorMessage = err.Error()
			}
		case result == outcomeSkipped:
			t.job.Skipped++
		default:
			t.job.Processed++
		}
		var progress *core.ImportJob
		if t.job.Handled()%i.progressInterval == 0 {
			progress = t.job.Clone()
		}
		i.mu.Unlock()

		if err != nil {
			logger.Warn("failed to import claim", "err", err)
		}
		if progress != nil {
			if !i.persist(t, progress, logger) {
				return
			}
			logger.Debug("import progress", "handled", progress.Handled(), "total", progress.Total)
		}
	}

	i.finish(t, logger)
}

// persist writes an intermediate job state. It reports false when the run
// must stop, either because the write failed or because the stored job was
// finished elsewhere.
func (i *Importer) persist(t *trackedJob, job *core.ImportJob, logger *slog.Logger) bool {
	err := i.store.UpdateJob(context.Background(), job)
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrJobFinished):
		return i.observe(t, logger)
	default:
		i.fail(t, err)
		return false
	}
}

// observe re-reads the stored job so that a cancel, recovery or deletion by
// another importer sharing the store stops this run. It reports whether the
// run may continue.
func (i *Importer) observe(t *trackedJob, logger *slog.Logger) bool {
	stored, err := i.store.GetJob(context.Background(), t.job.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		i.mu.Lock()
		now := time.Now().UTC()
		t.job.Status = core.JobStatusCanceled
		t.job.CanceledAt = &now
		t.job.CompletedAt = &now
		i.mu.Unlock()
		logger.Warn("import job removed from the store while running")
		i.forget(t)
		return false
	case err != nil:
		i.fail(t, fmt.Errorf("reading job state: %w", err))
		return false
	case stored.Status.IsTerminal():
		i.adopt(t, stored, logger)
		return false
	}
	return true
}

// adopt settles a job another importer finished in the store. A cancel keeps
// the counts reached so far; any other terminal state is taken as stored.
func (i *Importer) adopt(t *trackedJob, stored *core.ImportJob, logger *slog.Logger) {
	if stored.Status == core.JobStatusCanceled {
		i.mu.Lock()
		if t.job.Status != core.JobStatusCanceled {
			t.job.Status = core.JobStatusCanceled
			t.job.CanceledAt = stored.CanceledAt
		}
		i.mu.Unlock()
		logger.Info("import job canceled through the store")
		i.finish(t, logger)
		return
	}

	i.mu.Lock()
	t.job.Status = stored.Status
	t.job.ErrorMessage = stored.ErrorMessage
	t.job.CompletedAt = stored.CompletedAt
	i.mu.Unlock()
	logger.Warn("import job finished by another importer", "status", stored.Status, "message", stored.ErrorMessage)
	i.forget(t)
}

// finish moves a job to done, or to canceled when cancellation was requested,
// and persists the final counts.
func (i *Importer) finish(t *trackedJob, logger *slog.Logger) {
	i.mu.Lock()
	now := time.Now().UTC()
	if t.job.Status != core.JobStatusCanceled {
		t.job.Status = core.JobStatusDone
	}
	t.job.CompletedAt = &now
	final := t.job.Clone()
	i.mu.Unlock()

	err := i.store.UpdateJob(context.Background(), final)
	switch {
	case errors.Is(err, storage.ErrJobFinished):
		i.observe(t, logger)
		return
	case errors.Is(err, storage.ErrNotFound):
		logger.Warn("import job removed from the store before it finished")
		i.forget(t)
		return
	case err != nil:
		logger.Error("failed to persist final job state", "err", err)
		return
	}
	i.forget(t)
	logger.Info("import job finished",
		"status", final.Status,
		"processed", final.Processed,
		"skipped", final.Skipped,
		"errors", final.Errors)
}

// fail moves a job to failed after an error outside any single claim.
func (i *Importer) fail(t *trackedJob, cause error) {
	i.mu.Lock()
	now := time.Now().UTC()
	t.job.Status = core.JobStatusFailed
	t.job.ErrorMessage = cause.Error()
	t.job.CompletedAt = &now
	final := t.job.Clone()
	i.mu.Unlock()

	logger := i.logger.With("job", final.ID)
	logger.Error("import job failed", "err", cause)
	err := i.store.UpdateJob(context.Background(), final)
	switch {
	case errors.Is(err, storage.ErrJobFinished):
		i.observe(t, logger)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		logger.Error("failed to persist failed job state", "err", err)
	default:
		i.forget(t)
	}
}
