package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

func (s *Store) putJob(tx *badger.Txn, job *core.ImportJob) error {
	value, err := storage.MarshalJob(job)
	if err != nil {
		return err
	}
	return tx.Set(makeJobKey(job.ID), value)
}

// CreateJob stores a new job. A zero UpdatedAt is stamped with the current time.
func (s *Store) CreateJob(ctx context.Context, job *core.ImportJob) error {
	if job.UpdatedAt.IsZero() {
		job = job.Clone()
		job.UpdatedAt = time.Now().UTC()
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		return s.putJob(tx, job)
	})
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*core.ImportJob, error) {
	var job *core.ImportJob
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		job, err = readValue(tx, makeJobKey(id), storage.UnmarshalJob)
		return err
	})
	return job, err
}

// ListJobs returns up to limit jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	var jobs []*core.ImportJob
	err := s.backend.View(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(jobPrefix), func(_, val []byte) error {
			job, err := storage.UnmarshalJob(val)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(jobs, func(a, b *core.ImportJob) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	if jobs == nil {
		jobs = []*core.ImportJob{}
	}
	return jobs, nil
}

// UpdateJob writes the full state of an existing job. A terminal job only
// accepts writes that keep its status.
func (s *Store) UpdateJob(ctx context.Context, job *core.ImportJob) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		current, err := readValue(tx, makeJobKey(job.ID), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() && current.Status != job.Status {
			return fmt.Errorf("%w: %s is %s", storage.ErrJobFinished, job.ID, current.Status)
		}
		next := job.Clone()
		next.UpdatedAt = time.Now().UTC()
		return s.putJob(tx, next)
	})
}

// TouchJobs stamps UpdatedAt on the given jobs that are still active.
func (s *Store) TouchJobs(ctx context.Context, ids []string) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, id := range ids {
			job, err := readValue(tx, makeJobKey(id), storage.UnmarshalJob)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if job.Status.IsTerminal() {
				continue
			}
			job.UpdatedAt = now
			if err := s.putJob(tx, job); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkCanceled moves a non-terminal job to canceled.
func (s *Store) MarkCanceled(ctx context.Context, id string) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		job, err := readValue(tx, makeJobKey(id), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return nil
		}
		now := time.Now().UTC()
		job.Status = core.JobStatusCanceled
		job.CanceledAt = &now
		job.CompletedAt = &now
		job.UpdatedAt = now
		return s.putJob(tx, job)
	})
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		key := makeJobKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return tx.Delete(key)
	})
}

// FailInterrupted marks pending or running jobs not updated since staleBefore as failed.
func (s *Store) FailInterrupted(ctx context.Context, message string, staleBefore time.Time) (int, error) {
	var n int
	err := s.backend.Update(func(tx *badger.Txn) error {
		n = 0
		var stale []*core.ImportJob
		err := scanPrefix(tx, []byte(jobPrefix), func(_, val []byte) error {
			job, err := storage.UnmarshalJob(val)
			if err != nil {
				return err
			}
			if !job.Status.IsTerminal() && job.UpdatedAt.Before(staleBefore) {
				stale = append(stale, job)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, job := range stale {
			job.Status = core.JobStatusFailed
			job.ErrorMessage = message
			job.CompletedAt = &now
			job.UpdatedAt = now
			if err := s.putJob(tx, job); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}
