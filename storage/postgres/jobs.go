package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"gorm.io/gorm"
)

// importJobRow is the gorm model of the import_jobs table.
type importJobRow struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	Status       string    `gorm:"type:text;not null;index"`
	Source       string    `gorm:"type:text;not null;default:''"`
	Language     string    `gorm:"type:text;not null;default:''"`
	Total        int       `gorm:"not null;default:0"`
	Processed    int       `gorm:"not null;default:0"`
	Skipped      int       `gorm:"not null;default:0"`
	Errors       int       `gorm:"not null;default:0"`
	ErrorMessage string    `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CanceledAt   *time.Time
}

func (importJobRow) TableName() string {
	return "import_jobs"
}

var activeJobStatuses = []string{string(core.JobStatusPending), string(core.JobStatusRunning)}

func jobToRow(job *core.ImportJob) *importJobRow {
	return &importJobRow{
		ID:           job.ID,
		Status:       string(job.Status),
		Source:       job.Source,
		Language:     job.Language,
		Total:        job.Total,
		Processed:    job.Processed,
		Skipped:      job.Skipped,
		Errors:       job.Errors,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		CanceledAt:   job.CanceledAt,
	}
}

func (r *importJobRow) toJob() *core.ImportJob {
	return &core.ImportJob{
		ID:           r.ID,
		Status:       core.JobStatus(r.Status),
		Source:       r.Source,
		Language:     r.Language,
		Total:        r.Total,
		Processed:    r.Processed,
		Skipped:      r.Skipped,
		Errors:       r.Errors,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		CanceledAt:   r.CanceledAt,
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// CreateJob stores a new job.
func (s *Store) CreateJob(ctx context.Context, job *core.ImportJob) error {
	return s.db.WithContext(ctx).Create(jobToRow(job)).Error
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*core.ImportJob, error) {
	var row importJobRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toJob(), nil
}

// ListJobs returns up to limit jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	var rows []importJobRow
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	jobs := make([]*core.ImportJob, len(rows))
	for i := range rows {
		jobs[i] = rows[i].toJob()
	}
	return jobs, nil
}

// UpdateJob writes every column of an existing job. The status guard keeps
// a terminal row from being moved to another status.
func (s *Store) UpdateJob(ctx context.Context, job *core.ImportJob) error {
	row := jobToRow(job)
	row.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&importJobRow{}).
		Where("id = ?", job.ID).
		Where("(status IN ? OR status = ?)", activeJobStatuses, row.Status).
		Select("*").Omit("id", "created_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	current, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", storage.ErrJobFinished, job.ID, current.Status)
}

// TouchJobs stamps updated_at on the given jobs that are still active.
func (s *Store) TouchJobs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&importJobRow{}).
		Where("id IN ? AND status IN ?", ids, activeJobStatuses).
		Update("updated_at", time.Now().UTC()).Error
}

// MarkCanceled moves a pending or running job to canceled.
func (s *Store) MarkCanceled(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&importJobRow{}).
		Where("id = ? AND status IN ?", id, activeJobStatuses).
		Updates(map[string]any{
			"status":       string(core.JobStatusCanceled),
			"canceled_at":  now,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// Nothing changed: either terminal already or unknown.
	_, err := s.GetJob(ctx, id)
	return err
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&importJobRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FailInterrupted marks pending or running jobs not updated since staleBefore as failed.
func (s *Store) FailInterrupted(ctx context.Context, message string, staleBefore time.Time) (int, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&importJobRow{}).
		Where("status IN ? AND updated_at < ?", activeJobStatuses, staleBefore).
		Updates(map[string]any{
			"status":        string(core.JobStatusFailed),
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	return int(res.RowsAffected), res.Error
}
