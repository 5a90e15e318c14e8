package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job row. The dispatcher assigns the id and derived
// fields before calling this.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get retrieves a single job by id.
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List retrieves all jobs belonging to a queue, newest first.
func (r *JobRepository) List(ctx context.Context, queue config.QueueName) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("queue = ?", queue).
		Order("created_at desc").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// AcquireNext leases the next runnable job on a queue to one worker. Runnable
// means waiting, or delayed with available_at due. Ordering is priority rank
// first, enqueue time second. SKIP LOCKED keeps concurrent workers from
// blocking on the same row; the losing worker simply sees no job.
// Acquiring increments the attempt counter.
func (r *JobRepository) AcquireNext(ctx context.Context, queue config.QueueName, workerID string, lockDuration time.Duration) (*models.Job, error) {
	var job models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("queue = ?", queue).
			Where("(status = ? OR (status = ? AND available_at <= ?))",
				config.JobStatusWaiting, config.JobStatusDelayed, now).
			Order("priority_rank desc, created_at asc").
			First(&job).Error
		if err != nil {
			return err
		}

		expires := now.Add(lockDuration)
		job.Status = config.JobStatusActive
		job.Attempts++
		job.LockedBy = workerID
		job.LockExpiresAt = &expires

		return tx.Model(&models.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"status":          job.Status,
				"attempts":        job.Attempts,
				"locked_by":       job.LockedBy,
				"lock_expires_at": job.LockExpiresAt,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("acquire next: %w", err)
	}

	return &job, nil
}

// MarkCompleted finishes a job and stores its result.
func (r *JobRepository) MarkCompleted(ctx context.Context, id string, result datatypes.JSON) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          config.JobStatusCompleted,
			"result":          result,
			"locked_by":       "",
			"lock_expires_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// RetryLater parks a job as delayed until availableAt, recording the error
// that caused the attempt to fail.
func (r *JobRepository) RetryLater(ctx context.Context, id string, availableAt time.Time, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          config.JobStatusDelayed,
			"available_at":    availableAt,
			"last_error":      errMsg,
			"locked_by":       "",
			"lock_expires_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("retry later: %w", err)
	}
	return nil
}

// MarkFailed terminally fails a job with a captured reason.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          config.JobStatusFailed,
			"last_error":      reason,
			"failed_at":       &now,
			"locked_by":       "",
			"lock_expires_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Release puts a leased job back to waiting. The janitor uses this for jobs
// whose worker died holding the lease.
func (r *JobRepository) Release(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          config.JobStatusWaiting,
			"locked_by":       "",
			"lock_expires_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

// ListStuckJobs returns active jobs whose lease expired longer than
// staleDuration ago.
func (r *JobRepository) ListStuckJobs(ctx context.Context, staleDuration time.Duration) ([]models.Job, error) {
	var jobs []models.Job
	cutoff := time.Now().Add(-staleDuration)
	if err := r.db.WithContext(ctx).
		Where("status = ? AND lock_expires_at < ?", config.JobStatusActive, cutoff).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	return jobs, nil
}

// Counts returns the per-status totals for a queue.
func (r *JobRepository) Counts(ctx context.Context, queue config.QueueName) (dto.QueueCounts, error) {
	var rows []struct {
		Status config.JobStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, count(*) as total").
		Where("queue = ?", queue).
		Group("status").
		Scan(&rows).Error; err != nil {
		return dto.QueueCounts{}, fmt.Errorf("queue counts: %w", err)
	}

	var counts dto.QueueCounts
	for _, row := range rows {
		switch row.Status {
		case config.JobStatusWaiting:
			counts.Waiting = row.Total
		case config.JobStatusActive:
			counts.Active = row.Total
		case config.JobStatusCompleted:
			counts.Completed = row.Total
		case config.JobStatusFailed:
			counts.Failed = row.Total
		case config.JobStatusDelayed:
			counts.Delayed = row.Total
		}
	}
	return counts, nil
}

// LastFailed returns the most recently failed job on a queue, or nil.
func (r *JobRepository) LastFailed(ctx context.Context, queue config.QueueName) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("queue = ? AND status = ?", queue, config.JobStatusFailed).
		Order("failed_at desc").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last failed: %w", err)
	}
	return &job, nil
}

// OldestWaiting returns the oldest still-waiting or delayed job, or nil.
func (r *JobRepository) OldestWaiting(ctx context.Context, queue config.QueueName) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("queue = ? AND status IN ?", queue,
			[]config.JobStatus{config.JobStatusWaiting, config.JobStatusDelayed}).
		Order("created_at asc").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest waiting: %w", err)
	}
	return &job, nil
}
