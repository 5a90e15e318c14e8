package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// JobStore is the slice of the job repository the dispatcher needs.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	Counts(ctx context.Context, queue config.QueueName) (dto.QueueCounts, error)
	LastFailed(ctx context.Context, queue config.QueueName) (*models.Job, error)
	OldestWaiting(ctx context.Context, queue config.QueueName) (*models.Job, error)
}

// EnqueueOptions override the queue defaults for one job.
type EnqueueOptions struct {
	Priority    config.Priority
	Delay       time.Duration
	MaxAttempts int
}

// Snapshot is the raw introspection result for one queue. Zeroed counts plus
// Degraded=true means the backing store could not be read.
type Snapshot struct {
	Queue         config.QueueName
	Counts        dto.QueueCounts
	LastFailed    *models.Job
	OldestWaiting *models.Job
	Degraded      bool
}

type Dispatcher struct {
	registry *Registry
	store    JobStore
	log      *zap.SugaredLogger
}

func NewDispatcher(registry *Registry, store JobStore, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{registry: registry, store: store, log: log}
}

// Enqueue validates the queue and job name, applies defaults, and persists a
// waiting (or delayed) job. Returns the assigned job id.
func (d *Dispatcher) Enqueue(ctx context.Context, queue config.QueueName, name config.JobName, payload any, opts EnqueueOptions) (string, error) {
	queueOpts, ok := d.registry.Options(queue)
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrInvalidQueue, queue)
	}
	if !d.registry.AllowsJob(queue, name) {
		return "", fmt.Errorf("%w: job %s not allowed on %s", common.ErrInvalidQueue, name, queue)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	priority := opts.Priority
	if !priority.Valid() {
		priority = config.PriorityNormal
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = queueOpts.MaxAttempts
	}

	now := time.Now()
	job := models.Job{
		ID:           uuid.NewString(),
		Queue:        queue,
		Name:         name,
		Payload:      datatypes.JSON(raw),
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Status:       config.JobStatusWaiting,
		MaxAttempts:  maxAttempts,
		AvailableAt:  now,
	}
	if opts.Delay > 0 {
		job.Status = config.JobStatusDelayed
		job.AvailableAt = now.Add(opts.Delay)
	}

	if err := d.store.Create(ctx, &job); err != nil {
		return "", fmt.Errorf("enqueue %s/%s: %w", queue, name, err)
	}

	d.log.Infow("job enqueued",
		"job_id", job.ID, "queue", queue, "name", name, "priority", priority)

	return job.ID, nil
}

// Introspect never fails: a storage error yields a zeroed, degraded snapshot
// and a log line, so a single queue's hiccup cannot cascade into the health
// endpoint.
func (d *Dispatcher) Introspect(ctx context.Context, queue config.QueueName) Snapshot {
	snap := Snapshot{Queue: queue}

	counts, err := d.store.Counts(ctx, queue)
	if err != nil {
		d.log.Errorw("queue introspection failed", "queue", queue, "error", err)
		snap.Degraded = true
		return snap
	}
	snap.Counts = counts

	if snap.LastFailed, err = d.store.LastFailed(ctx, queue); err != nil {
		d.log.Errorw("last-failed lookup failed", "queue", queue, "error", err)
	}
	if snap.OldestWaiting, err = d.store.OldestWaiting(ctx, queue); err != nil {
		d.log.Errorw("oldest-waiting lookup failed", "queue", queue, "error", err)
	}

	return snap
}

// Registry exposes the queue set for the health aggregator.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// NextBackoff computes the delay before retry number attempt (1-based):
// base * 2^(attempt-1), capped.
func NextBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = config.BackoffBase
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= config.BackoffMax {
			return config.BackoffMax
		}
	}
	if delay > config.BackoffMax {
		return config.BackoffMax
	}
	return delay
}
