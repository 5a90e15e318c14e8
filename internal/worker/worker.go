package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Worker polls its queues for runnable jobs and executes them under the
// timeout guard. The poll delay doubles while the queues are empty and
// resets on the first claimed job.
type Worker struct {
	ID       string
	jobs     JobStore
	handlers map[config.QueueName]Handler
	queues   []config.QueueName
	cfg      *config.WorkerConfig
	guard    *guard.Guard
	log      *zap.SugaredLogger
	quit     chan struct{}
}

func NewWorker(id int, jobs JobStore, handlers map[config.QueueName]Handler, queues []config.QueueName, cfg *config.WorkerConfig, log *zap.SugaredLogger) *Worker {
	w := &Worker{
		ID:       fmt.Sprintf("worker-%d", id),
		jobs:     jobs,
		handlers: handlers,
		queues:   queues,
		cfg:      cfg,
		log:      log,
		quit:     make(chan struct{}),
	}
	w.guard = guard.New(log, w.failTimedOut)
	return w
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		currentDelay := w.cfg.IdleDelayMin

		for {
			job := w.pullJob(ctx)

			if job != nil {
				w.process(ctx, job)
				currentDelay = w.cfg.IdleDelayMin
			} else {
				currentDelay = min(currentDelay*2, w.cfg.IdleDelayMax)
			}

			select {
			case <-time.After(currentDelay):
			case <-w.quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Worker) pullJob(ctx context.Context) *models.Job {
	for _, q := range w.queues {
		job, err := w.jobs.AcquireNext(ctx, q, w.ID, w.cfg.LockDuration)
		if err != nil {
			w.log.Errorw("acquire failed", "worker", w.ID, "queue", q, "error", err)
			continue
		}
		if job != nil {
			return job
		}
	}
	return nil
}

// process runs one claimed job to a terminal outcome: completed, parked for
// retry with exponential backoff, or failed. A guard timeout has already
// failed the job by the time Run returns, so it only needs logging here.
func (w *Worker) process(ctx context.Context, job *models.Job) {
	handler, ok := w.handlers[job.Queue]
	if !ok {
		w.jobs.MarkFailed(ctx, job.ID, fmt.Sprintf("no handler for queue %s", job.Queue))
		return
	}

	var result any
	err := w.guard.Run(ctx, job.ID, handler.Timeout(job.Name), func(ctx context.Context, exec *guard.Execution) error {
		res, herr := handler.Handle(ctx, exec, job)
		if herr != nil {
			return herr
		}
		result = res
		return nil
	})

	if err != nil {
		w.settleFailure(ctx, job, err)
		return
	}

	raw, merr := json.Marshal(result)
	if merr != nil {
		w.jobs.MarkFailed(ctx, job.ID, fmt.Sprintf("marshal result: %v", merr))
		return
	}
	if err := w.jobs.MarkCompleted(ctx, job.ID, datatypes.JSON(raw)); err != nil {
		w.log.Errorw("mark completed failed", "job_id", job.ID, "error", err)
		return
	}

	w.log.Infow("job completed", "worker", w.ID, "job_id", job.ID, "queue", job.Queue, "name", job.Name, "attempt", job.Attempts)
}

func (w *Worker) settleFailure(ctx context.Context, job *models.Job, err error) {
	if errors.Is(err, common.ErrTimeout) {
		// already failed by the guard callback
		return
	}

	if common.IsFatal(err) || job.Attempts >= job.MaxAttempts {
		if ferr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); ferr != nil {
			w.log.Errorw("mark failed failed", "job_id", job.ID, "error", ferr)
		}
		w.log.Warnw("job failed terminally",
			"worker", w.ID, "job_id", job.ID, "queue", job.Queue, "name", job.Name,
			"attempt", job.Attempts, "fatal", common.IsFatal(err), "error", err)
		return
	}

	delay := dispatch.NextBackoff(config.BackoffBase, job.Attempts)
	if rerr := w.jobs.RetryLater(ctx, job.ID, time.Now().Add(delay), err.Error()); rerr != nil {
		w.log.Errorw("retry later failed", "job_id", job.ID, "error", rerr)
		return
	}
	w.log.Infow("job scheduled for retry",
		"worker", w.ID, "job_id", job.ID, "attempt", job.Attempts, "retry_in", delay, "error", err)
}

// failTimedOut runs on the guard's timer goroutine; the worker context may
// already be gone, so it uses a fresh one.
func (w *Worker) failTimedOut(jobID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.jobs.MarkFailed(ctx, jobID, reason); err != nil {
		w.log.Errorw("mark timed-out job failed", "job_id", jobID, "error", err)
	}
}

func (w *Worker) Stop() { close(w.quit) }
