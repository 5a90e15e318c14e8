package pool

import (
	"context"
	"sync"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/worker"
	"go.uber.org/zap"
)

// JanitorStore is the job-store slice the stuck-job janitor needs on top of
// what the workers use.
type JanitorStore interface {
	worker.JobStore
	ListStuckJobs(ctx context.Context, staleDuration time.Duration) ([]models.Job, error)
	Release(ctx context.Context, id string) error
}

type WorkerPool struct {
	workers []*worker.Worker
	jobs    JanitorStore
	cfg     *config.WorkerConfig
	log     *zap.SugaredLogger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorkerPool(jobs JanitorStore, handlers map[config.QueueName]worker.Handler, queues []config.QueueName, cfg *config.WorkerConfig, log *zap.SugaredLogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{jobs: jobs, cfg: cfg, log: log, ctx: ctx, cancel: cancel}

	for i := 1; i <= cfg.MaxWorkers; i++ {
		p.workers = append(p.workers, worker.NewWorker(i, jobs, handlers, queues, cfg, log))
	}
	return p
}

func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		w.Start(p.ctx)
	}

	p.wg.Add(1)
	go p.janitor()
}

// janitor releases jobs whose worker died holding the lease. The released
// job goes back to waiting and the next acquire counts a fresh attempt, so a
// crash-looping payload still exhausts MaxAttempts.
func (p *WorkerPool) janitor() {
	defer p.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stuck, err := p.jobs.ListStuckJobs(p.ctx, p.cfg.LockDuration*2)
			if err != nil {
				p.log.Errorw("list stuck jobs", "error", err)
				continue
			}
			for _, j := range stuck {
				p.log.Warnw("recovering stuck job", "job_id", j.ID, "queue", j.Queue, "locked_by", j.LockedBy)
				if err := p.jobs.Release(p.ctx, j.ID); err != nil {
					p.log.Errorw("release stuck job", "job_id", j.ID, "error", err)
				}
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) Stop() {
	p.cancel()
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
}
