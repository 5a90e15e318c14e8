// Package health aggregates per-queue snapshots into a single report. Every
// queue is probed concurrently and independently: one degraded queue marks
// itself unhealthy but never aborts the others.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/dto"
	"go.uber.org/zap"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Introspector is the slice of the dispatcher the aggregator needs.
type Introspector interface {
	Introspect(ctx context.Context, queue config.QueueName) dispatch.Snapshot
}

type Aggregator struct {
	introspector Introspector
	queues       []config.QueueName
	cfg          *config.HealthConfig
	log          *zap.SugaredLogger
	now          func() time.Time
}

func NewAggregator(introspector Introspector, queues []config.QueueName, cfg *config.HealthConfig, log *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		introspector: introspector,
		queues:       queues,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

// Report probes all registered queues concurrently and returns the combined
// view. Queue order in the report matches registration order regardless of
// which probe finishes first.
func (a *Aggregator) Report(ctx context.Context) dto.HealthReportDTO {
	results := make([]dto.QueueHealthDTO, len(a.queues))

	var wg sync.WaitGroup
	for i, queue := range a.queues {
		wg.Add(1)
		go func(i int, queue config.QueueName) {
			defer wg.Done()
			results[i] = a.evaluate(a.introspector.Introspect(ctx, queue))
		}(i, queue)
	}
	wg.Wait()

	status := StatusOK
	for _, q := range results {
		if !q.IsHealthy {
			status = StatusDegraded
			break
		}
	}

	return dto.HealthReportDTO{Status: status, Queues: results}
}

// evaluate applies the backlog and staleness thresholds to one snapshot. A
// snapshot whose store could not be read counts as unhealthy with zeroed
// figures rather than an error.
func (a *Aggregator) evaluate(snap dispatch.Snapshot) dto.QueueHealthDTO {
	q := dto.QueueHealthDTO{Name: string(snap.Queue), Counts: snap.Counts}
	if snap.Degraded {
		return q
	}

	healthy := snap.Counts.Waiting+snap.Counts.Delayed <= int64(a.cfg.WaitThreshold)

	if snap.OldestWaiting != nil {
		created := snap.OldestWaiting.CreatedAt
		q.OldestWaitingID = snap.OldestWaiting.ID
		q.OldestWaitingAt = &created
		if a.now().Sub(created) > a.cfg.OldestThreshold {
			healthy = false
		}
	}

	if snap.LastFailed != nil {
		q.LastFailedJobID = snap.LastFailed.ID
		q.LastFailedReason = snap.LastFailed.LastError
		q.LastFailedAt = snap.LastFailed.FailedAt
	}

	q.IsHealthy = healthy
	return q
}

// RunSweeper periodically re-evaluates queue health and logs transitions so
// operators see degradation without polling the endpoint. Blocks until the
// context is cancelled.
func (a *Aggregator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report := a.Report(ctx)
			if report.Status != StatusOK {
				for _, q := range report.Queues {
					if !q.IsHealthy {
						a.log.Warnw("queue degraded",
							"queue", q.Name,
							"waiting", q.Counts.Waiting,
							"delayed", q.Counts.Delayed,
							"oldest_waiting_at", q.OldestWaitingAt)
					}
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
