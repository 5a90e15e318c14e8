// Package guard bounds a single job execution with a hard wall-clock
// deadline. In-flight external calls are not cancelled; instead the
// execution token goes stale at the deadline and every later write from that
// execution is rejected, so an overrun call's late result is discarded.
package guard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fabriqd/fabriq/common"
	"go.uber.org/zap"
)

// ErrStaleExecution is returned by Execution.Check after the deadline fired.
var ErrStaleExecution = fmt.Errorf("stale execution: %w", common.ErrTimeout)

// Execution is the token handed to a job's stage function. Persist helpers
// call Check before every record-store write.
type Execution struct {
	JobID string
	stale atomic.Bool
}

func (e *Execution) Stale() bool { return e.stale.Load() }

// Check gates a write. Once the guard's deadline has fired the original
// execution must not mutate any state.
func (e *Execution) Check() error {
	if e.stale.Load() {
		return ErrStaleExecution
	}
	return nil
}

// OnTimeout marks the job failed when the deadline fires. It runs on the
// timer goroutine, concurrently with the still-running stage function.
type OnTimeout func(jobID string, reason string)

type Guard struct {
	log       *zap.SugaredLogger
	onTimeout OnTimeout
}

func New(log *zap.SugaredLogger, onTimeout OnTimeout) *Guard {
	return &Guard{log: log, onTimeout: onTimeout}
}

// Run executes fn under a deadline started at pickup. If the deadline fires
// first, the execution token is flagged stale, the job is failed with a
// Timeout reason, and Run returns common.ErrTimeout immediately; fn keeps
// running in the background but all of its subsequent writes are rejected.
func (g *Guard) Run(ctx context.Context, jobID string, timeout time.Duration, fn func(ctx context.Context, exec *Execution) error) error {
	exec := &Execution{JobID: jobID}

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx, exec)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		exec.stale.Store(true)
		reason := fmt.Sprintf("execution exceeded %s deadline", timeout)
		g.log.Errorw("job timed out", "job_id", jobID, "timeout", timeout)
		if g.onTimeout != nil {
			g.onTimeout(jobID, reason)
		}
		return fmt.Errorf("%s: %w", reason, common.ErrTimeout)
	case <-ctx.Done():
		exec.stale.Store(true)
		return ctx.Err()
	}
}
