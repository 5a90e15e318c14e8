package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/mocks"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type fakeHandler struct {
	timeout time.Duration
	fn      func(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error)
}

func (h *fakeHandler) Handle(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error) {
	return h.fn(ctx, exec, job)
}

func (h *fakeHandler) Timeout(config.JobName) time.Duration {
	if h.timeout > 0 {
		return h.timeout
	}
	return time.Second
}

func workerConfig() *config.WorkerConfig {
	return &config.WorkerConfig{
		MaxWorkers:   1,
		LockDuration: time.Minute,
		IdleDelayMin: time.Second,
		IdleDelayMax: 60 * time.Second,
	}
}

func newTestWorker(jobs *mocks.JobStoreMock, handler Handler) *Worker {
	handlers := map[config.QueueName]Handler{config.QueueDesignGeneration: handler}
	return NewWorker(1, jobs, handlers, []config.QueueName{config.QueueDesignGeneration}, workerConfig(), zap.NewNop().Sugar())
}

func testJob(attempts int) *models.Job {
	return &models.Job{
		ID:          "job-1",
		Queue:       config.QueueDesignGeneration,
		Name:        config.JobGenerateDesign,
		Status:      config.JobStatusActive,
		Attempts:    attempts,
		MaxAttempts: 3,
	}
}

func TestWorker_Process_Success(t *testing.T) {
	jobs := new(mocks.JobStoreMock)
	handler := &fakeHandler{fn: func(context.Context, *guard.Execution, *models.Job) (any, error) {
		return map[string]any{"done": true}, nil
	}}
	w := newTestWorker(jobs, handler)

	jobs.On("MarkCompleted", mock.Anything, "job-1", mock.Anything).Return(nil)

	w.process(context.Background(), testJob(1))

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "RetryLater", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Process_RetryableErrorBacksOff(t *testing.T) {
	jobs := new(mocks.JobStoreMock)
	handler := &fakeHandler{fn: func(context.Context, *guard.Execution, *models.Job) (any, error) {
		return nil, errors.New("backend hiccup")
	}}
	w := newTestWorker(jobs, handler)

	before := time.Now()
	jobs.On("RetryLater", mock.Anything, "job-1", mock.MatchedBy(func(at time.Time) bool {
		// first attempt retries after the base backoff
		return at.After(before.Add(9*time.Second)) && at.Before(before.Add(12*time.Second))
	}), "backend hiccup").Return(nil)

	w.process(context.Background(), testJob(1))

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Process_FatalErrorFailsImmediately(t *testing.T) {
	jobs := new(mocks.JobStoreMock)
	handler := &fakeHandler{fn: func(context.Context, *guard.Execution, *models.Job) (any, error) {
		return nil, common.Fatalf("payload is garbage")
	}}
	w := newTestWorker(jobs, handler)

	jobs.On("MarkFailed", mock.Anything, "job-1", "payload is garbage").Return(nil)

	w.process(context.Background(), testJob(1))

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "RetryLater", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Process_ExhaustedAttemptsFail(t *testing.T) {
	jobs := new(mocks.JobStoreMock)
	handler := &fakeHandler{fn: func(context.Context, *guard.Execution, *models.Job) (any, error) {
		return nil, errors.New("still broken")
	}}
	w := newTestWorker(jobs, handler)

	jobs.On("MarkFailed", mock.Anything, "job-1", "still broken").Return(nil)

	w.process(context.Background(), testJob(3))

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "RetryLater", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Process_TimeoutFailsJobAndDiscardsLateResult(t *testing.T) {
	jobs := new(mocks.JobStoreMock)

	staleErr := make(chan error, 1)
	handler := &fakeHandler{
		timeout: 20 * time.Millisecond,
		fn: func(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error) {
			time.Sleep(80 * time.Millisecond)
			// the overrun execution tries a late write
			staleErr <- exec.Check()
			return map[string]any{"late": true}, nil
		},
	}
	w := newTestWorker(jobs, handler)

	jobs.On("MarkFailed", mock.Anything, "job-1", mock.MatchedBy(func(reason string) bool {
		return len(reason) > 0
	})).Return(nil)

	w.process(context.Background(), testJob(1))

	assert.ErrorIs(t, <-staleErr, guard.ErrStaleExecution)
	jobs.AssertCalled(t, "MarkFailed", mock.Anything, "job-1", mock.Anything)
	jobs.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertNotCalled(t, "RetryLater", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_Process_UnknownQueueFails(t *testing.T) {
	jobs := new(mocks.JobStoreMock)
	w := NewWorker(1, jobs, map[config.QueueName]Handler{}, nil, workerConfig(), zap.NewNop().Sugar())

	jobs.On("MarkFailed", mock.Anything, "job-1", mock.Anything).Return(nil)

	w.process(context.Background(), testJob(1))

	jobs.AssertExpectations(t)
}
