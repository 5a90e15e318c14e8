package mocks

import (
	"context"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

type JobStoreMock struct {
	mock.Mock
}

func (m *JobStoreMock) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *JobStoreMock) Get(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobStoreMock) List(ctx context.Context, queue config.QueueName) ([]models.Job, error) {
	args := m.Called(ctx, queue)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobStoreMock) AcquireNext(ctx context.Context, queue config.QueueName, workerID string, lockDuration time.Duration) (*models.Job, error) {
	args := m.Called(ctx, queue, workerID, lockDuration)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobStoreMock) MarkCompleted(ctx context.Context, id string, result datatypes.JSON) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *JobStoreMock) RetryLater(ctx context.Context, id string, availableAt time.Time, errMsg string) error {
	args := m.Called(ctx, id, availableAt, errMsg)
	return args.Error(0)
}

func (m *JobStoreMock) MarkFailed(ctx context.Context, id string, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *JobStoreMock) Release(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *JobStoreMock) ListStuckJobs(ctx context.Context, staleDuration time.Duration) ([]models.Job, error) {
	args := m.Called(ctx, staleDuration)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobStoreMock) Counts(ctx context.Context, queue config.QueueName) (dto.QueueCounts, error) {
	args := m.Called(ctx, queue)

	counts, _ := args.Get(0).(dto.QueueCounts)
	return counts, args.Error(1)
}

func (m *JobStoreMock) LastFailed(ctx context.Context, queue config.QueueName) (*models.Job, error) {
	args := m.Called(ctx, queue)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobStoreMock) OldestWaiting(ctx context.Context, queue config.QueueName) (*models.Job, error) {
	args := m.Called(ctx, queue)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}
