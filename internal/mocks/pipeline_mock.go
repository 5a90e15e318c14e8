package mocks

import (
	"context"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/stretchr/testify/mock"
)

type EnqueuerMock struct {
	mock.Mock
}

func (m *EnqueuerMock) Enqueue(ctx context.Context, queue config.QueueName, name config.JobName, payload any, opts dispatch.EnqueueOptions) (string, error) {
	args := m.Called(ctx, queue, name, payload, opts)
	return args.String(0), args.Error(1)
}

type EmitterMock struct {
	mock.Mock
}

func (m *EmitterMock) Emit(ctx context.Context, eventName string, payload any) error {
	args := m.Called(ctx, eventName, payload)
	return args.Error(0)
}

// ResultCacheMock records Put calls; the cache is fire-and-forget so there
// is nothing to return.
type ResultCacheMock struct {
	mock.Mock
}

func (m *ResultCacheMock) Put(ctx context.Context, kind, id string, value any) {
	m.Called(ctx, kind, id, value)
}
