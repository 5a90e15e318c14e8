package mocks

import (
	"context"

	"github.com/fabriqd/fabriq/internal/models"
	"github.com/stretchr/testify/mock"
)

type WebhookLogMock struct {
	mock.Mock
}

func (m *WebhookLogMock) FindByKey(ctx context.Context, key string) (*models.WebhookLogEntry, error) {
	args := m.Called(ctx, key)

	entry, _ := args.Get(0).(*models.WebhookLogEntry)
	return entry, args.Error(1)
}

func (m *WebhookLogMock) Insert(ctx context.Context, entry *models.WebhookLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *WebhookLogMock) IncrementAttempts(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *WebhookLogMock) UpdateOutcome(ctx context.Context, key string, success bool, response []byte, errMsg string) error {
	args := m.Called(ctx, key, success, response, errMsg)
	return args.Error(0)
}
