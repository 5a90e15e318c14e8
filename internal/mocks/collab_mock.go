package mocks

import (
	"context"

	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/stretchr/testify/mock"
)

type GenerationBackendMock struct {
	mock.Mock
}

func (m *GenerationBackendMock) Generate(ctx context.Context, params collab.GenerationParams) ([]collab.Artifact, error) {
	args := m.Called(ctx, params)

	artifacts, _ := args.Get(0).([]collab.Artifact)
	return artifacts, args.Error(1)
}

type ModeratorMock struct {
	mock.Mock
}

func (m *ModeratorMock) Review(ctx context.Context, prompt string) error {
	args := m.Called(ctx, prompt)
	return args.Error(0)
}

type ObjectStoreMock struct {
	mock.Mock
}

func (m *ObjectStoreMock) Upload(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	args := m.Called(ctx, data, path, contentType)
	return args.String(0), args.Error(1)
}

type FactoryClientMock struct {
	mock.Mock
}

func (m *FactoryClientMock) Notify(ctx context.Context, url string, payload any) error {
	args := m.Called(ctx, url, payload)
	return args.Error(0)
}
