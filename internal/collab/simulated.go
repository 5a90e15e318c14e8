package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"go.uber.org/zap"
)

// Simulated collaborators for local runs and demos. Latencies are rough
// stand-ins for the real services.

type SimulatedBackend struct {
	log *zap.SugaredLogger
}

func NewSimulatedBackend(log *zap.SugaredLogger) *SimulatedBackend {
	return &SimulatedBackend{log: log}
}

var _ GenerationBackend = (*SimulatedBackend)(nil)

func (b *SimulatedBackend) Generate(ctx context.Context, params GenerationParams) ([]Artifact, error) {
	delay := 200 * time.Millisecond
	if params.Model == config.ModelSD3D {
		delay = 500 * time.Millisecond
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	count := params.NumImages
	if count < 1 {
		count = 1
	}
	artifacts := make([]Artifact, count)
	for i := range artifacts {
		artifacts[i] = Artifact{
			Data:   fmt.Appendf(nil, "%s/%d/%s", params.Model, i, params.Prompt),
			Format: "png",
			Width:  1024,
			Height: 1024,
		}
	}

	b.log.Infow("generated artifacts", "model", params.Model, "count", count)
	return artifacts, nil
}

type SimulatedModerator struct{}

func NewSimulatedModerator() *SimulatedModerator { return &SimulatedModerator{} }

var _ Moderator = (*SimulatedModerator)(nil)

var blockedTerms = []string{"counterfeit", "weapon", "gore"}

func (m *SimulatedModerator) Review(_ context.Context, prompt string) error {
	lower := strings.ToLower(prompt)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return fmt.Errorf("prompt contains %q: %w", term, common.ErrModerationRejected)
		}
	}
	return nil
}

type SimulatedObjectStore struct {
	baseURL string
	log     *zap.SugaredLogger
}

func NewSimulatedObjectStore(baseURL string, log *zap.SugaredLogger) *SimulatedObjectStore {
	if baseURL == "" {
		baseURL = "https://cdn.fabriq.local"
	}
	return &SimulatedObjectStore{baseURL: baseURL, log: log}
}

var _ ObjectStore = (*SimulatedObjectStore)(nil)

func (s *SimulatedObjectStore) Upload(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, path)
	s.log.Infow("uploaded artifact", "path", path, "bytes", len(data), "content_type", contentType)
	return url, nil
}

type SimulatedFactoryClient struct {
	log *zap.SugaredLogger
}

func NewSimulatedFactoryClient(log *zap.SugaredLogger) *SimulatedFactoryClient {
	return &SimulatedFactoryClient{log: log}
}

var _ FactoryClient = (*SimulatedFactoryClient)(nil)

func (f *SimulatedFactoryClient) Notify(ctx context.Context, url string, payload any) error {
	select {
	case <-time.After(150 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	f.log.Infow("notified factory", "url", url)
	return nil
}
