// Package collab holds the external collaborators the workers depend on:
// the generation backend, prompt moderation, object storage, and the factory
// endpoint. Workers accept these interfaces so tests swap in mocks and local
// runs use the simulated implementations.
package collab

import (
	"context"

	"github.com/fabriqd/fabriq/internal/config"
)

// GenerationParams describe one backend invocation.
type GenerationParams struct {
	Prompt    string
	Model     config.BackendModel
	Size      string
	Style     string
	NumImages int
	Seed      int64
}

// Artifact is one produced image or model file, not yet uploaded.
type Artifact struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// GenerationBackend produces artifacts from a prompt.
type GenerationBackend interface {
	Generate(ctx context.Context, params GenerationParams) ([]Artifact, error)
}

// Moderator reviews a prompt before it reaches the backend. A rejection
// wraps common.ErrModerationRejected and is terminal.
type Moderator interface {
	Review(ctx context.Context, prompt string) error
}

// ObjectStore uploads artifact bytes and returns a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// FactoryClient notifies an external factory that an order bundle is ready.
// Failures are logged by callers, never escalated.
type FactoryClient interface {
	Notify(ctx context.Context, url string, payload any) error
}
