package webhook

import (
	"context"
	"encoding/json"

	"github.com/fabriqd/fabriq/internal/models"
	"github.com/gin-gonic/gin"
)

// LogStore defines the contract for webhook log persistence.
type LogStore interface {
	FindByKey(ctx context.Context, key string) (*models.WebhookLogEntry, error)
	Insert(ctx context.Context, entry *models.WebhookLogEntry) error
	IncrementAttempts(ctx context.Context, key string) error
	UpdateOutcome(ctx context.Context, key string, success bool, response []byte, errMsg string) error
}

// Handler runs the business effect of one notification. The service
// guarantees it is invoked at most once per idempotency key.
type Handler func(ctx context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error)

// WebhookHandlerInterface defines the contract for HTTP request handlers.
type WebhookHandlerInterface interface {
	Receive(c *gin.Context)
	Replay(c *gin.Context)
}
