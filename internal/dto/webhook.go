package dto

import (
	"encoding/json"
	"time"
)

type WebhookRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	// TimestampMs is the sender's claimed event time in Unix milliseconds;
	// it feeds the freshness window, not the idempotency key.
	TimestampMs int64           `json:"timestamp_ms" validate:"required"`
	Payload     json.RawMessage `json:"payload" validate:"required"`
}

type WebhookResponse struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Replayed       bool            `json:"replayed"`
	Success        bool            `json:"success"`
	Response       json.RawMessage `json:"response,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

type QueueHealthDTO struct {
	Name             string      `json:"name"`
	Counts           QueueCounts `json:"counts"`
	IsHealthy        bool        `json:"is_healthy"`
	LastFailedJobID  string      `json:"last_failed_job_id,omitempty"`
	LastFailedReason string      `json:"last_failed_reason,omitempty"`
	LastFailedAt     *time.Time  `json:"last_failed_at,omitempty"`
	OldestWaitingID  string      `json:"oldest_waiting_job_id,omitempty"`
	OldestWaitingAt  *time.Time  `json:"oldest_waiting_at,omitempty"`
}

type HealthReportDTO struct {
	Status string           `json:"status"`
	Queues []QueueHealthDTO `json:"queues"`
}
