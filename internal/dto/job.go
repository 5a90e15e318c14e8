package dto

import (
	"encoding/json"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
)

type JobCreateDTO struct {
	Queue       config.QueueName `json:"queue" validate:"required"`
	Name        config.JobName   `json:"name" validate:"required"`
	Payload     json.RawMessage  `json:"payload" validate:"required"`
	Priority    config.Priority  `json:"priority,omitempty"`
	MaxAttempts int              `json:"max_attempts" validate:"gte=0,lte=20"`
	Delay       time.Duration    `json:"delay,omitempty"`
}

type JobResponseDTO struct {
	ID          string           `json:"id"`
	Queue       config.QueueName `json:"queue"`
	Name        config.JobName   `json:"name"`
	Payload     json.RawMessage  `json:"payload"`
	Priority    config.Priority  `json:"priority"`
	Status      config.JobStatus `json:"status"`
	Attempts    int              `json:"attempts"`
	MaxAttempts int              `json:"max_attempts"`
	Result      json.RawMessage  `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
