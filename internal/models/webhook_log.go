package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookLogEntry records the outcome of one inbound notification. The
// unique index on IdempotencyKey is what makes concurrent deliveries of the
// same event collapse to a single processing attempt: the loser of the
// insert race re-reads the winner's row instead of running the handler.
type WebhookLogEntry struct {
	ID             uint           `gorm:"primaryKey"`
	IdempotencyKey string         `gorm:"size:128;uniqueIndex;not null"`
	TenantID       string         `gorm:"size:64;index;not null"`
	EventTimestamp time.Time      `gorm:"not null"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	Success        bool           `gorm:"not null"`
	Response       datatypes.JSON `gorm:"type:jsonb"`
	Error          string         `gorm:"type:text"`
	Attempts       int            `gorm:"default:1;not null"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}
