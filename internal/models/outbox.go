package models

import (
	"time"

	"gorm.io/datatypes"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent is a durable domain event written alongside a job's result and
// relayed to the notification sink at least once by the publish-outbox job.
type OutboxEvent struct {
	ID         uint           `gorm:"primaryKey"`
	EventName  string         `gorm:"size:64;index;not null"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	Status     OutboxStatus   `gorm:"type:varchar(16);not null;default:'pending';index"`
	RetryCount int            `gorm:"default:0;not null"`
	LastError  string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}
