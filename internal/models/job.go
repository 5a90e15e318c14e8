package models

import (
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"gorm.io/datatypes"
)

// Job is one unit of deferred work. A row is leased to exactly one worker at
// a time via LockedBy/LockExpiresAt; an expired lock makes the row
// re-claimable, which is the source of at-least-once semantics.
type Job struct {
	ID            string           `gorm:"primaryKey;size:36"`
	Queue         config.QueueName `gorm:"type:varchar(64);not null;index:idx_jobs_queue_status,priority:1"`
	Name          config.JobName   `gorm:"type:varchar(64);not null"`
	Payload       datatypes.JSON   `gorm:"type:jsonb"`
	Priority      config.Priority  `gorm:"type:varchar(16);not null;default:'normal'"`
	PriorityRank  int              `gorm:"not null;default:1;index"`
	Status        config.JobStatus `gorm:"type:varchar(16);not null;default:'waiting';index:idx_jobs_queue_status,priority:2"`
	Attempts      int              `gorm:"default:0;not null"`
	MaxAttempts   int              `gorm:"default:3;not null"`
	Result        datatypes.JSON   `gorm:"type:jsonb"`
	LastError     string           `gorm:"type:text"`
	AvailableAt   time.Time        `gorm:"index"`
	LockedBy      string           `gorm:"size:64"`
	LockExpiresAt *time.Time
	FailedAt      *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
