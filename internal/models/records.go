package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subject entities the pipeline reads and writes through the record store.
// Jobs reference them by id but do not own them.

type DesignStatus string

const (
	DesignPending    DesignStatus = "PENDING"
	DesignProcessing DesignStatus = "PROCESSING"
	DesignCompleted  DesignStatus = "COMPLETED"
	DesignFailed     DesignStatus = "FAILED"
)

type Design struct {
	ID        string         `gorm:"primaryKey;size:36"`
	BrandID   string         `gorm:"size:36;index;not null"`
	ProductID string         `gorm:"size:36;index"`
	Status    DesignStatus   `gorm:"type:varchar(16);not null;default:'PENDING'"`
	Prompt    string         `gorm:"type:text"`
	Options   datatypes.JSON `gorm:"type:jsonb"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

type Asset struct {
	ID        string         `gorm:"primaryKey;size:36"`
	DesignID  string         `gorm:"size:36;index;not null"`
	URL       string         `gorm:"type:text;not null"`
	Format    string         `gorm:"size:16"`
	Width     int
	Height    int
	Size      int64
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

type RenderKind string

const (
	RenderKind2D      RenderKind = "2d"
	RenderKind3D      RenderKind = "3d"
	RenderKindPreview RenderKind = "preview"
)

type RenderStatus string

const (
	RenderPending   RenderStatus = "PENDING"
	RenderRunning   RenderStatus = "RUNNING"
	RenderCompleted RenderStatus = "COMPLETED"
	RenderFailed    RenderStatus = "FAILED"
)

type Render struct {
	ID           string         `gorm:"primaryKey;size:36"`
	DesignID     string         `gorm:"size:36;index"`
	ProductID    string         `gorm:"size:36;index"`
	Kind         RenderKind     `gorm:"type:varchar(16);not null"`
	Status       RenderStatus   `gorm:"type:varchar(16);not null;default:'PENDING'"`
	URL          string         `gorm:"type:text"`
	ThumbnailURL string         `gorm:"type:text"`
	Error        string         `gorm:"type:text"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

// RenderProgress is upserted per stage so polling clients can observe
// partial progress. Readers must tolerate duplicate or stale reads.
type RenderProgress struct {
	RenderID   string    `gorm:"primaryKey;size:36"`
	Stage      string    `gorm:"size:32;not null"`
	Percentage int       `gorm:"not null"`
	Message    string    `gorm:"type:text"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

type OrderStatus string

const (
	OrderPaid               OrderStatus = "PAID"
	OrderProcessing         OrderStatus = "PROCESSING"
	OrderReadyForProduction OrderStatus = "READY_FOR_PRODUCTION"
	OrderProductionFailed   OrderStatus = "PRODUCTION_FAILED"
	OrderQualityIssue       OrderStatus = "QUALITY_ISSUE"
	OrderShipped            OrderStatus = "SHIPPED"
)

type Order struct {
	ID        string         `gorm:"primaryKey;size:36"`
	BrandID   string         `gorm:"size:36;index;not null"`
	DesignID  string         `gorm:"size:36;index"`
	ProductID string         `gorm:"size:36;index"`
	Status    OrderStatus    `gorm:"type:varchar(24);not null"`
	Quantity  int            `gorm:"default:1"`
	BundleURL string         `gorm:"type:text"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

type Product struct {
	ID             string    `gorm:"primaryKey;size:36"`
	BrandID        string    `gorm:"size:36;index"`
	Name           string    `gorm:"size:255"`
	SKU            string    `gorm:"size:64"`
	BaseAssetURL   string    `gorm:"type:text"`
	Model3DURL     string    `gorm:"type:text"`
	IsActive       bool      `gorm:"default:true"`
	ProductionDays int       `gorm:"default:5"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

type Brand struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type QualityReport struct {
	ID           uint           `gorm:"primaryKey"`
	OrderID      string         `gorm:"size:36;index;not null"`
	OverallScore float64        `gorm:"not null"`
	Issues       datatypes.JSON `gorm:"type:jsonb"`
	Passed       bool           `gorm:"not null"`
	TotalChecked int
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
