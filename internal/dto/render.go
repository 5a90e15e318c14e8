package dto

import "github.com/fabriqd/fabriq/internal/models"

type RenderOptions struct {
	Width        int    `json:"width,omitempty" validate:"gte=0,lte=8192"`
	Height       int    `json:"height,omitempty" validate:"gte=0,lte=8192"`
	Quality      string `json:"quality,omitempty"`
	Antialiasing bool   `json:"antialiasing,omitempty"`
	Shadows      bool   `json:"shadows,omitempty"`
}

type RenderJobPayload struct {
	RenderID  string            `json:"render_id" validate:"required"`
	DesignID  string            `json:"design_id,omitempty"`
	ProductID string            `json:"product_id,omitempty"`
	Kind      models.RenderKind `json:"kind" validate:"required,oneof=2d 3d preview"`
	Options   RenderOptions     `json:"options"`
}

type BatchRenderPayload struct {
	BatchID string             `json:"batch_id" validate:"required"`
	Renders []RenderJobPayload `json:"renders" validate:"required,min=1,dive"`
}

// BatchItemResult reports one sub-render's outcome; a failed item never
// aborts its siblings.
type BatchItemResult struct {
	RenderID string `json:"render_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type BatchRenderResult struct {
	BatchID   string            `json:"batch_id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []BatchItemResult `json:"results"`
}
