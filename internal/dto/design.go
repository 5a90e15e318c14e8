package dto

import "github.com/fabriqd/fabriq/internal/config"

// DesignOptions drive generation, post-processing and backend selection.
type DesignOptions struct {
	Quality   config.QualityTier `json:"quality,omitempty"`
	Size      string             `json:"size,omitempty"`
	Style     string             `json:"style,omitempty"`
	NumImages int                `json:"num_images,omitempty" validate:"gte=0,lte=10"`
	Effects   []string           `json:"effects,omitempty"`
	Seed      int64              `json:"seed,omitempty"`
}

// DesignRules carry the product zone layout used for validation and for
// selecting a 3D-capable backend.
type DesignRules struct {
	Zones []config.ZoneKind `json:"zones,omitempty"`
}

type DesignJobPayload struct {
	DesignID string        `json:"design_id" validate:"required"`
	BrandID  string        `json:"brand_id" validate:"required"`
	UserID   string        `json:"user_id,omitempty"`
	Prompt   string        `json:"prompt" validate:"required"`
	Options  DesignOptions `json:"options"`
	Rules    DesignRules   `json:"rules"`
}
