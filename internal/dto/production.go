package dto

type ProductionOptions struct {
	Materials           []string `json:"materials,omitempty"`
	Finishes            []string `json:"finishes,omitempty"`
	QualityLevel        string   `json:"quality_level,omitempty"`
	SpecialRequirements []string `json:"special_requirements,omitempty"`
}

type ProductionJobPayload struct {
	OrderID           string            `json:"order_id" validate:"required"`
	BrandID           string            `json:"brand_id" validate:"required"`
	DesignID          string            `json:"design_id" validate:"required"`
	ProductID         string            `json:"product_id" validate:"required"`
	Quantity          int               `json:"quantity" validate:"gte=1"`
	Options           ProductionOptions `json:"options"`
	FactoryWebhookURL string            `json:"factory_webhook_url,omitempty" validate:"omitempty,url"`
}

// FactoryNotifyPayload is the best-effort factory webhook, enqueued as its
// own job so a delivery failure can never fail the owning bundle job.
type FactoryNotifyPayload struct {
	OrderID    string `json:"order_id" validate:"required"`
	WebhookURL string `json:"webhook_url" validate:"required,url"`
	BundleURL  string `json:"bundle_url" validate:"required"`
}
