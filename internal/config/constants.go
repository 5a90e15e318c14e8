package config

import "time"

type QueueName string

const (
	QueueDesignGeneration     QueueName = "design-generation"
	QueueRenderProcessing     QueueName = "render-processing"
	QueueProductionProcessing QueueName = "production-processing"
	QueueNotifications        QueueName = "notifications"
)

// RegisteredQueues is the closed set of queues wired at process start.
// The dispatcher and the health aggregator both receive it by handle.
var RegisteredQueues = []QueueName{
	QueueDesignGeneration,
	QueueRenderProcessing,
	QueueProductionProcessing,
	QueueNotifications,
}

type JobName string

const (
	JobGenerateDesign JobName = "generate-design"
	JobValidateDesign JobName = "validate-design"
	JobOptimizeDesign JobName = "optimize-design"

	JobRender2D      JobName = "render-2d"
	JobRender3D      JobName = "render-3d"
	JobRenderPreview JobName = "render-preview"
	JobBatchRender   JobName = "batch-render"

	JobCreateBundle         JobName = "create-bundle"
	JobQualityControl       JobName = "quality-control"
	JobGenerateInstructions JobName = "generate-instructions"

	JobNotifyFactory JobName = "notify-factory"
	JobPublishOutbox JobName = "publish-outbox"
)

// JobsByQueue validates that an enqueued job name belongs to its queue.
var JobsByQueue = map[QueueName][]JobName{
	QueueDesignGeneration:     {JobGenerateDesign, JobValidateDesign, JobOptimizeDesign},
	QueueRenderProcessing:     {JobRender2D, JobRender3D, JobRenderPreview, JobBatchRender},
	QueueProductionProcessing: {JobCreateBundle, JobQualityControl, JobGenerateInstructions},
	QueueNotifications:        {JobNotifyFactory, JobPublishOutbox},
}

type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusDelayed   JobStatus = "delayed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for dequeue; higher ranks are claimed first.
// No starvation guarantee is made for lower tiers.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type QualityTier string

const (
	TierDraft    QualityTier = "draft"
	TierStandard QualityTier = "standard"
	TierHigh     QualityTier = "high"
	TierUltra    QualityTier = "ultra"
)

type ZoneKind string

const (
	ZoneFlat ZoneKind = "flat"
	Zone3D   ZoneKind = "3d"
)

type BackendModel string

const (
	ModelDallE3     BackendModel = "dall-e-3"
	ModelMidjourney BackendModel = "midjourney-v6"
	ModelSDXL       BackendModel = "stable-diffusion-xl"
	ModelSD3D       BackendModel = "stable-diffusion-3d"
)

// ModelForTier maps quality tiers to generation backends. A 3D zone in the
// design rules overrides the tier and selects the 3D-capable backend.
var ModelForTier = map[QualityTier]BackendModel{
	TierDraft:    ModelSDXL,
	TierStandard: ModelSDXL,
	TierHigh:     ModelMidjourney,
	TierUltra:    ModelDallE3,
}

// TierImageQuota caps artifacts per request by tier. The pricier the
// backend, the lower the cap.
var TierImageQuota = map[QualityTier]int{
	TierDraft:    10,
	TierStandard: 10,
	TierHigh:     6,
	TierUltra:    4,
}

func SelectModel(tier QualityTier, zones []ZoneKind) BackendModel {
	for _, z := range zones {
		if z == Zone3D {
			return ModelSD3D
		}
	}
	if m, ok := ModelForTier[tier]; ok {
		return m
	}
	return ModelSDXL
}

// Per-job-family wall-clock deadlines enforced by the timeout guard.
const (
	TimeoutRender2D   = 60 * time.Second
	TimeoutRender3D   = 180 * time.Second
	TimeoutGeneration = 90 * time.Second
	TimeoutProduction = 120 * time.Second
	TimeoutNotify     = 30 * time.Second
)

const (
	DefaultMaxAttempts = 3
	// BackoffBase doubles per attempt, capped at BackoffMax.
	BackoffBase = 10 * time.Second
	BackoffMax  = 10 * time.Minute
)

// Quality-control gate: orders whose aggregate asset score falls below this
// are moved to QUALITY_ISSUE.
const QualityPassThreshold = 0.8

// Batch renders run at most this many sub-renders concurrently.
const BatchRenderConcurrency = 3

// Replay-protection freshness window for inbound webhooks.
const DefaultWebhookMaxAge = 5 * time.Minute
