package worker

import (
	"context"
	"time"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/datatypes"
)

// JobStore defines the contract for the queue operations workers need.
type JobStore interface {
	AcquireNext(ctx context.Context, queue config.QueueName, workerID string, lockDuration time.Duration) (*models.Job, error)
	MarkCompleted(ctx context.Context, id string, result datatypes.JSON) error
	RetryLater(ctx context.Context, id string, availableAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// RecordStore defines the contract for the subject entities the job families
// read and write.
type RecordStore interface {
	GetDesign(ctx context.Context, id string) (*models.Design, error)
	UpdateDesignStatus(ctx context.Context, id string, status models.DesignStatus, errMsg string) error
	UpdateDesign(ctx context.Context, id string, updates map[string]any) error
	CreateAsset(ctx context.Context, asset *models.Asset) error
	ListAssets(ctx context.Context, designID string) ([]models.Asset, error)
	GetRender(ctx context.Context, id string) (*models.Render, error)
	SaveRenderResult(ctx context.Context, render *models.Render) error
	UpsertRenderProgress(ctx context.Context, progress *models.RenderProgress) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, errMsg string) error
	SetOrderBundle(ctx context.Context, id string, bundleURL string) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetBrand(ctx context.Context, id string) (*models.Brand, error)
	CreateQualityReport(ctx context.Context, report *models.QualityReport) error
}

// Enqueuer lets a job family schedule follow-up jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue config.QueueName, name config.JobName, payload any, opts dispatch.EnqueueOptions) (string, error)
}

// Emitter appends domain events to the outbox.
type Emitter interface {
	Emit(ctx context.Context, eventName string, payload any) error
}

// ResultCache stores finished results for the API layer. Writes are
// best-effort and never return an error to the worker.
type ResultCache interface {
	Put(ctx context.Context, kind, id string, value any)
}

// Handler executes one job family. Timeout returns the wall-clock deadline
// for a given job name within the family.
type Handler interface {
	Handle(ctx context.Context, exec *guard.Execution, job *models.Job) (any, error)
	Timeout(name config.JobName) time.Duration
}
