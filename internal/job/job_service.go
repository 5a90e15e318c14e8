package job

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dispatch"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"gorm.io/gorm"
)

// Enqueuer is the dispatcher slice the service needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue config.QueueName, name config.JobName, payload any, opts dispatch.EnqueueOptions) (string, error)
}

type JobService struct {
	enqueuer Enqueuer
	reader   JobReader
}

func NewJobService(enqueuer Enqueuer, reader JobReader) *JobService {
	return &JobService{enqueuer: enqueuer, reader: reader}
}

var _ JobServiceInterface = (*JobService)(nil)

// CreateJob validates the request against its job family's payload schema
// and hands it to the dispatcher. Queue and name membership are re-checked
// by the dispatcher; this layer maps those failures onto API errors.
func (s *JobService) CreateJob(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	if !json.Valid(req.Payload) {
		return nil, common.Errf(http.StatusBadRequest, "payload must be valid JSON")
	}

	if err := s.validateFamilyPayload(req.Name, req.Payload); err != nil {
		return nil, err
	}

	id, err := s.enqueuer.Enqueue(ctx, req.Queue, req.Name, req.Payload, dispatch.EnqueueOptions{
		Priority:    req.Priority,
		Delay:       req.Delay,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidQueue) {
			return nil, common.NewAPIError(
				http.StatusBadRequest,
				"invalid queue or job name",
				map[string]any{
					"queue":   req.Queue,
					"name":    req.Name,
					"allowed": config.JobsByQueue,
				},
			)
		}
		return nil, common.Errf(http.StatusInternalServerError, "failed to enqueue job")
	}

	return s.GetJobByID(ctx, id)
}

func (s *JobService) validateFamilyPayload(name config.JobName, raw json.RawMessage) error {
	switch name {
	case config.JobGenerateDesign, config.JobValidateDesign, config.JobOptimizeDesign:
		return validatePayload[dto.DesignJobPayload](raw)
	case config.JobRender2D, config.JobRender3D, config.JobRenderPreview:
		return validatePayload[dto.RenderJobPayload](raw)
	case config.JobBatchRender:
		return validatePayload[dto.BatchRenderPayload](raw)
	case config.JobCreateBundle, config.JobQualityControl, config.JobGenerateInstructions:
		return validatePayload[dto.ProductionJobPayload](raw)
	case config.JobNotifyFactory:
		return validatePayload[dto.FactoryNotifyPayload](raw)
	case config.JobPublishOutbox:
		return nil
	default:
		return common.Errf(http.StatusBadRequest, "unknown job name %q", name)
	}
}

// GetJobByID retrieves a job by its id and maps repository errors to
// appropriate API errors.
func (s *JobService) GetJobByID(ctx context.Context, id string) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	job, err := s.reader.Get(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) || strings.Contains(err.Error(), "job not found") {
			return nil, common.Errf(http.StatusNotFound, "job not found")
		}
		return nil, common.Errf(http.StatusInternalServerError, "failed to get job")
	}

	resp := toResponseDTO(job)
	return &resp, nil
}

// ListJobs retrieves all jobs belonging to one queue.
func (s *JobService) ListJobs(ctx context.Context, queue config.QueueName) ([]dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	jobs, err := s.reader.List(ctx, queue)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		return nil, common.Errf(http.StatusInternalServerError, "failed to list jobs")
	}

	dtos := make([]dto.JobResponseDTO, len(jobs))
	for i := range jobs {
		dtos[i] = toResponseDTO(&jobs[i])
	}
	return dtos, nil
}

func toResponseDTO(job *models.Job) dto.JobResponseDTO {
	return dto.JobResponseDTO{
		ID:          job.ID,
		Queue:       job.Queue,
		Name:        job.Name,
		Payload:     json.RawMessage(job.Payload),
		Priority:    job.Priority,
		Status:      job.Status,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		Result:      json.RawMessage(job.Result),
		Error:       job.LastError,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}
