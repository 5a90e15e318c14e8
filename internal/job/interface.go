package job

import (
	"context"

	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/gin-gonic/gin"
)

// JobReader defines the contract for job lookups behind the API.
type JobReader interface {
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, queue config.QueueName) ([]models.Job, error)
}

// JobServiceInterface defines the contract for job business logic operations.
type JobServiceInterface interface {
	CreateJob(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error)
	GetJobByID(ctx context.Context, id string) (*dto.JobResponseDTO, error)
	ListJobs(ctx context.Context, queue config.QueueName) ([]dto.JobResponseDTO, error)
}

// JobHandlerInterface defines the contract for HTTP request handlers.
type JobHandlerInterface interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
}
